package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	commons3 "github.com/xxxsen/common/s3"
)

const defaultS3Prefix = "datasets"

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	// Prefix is the object key prefix for exported files. Defaults to
	// "datasets".
	Prefix string `json:"prefix"`
	UseSSL bool   `json:"use_ssl"`
}

// s3Store uploads exports to a bucket. It is write only: re-indexing reads
// a local copy of the dataset.
type s3Store struct {
	client *commons3.S3Client
	cfg    s3Config
}

func newS3Store(cfg *s3Config) (*s3Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 endpoint/bucket/secret_id/secret_key are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		cfg.Prefix = defaultS3Prefix
	}
	client, err := commons3.New(
		commons3.WithEndpoint(cfg.Endpoint),
		commons3.WithSecret(cfg.SecretID, cfg.SecretKey),
		commons3.WithBucket(cfg.Bucket),
		commons3.WithRegion(cfg.Region),
		commons3.WithSSL(cfg.UseSSL),
	)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &s3Store{client: client, cfg: *cfg}, nil
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) objectKey(key string) string {
	return path.Join(s.cfg.Prefix, key)
}

// Location renders the object as an s3 style URL on the configured
// endpoint.
func (s *s3Store) Location(key string) string {
	endpoint := s.cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.objectKey(key))
	}
	u.Path = path.Join("/", u.Path, s.cfg.Bucket, s.objectKey(key))
	return u.String()
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	body := readSeekNopCloser{bytes.NewReader(data)}
	if _, err := s.client.Upload(ctx, s.objectKey(key), body, int64(len(data))); err != nil {
		return fmt.Errorf("upload %s: %w", s.objectKey(key), err)
	}
	return nil
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("s3 file store is write only")
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error {
	return nil
}
