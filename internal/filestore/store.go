// Package filestore writes pipeline artifacts such as exported datasets to
// a local directory or an S3 compatible bucket.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/medrag/internal/config"
)

// Store holds small named artifacts. Keys are flat file names.
type Store interface {
	Type() string
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Location describes where key is stored, for logs and CLI output.
	Location(key string) string
}

func New(cfg config.FileStoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "local":
		lc := &localConfig{}
		if err := decodeConfig(cfg.Data, lc); err != nil {
			return nil, err
		}
		return newLocalStore(lc)
	case "s3":
		sc := &s3Config{}
		if err := decodeConfig(cfg.Data, sc); err != nil {
			return nil, err
		}
		return newS3Store(sc)
	case "":
		return nil, fmt.Errorf("file_store.type is required")
	default:
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("file store config is required")
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode file store config: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode file store config: %w", err)
	}
	return nil
}

func checkKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return fmt.Errorf("invalid file key %q", key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("file key %q must not contain a path separator", key)
	}
	return nil
}
