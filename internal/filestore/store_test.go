package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/medrag/internal/config"
)

func TestLocalStore_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datasets")
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	ctx := context.Background()
	body := []byte("id,title\n1,Nickel\n")
	require.NoError(t, store.Put(ctx, "data.csv", body))
	require.NoError(t, store.Put(ctx, "data.csv", body))
	require.Equal(t, filepath.Join(dir, "data.csv"), store.Location("data.csv"))

	got, err := store.Get(ctx, "data.csv")
	require.NoError(t, err)
	require.Equal(t, body, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLocalStore_RejectsPaths(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	ctx := context.Background()
	require.Error(t, store.Put(ctx, "../escape.csv", []byte("x")))
	require.Error(t, store.Put(ctx, "", []byte("x")))
	_, err = store.Get(ctx, `a\b.json`)
	require.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.FileStoreConfig{})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "ftp", Data: map[string]interface{}{}})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{"endpoint": "minio:9000"}})
	require.Error(t, err)
}

func TestS3Location(t *testing.T) {
	s := &s3Store{cfg: s3Config{Endpoint: "minio.local:9000", Bucket: "medrag", Prefix: "exports"}}
	require.Equal(t, "http://minio.local:9000/medrag/exports/data.json", s.Location("data.json"))
	s.cfg.UseSSL = true
	require.Equal(t, "https://minio.local:9000/medrag/exports/data.json", s.Location("data.json"))
	s.cfg.Endpoint = "https://storage.example.org/base/"
	require.Equal(t, "https://storage.example.org/base/medrag/exports/data.json", s.Location("data.json"))
}
