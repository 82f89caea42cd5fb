package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/medrag/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "medrag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, ApplyMigrations(db))
	require.NoError(t, ApplyMigrations(db))
	return db
}

func TestEmbeddingCacheRepo_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	r := NewEmbeddingCacheRepo(openTestDB(t))

	_, ok, err := r.Get(ctx, "m", "RETRIEVAL_QUERY", "h1")
	require.NoError(t, err)
	require.False(t, ok)

	old := time.Now().Add(-48 * time.Hour).Unix()
	require.NoError(t, r.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: "h1", Embedding: []float32{1, 2}, Ctime: old}))
	require.NoError(t, r.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: "h1", Embedding: []float32{3, 4}, Ctime: old}))
	require.NoError(t, r.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: "h2", Embedding: []float32{5}, Ctime: time.Now().Unix()}))

	values, ok, err := r.Get(ctx, "m", "RETRIEVAL_QUERY", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{3, 4}, values)

	removed, err := r.DeleteBefore(ctx, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	_, ok, err = r.Get(ctx, "m", "RETRIEVAL_QUERY", "h2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVectorRepo_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	r := NewVectorRepo(openTestDB(t))

	require.NoError(t, r.Upsert(ctx, []model.VectorEntry{
		{Collection: "a", ID: "1", Content: "one", Metadata: map[string]interface{}{"year": 2020}, Embedding: []float32{1, 0}},
		{Collection: "a", ID: "2", Content: "two", Metadata: map[string]interface{}{}, Embedding: []float32{0, 1}},
		{Collection: "b", ID: "1", Content: "other", Metadata: map[string]interface{}{}, Embedding: []float32{1, 1}},
	}))
	require.NoError(t, r.Upsert(ctx, []model.VectorEntry{
		{Collection: "a", ID: "1", Content: "one v2", Metadata: map[string]interface{}{"year": 2021}, Embedding: []float32{1, 0}},
	}))

	count, err := r.Count(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	items, err := r.ListByCollection(ctx, "a")
	require.NoError(t, err)
	require.Len(t, items, 2)
	byID := map[string]model.VectorEntry{}
	for _, item := range items {
		byID[item.ID] = item
	}
	require.Equal(t, "one v2", byID["1"].Content)
	require.Equal(t, float64(2021), byID["1"].Metadata["year"])
	require.NoError(t, r.Checkpoint(ctx))
}
