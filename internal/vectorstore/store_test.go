package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDocs() []Document {
	return []Document{
		{ID: "a", Content: "nickel allergy", Metadata: map[string]interface{}{"year": 2021, "source": "pubmed"}, Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "peanut allergy", Metadata: map[string]interface{}{"year": "n.d."}, Embedding: []float32{0, 1, 0}},
		{ID: "c", Content: "mixed", Metadata: map[string]interface{}{"title": nil}, Embedding: []float32{0.7, 0.7, 0}},
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	mem, err := New("chromem", "", nil)
	require.NoError(t, err)
	persistent, err := New("chromem", "papers", map[string]interface{}{"dir": filepath.Join(dir, "chroma")})
	require.NoError(t, err)
	sqlite, err := New("sqlite", "papers", map[string]interface{}{"path": filepath.Join(dir, "vec.db")})
	require.NoError(t, err)
	stores := map[string]Store{"chromem-mem": mem, "chromem-disk": persistent, "sqlite": sqlite}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_QueryNearestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, sampleDocs()))
			count, err := s.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, 3, count)

			matches, err := s.Query(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			require.Equal(t, "a", matches[0].ID)
			require.InDelta(t, 0, matches[0].Distance, 1e-5)
			require.Equal(t, "c", matches[1].ID)
			require.True(t, matches[0].Distance <= matches[1].Distance)
			require.Equal(t, "nickel allergy", matches[0].Content)
			require.Contains(t, matches[0].Metadata, "source")
		})
	}
}

func TestStores_KLargerThanCollection(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			matches, err := s.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			require.Empty(t, matches)

			require.NoError(t, s.Upsert(ctx, sampleDocs()[:2]))
			matches, err = s.Query(ctx, []float32{0, 1, 0}, 5)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			require.Equal(t, "b", matches[0].ID)
		})
	}
}

func TestStores_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, sampleDocs()))
			require.NoError(t, s.Upsert(ctx, []Document{{ID: "a", Content: "nickel allergy v2", Embedding: []float32{1, 0, 0}}}))
			count, err := s.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, 3, count)
			matches, err := s.Query(ctx, []float32{1, 0, 0}, 1)
			require.NoError(t, err)
			require.Equal(t, "nickel allergy v2", matches[0].Content)
			require.NoError(t, s.Persist(ctx))
		})
	}
}

func TestStores_RejectInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, s.Upsert(ctx, []Document{{ID: "", Embedding: []float32{1}}}))
			require.Error(t, s.Upsert(ctx, []Document{{ID: "x"}}))
			require.Error(t, s.Upsert(ctx, []Document{{
				ID:        "nested",
				Embedding: []float32{1, 0, 0},
				Metadata:  map[string]interface{}{"authors": []string{"A", "B"}},
			}}))
			n, err := s.Count(ctx)
			require.NoError(t, err)
			require.Zero(t, n)
			require.NoError(t, s.Upsert(ctx, nil))
		})
	}
}

func TestChromemStore_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "chroma")
	s, err := NewChromemStore(dir, "papers", false, "")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, sampleDocs()))
	require.NoError(t, s.Persist(ctx))

	reopened, err := NewChromemStore(dir, "papers", false, "")
	require.NoError(t, err)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	matches, err := reopened.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Equal(t, "b", matches[0].ID)
	require.Equal(t, "n.d.", matches[0].Metadata["year"])
}

func TestSQLiteStore_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vec.db")
	s, err := New("sqlite", "papers", map[string]interface{}{"path": path})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, sampleDocs()))
	require.NoError(t, s.Persist(ctx))
	require.NoError(t, s.Close())

	reopened, err := New("sqlite", "papers", map[string]interface{}{"path": path})
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	other, err := New("sqlite", "other", map[string]interface{}{"path": path})
	require.NoError(t, err)
	defer other.Close()
	count, err = other.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestChromemStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	snapshot := filepath.Join(t.TempDir(), "export.gob")
	s, err := NewChromemStore("", "papers", false, snapshot)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, sampleDocs()))
	require.NoError(t, s.Persist(ctx))
	require.FileExists(t, snapshot)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("", "", nil)
	require.Error(t, err)
	_, err = New("faiss", "", nil)
	require.Error(t, err)
	_, err = New("sqlite", "", nil)
	require.Error(t, err)
	_, err = New("pgvector", "", nil)
	require.Error(t, err)

	s, err := New("CHROMEM", "  ", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultCollection, s.Collection())
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	require.InDelta(t, 0, d, 1e-9)
	d, err = CosineDistance([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 1, d, 1e-9)
	d, err = CosineDistance([]float32{0, 0}, []float32{0, 1})
	require.NoError(t, err)
	require.Equal(t, 1.0, d)
	_, err = CosineDistance([]float32{1}, []float32{1, 2})
	require.Error(t, err)
	_, err = CosineDistance(nil, nil)
	require.Error(t, err)
}

func TestFlattenMetadata(t *testing.T) {
	out := flattenMetadata(map[string]interface{}{"year": 2020, "pct": 12.5, "title": "x", "none": nil})
	require.Equal(t, map[string]string{"year": "2020", "pct": "12.5", "title": "x"}, out)
}
