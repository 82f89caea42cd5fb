package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"
)

type chromemConfig struct {
	// Dir is the persistence directory. Empty keeps the collection in memory.
	Dir string `json:"dir"`
	// Compress gzips the per-document files chromem writes under Dir.
	Compress bool `json:"compress"`
	// Snapshot, when set, receives a full export of the collection on Persist.
	Snapshot string `json:"snapshot"`
}

var errNoEmbeddingFunc = errors.New("chromem: documents must carry precomputed embeddings")

type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	compress   bool
	snapshot   string
}

func init() {
	Register("chromem", createChromemStore)
}

func createChromemStore(collection string, args interface{}) (Store, error) {
	cfg := &chromemConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return NewChromemStore(cfg.Dir, collection, cfg.Compress, cfg.Snapshot)
}

// NewChromemStore opens a chromem database. Every Upsert is written through to
// dir, so a reopened store sees all previously added documents.
func NewChromemStore(dir string, collection string, compress bool, snapshot string) (Store, error) {
	var db *chromem.DB
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create chromem dir: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(dir, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	// Embeddings are computed by the caller; chromem must never fall back to
	// its default remote embedding function.
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	}
	c, err := db.GetOrCreateCollection(collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	return &chromemStore{
		db:         db,
		collection: c,
		name:       collection,
		compress:   compress,
		snapshot:   strings.TrimSpace(snapshot),
	}, nil
}

func (s *chromemStore) Collection() string {
	return s.name
}

func (s *chromemStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		if err := checkDocument(i, doc); err != nil {
			return err
		}
		items[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  flattenMetadata(doc.Metadata),
			Embedding: doc.Embedding,
		}
	}
	if err := s.collection.AddDocuments(ctx, items, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents to chromem collection: %w", err)
	}
	return nil
}

func (s *chromemStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection
	if n := s.collection.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}
	res, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromem collection: %w", err)
	}
	matches := make([]Match, len(res))
	for i, doc := range res {
		meta := make(map[string]interface{}, len(doc.Metadata))
		for key, v := range doc.Metadata {
			meta[key] = v
		}
		matches[i] = Match{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: meta,
			Distance: 1 - float64(doc.Similarity),
		}
	}
	return matches, nil
}

func (s *chromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *chromemStore) Persist(ctx context.Context) error {
	if s.snapshot == "" {
		return nil
	}
	return s.db.ExportToFile(s.snapshot, s.compress, "", s.name)
}

func (s *chromemStore) Close() error {
	return nil
}

// flattenMetadata renders scalar metadata as the string map chromem stores.
// Nil values are dropped.
func flattenMetadata(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
