package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/medrag/internal/model"
	"github.com/xxxsen/medrag/internal/repo"
)

type sqliteConfig struct {
	Path string `json:"path"`
}

// sqliteStore keeps vectors as JSON blobs next to the embedding cache and
// scans the whole collection on every query. It suits collections of a few
// thousand documents, which is the size of the literature corpus.
type sqliteStore struct {
	db         *sql.DB
	repo       *repo.VectorRepo
	collection string
	owned      bool
}

func init() {
	Register("sqlite", createSQLiteStore)
}

func createSQLiteStore(collection string, args interface{}) (Store, error) {
	cfg := &sqliteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store requires path")
	}
	db, err := repo.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	s := NewSQLiteStore(db, collection).(*sqliteStore)
	s.owned = true
	return s, nil
}

// NewSQLiteStore wraps an already migrated database. Close leaves db open.
func NewSQLiteStore(db *sql.DB, collection string) Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &sqliteStore{
		db:         db,
		repo:       repo.NewVectorRepo(db),
		collection: collection,
	}
}

func (s *sqliteStore) Collection() string {
	return s.collection
}

func (s *sqliteStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	entries := make([]model.VectorEntry, 0, len(docs))
	for i, doc := range docs {
		if err := checkDocument(i, doc); err != nil {
			return err
		}
		entries = append(entries, model.VectorEntry{
			Collection: s.collection,
			ID:         doc.ID,
			Content:    doc.Content,
			Metadata:   doc.Metadata,
			Embedding:  doc.Embedding,
			Mtime:      now,
		})
	}
	return s.repo.Upsert(ctx, entries)
}

func (s *sqliteStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	entries, err := s.repo.ListByCollection(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(entries))
	for _, item := range entries {
		dist, err := CosineDistance(embedding, item.Embedding)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", item.ID, err)
		}
		matches = append(matches, Match{
			ID:       item.ID,
			Content:  item.Content,
			Metadata: item.Metadata,
			Distance: dist,
		})
	}
	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx, s.collection)
}

func (s *sqliteStore) Persist(ctx context.Context) error {
	return s.repo.Checkpoint(ctx)
}

func (s *sqliteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
