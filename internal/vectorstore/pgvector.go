package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/medrag/internal/db"
	"github.com/xxxsen/medrag/internal/pkg/dbutil"
)

const (
	pgUpsertSQL = `INSERT INTO vector_documents (collection, id, content, metadata, embedding, mtime)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
	content = EXCLUDED.content,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding,
	mtime = EXCLUDED.mtime`
	pgQuerySQL = `SELECT id, content, metadata, embedding <=> ? AS distance
FROM vector_documents
WHERE collection = ?
ORDER BY distance, id
LIMIT ?`
	pgCountSQL = `SELECT COUNT(1) FROM vector_documents WHERE collection = ?`
)

type pgvectorStore struct {
	db         *sql.DB
	collection string
}

func init() {
	Register("pgvector", createPgvectorStore)
}

func createPgvectorStore(collection string, args interface{}) (Store, error) {
	cfg := db.Config{}
	if err := decodeConfig(args, &cfg); err != nil {
		return nil, err
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &pgvectorStore{db: conn, collection: collection}, nil
}

func (s *pgvectorStore) Collection() string {
	return s.collection
}

func (s *pgvectorStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	query := dbutil.Rebind(pgUpsertSQL)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	now := time.Now().UnixMilli()
	for i, doc := range docs {
		if err := checkDocument(i, doc); err != nil {
			return err
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, doc.ID, doc.Content, string(meta),
			pgvector.NewVector(doc.Embedding), now); err != nil {
			return fmt.Errorf("upsert %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

func (s *pgvectorStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, dbutil.Rebind(pgQuerySQL), pgvector.NewVector(embedding), s.collection, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *pgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, dbutil.Rebind(pgCountSQL), s.collection).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Persist is a no-op: every Upsert commits its own transaction.
func (s *pgvectorStore) Persist(ctx context.Context) error {
	return nil
}

func (s *pgvectorStore) Close() error {
	return s.db.Close()
}
