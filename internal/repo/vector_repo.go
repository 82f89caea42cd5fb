package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/medrag/internal/model"
)

type VectorRepo struct {
	db *sql.DB
}

func NewVectorRepo(db *sql.DB) *VectorRepo {
	return &VectorRepo{db: db}
}

// Upsert writes all entries in one transaction, replacing rows that share
// (collection, id).
func (r *VectorRepo) Upsert(ctx context.Context, entries []model.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(entries))
	for _, item := range entries {
		meta, err := json.Marshal(item.Metadata)
		if err != nil {
			return err
		}
		blob, err := json.Marshal(item.Embedding)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"collection": item.Collection,
			"id":         item.ID,
			"content":    item.Content,
			"metadata":   string(meta),
			"embedding":  blob,
			"mtime":      item.Mtime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("vector_documents", rows)
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *VectorRepo) ListByCollection(ctx context.Context, collection string) ([]model.VectorEntry, error) {
	where := map[string]interface{}{
		"collection": collection,
	}
	sqlStr, args, err := builder.BuildSelect("vector_documents", where, []string{"collection", "id", "content", "metadata", "embedding", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.VectorEntry
	for rows.Next() {
		var item model.VectorEntry
		var meta string
		var blob []byte
		if err := rows.Scan(&item.Collection, &item.ID, &item.Content, &meta, &blob, &item.Mtime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &item.Embedding); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *VectorRepo) Count(ctx context.Context, collection string) (int, error) {
	const query = `SELECT COUNT(1) FROM vector_documents WHERE collection = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, collection).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Checkpoint folds the WAL back into the main database file.
func (r *VectorRepo) Checkpoint(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}
