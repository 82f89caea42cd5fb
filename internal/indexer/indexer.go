// Package indexer embeds literature records and writes them to a vector
// store in fixed size batches.
package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/ai"
	"github.com/xxxsen/medrag/internal/model"
	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
	"github.com/xxxsen/medrag/internal/sanitize"
	"github.com/xxxsen/medrag/internal/vectorstore"
)

const DefaultBatchSize = 32

type Stats struct {
	Records int
	Batches int
	// PersistErr is the error of the final flush, which does not fail Index.
	PersistErr error
}

type Indexer struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	batchSize int
}

func New(embedder ai.IEmbedder, store vectorstore.Store, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{embedder: embedder, store: store, batchSize: batchSize}
}

// DocumentText picks the text embedded for a record: summary, then abstract,
// then full text.
func DocumentText(rec model.Record) string {
	for _, s := range []string{rec.Summary, rec.Abstract, rec.Text} {
		if s != "" {
			return s
		}
	}
	return ""
}

func DocumentID(rec model.Record, idx int) string {
	if id := strings.TrimSpace(rec.ID); id != "" {
		return id
	}
	return fmt.Sprintf("doc_%d", idx)
}

func buildMetadata(rec model.Record) map[string]interface{} {
	var year interface{}
	if rec.Year != "" {
		year = rec.Year.Value()
	}
	prevalence := rec.PrevalencePercent
	if prevalence == nil {
		prevalence = []float64{}
	}
	return sanitize.Metadata(map[string]interface{}{
		"title":              rec.Title,
		"year":               year,
		"authors":            rec.Authors,
		"source":             rec.Source,
		"conditions":         rec.Conditions,
		"allergens":          rec.Allergens,
		"food_triggers":      rec.FoodTriggers,
		"regions":            rec.Regions,
		"prevalence_percent": prevalence,
	})
}

// Index writes records in order. Embedding and upsert failures stop the run;
// batches already written stay in the store. Re-indexing the same records
// overwrites them by id.
func (ix *Indexer) Index(ctx context.Context, records []model.Record) (*Stats, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("collection", ix.store.Collection()))
	stats := &Stats{}
	batch := make([]vectorstore.Document, 0, ix.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.store.Upsert(ctx, batch); err != nil {
			return appErr.Wrap(appErr.KindStoreUnavailable, fmt.Errorf("upsert batch %d: %w", stats.Batches+1, err))
		}
		stats.Batches++
		stats.Records += len(batch)
		logger.Info("indexed batch",
			zap.Int("batch", stats.Batches),
			zap.Int("size", len(batch)),
			zap.Int("total", stats.Records),
			zap.Int("records", len(records)))
		batch = make([]vectorstore.Document, 0, ix.batchSize)
		return nil
	}
	for i, rec := range records {
		id := DocumentID(rec, i)
		text := DocumentText(rec)
		embedding, err := ix.embedder.Embed(ctx, text, ai.TaskRetrievalDocument)
		if err != nil {
			return stats, appErr.Wrap(appErr.KindEmbeddingFailure, fmt.Errorf("embed %s: %w", id, err))
		}
		batch = append(batch, vectorstore.Document{
			ID:        id,
			Content:   text,
			Metadata:  buildMetadata(rec),
			Embedding: embedding,
		})
		if len(batch) >= ix.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	if err := ix.store.Persist(ctx); err != nil {
		stats.PersistErr = err
		logger.Warn("persist vector store failed", zap.Error(err))
	}
	logger.Info("indexing finished", zap.Int("records", stats.Records), zap.Int("batches", stats.Batches))
	return stats, nil
}
