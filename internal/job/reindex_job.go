package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/dataset"
	"github.com/xxxsen/medrag/internal/indexer"
)

// ReindexJob reloads a structured dataset file and upserts it into the
// vector store. Ids are stable, so repeated runs overwrite in place.
type ReindexJob struct {
	indexer *indexer.Indexer
	path    string
}

func NewReindexJob(ix *indexer.Indexer, path string) *ReindexJob {
	return &ReindexJob{indexer: ix, path: path}
}

func (j *ReindexJob) Name() string {
	return "reindex_dataset"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	if j.indexer == nil || j.path == "" {
		return nil
	}
	records, err := dataset.LoadFile(j.path)
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", j.path, err)
	}
	stats, err := j.indexer.Index(ctx, records)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("dataset reindexed",
		zap.String("path", j.path),
		zap.Int("records", stats.Records),
		zap.Int("batches", stats.Batches),
	)
	return nil
}
