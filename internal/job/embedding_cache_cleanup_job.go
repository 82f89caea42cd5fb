package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/repo"
)

const defaultCacheKeepDays = 30

// EmbeddingCacheCleanupJob drops cached embeddings older than keepDays.
type EmbeddingCacheCleanupJob struct {
	repo     *repo.EmbeddingCacheRepo
	keepDays int
	now      func() time.Time
}

func NewEmbeddingCacheCleanupJob(repo *repo.EmbeddingCacheRepo, keepDays int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{repo: repo, keepDays: keepDays, now: time.Now}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	keepDays := j.keepDays
	if keepDays <= 0 {
		keepDays = defaultCacheKeepDays
	}
	cutoff := j.now().Add(-time.Duration(keepDays) * 24 * time.Hour).Unix()
	removed, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("embedding cache pruned", zap.Int64("removed", removed), zap.Int("keep_days", keepDays))
	return nil
}
