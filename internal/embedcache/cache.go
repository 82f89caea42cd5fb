// Package embedcache decorates an embedder with a memory LRU and an optional
// sqlite backed cache so unchanged text is never embedded twice.
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/medrag/internal/ai"
	"github.com/xxxsen/medrag/internal/repo"
)

type Options struct {
	LRUSize int
	LRUTTL  time.Duration
	DB      *repo.EmbeddingCacheRepo
}

// Wrap layers the configured caches around e. The LRU sits in front of the
// database cache.
func Wrap(e ai.IEmbedder, opts Options) ai.IEmbedder {
	if e == nil {
		return nil
	}
	if opts.DB != nil {
		e = WrapDBCacheToEmbedder(e, opts.DB)
	}
	return WrapLruCacheToEmbedder(e, opts.LRUSize, opts.LRUTTL)
}

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
