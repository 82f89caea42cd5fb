// Package vectorstore persists embedded documents in a named collection and
// answers k-nearest-neighbour queries over them.
//
// Backends register themselves by name (chromem, sqlite, pgvector) and are
// selected through the store section of the config file. All backends report
// cosine distance, nearest first.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/medrag/internal/sanitize"
)

const DefaultCollection = "indian_skin_allergy"

// Document is a record as written to the store. Metadata values must be
// scalars; see package sanitize.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]interface{}
	Embedding []float32
}

// Match is a query hit. Distance is 1 - cosine similarity.
type Match struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
}

type Store interface {
	// Upsert inserts documents, overwriting any with the same id.
	Upsert(ctx context.Context, docs []Document) error
	// Query returns at most k documents ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	// Persist flushes buffered state to durable storage.
	Persist(ctx context.Context) error
	Collection() string
	Close() error
}

type Factory func(collection string, args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New opens (creating when absent) the named collection on the backend
// registered under typ.
func New(typ string, collection string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s", typ)
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = DefaultCollection
	}
	return factory(collection, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}

// checkDocument enforces what every backend requires before a write: an id,
// an embedding and scalar-only metadata.
func checkDocument(idx int, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document at %d has no id", idx)
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("document %s has no embedding", doc.ID)
	}
	for key, v := range doc.Metadata {
		if !sanitize.IsScalar(v) {
			return fmt.Errorf("document %s: metadata %q is %T, not a scalar", doc.ID, key, v)
		}
	}
	return nil
}
