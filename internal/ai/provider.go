package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var ErrUnavailable = errors.New("ai provider not configured")

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type GeneratorFactory func(model string, args interface{}) (IGenerator, error)

type EmbedderFactory func(model string, args interface{}) (IEmbedder, error)

var (
	registryMu sync.RWMutex
	generators = map[string]GeneratorFactory{}
	embedders  = map[string]EmbedderFactory{}
)

func Register(name string, factory GeneratorFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	generators[key] = factory
	registryMu.Unlock()
}

func RegisterEmbed(name string, factory EmbedderFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	embedders[key] = factory
	registryMu.Unlock()
}

func NewGenerator(name string, model string, args interface{}) (IGenerator, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("generation.provider is required")
	}
	registryMu.RLock()
	factory := generators[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported generation provider: %s", name)
	}
	return factory(model, args)
}

func NewEmbedder(name string, model string, args interface{}) (IEmbedder, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("embed.provider is required")
	}
	registryMu.RLock()
	factory := embedders[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(model, args)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// decodeConfig maps the opaque provider section of the config file onto a
// provider specific struct. A nil section decodes to the zero value.
func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
