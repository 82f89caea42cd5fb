package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultLocalDimension = 384

type localConfig struct {
	Dimension int `json:"dimension"`
}

// localEmbedder hashes word unigrams and bigrams into a fixed size vector.
// It needs no network and is deterministic, which makes it the embedder of
// choice for offline indexing runs and tests.
type localEmbedder struct {
	dim int
}

func NewLocalEmbedder(dim int) IEmbedder {
	if dim <= 1 {
		dim = defaultLocalDimension
	}
	return &localEmbedder{dim: dim}
}

func (e *localEmbedder) ModelName() string {
	return "local-hash"
}

func (e *localEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_ = taskType
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// empty input still gets a valid unit vector
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (e *localEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func createLocalEmbedder(model string, args interface{}) (IEmbedder, error) {
	_ = model
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return NewLocalEmbedder(cfg.Dimension), nil
}

func init() {
	RegisterEmbed("local", createLocalEmbedder)
}
