// Package rag answers user questions by retrieving nearby literature from
// the vector store and handing it, with a fixed instruction block, to the
// generation endpoint.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/ai"
	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
	"github.com/xxxsen/medrag/internal/vectorstore"
)

const (
	DefaultTopK      = 5
	DefaultWordLimit = 200
	DefaultTimeout   = 30 * time.Second

	FallbackText = "No valid response from Gemini API."
	errorPrefix  = "Gemini API error: "
)

type Options struct {
	TopK      int
	WordLimit int
	// Timeout bounds a single generation call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Facts replaces the default medicine table when non-nil.
	Facts map[string]Fact
}

// Answer is the typed result of one question.
type Answer struct {
	Text      string
	Prompt    string
	Documents []vectorstore.Match
	// Fallback is set when the endpoint answered 200 without usable text.
	Fallback bool
	// RetrievalErr records a retrieval failure; the question was still
	// answered without context.
	RetrievalErr error
}

type Service struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	generator ai.IGenerator
	topK      int
	wordLimit int
	timeout   time.Duration
	facts     map[string]Fact
}

func NewService(embedder ai.IEmbedder, store vectorstore.Store, generator ai.IGenerator, opts Options) *Service {
	s := &Service{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      opts.TopK,
		wordLimit: opts.WordLimit,
		timeout:   opts.Timeout,
	}
	if s.topK <= 0 {
		s.topK = DefaultTopK
	}
	if s.wordLimit <= 0 {
		s.wordLimit = DefaultWordLimit
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	facts := opts.Facts
	if facts == nil {
		facts = DefaultFacts()
	}
	s.facts = normalizeFacts(facts)
	return s
}

// Retrieve returns the configured number of nearest documents for prompt.
func (s *Service) Retrieve(ctx context.Context, prompt string) ([]vectorstore.Match, error) {
	return s.Search(ctx, prompt, s.topK)
}

func (s *Service) Search(ctx context.Context, query string, k int) ([]vectorstore.Match, error) {
	if s.embedder == nil || s.store == nil {
		return nil, appErr.Wrap(appErr.KindStoreUnavailable, errors.New("retrieval is not configured"))
	}
	emb, err := s.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, appErr.Wrap(appErr.KindEmbeddingFailure, err)
	}
	matches, err := s.store.Query(ctx, emb, k)
	if err != nil {
		return nil, appErr.Wrap(appErr.KindStoreUnavailable, err)
	}
	return matches, nil
}

func (s *Service) Compose(prompt string, docs []string) string {
	return Compose(prompt, docs, s.wordLimit)
}

// Answer runs one question end to end. Retrieval failures degrade to an
// empty context. Generation failures are returned typed, except a 200
// without text, which yields FallbackText.
func (s *Service) Answer(ctx context.Context, prompt string) (*Answer, error) {
	logger := logutil.GetLogger(ctx)
	ans := &Answer{}
	matches, err := s.Retrieve(ctx, prompt)
	if err != nil {
		logger.Warn("retrieve context failed, answering without it", zap.Error(err))
		ans.RetrievalErr = err
	}
	ans.Documents = matches
	docs := make([]string, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.Content)
	}
	ans.Prompt = s.Compose(prompt, docs)

	if s.generator == nil {
		return nil, appErr.Wrap(appErr.KindUpstreamUnavailable, ai.ErrUnavailable)
	}
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	text, err := s.generator.Generate(genCtx, ans.Prompt)
	if err != nil {
		if appErr.IsKind(err, appErr.KindMalformedUpstream) {
			logger.Warn("generation returned no usable text", zap.Error(err))
			ans.Text = FallbackText
			ans.Fallback = true
			return ans, nil
		}
		logger.Error("generate answer failed", zap.Error(err), zap.Duration("cost", time.Since(start)))
		return nil, err
	}
	logger.Debug("answer generated",
		zap.Int("docs", len(docs)),
		zap.Int("prompt_len", len(ans.Prompt)),
		zap.Duration("cost", time.Since(start)))
	ans.Text = text
	return ans, nil
}

// Ask is the boundary form of Answer: it always yields display text, with
// failures rendered in band and the medicine fact appended when the prompt
// names one.
func (s *Service) Ask(ctx context.Context, prompt string) string {
	var text string
	ans, err := s.Answer(ctx, prompt)
	if err != nil {
		text = RenderError(err)
	} else {
		text = ans.Text
	}
	if fact, ok := s.facts[strings.ToLower(prompt)]; ok {
		text = text + "\n\n" + fact.String()
	}
	return text
}

// RenderError formats a generation failure for display.
func RenderError(err error) string {
	var typed *appErr.Error
	if errors.As(err, &typed) {
		switch typed.Kind {
		case appErr.KindUpstreamHTTP:
			return fmt.Sprintf("%s%d %s", errorPrefix, typed.Status, typed.Body)
		case appErr.KindUpstreamTimeout:
			return errorPrefix + "request timed out"
		case appErr.KindMalformedUpstream:
			return FallbackText
		}
	}
	return errorPrefix + err.Error()
}

// Collection reports the store's collection name and size.
func (s *Service) Collection(ctx context.Context) (string, int, error) {
	if s.store == nil {
		return "", 0, appErr.Wrap(appErr.KindStoreUnavailable, errors.New("retrieval is not configured"))
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return s.store.Collection(), 0, appErr.Wrap(appErr.KindStoreUnavailable, err)
	}
	return s.store.Collection(), n, nil
}
