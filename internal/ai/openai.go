package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
)

const (
	defaultOpenAIChatModel = openai.GPT4oMini
	openAIAPIKeyEnv        = "OPENAI_API_KEY"
)

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type openAIGenerator struct {
	client *openai.Client
	model  string
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrUnavailable
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
	})
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", appErr.Wrap(appErr.KindMalformedUpstream, fmt.Errorf("openai response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return appErr.UpstreamHTTP(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return appErr.UpstreamHTTP(reqErr.HTTPStatusCode, body)
	}
	return classifyTransportError(ctx, err)
}

type openAIEmbedder struct {
	client *openai.Client
	model  string
}

func (e *openAIEmbedder) ModelName() string {
	return e.model
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_ = taskType
	if e.client == nil {
		return nil, ErrUnavailable
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

func newOpenAIClient(args interface{}) (*openai.Client, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(openAIAPIKeyEnv))
	}
	if apiKey == "" {
		return nil, nil
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

func createOpenAIGenerator(model string, args interface{}) (IGenerator, error) {
	client, err := newOpenAIClient(args)
	if err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultOpenAIChatModel
	}
	return &openAIGenerator{client: client, model: model}, nil
}

func createOpenAIEmbedder(model string, args interface{}) (IEmbedder, error) {
	client, err := newOpenAIClient(args)
	if err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &openAIEmbedder{client: client, model: model}, nil
}

func init() {
	Register("openai", createOpenAIGenerator)
	RegisterEmbed("openai", createOpenAIEmbedder)
}
