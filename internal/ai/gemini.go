package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultGeminiEmbedModel = "gemini-embedding-001"
	geminiAPIKeyEnv         = "GEMINI_API_KEY"
	defaultGeminiTimeout    = 30 * time.Second
)

type geminiConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	// Timeout bounds one HTTP call in seconds. Zero means 30.
	Timeout int `json:"timeout"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// geminiGenerator talks to the generateContent REST endpoint directly so the
// raw status code and body of a failed call can be reported to the caller.
type geminiGenerator struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrUnavailable
	}
	data, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", appErr.UpstreamHTTP(resp.StatusCode, string(body))
	}
	return parseGeminiText(body)
}

func parseGeminiText(body []byte) (string, error) {
	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", appErr.Wrap(appErr.KindMalformedUpstream, err)
	}
	if len(out.Candidates) == 0 {
		return "", appErr.Wrap(appErr.KindMalformedUpstream, fmt.Errorf("gemini response has no candidates"))
	}
	content := out.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return "", appErr.Wrap(appErr.KindMalformedUpstream, fmt.Errorf("gemini candidate has no text part"))
	}
	return *content.Parts[0].Text, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return appErr.Wrap(appErr.KindUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return appErr.Wrap(appErr.KindUpstreamTimeout, err)
	}
	return appErr.Wrap(appErr.KindUpstreamUnavailable, err)
}

type geminiEmbedder struct {
	client *genai.Client
	model  string
}

func (e *geminiEmbedder) ModelName() string {
	return e.model
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if e.client == nil {
		return nil, ErrUnavailable
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := e.client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func geminiAPIKey(cfg *geminiConfig) string {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(geminiAPIKeyEnv))
	}
	return key
}

func createGeminiGenerator(model string, args interface{}) (IGenerator, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	timeout := defaultGeminiTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &geminiGenerator{
		apiKey:   geminiAPIKey(cfg),
		endpoint: strings.TrimRight(baseURL, "/") + "/models/" + model + ":generateContent",
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func createGeminiEmbedder(model string, args interface{}) (IEmbedder, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiEmbedModel
	}
	apiKey := geminiAPIKey(cfg)
	if apiKey == "" {
		return &geminiEmbedder{model: model}, nil
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &geminiEmbedder{client: client, model: model}, nil
}

func init() {
	Register("gemini", createGeminiGenerator)
	RegisterEmbed("gemini", createGeminiEmbedder)
}
