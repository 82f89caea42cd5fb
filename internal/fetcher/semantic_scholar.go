package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/medrag/internal/model"
)

const (
	SourceSemanticScholar = "semantic_scholar"

	defaultSemanticScholarURL = "https://api.semanticscholar.org/graph/v1"
	semanticScholarFields     = "title,abstract,year,authors,externalIds,url,venue"
	semanticScholarMaxLimit   = 100
)

type SemanticScholarConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"-"`
}

type SemanticScholar struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type s2SearchResponse struct {
	Total int       `json:"total"`
	Data  []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID     string                 `json:"paperId"`
	Title       string                 `json:"title"`
	Abstract    string                 `json:"abstract"`
	Year        model.Year             `json:"year"`
	Venue       string                 `json:"venue"`
	URL         string                 `json:"url"`
	Authors     []s2Author             `json:"authors"`
	ExternalIDs map[string]interface{} `json:"externalIds"`
}

type s2Author struct {
	Name string `json:"name"`
}

func NewSemanticScholar(cfg SemanticScholarConfig) *SemanticScholar {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultSemanticScholarURL
	}
	return &SemanticScholar{baseURL: base, apiKey: cfg.APIKey, client: newHTTPClient(cfg.Timeout)}
}

func (s *SemanticScholar) Name() string {
	return SourceSemanticScholar
}

// Search runs one paper search. The API caps a page at 100 results.
func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]model.Paper, error) {
	if limit <= 0 || limit > semanticScholarMaxLimit {
		limit = semanticScholarMaxLimit
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", semanticScholarFields)
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("x-api-key", s.apiKey)
	}
	body, err := get(ctx, s.client, s.baseURL+"/paper/search?"+params.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out s2SearchResponse
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode semantic scholar response: %w", err)
	}
	papers := make([]model.Paper, 0, len(out.Data))
	for _, item := range out.Data {
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			authors = append(authors, a.Name)
		}
		var ext map[string]string
		if len(item.ExternalIDs) > 0 {
			ext = make(map[string]string, len(item.ExternalIDs))
			for k, v := range item.ExternalIDs {
				if v != nil {
					ext[k] = fmt.Sprint(v)
				}
			}
		}
		papers = append(papers, model.Paper{
			Source:      SourceSemanticScholar,
			PaperID:     item.PaperID,
			Title:       item.Title,
			Abstract:    item.Abstract,
			Year:        item.Year,
			Venue:       item.Venue,
			Authors:     authors,
			URL:         item.URL,
			ExternalIDs: ext,
		})
	}
	return papers, nil
}
