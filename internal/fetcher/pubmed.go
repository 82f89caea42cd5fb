package fetcher

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/model"
)

const (
	SourcePubMed = "pubmed"

	defaultEutilsURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultPubMedDelay  = 340 * time.Millisecond
	defaultPubMedDates  = "2015:2025[dp]"
	pubmedFetchPageSize = 20
)

type PubMedConfig struct {
	BaseURL string `json:"base_url"`
	Email   string `json:"email"`
	APIKey  string `json:"api_key"`
	// DateRange is appended to every query as "(query) AND (DateRange)".
	DateRange string        `json:"date_range"`
	Delay     time.Duration `json:"-"`
	Timeout   time.Duration `json:"-"`
}

// PubMed searches through NCBI E-utilities: esearch for ids, then efetch
// for the article XML. Requests are spaced by Delay to stay under the
// anonymous rate limit.
type PubMed struct {
	baseURL   string
	email     string
	apiKey    string
	dateRange string
	delay     time.Duration
	client    *http.Client
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    innerText `xml:"ArticleTitle"`
			Abstract struct {
				Texts []innerText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				Issue struct {
					PubDate struct {
						Year        string `xml:"Year"`
						MedlineDate string `xml:"MedlineDate"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Authors []struct {
				LastName       string `xml:"LastName"`
				ForeName       string `xml:"ForeName"`
				CollectiveName string `xml:"CollectiveName"`
			} `xml:"AuthorList>Author"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

type innerText struct {
	Raw string `xml:",innerxml"`
}

func (t innerText) String() string {
	return html.UnescapeString(stripTags(t.Raw))
}

func NewPubMed(cfg PubMedConfig) *PubMed {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultEutilsURL
	}
	dates := strings.TrimSpace(cfg.DateRange)
	if dates == "" {
		dates = defaultPubMedDates
	}
	delay := cfg.Delay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = defaultPubMedDelay
	}
	return &PubMed{
		baseURL:   base,
		email:     cfg.Email,
		apiKey:    cfg.APIKey,
		dateRange: dates,
		delay:     delay,
		client:    newHTTPClient(cfg.Timeout),
	}
}

func (p *PubMed) Name() string {
	return SourcePubMed
}

func (p *PubMed) params() url.Values {
	v := url.Values{}
	v.Set("db", "pubmed")
	if p.email != "" {
		v.Set("email", p.email)
	}
	if p.apiKey != "" {
		v.Set("api_key", p.apiKey)
	}
	return v
}

func (p *PubMed) Search(ctx context.Context, query string, limit int) ([]model.Paper, error) {
	ids, err := p.searchIDs(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx)
	papers := make([]model.Paper, 0, len(ids))
	for start := 0; start < len(ids); start += pubmedFetchPageSize {
		end := start + pubmedFetchPageSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := sleepCtx(ctx, p.delay); err != nil {
			return papers, err
		}
		page, err := p.fetch(ctx, ids[start:end])
		if err != nil {
			// one bad page does not lose the rest of the run
			logger.Warn("pubmed efetch failed", zap.Int("offset", start), zap.Error(err))
			continue
		}
		papers = append(papers, page...)
	}
	return papers, nil
}

func (p *PubMed) searchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	v := p.params()
	v.Set("term", fmt.Sprintf("(%s) AND (%s)", query, p.dateRange))
	v.Set("retmax", fmt.Sprintf("%d", limit))
	v.Set("retmode", "json")
	body, err := get(ctx, p.client, p.baseURL+"/esearch.fcgi?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	var out esearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode esearch response: %w", err)
	}
	return out.Result.IDList, nil
}

func (p *PubMed) fetch(ctx context.Context, ids []string) ([]model.Paper, error) {
	v := p.params()
	v.Set("id", strings.Join(ids, ","))
	v.Set("retmode", "xml")
	body, err := get(ctx, p.client, p.baseURL+"/efetch.fcgi?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}
	return parsePubMedXML(body)
}

func parsePubMedXML(body []byte) ([]model.Paper, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode efetch xml: %w", err)
	}
	papers := make([]model.Paper, 0, len(set.Articles))
	for _, a := range set.Articles {
		art := a.Citation.Article
		parts := make([]string, 0, len(art.Abstract.Texts))
		for _, t := range art.Abstract.Texts {
			if s := t.String(); s != "" {
				parts = append(parts, s)
			}
		}
		authors := make([]string, 0, len(art.Authors))
		for _, au := range art.Authors {
			switch {
			case au.LastName != "" && au.ForeName != "":
				authors = append(authors, au.ForeName+" "+au.LastName)
			case au.LastName != "":
				authors = append(authors, au.LastName)
			case au.CollectiveName != "":
				authors = append(authors, au.CollectiveName)
			}
		}
		year := art.Journal.Issue.PubDate.Year
		if year == "" && len(art.Journal.Issue.PubDate.MedlineDate) >= 4 {
			year = art.Journal.Issue.PubDate.MedlineDate[:4]
		}
		pmid := strings.TrimSpace(a.Citation.PMID)
		papers = append(papers, model.Paper{
			Source:   SourcePubMed,
			PMID:     pmid,
			Title:    art.Title.String(),
			Abstract: strings.Join(parts, " "),
			Year:     model.Year(year),
			Authors:  authors,
			URL:      "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		})
	}
	return papers, nil
}
