package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	defaultPort          = 5000
	defaultDBPath        = "data/medrag.db"
	defaultCollection    = "indian_skin_allergy"
	defaultStoreDir      = "./chroma_db"
	defaultBatchSize     = 32
	defaultTopK          = 5
	defaultWordLimit     = 200
	defaultTimeoutSecond = 30
	defaultDatasetJSON   = "structured_allergy_data.json"
	defaultDatasetCSV    = "structured_allergy_data.csv"
	defaultS2Query       = "skin allergy India OR contact dermatitis India OR urticaria India OR atopic dermatitis India"
	defaultPubMedQuery   = "skin allergy India"
	defaultCollectLimit  = 100
	defaultMaxPDFPages   = 40
	defaultLRUSize       = 1000
	defaultLRUTTLSecond  = 3600
	defaultCacheKeepDays = 30
)

type Config struct {
	Port           int                   `json:"port"`
	LogConfig      logger.LogConfig      `json:"log_config"`
	DBPath         string                `json:"db_path"`
	Store          StoreConfig           `json:"store"`
	Embed          EmbedConfig           `json:"embed"`
	Generation     GenerationConfig      `json:"generation"`
	Index          IndexConfig           `json:"index"`
	Collect        CollectConfig         `json:"collect"`
	FileStore      FileStoreConfig       `json:"file_store"`
	Facts          map[string]FactConfig `json:"facts"`
	CORSAllowlist  []string              `json:"cors_allowlist"`
	AskRateLimitMs int                   `json:"ask_rate_limit_ms"`
}

// StoreConfig selects the vector store backend. Data is passed to the
// backend factory as is.
type StoreConfig struct {
	Type       string      `json:"type"`
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
}

type EmbedConfig struct {
	Provider string           `json:"provider"`
	Model    string           `json:"model"`
	Data     interface{}      `json:"data"`
	Cache    EmbedCacheConfig `json:"cache"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size"`
	LRUTTLSeconds int  `json:"lru_ttl_seconds"`
	Persist       bool `json:"persist"`
	KeepDays      int  `json:"keep_days"`
}

type GenerationConfig struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Data      interface{} `json:"data"`
	Timeout   int         `json:"timeout"`
	WordLimit int         `json:"word_limit"`
	TopK      int         `json:"top_k"`
}

type IndexConfig struct {
	BatchSize   int    `json:"batch_size"`
	DatasetPath string `json:"dataset_path"`
	// Schedule is a cron spec for re-indexing DatasetPath while serving.
	Schedule string `json:"schedule"`
	// ReindexOnStart re-indexes DatasetPath once in the background when the
	// server starts.
	ReindexOnStart bool `json:"reindex_on_start"`
	// CacheCleanupSchedule is a cron spec for pruning the embedding cache.
	CacheCleanupSchedule string `json:"cache_cleanup_schedule"`
}

type CollectConfig struct {
	SemanticScholarQuery  string `json:"semantic_scholar_query"`
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key"`
	SemanticScholarURL    string `json:"semantic_scholar_url"`
	PubMedQuery           string `json:"pubmed_query"`
	PubMedEmail           string `json:"pubmed_email"`
	PubMedAPIKey          string `json:"pubmed_api_key"`
	PubMedURL             string `json:"pubmed_url"`
	PubMedDelayMs         int    `json:"pubmed_delay_ms"`
	Limit                 int    `json:"limit"`
	EnablePDF             bool   `json:"enable_pdf"`
	PDFDir                string `json:"pdf_dir"`
	MaxPDFPages           int    `json:"max_pdf_pages"`
	CSVName               string `json:"csv_name"`
	JSONName              string `json:"json_name"`
	SkipIndex             bool   `json:"skip_index"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type FactConfig struct {
	Name   string `json:"name"`
	Usage  string `json:"usage"`
	Dosage string `json:"dosage"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.AskRateLimitMs < 0 {
		return fmt.Errorf("ask_rate_limit_ms must not be negative")
	}

	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	if cfg.Store.Type == "" {
		cfg.Store.Type = "chromem"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = defaultCollection
	}
	if cfg.Store.Data == nil {
		switch cfg.Store.Type {
		case "chromem":
			cfg.Store.Data = map[string]interface{}{"dir": defaultStoreDir}
		case "sqlite":
			cfg.Store.Data = map[string]interface{}{"path": cfg.DBPath}
		case "pgvector":
			return fmt.Errorf("store.data is required for pgvector store")
		}
	}

	if cfg.Embed.Provider == "" {
		cfg.Embed.Provider = "local"
	}
	if cfg.Embed.Cache.LRUSize == 0 {
		cfg.Embed.Cache.LRUSize = defaultLRUSize
	}
	if cfg.Embed.Cache.LRUTTLSeconds == 0 {
		cfg.Embed.Cache.LRUTTLSeconds = defaultLRUTTLSecond
	}
	if cfg.Embed.Cache.KeepDays == 0 {
		cfg.Embed.Cache.KeepDays = defaultCacheKeepDays
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "gemini"
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = defaultTimeoutSecond
	}
	if cfg.Generation.WordLimit == 0 {
		cfg.Generation.WordLimit = defaultWordLimit
	}
	if cfg.Generation.TopK == 0 {
		cfg.Generation.TopK = defaultTopK
	}
	if cfg.Generation.Timeout < 0 || cfg.Generation.WordLimit < 0 || cfg.Generation.TopK < 0 {
		return fmt.Errorf("generation timeout/word_limit/top_k must be positive")
	}

	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = defaultBatchSize
	}
	if cfg.Index.BatchSize < 0 {
		return fmt.Errorf("index.batch_size must be positive")
	}
	if cfg.Index.DatasetPath == "" {
		cfg.Index.DatasetPath = defaultDatasetJSON
	}

	if cfg.Collect.SemanticScholarQuery == "" {
		cfg.Collect.SemanticScholarQuery = defaultS2Query
	}
	if cfg.Collect.PubMedQuery == "" {
		cfg.Collect.PubMedQuery = defaultPubMedQuery
	}
	if cfg.Collect.Limit == 0 {
		cfg.Collect.Limit = defaultCollectLimit
	}
	if cfg.Collect.PDFDir == "" {
		cfg.Collect.PDFDir = "pdfs"
	}
	if cfg.Collect.MaxPDFPages == 0 {
		cfg.Collect.MaxPDFPages = defaultMaxPDFPages
	}
	if cfg.Collect.CSVName == "" {
		cfg.Collect.CSVName = defaultDatasetCSV
	}
	if cfg.Collect.JSONName == "" {
		cfg.Collect.JSONName = defaultDatasetJSON
	}

	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Data == nil {
			cfg.FileStore.Data = map[string]interface{}{"dir": "."}
		}
	case "s3":
		if cfg.FileStore.Data == nil {
			return fmt.Errorf("file_store.data is required for s3 store")
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	return nil
}
