package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/ai"
	"github.com/xxxsen/medrag/internal/collect"
	"github.com/xxxsen/medrag/internal/config"
	"github.com/xxxsen/medrag/internal/embedcache"
	"github.com/xxxsen/medrag/internal/fetcher"
	"github.com/xxxsen/medrag/internal/filestore"
	"github.com/xxxsen/medrag/internal/indexer"
	"github.com/xxxsen/medrag/internal/pdfutil"
	"github.com/xxxsen/medrag/internal/rag"
	"github.com/xxxsen/medrag/internal/repo"
	"github.com/xxxsen/medrag/internal/vectorstore"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	cache    *repo.EmbeddingCacheRepo
	embedder ai.IEmbedder
	store    vectorstore.Store
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.Embed.Cache.Persist {
		db, err := repo.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := repo.ApplyMigrations(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = db
		a.cache = repo.NewEmbeddingCacheRepo(db)
	}

	embedder, err := ai.NewEmbedder(cfg.Embed.Provider, cfg.Embed.Model, cfg.Embed.Data)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	a.embedder = embedcache.Wrap(embedder, embedcache.Options{
		LRUSize: cfg.Embed.Cache.LRUSize,
		LRUTTL:  time.Duration(cfg.Embed.Cache.LRUTTLSeconds) * time.Second,
		DB:      a.cache,
	})

	store, err := vectorstore.New(cfg.Store.Type, cfg.Store.Collection, cfg.Store.Data)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	a.store = store
	logutil.GetLogger(context.Background()).Info("components ready",
		zap.String("store", cfg.Store.Type),
		zap.String("collection", store.Collection()),
		zap.String("embed_provider", cfg.Embed.Provider),
		zap.String("embed_model", a.embedder.ModelName()),
	)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Persist(context.Background()); err != nil {
			logutil.GetLogger(context.Background()).Warn("persist vector store failed", zap.Error(err))
		}
		_ = a.store.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) indexer() *indexer.Indexer {
	return indexer.New(a.embedder, a.store, a.cfg.Index.BatchSize)
}

func (a *app) ragService() (*rag.Service, error) {
	gen := a.cfg.Generation
	generator, err := ai.NewGenerator(gen.Provider, gen.Model, gen.Data)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	var facts map[string]rag.Fact
	if len(a.cfg.Facts) > 0 {
		facts = make(map[string]rag.Fact, len(a.cfg.Facts))
		for key, f := range a.cfg.Facts {
			facts[key] = rag.Fact{Name: f.Name, Usage: f.Usage, Dosage: f.Dosage}
		}
	}
	return rag.NewService(a.embedder, a.store, generator, rag.Options{
		TopK:      gen.TopK,
		WordLimit: gen.WordLimit,
		Timeout:   time.Duration(gen.Timeout) * time.Second,
		Facts:     facts,
	}), nil
}

func (a *app) pipeline(skipIndex bool) (*collect.Pipeline, error) {
	cc := a.cfg.Collect
	files, err := filestore.New(a.cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}
	var queries []collect.Query
	if cc.SemanticScholarQuery != "" {
		queries = append(queries, collect.Query{
			Source: fetcher.NewSemanticScholar(fetcher.SemanticScholarConfig{
				BaseURL: cc.SemanticScholarURL,
				APIKey:  cc.SemanticScholarAPIKey,
			}),
			Text: cc.SemanticScholarQuery,
		})
	}
	if cc.PubMedQuery != "" {
		queries = append(queries, collect.Query{
			Source: fetcher.NewPubMed(fetcher.PubMedConfig{
				BaseURL: cc.PubMedURL,
				Email:   cc.PubMedEmail,
				APIKey:  cc.PubMedAPIKey,
				Delay:   time.Duration(cc.PubMedDelayMs) * time.Millisecond,
			}),
			Text: cc.PubMedQuery,
		})
	}
	opts := collect.Options{
		Queries:     queries,
		Limit:       cc.Limit,
		MaxPDFPages: cc.MaxPDFPages,
		Files:       files,
		CSVKey:      cc.CSVName,
		JSONKey:     cc.JSONName,
	}
	if cc.EnablePDF {
		opts.PDF = pdfutil.NewDownloader(cc.PDFDir, 0)
	}
	if !skipIndex && !cc.SkipIndex {
		opts.Indexer = a.indexer()
	}
	return collect.New(opts), nil
}
