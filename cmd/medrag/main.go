package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/dataset"
	"github.com/xxxsen/medrag/internal/handler"
	"github.com/xxxsen/medrag/internal/job"
	"github.com/xxxsen/medrag/internal/middleware"
	"github.com/xxxsen/medrag/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "medrag",
		Short: "medical literature RAG service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "serve the question answering API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}

	var input string
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "embed a structured dataset file into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Index.DatasetPath
			}
			records, err := dataset.LoadFile(input)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			stats, err := a.indexer().Index(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into collection %q in %d batches\n",
				stats.Records, a.store.Collection(), stats.Batches)
			return nil
		},
	}
	indexCmd.Flags().StringVar(&input, "input", "", "dataset file (.json or .csv), defaults to index.dataset_path")

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "answer one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.ragService()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), svc.Ask(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}

	var skipIndex bool
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "fetch literature, build the structured dataset and index it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.pipeline(skipIndex)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collected %d papers (%d with full text), wrote %d records\n",
				res.Papers, res.FullText, len(res.Records))
			if res.Index != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents in %d batches\n", res.Index.Records, res.Index.Batches)
			}
			return nil
		},
	}
	collectCmd.Flags().BoolVar(&skipIndex, "skip-index", false, "stop after writing the dataset files")

	rootCmd.AddCommand(runCmd, indexCmd, askCmd, collectCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(a *app) error {
	cfg := a.cfg
	svc, err := a.ragService()
	if err != nil {
		return err
	}
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	deps := handler.RouterDeps{
		Ask:          handler.NewAskHandler(svc),
		AskRateLimit: time.Duration(cfg.AskRateLimitMs) * time.Millisecond,
	}
	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	reindex := job.NewReindexJob(a.indexer(), cfg.Index.DatasetPath)
	if err := scheduler.AddJob(reindex, cfg.Index.Schedule); err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}
	if a.cache != nil && cfg.Index.CacheCleanupSchedule != "" {
		cleanup := job.NewEmbeddingCacheCleanupJob(a.cache, cfg.Embed.Cache.KeepDays)
		if err := scheduler.AddJob(cleanup, cfg.Index.CacheCleanupSchedule); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if cfg.Index.ReindexOnStart {
		go scheduler.RunNow(ctx, reindex.Name())
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
