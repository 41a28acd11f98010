package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragdex/ragdex/internal/ai"
	"github.com/ragdex/ragdex/internal/config"
	"github.com/ragdex/ragdex/internal/embedcache"
	"github.com/ragdex/ragdex/internal/filestore"
	"github.com/ragdex/ragdex/internal/handler"
	"github.com/ragdex/ragdex/internal/ingest"
	"github.com/ragdex/ragdex/internal/job"
	"github.com/ragdex/ragdex/internal/schedule"
	"github.com/ragdex/ragdex/internal/service"
	"github.com/ragdex/ragdex/internal/vectorindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragdex",
		Short: "ragdex document QA server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragdex server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			// Secrets commonly live in a .env next to the binary.
			_ = godotenv.Load()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	rootLogger := logutil.GetLogger(context.Background())
	rootLogger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("vector_index", cfg.VectorIndex.Type),
	)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(provider, cfg.AI.GenerateModel, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel, cfg.AI.EmbedDimension)
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLHours)*time.Hour,
	)

	store, err := vectorindex.New(cfg.VectorIndex.Type, cfg.VectorIndex.Data, cfg.AI.EmbedDimension)
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	if cfg.VectorIndex.ResetOnStartup {
		if err := store.DeleteAll(context.Background()); err != nil {
			rootLogger.Warn("startup index reset failed", zap.Error(err))
		} else {
			rootLogger.Info("vector index cleared on startup")
		}
	}

	var archive filestore.Store
	if cfg.Archive.Type != "" {
		archive, err = filestore.New(cfg.Archive.Type, cfg.Archive.Data)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
	}

	policies := ingest.Policies{
		Text:    ingest.Policy{Window: cfg.Ingest.TextWindow, Overlap: cfg.Ingest.TextOverlap},
		Default: ingest.Policy{Window: cfg.Ingest.Window, Overlap: cfg.Ingest.Overlap},
	}
	gate := ingest.NewDedupGate(store, cfg.AI.EmbedDimension)
	indexService := service.NewIndexService(embedder, store, gate, archive, policies, cfg.Ingest.MaxMetadataChars)
	answerService := service.NewAnswerService(embedder, generator, store, cfg.Query.TopK, cfg.Query.MaxTopK)

	router := handler.NewRouter(handler.RouterDeps{
		Upload:      handler.NewUploadHandler(indexService),
		Query:       handler.NewQueryHandler(answerService),
		CORSOrigins: cfg.CORSOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *schedule.Scheduler
	if archive != nil {
		scheduler = schedule.NewScheduler()
		cleanup := job.NewArchiveCleanupJob(archive, cfg.Archive.CleanupMaxAgeDays)
		if err := scheduler.Schedule(ctx, "0 3 * * *", cleanup); err != nil {
			return fmt.Errorf("schedule archive cleanup: %w", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: router,
	}
	rootLogger.Info("http server listening", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
