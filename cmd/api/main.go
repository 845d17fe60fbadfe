package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/api/handlers"
	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/categorize"
	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/infra/memory"
	"github.com/dvloznov/finance-dashboard/internal/infra/sqlite"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/reports"
	"github.com/dvloznov/finance-dashboard/internal/store"
)

func main() {
	// Initialize logger
	log := logger.New()
	cfg := config.Load(log)

	// Parse command-line flags; they override the environment
	var (
		port    = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		dbPath  = flag.String("db", cfg.DatabasePath, "SQLite database file (or set DATABASE_PATH env)")
		bucket  = flag.String("bucket", cfg.GCSBucket, "GCS bucket for raw statement archives (or set GCS_BUCKET env)")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "Number of background import workers")
	)
	flag.Parse()

	log = logger.WithLevel(log, cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	// Initialize storage, falling back to memory when allowed
	var (
		repo      store.Repository
		storeName = "sqlite"
		degraded  bool
	)
	sqliteRepo, err := sqlite.Open(ctx, *dbPath, log)
	switch {
	case err == nil:
		repo = sqliteRepo
		defer sqlite.CloseAll()
		log.Info().Str("path", *dbPath).Msg("Connected to SQLite store")
	case cfg.AllowMemoryFallback:
		repo = memory.NewStore()
		storeName = "memory"
		degraded = true
		log.Warn().Err(err).Str("path", *dbPath).Msg("Store unavailable, serving from memory; imports are not durable")
	default:
		log.Fatal().Err(err).Str("path", *dbPath).Msg("Failed to open store")
	}

	rules, err := categorize.Load(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load categorization rules")
	}

	reportService := reports.NewService(repo, cfg.ReportCacheTTL)
	coordinator := ingest.NewCoordinator(repo, ingest.Options{
		ChunkSize:  cfg.IngestChunkSize,
		Policy:     ingest.ParsePolicy(cfg.BatchPolicy),
		Classifier: rules,
		OnCommit:   reportService.OnIngest,
	})

	var archiver archive.Archiver
	if *bucket != "" {
		gcsArchiver := archive.NewGCSArchiver(*bucket)
		defer gcsArchiver.Close()
		archiver = gcsArchiver
	} else {
		log.Warn().Msg("No GCS bucket configured - statement archiving will be disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", *workers).Msg("Starting import workers")
	if err := jobQueue.Start(workerCtx, handlers.ImportJobHandler(coordinator)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start import workers")
	}

	mux := handlers.NewRouter(handlers.Deps{
		Repo:           repo,
		Ingester:       coordinator,
		Reports:        reportService,
		Advisor:        insights.NewGeminiAdvisor(insights.NewGeminiGenerator(cfg.GeminiModel)),
		Archiver:       archiver,
		Publisher:      jobQueue,
		JobStore:       jobStore,
		MaxUploadBytes: cfg.MaxUploadBytes,
		StoreName:      storeName,
		Degraded:       degraded,
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", *port).
			Str("store", storeName).
			Str("batch_policy", coordinator.Policy().String()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
