package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sagelearn/sage-api/internal/cache"
	"github.com/sagelearn/sage-api/internal/config"
	"github.com/sagelearn/sage-api/internal/generation"
	"github.com/sagelearn/sage-api/internal/metrics"
	"github.com/sagelearn/sage-api/internal/pipeline"
	"github.com/sagelearn/sage-api/internal/platform/gemini"
	"github.com/sagelearn/sage-api/internal/platform/postgres"
	"github.com/sagelearn/sage-api/internal/service"
	"github.com/sagelearn/sage-api/internal/task"
)

// shutdownTimeout bounds how long graceful shutdown waits for in-flight
// HTTP requests.
const shutdownTimeout = 15 * time.Second

// application holds the initialized dependencies for the server.
type application struct {
	config         *config.Config
	logger         *slog.Logger
	db             *sql.DB
	metrics        *metrics.Metrics
	cache          *cache.Hybrid
	scheduler      *task.Scheduler
	queryService   service.QueryService
	lessonsHandler *pipeline.LessonsHandler
}

// initializeApp wires every component together: database, migrations,
// stores, cache, generation client, job handlers, scheduler, services.
func initializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	m := metrics.New()

	jobStore := postgres.NewPostgresJobStore(db, logger)
	contentStore := postgres.NewPostgresContentStore(db, logger)
	cacheStore := postgres.NewPostgresCacheStore(db, logger)

	hybridCache := cache.New(cache.Config{
		MemoryCapacity: cfg.Cache.MemoryCapacity,
		DefaultTTL:     cfg.Cache.TTL,
		SweepInterval:  cfg.Cache.SweepInterval,
	}, cacheStore, m, logger)

	var client generation.Client
	client, err = gemini.NewGeminiClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	scheduler := task.NewScheduler(jobStore, task.SchedulerConfig{
		WorkerCount: cfg.Scheduler.ResolveWorkerCount(),
		QueueSize:   cfg.Scheduler.QueueSize,
	}, m, logger)

	assets, err := pipeline.NewAssetsGenerator(hybridCache, client, contentStore, m, cfg.Cache.TTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assets generator: %w", err)
	}

	questionsHandler, err := pipeline.NewRelatedQuestionsHandler(
		hybridCache, client, contentStore, m, cfg.Cache.TTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create related questions handler: %w", err)
	}

	lessonsHandler, err := pipeline.NewLessonsHandler(
		hybridCache, client, contentStore, assets,
		scheduler, cfg.Pipeline.DurableLessonAssets, m, cfg.Cache.TTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lessons handler: %w", err)
	}

	scheduler.Register(questionsHandler)
	scheduler.Register(lessonsHandler)

	if cfg.Pipeline.DurableLessonAssets {
		assetsHandler, err := pipeline.NewLessonAssetsHandler(assets)
		if err != nil {
			return nil, fmt.Errorf("failed to create lesson assets handler: %w", err)
		}
		scheduler.Register(assetsHandler)
	}

	queryService, err := service.NewQueryService(scheduler, contentStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create query service: %w", err)
	}

	return &application{
		config:         cfg,
		logger:         logger,
		db:             db,
		metrics:        m,
		cache:          hybridCache,
		scheduler:      scheduler,
		queryService:   queryService,
		lessonsHandler: lessonsHandler,
	}, nil
}

// run starts background processing and the HTTP server, then blocks until a
// shutdown signal arrives.
func (app *application) run() error {
	app.cache.Start()

	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:      app.setupRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("HTTP server listening", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-stop:
		app.logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("HTTP server shutdown failed", "error", err)
	}

	// Stop accepting new work, drain fire-and-forget sub-pipelines, then
	// flush the cache's async writes.
	app.scheduler.Stop()
	app.lessonsHandler.Wait()
	app.cache.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}

	app.logger.Info("shutdown complete")
	return nil
}
