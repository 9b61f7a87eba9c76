// Package main implements the entry point for the Sage API server, which
// turns free-text queries into structured educational content (related
// questions, lessons, flashcards, and quizzes) generated in the background.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/sagelearn/sage-api/internal/config"
	"github.com/sagelearn/sage-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server)

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Scheduler.ResolveWorkerCount(),
		"durable_lesson_assets", cfg.Pipeline.DurableLessonAssets)

	app, err := initializeApp(context.Background(), cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
