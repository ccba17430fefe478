package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danylo/tubegems/internal/api"
	"github.com/danylo/tubegems/internal/config"
	"github.com/danylo/tubegems/internal/insight"
	"github.com/danylo/tubegems/internal/logger"
	"github.com/danylo/tubegems/internal/repository"
	"github.com/danylo/tubegems/internal/service"
	"github.com/danylo/tubegems/internal/youtube"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// Initialize logger
	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	insightRepo := repository.NewInsightRepository(db)

	// External clients are built once at startup and injected; they are
	// reused across requests.
	ctx := context.Background()
	catalog, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize YouTube client")
	}

	transcripts := youtube.NewTranscriptClient(&youtube.TranscriptConfig{
		Languages: cfg.YouTube.TranscriptLanguages,
		Timeout:   cfg.YouTube.TranscriptTimeout,
	}, log)

	generator := insight.NewGenerator(&insight.Config{
		Model:   cfg.Insight.Model,
		APIKey:  cfg.Insight.APIKey,
		BaseURL: cfg.Insight.BaseURL,
		Timeout: cfg.Insight.Timeout,
	}, log)

	gemsService := service.NewGemsService(
		catalog,
		transcripts,
		generator,
		insightRepo,
		log,
		&service.GemsConfig{
			EnrichWorkers:     cfg.Gems.EnrichWorkers,
			DefaultMaxResults: cfg.Gems.DefaultMaxResults,
		},
	)

	// Setup router
	router := api.SetupRouter(gemsService, insightRepo, cfg, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
