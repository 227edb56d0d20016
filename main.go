package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"shieldmail/internal/classifier"
	"shieldmail/internal/config"
	"shieldmail/internal/server"
	"shieldmail/internal/store"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Load the packaged classifier artifact. A missing artifact is not
	// fatal: the service starts degraded and reports it via /api/health.
	loader := classifier.NewLoader(cfg.Model.Path, cfg.Model.MetadataPath, logger)
	loader.Load()

	engine := classifier.NewEngine(loader)
	predictionStore := store.New()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize and run the server
	srv := server.NewServer(loader, engine, predictionStore, cfg, logger)
	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Application stopped.")
}
