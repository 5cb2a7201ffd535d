package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chartdash/internal/config"
	"chartdash/internal/logger"
	"chartdash/internal/server"
	"chartdash/internal/storage"
)

// sweepInterval is how often idle sessions are discarded
const sweepInterval = time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.Environment)

	logger.Info("Starting chart dashboard service", logger.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"version":     config.GetVersion(),
		"storage":     cfg.StorageMode,
		"mockup_mode": cfg.MockupMode,
	})

	client, err := storage.NewStorageClient(ctx, storage.DeploymentMode(cfg.StorageMode), cfg)
	if err != nil {
		logger.Fatal("Failed to create storage client", err)
	}

	srv := server.NewServer(cfg, client)
	defer srv.Close()

	go srv.Sessions.Run(ctx, sweepInterval)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", logger.Fields{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", err)
	}

	logger.Info("Server stopped")
}
