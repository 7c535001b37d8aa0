package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nguyenvotandat/runway-backend/internal/app"
	"github.com/nguyenvotandat/runway-backend/internal/config"
	"github.com/nguyenvotandat/runway-backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	log.Info("starting promotion service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	// Cancel on SIGINT or SIGTERM for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("promotion service stopped")
	return nil
}
