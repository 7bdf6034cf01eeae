package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vmunix/arrgo/internal/app"
	"github.com/vmunix/arrgo/internal/config"
)

// run loads config, builds the component graph, and runs the Task
// Scheduler until SIGINT/SIGTERM. There is no HTTP server to listen on,
// so shutdown only has to stop the scheduler's ticker goroutines, not
// drain in-flight requests.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := app.NewLogger(cfg)

	a, err := app.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Scheduler.Start(ctx)
	}()

	logger.Info("acquisitiond starting",
		"database", cfg.Database.Path,
		"indexers", len(cfg.Indexers),
		"download_clients", len(cfg.DownloadClients),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	}

	select {
	case <-errCh:
	case <-time.After(30 * time.Second):
		logger.Warn("scheduler did not stop within timeout")
	}

	logger.Info("acquisitiond stopped")
	return nil
}
