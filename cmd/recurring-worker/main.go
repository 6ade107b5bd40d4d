package main

import (
	"context"
	"log/slog"
	"os"

	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger, err := cli.SetupLogger(cfg, applog.ComponentWorker)
	if err != nil {
		slog.Error("Invalid logging configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("Starting recurring-worker", "version", cli.Version)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		"db", cfg.DBPath)

	// Run processes once on startup, then on every tick until a shutdown signal arrives.
	if err := app.CatchUpRunner().Run(ctx); err != nil {
		logger.Error("Recurring-worker stopped with error", "error", err)
		return
	}
	logger.Info("Recurring-worker shutdown complete")
}
