package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/worker"
)

const retryDelay = 5 * time.Second

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
	logger.Info("Starting sheets-sync", "version", cli.Version)

	if cfg.AMQPQueue == "" || !cfg.SheetsEnabled() {
		logger.Error("sheets-sync needs AMQP_URL, AMQP_QUEUE and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Events == nil || app.Sheets == nil {
		logger.Error("AMQP broker or Google Sheets unavailable, nothing to mirror")
		return
	}

	mirror := worker.NewSheetsMirror(app.Ledger, app.Sheets)
	for {
		err := app.Events.ConsumeLedgerEvents(ctx, mirror.HandleLedgerEvent)
		if ctx.Err() != nil {
			break
		}
		logger.Error("Message consumption failed, retrying", "error", err, "delay", retryDelay)
		select {
		case <-ctx.Done():
		case <-time.After(retryDelay):
		}
		if ctx.Err() != nil {
			break
		}
	}
	logger.Info("Sheets-sync shutdown complete")
}
