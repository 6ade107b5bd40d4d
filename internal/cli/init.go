// Package cli wires configuration, storage and services into the commands
// shared by cmd/expensetracker and cmd/recurring-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/export"
	"expensetracker/internal/export/sheets"
	applog "expensetracker/internal/log"
	"expensetracker/internal/mcp"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/taxonomy"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

const (
	analyticsCacheSize = 256
	analyticsCacheTTL  = 10 * time.Minute
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig parses and validates the environment.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger on stderr and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// App holds the opened store and the services built on it.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Repo     *storage.SQLiteRepository
	Taxonomy *taxonomy.Taxonomy

	Ledger    *services.LedgerService
	Budgets   *services.BudgetEngine
	Recurring *services.RecurringScheduler
	Analytics *services.Analytics
	Exporter  *export.Service

	// Optional integrations; nil when not configured or unreachable.
	Events *amqp.Client
	Sheets *sheets.Client

	closers []func() error
}

// Bootstrap opens the database, loads the taxonomy and builds every service.
// The AMQP change feed and the sheets sink are optional: a failure to reach
// either is logged and the app continues without it.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	tax, err := taxonomy.Load(cfg.CategoriesPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database %s: %w", cfg.DBPath, err)
	}
	app := &App{Config: cfg, Logger: logger, Repo: repo, Taxonomy: tax}
	app.closers = append(app.closers, repo.Close)

	var events services.EventPublisher
	if client := app.connectAMQP(ctx); client != nil {
		app.Events = client
		events = client
		app.closers = append(app.closers, client.Close)
	}

	var sink export.SheetAppender
	if client := app.connectSheets(ctx); client != nil {
		app.Sheets = client
		sink = client
	}

	app.Budgets = services.NewBudgetEngine(repo, tax)
	app.Ledger = services.NewLedgerService(repo, tax, app.Budgets, events)
	app.Recurring = services.NewRecurringScheduler(repo, tax, app.Ledger)
	caches := cache.NewManager()
	results := cache.NewLRUCache[any]("analytics", analyticsCacheSize, analyticsCacheTTL)
	caches.Register(results)
	caches.StartCleanup(analyticsCacheTTL)
	app.closers = append(app.closers, caches.Stop)
	app.Analytics = services.NewAnalytics(repo, services.WithResultCache(results, repo.Generation))
	app.Exporter = export.NewService(app.Ledger, cfg.ExportDir, sink)

	logger.Info("Ledger ready",
		"db", cfg.DBPath,
		"categories", len(tax.Categories()),
		"change_feed", events != nil,
		"sheets", sink != nil)
	return app, nil
}

func (a *App) connectAMQP(ctx context.Context) *amqp.Client {
	if a.Config.AMQPURL == "" {
		a.Logger.Info("AMQP disabled - ledger events will not be published")
		return nil
	}
	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:        a.Config.AMQPURL,
		Exchange:   a.Config.AMQPExchange,
		RoutingKey: a.Config.AMQPRoutingKey,
		Queue:      a.Config.AMQPQueue,
	})
	if err != nil {
		a.Logger.WithComponent(applog.ComponentAMQP).Warn("Failed to initialize AMQP client, continuing without change feed", "error", err)
		return nil
	}
	return client
}

func (a *App) connectSheets(ctx context.Context) *sheets.Client {
	if !a.Config.SheetsEnabled() {
		return nil
	}
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   a.Config.GoogleSpreadsheetID,
		SheetName:       a.Config.GoogleSheetName,
		CredentialsJSON: a.Config.GoogleServiceAccountJSON,
		CredentialsFile: a.Config.GoogleServiceAccountFile,
	})
	if err != nil {
		a.Logger.WithComponent(applog.ComponentExport).Warn("Failed to initialize Google Sheets client, sheets export disabled", "error", err)
		return nil
	}
	return client
}

// MCPServices exposes the app to the MCP tool layer.
func (a *App) MCPServices() mcp.Services {
	return mcp.Services{
		Ledger:           a.Ledger,
		Budgets:          a.Budgets,
		Recurring:        a.Recurring,
		Analytics:        a.Analytics,
		Exporter:         a.Exporter,
		Taxonomy:         a.Taxonomy,
		DefaultThreshold: a.Config.DefaultAlertThreshold,
	}
}

// CatchUpRunner builds the periodic materializer on RECURRING_INTERVAL.
func (a *App) CatchUpRunner() *services.CatchUpRunner {
	return services.NewCatchUpRunner(a.Recurring, services.CatchUpRunnerConfig{Interval: a.Config.RecurringInterval})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
