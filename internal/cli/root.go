package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	httpserver "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/mcp"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "expensetracker",
		Short:   "Personal expense ledger served over the Model Context Protocol",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			LoadEnvFile()
		},
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newCatchUpCommand(),
		newExportCommand(),
		newMigrateCommand(),
	)
	return rootCmd
}

// withApp loads config, builds the app and runs fn with a signal-aware context.
func withApp(cmd *cobra.Command, component string, fn func(ctx context.Context, app *App) error) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger, err := SetupLogger(cfg, component)
	if err != nil {
		return err
	}

	ctx, stop := SignalContext(cmd.Context())
	defer stop()

	app, err := Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close resources", "error", err)
		}
	}()
	return fn(ctx, app)
}

func newServeCommand() *cobra.Command {
	var (
		httpAddr string
		catchUp  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio, or over HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, applog.ComponentMCP, func(ctx context.Context, app *App) error {
				if httpAddr == "" {
					httpAddr = app.Config.HTTPAddr
				}
				return serve(ctx, app, httpAddr, catchUp)
			})
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "listen address for streamable HTTP (default: HTTP_ADDR, else stdio)")
	cmd.Flags().BoolVar(&catchUp, "catch-up", false, "also materialize due recurring expenses every RECURRING_INTERVAL")
	return cmd
}

func serve(ctx context.Context, app *App, httpAddr string, catchUp bool) error {
	server, err := mcp.NewServer(app.MCPServices(), Version)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	if runner := serveRunner(app, catchUp); runner != nil {
		g.Go(func() error { return runner.Run(ctx) })
	}

	if httpAddr == "" {
		app.Logger.Info("Serving MCP over stdio", "version", Version)
		g.Go(func() error {
			// The client closing stdin ends the session and the process.
			defer cancel()
			return mcp.Run(ctx, server)
		})
		return ignoreCanceled(g.Wait())
	}

	srv := httpserver.NewServer(httpAddr, mcp.HTTPHandler(server), app.Repo, httpserver.Options{Logger: app.Logger})
	g.Go(func() error {
		app.Logger.Info("HTTP server starting", "addr", httpAddr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		app.Logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return ignoreCanceled(g.Wait())
}

// serveRunner returns the background catch-up loop for serve, or nil unless
// --catch-up was given.
func serveRunner(app *App, catchUp bool) *services.CatchUpRunner {
	if !catchUp {
		return nil
	}
	return app.CatchUpRunner()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newCatchUpCommand() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "catch-up",
		Short: "Materialize every recurring expense due on or before a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := core.Today()
			if asOf != "" {
				var err error
				if date, err = core.ParseDate("as-of", asOf); err != nil {
					return err
				}
			}
			return withApp(cmd, applog.ComponentWorker, func(ctx context.Context, app *App) error {
				res, err := app.Recurring.CatchUp(ctx, date)
				if err != nil {
					return err
				}
				for _, a := range res.Alerts {
					app.Logger.Warn(a.Message(), "category", a.Category, "month", a.Month.String())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "materialized %d expenses from %d definitions as of %s\n",
					res.Materialized, res.Definitions, date)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "cut-off date YYYY-MM-DD (default: today)")
	return cmd
}

func newExportCommand() *cobra.Command {
	var from, to, format, file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses to CSV, JSON or Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			var r core.DateRange
			if from != "" {
				if r.From, err = core.ParseDate("from", from); err != nil {
					return err
				}
			}
			if to != "" {
				if r.To, err = core.ParseDate("to", to); err != nil {
					return err
				}
			}
			return withApp(cmd, applog.ComponentExport, func(ctx context.Context, app *App) error {
				res, err := app.Exporter.Export(ctx, export.Request{Range: r, Filename: file, Format: f})
				if err != nil {
					return err
				}
				if res.Path == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "exported %d expenses to %s\n", res.Count, res.Format)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "exported %d expenses to %s\n", res.Count, res.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv, json or sheets")
	cmd.Flags().StringVar(&file, "file", "", "file name inside EXPENSES_EXPORT_DIR (default: derived from the range)")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if _, err := SetupLogger(cfg, applog.ComponentStorage); err != nil {
				return err
			}
			// Opening the repository applies pending migrations.
			repo, err := storage.NewSQLiteRepository(cfg.DBPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			version, dirty, err := storage.SchemaVersion(repo.DSN())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}
