// Package mcp exposes the ledger services as Model Context Protocol tools,
// resources and prompts.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/metrics"
	"expensetracker/internal/services"
)

const serverName = "expense-tracker"

// Exporter renders ledger rows to a file or sheet.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (export.Result, error)
}

// Categories is the read surface of the taxonomy.
type Categories interface {
	Categories() []string
	JSON() ([]byte, error)
}

// Services bundles everything the tools dispatch to.
type Services struct {
	Ledger    *services.LedgerService
	Budgets   *services.BudgetEngine
	Recurring *services.RecurringScheduler
	Analytics *services.Analytics
	Exporter  Exporter
	Taxonomy  Categories

	// DefaultThreshold applies when set_budget omits alert_threshold.
	DefaultThreshold float64
}

func (s Services) validate() error {
	var errs []error
	if s.Ledger == nil {
		errs = append(errs, errors.New("ledger service is required"))
	}
	if s.Budgets == nil {
		errs = append(errs, errors.New("budget engine is required"))
	}
	if s.Recurring == nil {
		errs = append(errs, errors.New("recurring scheduler is required"))
	}
	if s.Analytics == nil {
		errs = append(errs, errors.New("analytics is required"))
	}
	if s.Exporter == nil {
		errs = append(errs, errors.New("exporter is required"))
	}
	if s.Taxonomy == nil {
		errs = append(errs, errors.New("taxonomy is required"))
	}
	return errors.Join(errs...)
}

// NewServer builds an MCP server with every tool, resource and prompt registered.
func NewServer(svc Services, version string) (*sdk.Server, error) {
	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("invalid services: %w", err)
	}
	if svc.DefaultThreshold == 0 {
		svc.DefaultThreshold = core.DefaultThresholdPct
	}

	server := sdk.NewServer(&sdk.Implementation{Name: serverName, Version: version}, nil)

	registerExpenseTools(server, svc)
	registerAnalyticsTools(server, svc)
	registerBudgetTools(server, svc)
	registerRecurringTools(server, svc)
	registerExportTools(server, svc)
	registerResources(server, svc)
	registerPrompts(server)

	return server, nil
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func Run(ctx context.Context, server *sdk.Server) error {
	slog.InfoContext(ctx, "MCP server listening on stdio")
	return server.Run(ctx, &sdk.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport for server.
func HTTPHandler(server *sdk.Server) http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)
}

// addTool registers h under tool. A returned error is reported by the SDK as a tool
// result with IsError set; its text carries the error kind, field and value.
func addTool[In, Out any](server *sdk.Server, tool *sdk.Tool, h func(context.Context, In) (Out, error)) {
	sdk.AddTool(server, tool, func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, Out, error) {
		start := time.Now()
		out, err := h(ctx, in)
		if err != nil {
			kind := core.KindOf(err)
			metrics.ObserveToolCall(tool.Name, string(kind), time.Since(start))
			if kind == core.KindStorage {
				slog.ErrorContext(ctx, "Tool call failed", "tool", tool.Name, "error", err)
			} else {
				slog.InfoContext(ctx, "Tool call rejected", "tool", tool.Name, "kind", kind, "error", err)
			}
			var zero Out
			return nil, zero, err
		}
		metrics.ObserveToolCall(tool.Name, "ok", time.Since(start))
		return nil, out, nil
	})
}

// parseRange builds an inclusive range; empty bounds stay open.
func parseRange(startDate, endDate string) (core.DateRange, error) {
	var r core.DateRange
	var err error
	if startDate != "" {
		if r.From, err = core.ParseDate("start_date", startDate); err != nil {
			return core.DateRange{}, err
		}
	}
	if endDate != "" {
		if r.To, err = core.ParseDate("end_date", endDate); err != nil {
			return core.DateRange{}, err
		}
	}
	return r, r.Validate()
}
