// Package metrics holds the Prometheus collectors of the expense tracker.
// Collectors register with the default registry at init and are served by promhttp.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "expensetracker"

// Ledger metrics.
var (
	LedgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Expense rows written, by operation",
		},
		[]string{"op"}, // "create" / "update" / "delete"
	)

	BudgetAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_alerts_total",
			Help:      "Budget evaluations returned to callers, by level",
		},
		[]string{"level"},
	)

	RecurringMaterializedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_materialized_total",
			Help:      "Expenses generated from recurring definitions",
		},
	)

	EventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Change-feed events that could not be published",
		},
		[]string{"type"},
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Completed exports, by format",
		},
		[]string{"format"},
	)
)

// Tool dispatch metrics.
var (
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations, by tool and outcome",
		},
		[]string{"tool", "outcome"}, // outcome is "ok" or an error kind
	)

	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "MCP tool handler duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"tool"},
	)
)

// HTTPRejectedTotal counts requests refused or flagged by the HTTP guard.
var HTTPRejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rejected_total",
		Help:      "Requests rate limited or flagged as suspicious",
	},
	[]string{"reason"},
)

// CacheRequestsTotal counts analytics cache lookups.
var CacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Cache lookups, by cache and result (hit or miss)",
	},
	[]string{"cache", "result"},
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		LedgerWritesTotal,
		BudgetAlertsTotal,
		RecurringMaterializedTotal,
		EventPublishFailuresTotal,
		ExportsTotal,
		ToolCallsTotal,
		toolCallDuration,
		HTTPRejectedTotal,
		CacheRequestsTotal,
	)
}

// ObserveToolCall records one tool invocation.
func ObserveToolCall(tool, outcome string, took time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(took.Seconds())
}
