package services

import (
	"context"
	"log/slog"

	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
	"expensetracker/internal/storage"
)

// Change-feed event types published after a ledger write commits.
const (
	EventExpenseCreated = "ledger.expense.created"
	EventExpenseUpdated = "ledger.expense.updated"
	EventExpenseDeleted = "ledger.expense.deleted"
)

// Store is the transactional surface of the storage layer.
type Store interface {
	WriteTx(ctx context.Context, fn func(q *storage.Queries) error) error
	ReadTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

// Taxonomy validates category and subcategory names.
type Taxonomy interface {
	Validate(category, subcategory string) error
}

// EventPublisher receives post-commit ledger events. Implementations may be slow or fail;
// neither affects the outcome of the write that produced the event.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, eventType string, ids []int64, count int64) error
}

func publish(ctx context.Context, events EventPublisher, eventType string, ids []int64, count int64) {
	if events == nil {
		return
	}
	if err := events.PublishLedgerEvent(ctx, eventType, ids, count); err != nil {
		metrics.EventPublishFailuresTotal.WithLabelValues(eventType).Inc()
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"count", count,
			"error", err)
		// Don't fail the request - the write is committed
	}
}

func recordAlert(alert *core.BudgetAlert) {
	if alert != nil {
		metrics.BudgetAlertsTotal.WithLabelValues(string(alert.Level)).Inc()
	}
}
