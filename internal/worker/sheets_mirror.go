// Package worker mirrors ledger changes into a Google Spreadsheet by consuming
// the AMQP change feed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/services"
)

// ExpenseGetter loads committed expenses by id.
type ExpenseGetter interface {
	Get(ctx context.Context, id int64) (core.Expense, error)
}

// SheetsMirror appends created and updated expenses to a sheet. The sheet is an
// append-only journal: an update adds a new row for the same id and deletions
// are not mirrored.
type SheetsMirror struct {
	ledger ExpenseGetter
	sheet  export.SheetAppender
}

func NewSheetsMirror(ledger ExpenseGetter, sheet export.SheetAppender) *SheetsMirror {
	return &SheetsMirror{ledger: ledger, sheet: sheet}
}

// HandleLedgerEvent processes a single change-feed event from AMQP.
func (w *SheetsMirror) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	switch event.Type {
	case services.EventExpenseCreated, services.EventExpenseUpdated:
	case services.EventExpenseDeleted:
		slog.InfoContext(ctx, "Deletion not mirrored to sheet", "count", event.Count, "ids", event.ExpenseIDs)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "type", event.Type)
		return nil
	}

	rows := make([][]any, 0, len(event.ExpenseIDs))
	for _, id := range event.ExpenseIDs {
		e, err := w.ledger.Get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got to it.
			slog.InfoContext(ctx, "Expense no longer exists, skipping", "id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("get expense %d: %w", id, err)
		}
		rows = append(rows, export.SheetRow(e))
	}
	if len(rows) == 0 {
		return nil
	}

	n, err := w.sheet.AppendRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored expenses to sheet",
		"type", event.Type,
		"rows", n)
	return nil
}
