package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
	"expensetracker/internal/storage"
)

// maxOccurrencesPerRun bounds how many occurrences one definition can
// materialize in a single catch-up, so a daily definition left idle for years
// cannot hold the write lock indefinitely.
const maxOccurrencesPerRun = 1000

// RecurringScheduler owns recurring definitions and turns due occurrences into
// expenses through the ledger's write path.
type RecurringScheduler struct {
	store    Store
	taxonomy Taxonomy
	ledger   *LedgerService
	clock    func() time.Time
}

func NewRecurringScheduler(store Store, taxonomy Taxonomy, ledger *LedgerService) *RecurringScheduler {
	return &RecurringScheduler{store: store, taxonomy: taxonomy, ledger: ledger, clock: time.Now}
}

// CatchUpResult describes one catch-up run.
type CatchUpResult struct {
	Definitions  int
	Materialized int
	Expenses     []core.Expense
	Alerts       []core.BudgetAlert // non-ok alerts raised along the way
}

func occurrenceDraft(r core.RecurringExpense, on core.Date) core.ExpenseDraft {
	return core.ExpenseDraft{
		Date:        on,
		Amount:      r.Amount,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Description: r.MaterializedDescription(),
	}
}

// Add stores a definition and materializes its first occurrence on the start date,
// both in one transaction.
func (s *RecurringScheduler) Add(ctx context.Context, d core.RecurringDraft) (core.RecurringExpense, core.Expense, *core.BudgetAlert, error) {
	d.Category = strings.TrimSpace(d.Category)
	d.Subcategory = strings.TrimSpace(d.Subcategory)
	if err := d.Validate(); err != nil {
		return core.RecurringExpense{}, core.Expense{}, nil, err
	}
	if err := s.taxonomy.Validate(d.Category, d.Subcategory); err != nil {
		return core.RecurringExpense{}, core.Expense{}, nil, err
	}
	strategy, err := GetScheduleStrategy(d.Frequency)
	if err != nil {
		return core.RecurringExpense{}, core.Expense{}, nil, core.Invalid("frequency", string(d.Frequency), err.Error())
	}

	var (
		def     core.RecurringExpense
		expense core.Expense
		alert   *core.BudgetAlert
	)
	err = s.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		def, err = q.CreateRecurring(ctx, d, strategy.Next(d.StartDate, d.StartDate), s.clock())
		if err != nil {
			return err
		}
		expense, alert, err = s.ledger.addWith(ctx, q, occurrenceDraft(def, d.StartDate))
		return err
	})
	if err != nil {
		return core.RecurringExpense{}, core.Expense{}, nil, fmt.Errorf("add recurring expense: %w", err)
	}

	metrics.RecurringMaterializedTotal.Inc()
	s.ledger.afterCreate(ctx, []core.Expense{expense}, alert)
	slog.InfoContext(ctx, "Recurring expense added",
		"id", def.ID,
		"frequency", def.Frequency,
		"start_date", def.StartDate.String(),
		"next_due", def.NextDue.String(),
		"expense_id", expense.ID)
	return def, expense, alert, nil
}

func (s *RecurringScheduler) List(ctx context.Context, activeOnly bool) ([]core.RecurringExpense, error) {
	var out []core.RecurringExpense
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListRecurring(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return out, nil
}

// Deactivate stops a definition for good. Deactivating an inactive definition is a no-op.
func (s *RecurringScheduler) Deactivate(ctx context.Context, id int64) (core.RecurringExpense, error) {
	var def core.RecurringExpense
	err := s.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		def, err = q.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		if !def.Active {
			return nil
		}
		if err := q.DeactivateRecurring(ctx, id); err != nil {
			return err
		}
		def.Active = false
		return nil
	})
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("deactivate recurring expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Recurring expense deactivated", "id", id)
	return def, nil
}

// CatchUp materializes every occurrence due on or before asOf. Each definition is
// processed in its own transaction; a failing definition does not stop the others.
func (s *RecurringScheduler) CatchUp(ctx context.Context, asOf core.Date) (CatchUpResult, error) {
	var due []core.RecurringExpense
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		due, err = q.ListDueRecurring(ctx, asOf)
		return err
	})
	if err != nil {
		return CatchUpResult{}, fmt.Errorf("list due recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"due", len(due),
		"as_of", asOf.String())

	result := CatchUpResult{Expenses: []core.Expense{}, Alerts: []core.BudgetAlert{}}
	var errs []error
	for _, def := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		created, alerts, err := s.catchUpOne(ctx, def.ID, asOf)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring expense",
				"recurring_id", def.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("recurring expense %d: %w", def.ID, err))
			continue
		}
		result.Definitions++
		result.Materialized += len(created)
		result.Expenses = append(result.Expenses, created...)
		result.Alerts = append(result.Alerts, alerts...)

		metrics.RecurringMaterializedTotal.Add(float64(len(created)))
		var last *core.BudgetAlert
		if len(alerts) > 0 {
			last = &alerts[len(alerts)-1]
		}
		s.ledger.afterCreate(ctx, created, last)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"definitions", result.Definitions,
		"materialized", result.Materialized,
		"failed", len(errs))
	return result, errors.Join(errs...)
}

func (s *RecurringScheduler) catchUpOne(ctx context.Context, id int64, asOf core.Date) ([]core.Expense, []core.BudgetAlert, error) {
	var (
		created []core.Expense
		alerts  []core.BudgetAlert
	)
	err := s.store.WriteTx(ctx, func(q *storage.Queries) error {
		created, alerts = nil, nil

		// Reload under the write lock; another run may have advanced it already.
		def, err := q.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		strategy, err := GetScheduleStrategy(def.Frequency)
		if err != nil {
			return err
		}

		start := def.NextDue
		for i := 0; def.DueOn(asOf) && i < maxOccurrencesPerRun; i++ {
			expense, alert, err := s.ledger.addWith(ctx, q, occurrenceDraft(def, def.NextDue))
			if err != nil {
				return err
			}
			created = append(created, expense)
			if alert != nil && alert.Level != core.LevelOK {
				alerts = append(alerts, *alert)
			}
			def.NextDue = strategy.Next(def.NextDue, def.StartDate)
		}

		if def.NextDue != start {
			if err := q.AdvanceRecurring(ctx, def.ID, def.NextDue); err != nil {
				return err
			}
		}
		if def.Active && !def.EndDate.IsZero() && def.NextDue.After(def.EndDate) {
			return q.DeactivateRecurring(ctx, def.ID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, alerts, nil
}
