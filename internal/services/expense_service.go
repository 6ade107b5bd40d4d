package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
	"expensetracker/internal/storage"
)

// LedgerService validates and persists expenses. Every write that can move
// spending re-evaluates the affected budget inside the same transaction.
type LedgerService struct {
	store    Store
	taxonomy Taxonomy
	budgets  *BudgetEngine
	events   EventPublisher
	clock    func() time.Time
}

// NewLedgerService wires the ledger. events may be nil.
func NewLedgerService(store Store, taxonomy Taxonomy, budgets *BudgetEngine, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:    store,
		taxonomy: taxonomy,
		budgets:  budgets,
		events:   events,
		clock:    time.Now,
	}
}

func normalizeDraft(d core.ExpenseDraft) core.ExpenseDraft {
	d.Category = strings.TrimSpace(d.Category)
	d.Subcategory = strings.TrimSpace(d.Subcategory)
	return d
}

// Add records a new expense and returns the budget alert for its category and month,
// or nil when no budget is set.
func (s *LedgerService) Add(ctx context.Context, d core.ExpenseDraft) (core.Expense, *core.BudgetAlert, error) {
	d = normalizeDraft(d)
	if err := d.Validate(); err != nil {
		return core.Expense{}, nil, err
	}
	if err := s.taxonomy.Validate(d.Category, d.Subcategory); err != nil {
		return core.Expense{}, nil, err
	}

	var (
		expense core.Expense
		alert   *core.BudgetAlert
	)
	err := s.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		expense, alert, err = s.addWith(ctx, q, d)
		return err
	})
	if err != nil {
		return core.Expense{}, nil, fmt.Errorf("add expense: %w", err)
	}

	s.afterCreate(ctx, []core.Expense{expense}, alert)
	slog.InfoContext(ctx, "Expense added",
		"id", expense.ID,
		"category", expense.Category,
		"amount", expense.Amount.String(),
		"date", expense.Date.String())
	return expense, alert, nil
}

// addWith inserts a validated draft through q and evaluates its budget with the same snapshot.
func (s *LedgerService) addWith(ctx context.Context, q *storage.Queries, d core.ExpenseDraft) (core.Expense, *core.BudgetAlert, error) {
	expense, err := q.CreateExpense(ctx, d, s.clock())
	if err != nil {
		return core.Expense{}, nil, err
	}
	alert, err := s.budgets.evaluateWith(ctx, q, expense.Category, expense.Date.Month())
	if err != nil {
		return core.Expense{}, nil, err
	}
	return expense, alert, nil
}

func (s *LedgerService) afterCreate(ctx context.Context, created []core.Expense, alert *core.BudgetAlert) {
	if len(created) == 0 {
		return
	}
	metrics.LedgerWritesTotal.WithLabelValues("create").Add(float64(len(created)))
	recordAlert(alert)
	ids := make([]int64, len(created))
	for i, e := range created {
		ids[i] = e.ID
	}
	publish(ctx, s.events, EventExpenseCreated, ids, int64(len(ids)))
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id)
		return err
	})
	return e, err
}

// List returns expenses ordered by date, then insertion order.
func (s *LedgerService) List(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	f.Category = strings.TrimSpace(f.Category)

	var out []core.Expense
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListExpenses(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// Update applies a partial change. The alert is recomputed for the resulting
// category and month when amount, date or category changed, and is nil otherwise.
func (s *LedgerService) Update(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, *core.BudgetAlert, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, nil, err
	}

	var (
		updated core.Expense
		alert   *core.BudgetAlert
	)
	err := s.store.WriteTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		updated = p.Apply(current)
		if p.Category != nil || p.Subcategory != nil {
			if err := s.taxonomy.Validate(updated.Category, updated.Subcategory); err != nil {
				return err
			}
		}
		if err := q.UpdateExpense(ctx, updated); err != nil {
			return err
		}
		if p.TouchesBudget() {
			alert, err = s.budgets.evaluateWith(ctx, q, updated.Category, updated.Date.Month())
		}
		return err
	})
	if err != nil {
		return core.Expense{}, nil, fmt.Errorf("update expense %d: %w", id, err)
	}

	metrics.LedgerWritesTotal.WithLabelValues("update").Inc()
	recordAlert(alert)
	publish(ctx, s.events, EventExpenseUpdated, []int64{id}, 1)
	slog.InfoContext(ctx, "Expense updated", "id", id, "budget_reevaluated", p.TouchesBudget())
	return updated, alert, nil
}

// Delete removes the expenses chosen by sel and returns how many were removed.
// A missing single id is NotFound; bulk selectors matching nothing return 0.
func (s *LedgerService) Delete(ctx context.Context, sel core.DeleteSelector) (int64, error) {
	if err := sel.Validate(); err != nil {
		return 0, err
	}

	var (
		n   int64
		ids []int64
	)
	err := s.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		switch {
		case sel.IsSingle():
			n, err = q.DeleteExpense(ctx, sel.ID)
			if err == nil && n == 0 {
				err = core.NotFound("expense", fmt.Sprint(sel.ID))
			}
			ids = []int64{sel.ID}
		case sel.IsIDs():
			ids, err = q.DeleteExpensesByIDs(ctx, sel.IDs)
			n = int64(len(ids))
		case sel.IsRange():
			n, err = q.DeleteExpensesInRange(ctx, sel.Range)
		case sel.IsCategory():
			n, err = q.DeleteExpensesByCategory(ctx, sel.Category)
		case sel.IsAll():
			n, err = q.DeleteAllExpenses(ctx)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}

	if n > 0 {
		metrics.LedgerWritesTotal.WithLabelValues("delete").Add(float64(n))
		publish(ctx, s.events, EventExpenseDeleted, ids, n)
	}
	slog.InfoContext(ctx, "Expenses deleted", "count", n)
	return n, nil
}

// Summarize totals spending per category over r. A zero range covers the full history.
func (s *LedgerService) Summarize(ctx context.Context, r core.DateRange) ([]core.CategoryTotal, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out []core.CategoryTotal
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.SummarizeByCategory(ctx, r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}
	return out, nil
}
