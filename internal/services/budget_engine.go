package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// BudgetEngine owns the budgets table and evaluates spending against it.
type BudgetEngine struct {
	store    Store
	taxonomy Taxonomy
	clock    func() time.Time
}

func NewBudgetEngine(store Store, taxonomy Taxonomy) *BudgetEngine {
	return &BudgetEngine{store: store, taxonomy: taxonomy, clock: time.Now}
}

// Set creates or replaces the budget for (category, month).
func (b *BudgetEngine) Set(ctx context.Context, category string, month core.Month, limit core.Money, thresholdPct float64) (core.Budget, error) {
	budget := core.Budget{
		Category:     strings.TrimSpace(category),
		Month:        month,
		Limit:        limit,
		ThresholdPct: thresholdPct,
	}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := b.taxonomy.Validate(budget.Category, ""); err != nil {
		return core.Budget{}, err
	}

	var saved core.Budget
	err := b.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		saved, err = q.UpsertBudget(ctx, budget, b.clock())
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set",
		"category", saved.Category,
		"month", saved.Month.String(),
		"limit", saved.Limit.String(),
		"threshold_pct", saved.ThresholdPct)
	return saved, nil
}

// Evaluate recomputes the alert for (category, month) from the current ledger.
// It returns nil when no budget exists.
func (b *BudgetEngine) Evaluate(ctx context.Context, category string, month core.Month) (*core.BudgetAlert, error) {
	var alert *core.BudgetAlert
	err := b.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		alert, err = b.evaluateWith(ctx, q, category, month)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate budget: %w", err)
	}
	return alert, nil
}

func (b *BudgetEngine) evaluateWith(ctx context.Context, q *storage.Queries, category string, month core.Month) (*core.BudgetAlert, error) {
	budget, ok, err := q.GetBudget(ctx, category, month)
	if err != nil || !ok {
		return nil, err
	}
	spent, count, err := q.SpentInRange(ctx, category, month.Range())
	if err != nil {
		return nil, err
	}
	alert := core.EvaluateBudget(budget, spent, count)
	return &alert, nil
}

// Status reports the budget for (category, month). It is NotFound when no budget is set.
func (b *BudgetEngine) Status(ctx context.Context, category string, month core.Month) (core.BudgetAlert, error) {
	category = strings.TrimSpace(category)
	alert, err := b.Evaluate(ctx, category, month)
	if err != nil {
		return core.BudgetAlert{}, err
	}
	if alert == nil {
		return core.BudgetAlert{}, core.NotFound("budget", category+" "+month.String())
	}
	return *alert, nil
}

// StatusForMonth reports every budget set for month, ordered by category.
func (b *BudgetEngine) StatusForMonth(ctx context.Context, month core.Month) ([]core.BudgetAlert, error) {
	out := []core.BudgetAlert{}
	err := b.store.ReadTx(ctx, func(q *storage.Queries) error {
		budgets, err := q.ListBudgetsForMonth(ctx, month)
		if err != nil {
			return err
		}
		for _, budget := range budgets {
			spent, count, err := q.SpentInRange(ctx, budget.Category, month.Range())
			if err != nil {
				return err
			}
			out = append(out, core.EvaluateBudget(budget, spent, count))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("budget status for %s: %w", month, err)
	}
	return out, nil
}

// List returns every budget ordered by month, then category.
func (b *BudgetEngine) List(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	err := b.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListBudgets(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

// Delete removes the budget for (category, month) and reports whether one existed.
func (b *BudgetEngine) Delete(ctx context.Context, category string, month core.Month) (bool, error) {
	category = strings.TrimSpace(category)
	var deleted bool
	err := b.store.WriteTx(ctx, func(q *storage.Queries) error {
		var err error
		deleted, err = q.DeleteBudget(ctx, category, month)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget deleted", "category", category, "month", month.String(), "existed", deleted)
	return deleted, nil
}
