package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expensetracker/internal/core"
)

const budgetColumns = "category, month, limit_cents, threshold_pct, created_at, updated_at"

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                    core.Budget
		month                string
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.Category, &month, &b.Limit.Cents, &b.ThresholdPct, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.Month, err = core.ParseMonth("month", month); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Budget{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// UpsertBudget inserts or replaces the budget for (category, month), keeping the original created_at.
func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget, now time.Time) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO budgets (category, month, limit_cents, threshold_pct, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (category, month) DO UPDATE SET
		   limit_cents = excluded.limit_cents,
		   threshold_pct = excluded.threshold_pct,
		   updated_at = excluded.updated_at
		 RETURNING `+budgetColumns,
		b.Category, b.Month.String(), b.Limit.Cents, b.ThresholdPct, formatTime(now), formatTime(now))
	out, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, wrapErr("upsert budget", err)
	}
	return out, nil
}

// GetBudget returns the budget for the key and false when none exists.
func (q *Queries) GetBudget(ctx context.Context, category string, month core.Month) (core.Budget, bool, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE category = ? AND month = ?`,
		category, month.String())
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, wrapErr("get budget", err)
	}
	return b, true, nil
}

func (q *Queries) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list budgets", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, wrapErr("list budgets", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list budgets", err)
	}
	return out, nil
}

// ListBudgets returns every budget ordered by month, then category.
func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return q.listBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY month ASC, category ASC`)
}

func (q *Queries) ListBudgetsForMonth(ctx context.Context, month core.Month) ([]core.Budget, error) {
	return q.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE month = ? ORDER BY category ASC`, month.String())
}

func (q *Queries) DeleteBudget(ctx context.Context, category string, month core.Month) (bool, error) {
	n, err := q.exec(ctx, "delete budget",
		`DELETE FROM budgets WHERE category = ? AND month = ?`, category, month.String())
	return n > 0, err
}
