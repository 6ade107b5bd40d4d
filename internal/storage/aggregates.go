package storage

import (
	"context"
	"strconv"

	"expensetracker/internal/core"
)

// SpentInRange sums one category's expenses over an inclusive range.
func (q *Queries) SpentInRange(ctx context.Context, category string, r core.DateRange) (core.Money, int64, error) {
	from, to := r.Bounds()
	var total, count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM expenses
		 WHERE category = ? AND date BETWEEN ? AND ?`,
		category, from, to).Scan(&total, &count)
	if err != nil {
		return core.Money{}, 0, wrapErr("sum category spending", err)
	}
	return core.Money{Cents: total}, count, nil
}

// SummarizeByCategory totals expenses per category, largest first.
func (q *Queries) SummarizeByCategory(ctx context.Context, r core.DateRange) ([]core.CategoryTotal, error) {
	from, to := r.Bounds()
	rows, err := q.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total, COUNT(*) FROM expenses
		 WHERE date BETWEEN ? AND ?
		 GROUP BY category
		 ORDER BY total DESC, category ASC`, from, to)
	if err != nil {
		return nil, wrapErr("summarize expenses", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, wrapErr("summarize expenses", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("summarize expenses", err)
	}
	return out, nil
}

// MonthlyTotals returns only the months of the range that have expenses.
func (q *Queries) MonthlyTotals(ctx context.Context, r core.DateRange, category string) ([]core.MonthTotal, error) {
	from, to := r.Bounds()
	query := `SELECT substr(date, 6, 2) AS month, SUM(amount_cents), COUNT(*) FROM expenses
		 WHERE date BETWEEN ? AND ?`
	args := []any{from, to}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` GROUP BY month ORDER BY month ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("monthly totals", err)
	}
	defer rows.Close()

	out := []core.MonthTotal{}
	for rows.Next() {
		var (
			month string
			mt    core.MonthTotal
		)
		if err := rows.Scan(&month, &mt.Total.Cents, &mt.Count); err != nil {
			return nil, wrapErr("monthly totals", err)
		}
		if mt.Month, err = strconv.Atoi(month); err != nil {
			return nil, wrapErr("monthly totals", err)
		}
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("monthly totals", err)
	}
	return out, nil
}

// BreakdownRow is one (category, subcategory) bucket of a breakdown.
type BreakdownRow struct {
	Category    string
	Subcategory string
	Total       core.Money
	Count       int64
}

func (q *Queries) Breakdown(ctx context.Context, r core.DateRange) ([]BreakdownRow, error) {
	from, to := r.Bounds()
	rows, err := q.db.QueryContext(ctx,
		`SELECT category, subcategory, SUM(amount_cents) AS total, COUNT(*) FROM expenses
		 WHERE date BETWEEN ? AND ?
		 GROUP BY category, subcategory
		 ORDER BY category ASC, total DESC`, from, to)
	if err != nil {
		return nil, wrapErr("category breakdown", err)
	}
	defer rows.Close()

	out := []BreakdownRow{}
	for rows.Next() {
		var br BreakdownRow
		if err := rows.Scan(&br.Category, &br.Subcategory, &br.Total.Cents, &br.Count); err != nil {
			return nil, wrapErr("category breakdown", err)
		}
		out = append(out, br)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("category breakdown", err)
	}
	return out, nil
}
