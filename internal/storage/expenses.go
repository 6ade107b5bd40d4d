package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const expenseColumns = "id, date, amount_cents, category, subcategory, description, created_at"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseDay(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		createdAt string
	)
	if err := row.Scan(&e.ID, &date, &e.Amount.Cents, &e.Category, &e.Subcategory, &e.Description, &createdAt); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Date, err = parseDay(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	return e, nil
}

func (q *Queries) listExpenses(ctx context.Context, op, query string, args ...any) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return out, nil
}

func (q *Queries) CreateExpense(ctx context.Context, d core.ExpenseDraft, createdAt time.Time) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO expenses (date, amount_cents, category, subcategory, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+expenseColumns,
		d.Date.String(), d.Amount.Cents, d.Category, d.Subcategory, d.Description, formatTime(createdAt))
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, wrapErr("insert expense", err)
	}
	return e, nil
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return core.Expense{}, wrapErr("get expense", err)
	}
	return e, nil
}

// ListExpenses returns matching expenses ordered by date, then insertion order.
func (q *Queries) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	from, to := f.Range.Bounds()
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE date BETWEEN ? AND ?`
	args := []any{from, to}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY date ASC, id ASC`
	return q.listExpenses(ctx, "list expenses", query, args...)
}

// TopExpenses returns the n largest expenses in the range. Ties go to the earlier date, then lower id.
func (q *Queries) TopExpenses(ctx context.Context, r core.DateRange, n int) ([]core.Expense, error) {
	from, to := r.Bounds()
	return q.listExpenses(ctx, "top expenses",
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE date BETWEEN ? AND ?
		 ORDER BY amount_cents DESC, date ASC, id ASC
		 LIMIT ?`, from, to, n)
}

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, subcategory = ?, description = ?
		 WHERE id = ?`,
		e.Date.String(), e.Amount.Cents, e.Category, e.Subcategory, e.Description, e.ID)
	if err != nil {
		return wrapErr("update expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update expense", err)
	}
	if n == 0 {
		return core.NotFound("expense", strconv.FormatInt(e.ID, 10))
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	return q.exec(ctx, "delete expense", `DELETE FROM expenses WHERE id = ?`, id)
}

// DeleteExpensesByIDs removes the listed expenses and returns the ids that existed.
func (q *Queries) DeleteExpensesByIDs(ctx context.Context, ids []int64) ([]int64, error) {
	removed := []int64{}
	if len(ids) == 0 {
		return removed, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx, `DELETE FROM expenses WHERE id IN (`+placeholders+`) RETURNING id`, args...)
	if err != nil {
		return nil, wrapErr("delete expenses by ids", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("delete expenses by ids", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("delete expenses by ids", err)
	}
	slices.Sort(removed)
	return removed, nil
}

func (q *Queries) DeleteExpensesInRange(ctx context.Context, r core.DateRange) (int64, error) {
	from, to := r.Bounds()
	return q.exec(ctx, "delete expenses in range", `DELETE FROM expenses WHERE date BETWEEN ? AND ?`, from, to)
}

func (q *Queries) DeleteExpensesByCategory(ctx context.Context, category string) (int64, error) {
	return q.exec(ctx, "delete expenses by category", `DELETE FROM expenses WHERE category = ?`, category)
}

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	return q.exec(ctx, "delete all expenses", `DELETE FROM expenses`)
}

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, wrapErr("count expenses", err)
	}
	return n, nil
}
