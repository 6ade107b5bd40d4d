package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expensetracker/internal/core"
)

const recurringColumns = "id, category, subcategory, description, amount_cents, frequency, start_date, end_date, next_due, active, created_at"

func scanRecurring(row rowScanner) (core.RecurringExpense, error) {
	var (
		r                         core.RecurringExpense
		frequency                 string
		start, end, next, created string
	)
	if err := row.Scan(&r.ID, &r.Category, &r.Subcategory, &r.Description, &r.Amount.Cents,
		&frequency, &start, &end, &next, &r.Active, &created); err != nil {
		return core.RecurringExpense{}, err
	}
	r.Frequency = core.Frequency(frequency)

	var err error
	if r.StartDate, err = parseDay(start); err != nil {
		return core.RecurringExpense{}, err
	}
	if r.EndDate, err = parseDay(end); err != nil {
		return core.RecurringExpense{}, err
	}
	if r.NextDue, err = parseDay(next); err != nil {
		return core.RecurringExpense{}, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}

func (q *Queries) CreateRecurring(ctx context.Context, d core.RecurringDraft, nextDue core.Date, createdAt time.Time) (core.RecurringExpense, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO recurring_expenses
		   (category, subcategory, description, amount_cents, frequency, start_date, end_date, next_due, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		 RETURNING `+recurringColumns,
		d.Category, d.Subcategory, d.Description, d.Amount.Cents, string(d.Frequency),
		d.StartDate.String(), d.EndDate.String(), nextDue.String(), formatTime(createdAt))
	r, err := scanRecurring(row)
	if err != nil {
		return core.RecurringExpense{}, wrapErr("insert recurring expense", err)
	}
	return r, nil
}

func (q *Queries) GetRecurring(ctx context.Context, id int64) (core.RecurringExpense, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ?`, id)
	r, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringExpense{}, core.NotFound("recurring_expense", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return core.RecurringExpense{}, wrapErr("get recurring expense", err)
	}
	return r, nil
}

func (q *Queries) listRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list recurring expenses", err)
	}
	defer rows.Close()

	out := []core.RecurringExpense{}
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, wrapErr("list recurring expenses", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list recurring expenses", err)
	}
	return out, nil
}

func (q *Queries) ListRecurring(ctx context.Context, activeOnly bool) ([]core.RecurringExpense, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_expenses`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	return q.listRecurring(ctx, query+` ORDER BY id ASC`)
}

// ListDueRecurring returns active definitions whose next occurrence is on or before asOf.
func (q *Queries) ListDueRecurring(ctx context.Context, asOf core.Date) ([]core.RecurringExpense, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses
		 WHERE active = 1 AND next_due <= ?
		 ORDER BY next_due ASC, id ASC`, asOf.String())
}

// DeactivateRecurring clears the active flag. Already inactive rows are left untouched.
func (q *Queries) DeactivateRecurring(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, "deactivate recurring expense",
		`UPDATE recurring_expenses SET active = 0 WHERE id = ? AND active = 1`, id)
	return err
}

// AdvanceRecurring moves next_due forward. It refuses to move it backwards or sideways.
func (q *Queries) AdvanceRecurring(ctx context.Context, id int64, nextDue core.Date) error {
	n, err := q.exec(ctx, "advance recurring expense",
		`UPDATE recurring_expenses SET next_due = ? WHERE id = ? AND next_due < ?`,
		nextDue.String(), id, nextDue.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return core.Conflict("recurring_expense", fmt.Sprintf("next_due of %d not advanced to %s", id, nextDue), nil)
	}
	return nil
}
