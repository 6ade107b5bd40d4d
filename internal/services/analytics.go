package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// Analytics answers read-only aggregate questions about the ledger.
type Analytics struct {
	store      Store
	cache      cache.Cache[any]
	generation func() uint64
}

// AnalyticsOption configures NewAnalytics.
type AnalyticsOption func(*Analytics)

// WithResultCache memoizes results per ledger generation. Cached slices and maps
// are shared between callers and must not be modified.
func WithResultCache(c cache.Cache[any], generation func() uint64) AnalyticsOption {
	return func(a *Analytics) {
		a.cache = c
		a.generation = generation
	}
}

func NewAnalytics(store Store, opts ...AnalyticsOption) *Analytics {
	a := &Analytics{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cachedRead serves key from the cache when the ledger has not changed since it was stored.
func cachedRead[T any](a *Analytics, key string, load func() (T, error)) (T, error) {
	if a.cache == nil || a.generation == nil {
		return load()
	}
	key = strconv.FormatUint(a.generation(), 10) + "|" + key
	if v, ok := a.cache.Get(key); ok {
		if hit, ok := v.(T); ok {
			return hit, nil
		}
	}
	v, err := load()
	if err == nil {
		a.cache.Set(key, v)
	}
	return v, err
}

// MonthlyTrends returns twelve entries for year, January first, with empty months zeroed.
// A non-empty category restricts the totals to that category.
func (a *Analytics) MonthlyTrends(ctx context.Context, year int, category string) ([]core.MonthTotal, error) {
	if year < 1 || year > 9999 {
		return nil, core.Invalid("year", strconv.Itoa(year), "must be between 1 and 9999")
	}
	category = strings.TrimSpace(category)
	return cachedRead(a, fmt.Sprintf("trends|%d|%s", year, category), func() ([]core.MonthTotal, error) {
		return a.monthlyTrends(ctx, year, category)
	})
}

func (a *Analytics) monthlyTrends(ctx context.Context, year int, category string) ([]core.MonthTotal, error) {
	var rows []core.MonthTotal
	err := a.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		rows, err = q.MonthlyTotals(ctx, core.YearRange(year), category)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}

	out := make([]core.MonthTotal, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, r := range rows {
		if r.Month >= 1 && r.Month <= 12 {
			out[r.Month-1] = r
		}
	}
	return out, nil
}

// TopExpenses returns the n largest expenses in r. Equal amounts are ordered by date, then id.
func (a *Analytics) TopExpenses(ctx context.Context, r core.DateRange, n int) ([]core.Expense, error) {
	if n < 1 {
		return nil, core.Invalid("limit", strconv.Itoa(n), "must be at least 1")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	from, to := r.Bounds()
	return cachedRead(a, fmt.Sprintf("top|%s|%s|%d", from, to, n), func() ([]core.Expense, error) {
		return a.topExpenses(ctx, r, n)
	})
}

func (a *Analytics) topExpenses(ctx context.Context, r core.DateRange, n int) ([]core.Expense, error) {
	var out []core.Expense
	err := a.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.TopExpenses(ctx, r, n)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("top expenses: %w", err)
	}
	return out, nil
}

// CategoryBreakdown groups spending in r by category and subcategory. Expenses
// without a subcategory roll up under core.UncategorizedBucket.
func (a *Analytics) CategoryBreakdown(ctx context.Context, r core.DateRange) (map[string]core.CategoryBreakdown, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	from, to := r.Bounds()
	return cachedRead(a, fmt.Sprintf("breakdown|%s|%s", from, to), func() (map[string]core.CategoryBreakdown, error) {
		return a.categoryBreakdown(ctx, r)
	})
}

func (a *Analytics) categoryBreakdown(ctx context.Context, r core.DateRange) (map[string]core.CategoryBreakdown, error) {
	var rows []storage.BreakdownRow
	err := a.store.ReadTx(ctx, func(q *storage.Queries) error {
		var err error
		rows, err = q.Breakdown(ctx, r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	out := map[string]core.CategoryBreakdown{}
	for _, row := range rows {
		b, ok := out[row.Category]
		if !ok {
			b.Subcategories = map[string]core.Money{}
		}
		b.Total = b.Total.Add(row.Total)
		b.Count += row.Count
		sub := row.Subcategory
		if sub == "" {
			sub = core.UncategorizedBucket
		}
		b.Subcategories[sub] = b.Subcategories[sub].Add(row.Total)
		out[row.Category] = b
	}
	return out, nil
}
