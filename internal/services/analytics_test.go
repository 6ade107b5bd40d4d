package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

func TestAnalytics_MonthlyTrendsEmpty(t *testing.T) {
	f := newFixture(t)

	trends, err := f.analytics.MonthlyTrends(context.Background(), 2024, "")
	require.NoError(t, err)
	require.Len(t, trends, 12)
	for i, m := range trends {
		assert.Equal(t, i+1, m.Month)
		assert.Zero(t, m.Total.Cents)
		assert.Zero(t, m.Count)
	}
}

func TestAnalytics_MonthlyTrends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, core.NewDate(2024, 2, 1), 1000, "Food", "")
	f.add(t, core.NewDate(2024, 2, 29), 500, "Transport", "")
	f.add(t, core.NewDate(2024, 12, 31), 700, "Food", "")
	f.add(t, core.NewDate(2025, 1, 1), 9999, "Food", "")

	trends, err := f.analytics.MonthlyTrends(ctx, 2024, "")
	require.NoError(t, err)
	assert.Equal(t, core.MonthTotal{Month: 2, Total: core.Money{Cents: 1500}, Count: 2}, trends[1])
	assert.Equal(t, core.MonthTotal{Month: 12, Total: core.Money{Cents: 700}, Count: 1}, trends[11])
	assert.Zero(t, trends[0].Count)

	food, err := f.analytics.MonthlyTrends(ctx, 2024, "Food")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), food[1].Total.Cents)

	_, err = f.analytics.MonthlyTrends(ctx, 0, "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestAnalytics_TopExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, _ := f.add(t, core.NewDate(2024, 3, 20), 5000, "Food", "")
	early, _ := f.add(t, core.NewDate(2024, 3, 1), 5000, "Transport", "")
	big, _ := f.add(t, core.NewDate(2024, 3, 10), 9000, "Housing", "")
	f.add(t, core.NewDate(2024, 3, 11), 100, "Food", "")

	top, err := f.analytics.TopExpenses(ctx, core.DateRange{}, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []int64{big.ID, early.ID, late.ID}, []int64{top[0].ID, top[1].ID, top[2].ID})

	_, err = f.analytics.TopExpenses(ctx, core.DateRange{}, 0)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestAnalytics_CategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, core.NewDate(2024, 3, 1), 1000, "Food", "groceries")
	f.add(t, core.NewDate(2024, 3, 2), 2000, "Food", "groceries")
	f.add(t, core.NewDate(2024, 3, 3), 500, "Food", "")
	f.add(t, core.NewDate(2024, 3, 4), 800, "Housing", "utilities")

	b, err := f.analytics.CategoryBreakdown(ctx, core.DateRange{From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 3, 31)})
	require.NoError(t, err)
	require.Len(t, b, 2)

	food := b["Food"]
	assert.Equal(t, int64(3500), food.Total.Cents)
	assert.Equal(t, int64(3), food.Count)
	assert.Equal(t, map[string]core.Money{
		"groceries":              {Cents: 3000},
		core.UncategorizedBucket: {Cents: 500},
	}, food.Subcategories)

	empty, err := f.analytics.CategoryBreakdown(ctx, core.DateRange{From: core.NewDate(2020, 1, 1), To: core.NewDate(2020, 1, 31)})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAnalytics_ResultCacheInvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	results := cache.NewLRUCache[any]("analytics-test", 16, time.Hour)
	cached := NewAnalytics(f.repo, WithResultCache(results, f.repo.Generation))

	f.add(t, core.NewDate(2024, 3, 1), 1000, "Food", "")

	first, err := cached.MonthlyTrends(ctx, 2024, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first[2].Total.Cents)
	assert.Equal(t, 1, results.Size())

	again, err := cached.MonthlyTrends(ctx, 2024, "")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, results.Size())

	f.add(t, core.NewDate(2024, 3, 2), 500, "Food", "")

	fresh, err := cached.MonthlyTrends(ctx, 2024, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), fresh[2].Total.Cents)

	top, err := cached.TopExpenses(ctx, core.DateRange{}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1000), top[0].Amount.Cents)

	_, err = f.ledger.Delete(ctx, core.DeleteByID(top[0].ID))
	require.NoError(t, err)
	top, err = cached.TopExpenses(ctx, core.DateRange{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), top[0].Amount.Cents)
}
