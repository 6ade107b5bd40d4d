package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func TestLedgerService_AddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft core.ExpenseDraft
	}{
		{"zero amount", core.ExpenseDraft{Date: core.NewDate(2024, 5, 1), Category: "Food"}},
		{"negative amount", core.ExpenseDraft{Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: -500}, Category: "Food"}},
		{"unknown category", core.ExpenseDraft{Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: 500}, Category: "Toys"}},
		{"subcategory of other category", core.ExpenseDraft{Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: 500}, Category: "Food", Subcategory: "fuel"}},
		{"missing date", core.ExpenseDraft{Amount: core.Money{Cents: 500}, Category: "Food"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.ledger.Add(ctx, tc.draft)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
	assert.Zero(t, f.count(t))
	assert.Empty(t, f.events.events)
}

func TestLedgerService_AddWithoutBudget(t *testing.T) {
	f := newFixture(t)

	e, alert := f.add(t, core.NewDate(2024, 5, 1), 1234, " Food ", "groceries")
	assert.Nil(t, alert)
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, int64(1234), e.Amount.Cents)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventExpenseCreated, f.events.events[0].Type)
	assert.Equal(t, []int64{e.ID}, f.events.events[0].IDs)
}

func TestLedgerService_BudgetScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	may := core.Month{Year: 2024, Month: time.May}

	_, err := f.budgets.Set(ctx, "Food", may, core.Money{Cents: 30000}, core.DefaultThresholdPct)
	require.NoError(t, err)

	_, a1 := f.add(t, core.NewDate(2024, 5, 2), 10000, "Food", "")
	require.NotNil(t, a1)
	assert.Equal(t, core.LevelOK, a1.Level)

	f.add(t, core.NewDate(2024, 5, 10), 10000, "Food", "")
	// Other months and categories do not count toward the May Food budget.
	f.add(t, core.NewDate(2024, 6, 1), 90000, "Food", "")
	f.add(t, core.NewDate(2024, 5, 11), 90000, "Transport", "")

	_, a3 := f.add(t, core.NewDate(2024, 5, 20), 5000, "Food", "")
	require.NotNil(t, a3)
	assert.Equal(t, core.LevelApproaching, a3.Level)
	assert.Equal(t, int64(25000), a3.Spent.Cents)
	assert.Equal(t, int64(5000), a3.Remaining.Cents)
	assert.InDelta(t, 0.8333, a3.Fraction.InexactFloat64(), 0.0001)
	assert.Equal(t, int64(3), a3.Count)

	_, a4 := f.add(t, core.NewDate(2024, 5, 31), 6000, "Food", "")
	require.NotNil(t, a4)
	assert.Equal(t, core.LevelExceeded, a4.Level)
	assert.Equal(t, int64(31000), a4.Spent.Cents)
	assert.Equal(t, int64(-1000), a4.Remaining.Cents)
}

func TestLedgerService_ConcurrentAddsSeeEachOther(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	may := core.Month{Year: 2024, Month: time.May}
	_, err := f.budgets.Set(ctx, "Food", may, core.Money{Cents: 10000}, 80)
	require.NoError(t, err)

	const writers = 8
	alerts := make(chan *core.BudgetAlert, writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, a, err := f.ledger.Add(ctx, core.ExpenseDraft{Date: core.NewDate(2024, 5, 3), Amount: core.Money{Cents: 1000}, Category: "Food"})
			errs <- err
			alerts <- a
		}()
	}

	seen := map[int64]bool{}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
		a := <-alerts
		require.NotNil(t, a)
		seen[a.Spent.Cents] = true
	}
	// Serialized writes observe strictly increasing totals: 10.00, 20.00 ... 80.00.
	for i := int64(1); i <= writers; i++ {
		assert.True(t, seen[i*1000], "missing running total %d", i*1000)
	}
}

func TestLedgerService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.budgets.Set(ctx, "Transport", core.Month{Year: 2024, Month: time.June}, core.Money{Cents: 1000}, 50)
	require.NoError(t, err)

	e, _ := f.add(t, core.NewDate(2024, 5, 2), 800, "Food", "groceries")

	t.Run("empty patch", func(t *testing.T) {
		_, _, err := f.ledger.Update(ctx, e.ID, core.ExpensePatch{})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("missing id", func(t *testing.T) {
		_, _, err := f.ledger.Update(ctx, 9999, core.ExpensePatch{Description: ptr("x")})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("category change keeps stale subcategory", func(t *testing.T) {
		_, _, err := f.ledger.Update(ctx, e.ID, core.ExpensePatch{Category: ptr("Transport")})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, _, err := f.ledger.Update(ctx, e.ID, core.ExpensePatch{Amount: &core.Money{Cents: -5}})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("description only has no alert", func(t *testing.T) {
		got, alert, err := f.ledger.Update(ctx, e.ID, core.ExpensePatch{Description: ptr("weekly shop")})
		require.NoError(t, err)
		assert.Nil(t, alert)
		assert.Equal(t, "weekly shop", got.Description)
		assert.Equal(t, int64(800), got.Amount.Cents)
	})

	t.Run("move into budgeted month and category", func(t *testing.T) {
		got, alert, err := f.ledger.Update(ctx, e.ID, core.ExpensePatch{
			Category:    ptr("Transport"),
			Subcategory: ptr("taxi"),
			Date:        ptr(core.NewDate(2024, 6, 9)),
		})
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, core.LevelApproaching, alert.Level)
		assert.Equal(t, "Transport", got.Category)
		assert.Equal(t, "weekly shop", got.Description)

		stored, err := f.ledger.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})
}

func TestLedgerService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for _, d := range []struct {
		date     core.Date
		category string
	}{
		{core.NewDate(2024, 1, 1), "Food"},
		{core.NewDate(2024, 1, 10), "Food"},
		{core.NewDate(2024, 1, 20), "Transport"},
		{core.NewDate(2024, 2, 1), "Housing"},
		{core.NewDate(2024, 2, 2), "Housing"},
	} {
		e, _ := f.add(t, d.date, 100, d.category, "")
		ids = append(ids, e.ID)
	}

	_, err := f.ledger.Delete(ctx, core.DeleteByID(9999))
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.ledger.Delete(ctx, core.DeleteSelector{})
	assert.ErrorIs(t, err, core.ErrValidation)

	n, err := f.ledger.Delete(ctx, core.DeleteByDateRange(core.DateRange{From: core.NewDate(2024, 1, 10), To: core.NewDate(2024, 1, 20)}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := f.ledger.List(ctx, core.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	assert.Equal(t, ids[0], remaining[0].ID)

	n, err = f.ledger.Delete(ctx, core.DeleteByCategory("Travel"))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.ledger.Delete(ctx, core.DeleteByCategory("Housing"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.ledger.Delete(ctx, core.DeleteByID(ids[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, f.count(t))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, EventExpenseDeleted, last.Type)
	assert.Equal(t, []int64{ids[0]}, last.IDs)
}

func TestLedgerService_DeleteByIDsPublishesRemovedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.add(t, core.NewDate(2024, 3, 1), 100, "Food", "")
	b, _ := f.add(t, core.NewDate(2024, 3, 2), 100, "Food", "")

	n, err := f.ledger.Delete(ctx, core.DeleteByIDs([]int64{b.ID, 9999, a.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, EventExpenseDeleted, last.Type)
	assert.Equal(t, []int64{a.ID, b.ID}, last.IDs)
	assert.Equal(t, int64(2), last.Count)

	n, err = f.ledger.Delete(ctx, core.DeleteByIDs([]int64{9999}))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, last, f.events.events[len(f.events.events)-1], "nothing removed, nothing published")
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true

	e, _ := f.add(t, core.NewDate(2024, 3, 3), 100, "Food", "")
	assert.Positive(t, e.ID)
	assert.Equal(t, int64(1), f.count(t))
}

func TestLedgerService_ListAndSummarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, core.NewDate(2024, 4, 3), 300, "Food", "")
	f.add(t, core.NewDate(2024, 4, 1), 1000, "Housing", "rent")
	f.add(t, core.NewDate(2024, 4, 3), 200, "Food", "")
	f.add(t, core.NewDate(2024, 5, 1), 50, "Transport", "")

	_, err := f.ledger.List(ctx, core.ExpenseFilter{Range: core.DateRange{From: core.NewDate(2024, 5, 1), To: core.NewDate(2024, 4, 1)}})
	assert.ErrorIs(t, err, core.ErrValidation)

	april, err := f.ledger.List(ctx, core.ExpenseFilter{Range: core.Month{Year: 2024, Month: time.April}.Range()})
	require.NoError(t, err)
	require.Len(t, april, 3)
	assert.Equal(t, []int64{1000, 300, 200}, []int64{april[0].Amount.Cents, april[1].Amount.Cents, april[2].Amount.Cents})

	totals, err := f.ledger.Summarize(ctx, core.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Housing", totals[0].Category)
	assert.Equal(t, core.CategoryTotal{Category: "Food", Total: core.Money{Cents: 500}, Count: 2}, totals[1])
}
