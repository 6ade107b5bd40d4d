package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/taxonomy"
)

type recordedEvent struct {
	Type  string
	IDs   []int64
	Count int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   bool
}

func (f *fakePublisher) PublishLedgerEvent(ctx context.Context, eventType string, ids []int64, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, recordedEvent{Type: eventType, IDs: ids, Count: count})
	return nil
}

type fixture struct {
	repo      *storage.SQLiteRepository
	ledger    *LedgerService
	budgets   *BudgetEngine
	recurring *RecurringScheduler
	analytics *Analytics
	events    *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	tx, err := taxonomy.New(map[string][]string{
		"Food":      {"groceries", "restaurants"},
		"Transport": {"fuel", "taxi"},
		"Housing":   {"rent", "utilities"},
	})
	require.NoError(t, err)

	events := &fakePublisher{}
	budgets := NewBudgetEngine(repo, tx)
	ledger := NewLedgerService(repo, tx, budgets, events)
	return &fixture{
		repo:      repo,
		ledger:    ledger,
		budgets:   budgets,
		recurring: NewRecurringScheduler(repo, tx, ledger),
		analytics: NewAnalytics(repo),
		events:    events,
	}
}

func (f *fixture) add(t *testing.T, date core.Date, cents int64, category, sub string) (core.Expense, *core.BudgetAlert) {
	t.Helper()
	e, alert, err := f.ledger.Add(context.Background(), core.ExpenseDraft{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Subcategory: sub,
	})
	require.NoError(t, err)
	return e, alert
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.repo.Queries().CountExpenses(context.Background())
	require.NoError(t, err)
	return n
}

func ptr[T any](v T) *T { return &v }
