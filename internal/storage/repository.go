package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the ledger's SQL against a connection or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) withTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SQLiteRepository owns the database handle. Writes go through WriteTx, which
// serializes them so that read-then-write sequences inside a transaction observe
// every previously committed write.
type SQLiteRepository struct {
	db      *sql.DB
	dsn     string
	queries *Queries
	writeMu sync.Mutex
	// generation increases after every committed write transaction.
	generation atomic.Uint64
}

// DSN builds the connection string used for the ledger file.
func DSN(dbPath string) string {
	return filepath.Clean(dbPath) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=synchronous(normal)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Debug("SQLite ledger opened", "path", dbPath)

	return &SQLiteRepository{
		db:      db,
		dsn:     dsn,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DSN returns the connection string the repository was opened with.
func (r *SQLiteRepository) DSN() string {
	return r.dsn
}

// Queries returns a query set bound to the pool, for reads outside a transaction.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// WriteTx runs fn in a write transaction. It commits when fn returns nil and
// rolls back otherwise. Only one write transaction runs at a time.
func (r *SQLiteRepository) WriteTx(ctx context.Context, fn func(q *Queries) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.inTx(ctx, fn); err != nil {
		return err
	}
	r.generation.Add(1)
	return nil
}

// Generation identifies the committed state of the ledger. Read results keyed by
// it stay valid until the next write commits.
func (r *SQLiteRepository) Generation() uint64 {
	return r.generation.Load()
}

// ReadTx runs fn against a single read snapshot.
func (r *SQLiteRepository) ReadTx(ctx context.Context, fn func(q *Queries) error) error {
	return r.inTx(ctx, fn)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StorageFailure("begin transaction", err)
	}
	if err := fn(r.queries.withTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.StorageFailure("commit transaction", err)
	}
	return nil
}

// wrapErr classifies a driver error. Uniqueness and trigger aborts become
// conflicts, everything else a storage failure.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *core.Error
	if errors.As(err, &de) {
		return err
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			return core.Conflict(op, "constraint violated", err)
		}
	}
	return core.StorageFailure(op, err)
}
