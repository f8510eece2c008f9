package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/atomicshelf/shelf/config"
	"github.com/atomicshelf/shelf/tools"
)

// lockRetryIntervals backs off on "database is locked"/"table is locked"
// errors, grounded on the teacher's ExecContextWithRetry.
var lockRetryIntervals = []time.Duration{
	5 * time.Millisecond, 10 * time.Millisecond, 25 * time.Millisecond,
	50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond,
	400 * time.Millisecond,
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "table is locked")
}

func withLockRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isLockError(err) {
			return err
		}
		if attempt >= len(lockRetryIntervals) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryIntervals[attempt]):
		}
	}
}

// sqliteAdapter is the concrete blocking Adapter, backed by database/sql
// against either the sqlite3 driver (in-memory, on-disk) or the libsql
// driver (remote Hrana endpoint).
type sqliteAdapter struct {
	driver string
	dsn    string
	wal    bool

	mu sync.Mutex
	db *sql.DB
}

var memDBCounter int64

// NewInMemory returns an Adapter backed by a private, process-local SQLite
// database. Each call gets its own named in-memory database so concurrent
// callers (tests, most often) never share state; journal_mode is left at
// its default (WAL requires a real file).
func NewInMemory() Adapter {
	n := atomic.AddInt64(&memDBCounter, 1)
	dsn := fmt.Sprintf("file:shelf_mem_%d?mode=memory&cache=shared", n)
	return &sqliteAdapter{driver: "sqlite3", dsn: dsn, wal: false}
}

// NewOnDisk returns an Adapter backed by a SQLite file under path. WAL
// journaling is enabled on connect when config.Cfg.WALEnabled is set.
func NewOnDisk(path string) Adapter {
	return &sqliteAdapter{driver: "sqlite3", dsn: "file:" + path, wal: config.Cfg.WALEnabled}
}

// NewRemote returns an Adapter backed by a Hrana/libsql endpoint (e.g. a
// Turso database). Still a single logical writer — no multi-node
// replication is implied or required.
func NewRemote(url, authToken string) Adapter {
	dsn := url
	if authToken != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		dsn = fmt.Sprintf("%s%sauthToken=%s", url, sep, authToken)
	}
	return &sqliteAdapter{driver: "libsql", dsn: dsn, wal: config.Cfg.WALEnabled}
}

func (a *sqliteAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return nil // idempotent
	}

	db, err := sql.Open(a.driver, a.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", tools.ErrInvalidSQL, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	if a.wal {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return err
		}
	}
	if a.driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
			db.Close()
			return err
		}
	}

	a.db = db
	return nil
}

func (a *sqliteAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil // idempotent
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *sqliteAdapter) conn() (*sql.DB, error) {
	a.mu.Lock()
	db := a.db
	a.mu.Unlock()
	if err := checkNotConnected(db); err != nil {
		return nil, err
	}
	return db, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execute(ctx context.Context, exec execer, query string, args ...any) (*Cursor, error) {
	if hasMultipleStatements(query) {
		return nil, tools.ErrMultiStatement
	}

	tools.Logger.Debug("adapter.execute", "sql", query, "args", len(args))

	trimmed := strings.TrimSpace(strings.ToUpper(query))
	if strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "EXPLAIN") || strings.HasPrefix(trimmed, "PRAGMA") || strings.Contains(query, "RETURNING") {
		var rows *sql.Rows
		err := withLockRetry(ctx, func() error {
			var qerr error
			rows, qerr = exec.QueryContext(ctx, query, args...)
			return qerr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", tools.ErrInvalidSQL, err)
		}
		return &Cursor{rows: rows}, nil
	}

	err := withLockRetry(ctx, func() error {
		_, eerr := exec.ExecContext(ctx, query, args...)
		return eerr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tools.ErrInvalidSQL, err)
	}
	return &Cursor{}, nil
}

func (a *sqliteAdapter) Execute(ctx context.Context, query string, args ...any) (*Cursor, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}
	return execute(ctx, db, query, args...)
}

func (a *sqliteAdapter) ExecuteMany(ctx context.Context, query string, argSets [][]any) error {
	if len(argSets) == 0 {
		return nil
	}
	db, err := a.conn()
	if err != nil {
		return err
	}
	return a.withTxConn(ctx, db, func(tx *sql.Tx) error {
		for _, args := range argSets {
			if err := withLockRetry(ctx, func() error {
				_, eerr := tx.ExecContext(ctx, query, args...)
				return eerr
			}); err != nil {
				return fmt.Errorf("%w: %w", tools.ErrInvalidSQL, err)
			}
		}
		return nil
	})
}

func (a *sqliteAdapter) ExecuteScript(ctx context.Context, script string) error {
	db, err := a.conn()
	if err != nil {
		return err
	}
	err = withLockRetry(ctx, func() error {
		_, eerr := db.ExecContext(ctx, script)
		return eerr
	})
	if err != nil {
		return fmt.Errorf("%w: %w", tools.ErrInvalidSQL, err)
	}
	return nil
}

func (a *sqliteAdapter) Begin(ctx context.Context) (*Tx, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (a *sqliteAdapter) withTxConn(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithTx commits on success and rolls back if fn returns an error or
// panics — the Go analogue of the source's context-manager exit contract.
func (a *sqliteAdapter) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	handle, err := a.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			handle.Rollback()
			panic(p)
		}
	}()
	if err := fn(handle); err != nil {
		handle.Rollback()
		return err
	}
	return handle.Commit()
}
