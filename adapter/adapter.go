// Package adapter owns the connection to the underlying SQLite-compatible
// engine and exposes a minimal, parameterized execution contract. Everything
// above this package — the query compiler, the database facade, the model
// runtime — talks to the engine only through this interface.
package adapter

import (
	"context"
	"database/sql"
	"strings"

	"github.com/atomicshelf/shelf/tools"
)

// Row is one row of a result set. Docs (the common shape for this module)
// select exactly two columns, _id and data; Values holds the raw decoded
// values for any other projection (count(*), json_group_array(...), ...).
type Row struct {
	Values []any
}

// ID returns the first column as an int64. Valid when the query's first
// selected column is an integer identifier.
func (r Row) ID() int64 {
	if len(r.Values) == 0 {
		return 0
	}
	switch v := r.Values[0].(type) {
	case int64:
		return v
	case nil:
		return 0
	default:
		return 0
	}
}

// Doc extracts the (_id, data) shape that Execute("SELECT _id, data FROM ...")
// produces. ok is false if the row does not have exactly two columns.
func (r Row) Doc() (id int64, data []byte, ok bool) {
	if len(r.Values) != 2 {
		return 0, nil, false
	}
	id, idOK := r.Values[0].(int64)
	switch v := r.Values[1].(type) {
	case []byte:
		return id, v, idOK
	case string:
		return id, []byte(v), idOK
	default:
		return id, nil, false
	}
}

// Cursor wraps a *sql.Rows with the fetchone/fetchall surface SPEC_FULL.md
// §6.1 describes.
type Cursor struct {
	rows *sql.Rows
}

// FetchOne returns the next row, or ok=false if the cursor is exhausted.
func (c *Cursor) FetchOne() (Row, bool, error) {
	if c.rows == nil {
		return Row{}, false, nil
	}
	if !c.rows.Next() {
		return Row{}, false, c.rows.Err()
	}
	row, err := scanRow(c.rows)
	return row, true, err
}

// FetchAll drains the cursor into a slice and closes it.
func (c *Cursor) FetchAll() ([]Row, error) {
	if c.rows == nil {
		return nil, nil
	}
	defer c.rows.Close()

	var out []Row
	for c.rows.Next() {
		row, err := scanRow(c.rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, c.rows.Err()
}

// Close releases the underlying *sql.Rows early, e.g. after FetchOne when
// the caller does not intend to drain the rest.
func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	return c.rows.Close()
}

func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return Row{}, err
	}
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return Row{}, err
	}
	vals := make([]any, len(cols))
	for i, d := range dest {
		vals[i] = *(d.(*any))
	}
	return Row{Values: vals}, nil
}

// Tx is a transaction handle. Commit and Rollback each end the
// transaction; calling either one after it has ended returns
// sql.ErrTxDone. WithTx calls exactly one of them.
type Tx struct {
	tx *sql.Tx
}

// Execute runs a single parameterized statement on the transaction.
func (t *Tx) Execute(ctx context.Context, query string, args ...any) (*Cursor, error) {
	return execute(ctx, t.tx, query, args...)
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Adapter owns one connection and serializes writes through the underlying
// engine's own locking. Both the on-disk/in-memory sqlite3 driver and the
// remote libsql driver satisfy this same contract (SPEC_FULL.md §6.1).
type Adapter interface {
	// Connect opens the connection. Idempotent.
	Connect(ctx context.Context) error
	// Close releases the connection. Idempotent.
	Close() error
	// Execute runs a single parameterized statement. Rejects input holding
	// more than one statement — use ExecuteScript for that.
	Execute(ctx context.Context, query string, args ...any) (*Cursor, error)
	// ExecuteMany runs query once per entry in argSets, batched in one
	// implicit transaction. A nil/empty argSets is a no-op.
	ExecuteMany(ctx context.Context, query string, argSets [][]any) error
	// ExecuteScript runs a semicolon-delimited script without parameter
	// binding.
	ExecuteScript(ctx context.Context, script string) error
	// Begin starts a transaction.
	Begin(ctx context.Context) (*Tx, error)
	// WithTx runs fn inside a transaction, committing on success and
	// rolling back if fn returns an error or panics — the Go analogue of
	// the source's context-manager commit/rollback-on-exit contract.
	WithTx(ctx context.Context, fn func(*Tx) error) error
}

// hasMultipleStatements does a cheap token scan for a second non-whitespace,
// non-string-literal semicolon-terminated statement. Not a SQL parser —
// arbitrary SQL parsing is a non-goal — just enough to reject multi-
// statement input to Execute.
func hasMultipleStatements(query string) bool {
	trimmed := strings.TrimSpace(query)
	inStr := false
	var strCh byte
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if inStr {
			if c == strCh {
				inStr = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = true
			strCh = c
		case ';':
			rest := strings.TrimSpace(trimmed[i+1:])
			if rest != "" {
				return true
			}
		}
	}
	return false
}

func checkNotConnected(db *sql.DB) error {
	if db == nil {
		return tools.ErrNotConnected
	}
	return nil
}
