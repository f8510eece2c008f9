// Package shelf is the database facade: schema management (table/index
// creation), and the raw document operations (insert/find/upsert/delete)
// that sit underneath the model runtime. Every method takes the Adapter it
// runs against explicitly — the facade holds no connection state of its own,
// grounded on how the teacher's Database DAO separates connection
// management (base.go) from query execution (schema_queries.go).
package shelf

import (
	"context"
	"fmt"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/tools"
)

// TableOptions controls the shape of a table EnsureTable creates.
type TableOptions struct {
	// Safe adds the _version column used for optimistic concurrency.
	Safe bool
}

// EnsureTable creates the document table if it does not already exist:
// (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL[, _version
// INTEGER NOT NULL DEFAULT 0]).
func EnsureTable(ctx context.Context, a adapter.Adapter, table string, opts TableOptions) error {
	if err := tools.ValidateTableName(table); err != nil {
		return err
	}

	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS [%s] (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL",
		table,
	)
	if opts.Safe {
		ddl += ", _version INTEGER NOT NULL DEFAULT 0"
	}
	ddl += ")"

	_, err := a.Execute(ctx, ddl)
	return err
}

// InsertDocument inserts one JSON document and returns its assigned _id.
func InsertDocument(ctx context.Context, a adapter.Adapter, table string, data []byte) (int64, error) {
	if err := tools.ValidateTableName(table); err != nil {
		return 0, err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf(
		"INSERT INTO [%s] (data) VALUES (?) RETURNING _id", table), string(data))
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	row, ok, err := cur.FetchOne()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: insert returned no row", tools.ErrInvalidSQL)
	}
	return row.ID(), nil
}

// FindDocument fetches one document by _id. ok is false if no row matches.
func FindDocument(ctx context.Context, a adapter.Adapter, table string, id int64) (data []byte, ok bool, err error) {
	if err := tools.ValidateTableName(table); err != nil {
		return nil, false, err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf("SELECT data FROM [%s] WHERE _id = ?", table), id)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close()
	row, found, err := cur.FetchOne()
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	switch v := row.Values[0].(type) {
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), true, nil
	default:
		return nil, false, fmt.Errorf("%w: unexpected data column type", tools.ErrInvalidSQL)
	}
}

// UpsertDocument replaces the document at id (plain tables) or performs an
// optimistic compare-and-swap guarded by expectedVersion (safe tables, when
// expectedVersion is non-nil). Returns tools.ErrStaleVersion if the
// compare-and-swap affects zero rows.
func UpsertDocument(ctx context.Context, a adapter.Adapter, table string, id int64, data []byte, expectedVersion *int64) error {
	if err := tools.ValidateTableName(table); err != nil {
		return err
	}

	if expectedVersion == nil {
		cur, err := a.Execute(ctx, fmt.Sprintf(
			"UPDATE [%s] SET data = ? WHERE _id = ?", table), string(data), id)
		if err != nil {
			return err
		}
		cur.Close()
		return nil
	}

	cur, err := a.Execute(ctx, fmt.Sprintf(
		"UPDATE [%s] SET data = ?, _version = _version + 1 WHERE _id = ? AND _version = ? RETURNING _id",
		table), string(data), id, *expectedVersion)
	if err != nil {
		return err
	}
	defer cur.Close()
	_, ok, err := cur.FetchOne()
	if err != nil {
		return err
	}
	if !ok {
		return tools.StaleVersionErr(table, id, *expectedVersion)
	}
	return nil
}

// DeleteDocument removes the document at id. It does not enforce any delete
// policy — policy.go in the model package runs referential checks first.
func DeleteDocument(ctx context.Context, a adapter.Adapter, table string, id int64) error {
	if err := tools.ValidateTableName(table); err != nil {
		return err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf("DELETE FROM [%s] WHERE _id = ?", table), id)
	if err != nil {
		return err
	}
	return cur.Close()
}

// ExecuteSQL runs an arbitrary parameterized statement against the table's
// adapter, for callers that need an escape hatch beyond the document CRUD
// surface above. It does not attempt any safety analysis beyond what the
// adapter itself enforces (single-statement rejection for Execute).
func ExecuteSQL(ctx context.Context, a adapter.Adapter, query string, args ...any) (*adapter.Cursor, error) {
	return a.Execute(ctx, query, args...)
}

// BulkUpsert inserts or replaces many documents in one transaction. Entries
// with ID == 0 are inserted; others are replaced wholesale (no optimistic
// check — callers needing compare-and-swap at scale should loop
// UpsertDocument inside their own transaction). Returns the committed ids in
// input order.
type BulkEntry struct {
	ID   int64
	Data []byte
}

func BulkUpsert(ctx context.Context, a adapter.Adapter, table string, entries []BulkEntry) ([]int64, error) {
	if err := tools.ValidateTableName(table); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(entries))
	err := a.WithTx(ctx, func(tx *adapter.Tx) error {
		for i, e := range entries {
			if e.ID == 0 {
				cur, err := tx.Execute(ctx, fmt.Sprintf(
					"INSERT INTO [%s] (data) VALUES (?) RETURNING _id", table), string(e.Data))
				if err != nil {
					return err
				}
				row, ok, err := cur.FetchOne()
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: insert returned no row", tools.ErrInvalidSQL)
				}
				ids[i] = row.ID()
				continue
			}
			cur, err := tx.Execute(ctx, fmt.Sprintf(
				"INSERT INTO [%s] (_id, data) VALUES (?, ?) ON CONFLICT(_id) DO UPDATE SET data = excluded.data",
				table), e.ID, string(e.Data))
			if err != nil {
				return err
			}
			if err := cur.Close(); err != nil {
				return err
			}
			ids[i] = e.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
