package adapter

import (
	"context"
	"testing"
)

func TestInMemoryConnectIdempotent(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()

	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("second connect should be idempotent: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close should be idempotent: %v", err)
	}
}

func TestExecuteOnClosedAdapterFails(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()

	if _, err := a.Execute(ctx, "SELECT 1"); err == nil {
		t.Fatal("expected NotConnected before Connect")
	}

	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := a.Execute(ctx, "SELECT 1"); err == nil {
		t.Fatal("expected NotConnected after Close")
	}
}

func TestExecuteRejectsMultiStatement(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	_, err := a.Execute(ctx, "CREATE TABLE a(x); CREATE TABLE b(x);")
	if err == nil {
		t.Fatal("expected rejection of multi-statement Execute")
	}
}

func TestExecuteScriptRunsMultiStatement(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	err := a.ExecuteScript(ctx, `
		CREATE TABLE widgets (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL);
		INSERT INTO widgets (data) VALUES ('{"a":1}');
	`)
	if err != nil {
		t.Fatalf("executescript: %v", err)
	}

	cur, err := a.Execute(ctx, "SELECT _id, data FROM widgets")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("fetchall: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	id, data, ok := rows[0].Doc()
	if !ok || id != 1 || string(data) != `{"a":1}` {
		t.Fatalf("unexpected row: id=%d data=%s ok=%v", id, data, ok)
	}
}

func TestExecuteManyBatchesInOneTransaction(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	if err := a.ExecuteScript(ctx, `CREATE TABLE widgets (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL);`); err != nil {
		t.Fatalf("executescript: %v", err)
	}

	err := a.ExecuteMany(ctx, "INSERT INTO widgets (data) VALUES (?)", [][]any{
		{`{"a":1}`}, {`{"a":2}`}, {`{"a":3}`},
	})
	if err != nil {
		t.Fatalf("executemany: %v", err)
	}

	cur, err := a.Execute(ctx, "SELECT _id, data FROM widgets")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("fetchall: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestExecuteManyEmptyIsNoop(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	if err := a.ExecuteMany(ctx, "INSERT INTO nonexistent (data) VALUES (?)", nil); err != nil {
		t.Fatalf("empty executemany should be a no-op: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	a := NewInMemory()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	if err := a.ExecuteScript(ctx, `CREATE TABLE widgets (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL);`); err != nil {
		t.Fatalf("executescript: %v", err)
	}

	wantErr := context.Canceled
	err := a.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.Execute(ctx, "INSERT INTO widgets (data) VALUES (?)", `{"a":1}`); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	cur, err := a.Execute(ctx, "SELECT _id, data FROM widgets")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("fetchall: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected rollback to leave 0 rows, got %d", len(rows))
	}
}

func TestAsyncAdapterMirrorsSync(t *testing.T) {
	async := NewAsync(NewInMemory())
	ctx := context.Background()

	if _, err := async.Connect(ctx).Await(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { async.Close().Await(ctx) }()

	if _, err := async.ExecuteScript(ctx, `CREATE TABLE widgets (_id INTEGER PRIMARY KEY AUTOINCREMENT, data JSON NOT NULL);`).Await(ctx); err != nil {
		t.Fatalf("executescript: %v", err)
	}

	if _, err := async.Execute(ctx, "INSERT INTO widgets (data) VALUES (?)", `{"a":1}`).Await(ctx); err != nil {
		t.Fatalf("insert: %v", err)
	}

	cur, err := async.Execute(ctx, "SELECT _id, data FROM widgets").Await(ctx)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("fetchall: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}
