package shelf

import (
	"context"
	"errors"
	"testing"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/tools"
)

func newTestAdapter(t *testing.T) adapter.Adapter {
	t.Helper()
	a := adapter.NewInMemory()
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEnsureTablePlainAndSafe(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable plain: %v", err)
	}
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable idempotent: %v", err)
	}
	if err := EnsureTable(ctx, a, "orders", TableOptions{Safe: true}); err != nil {
		t.Fatalf("EnsureTable safe: %v", err)
	}

	id, err := InsertDocument(ctx, a, "orders", []byte(`{"sku":"x"}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	data, ok, err := FindDocument(ctx, a, "orders", id)
	if err != nil || !ok {
		t.Fatalf("find: %v ok=%v", err, ok)
	}
	if string(data) != `{"sku":"x"}` {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestInsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	id, err := InsertDocument(ctx, a, "widgets", []byte(`{"name":"gizmo"}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero id")
	}

	_, ok, err := FindDocument(ctx, a, "widgets", id+1000)
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if ok {
		t.Fatalf("expected no row for missing id")
	}
}

func TestUpsertPlainOverwritesUnconditionally(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	id, err := InsertDocument(ctx, a, "widgets", []byte(`{"v":1}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := UpsertDocument(ctx, a, "widgets", id, []byte(`{"v":2}`), nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data, _, err := FindDocument(ctx, a, "widgets", id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if string(data) != `{"v":2}` {
		t.Fatalf("unexpected data after upsert: %s", data)
	}
}

func TestUpsertSafeOptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "orders", TableOptions{Safe: true}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	id, err := InsertDocument(ctx, a, "orders", []byte(`{"qty":1}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	v0 := int64(0)
	if err := UpsertDocument(ctx, a, "orders", id, []byte(`{"qty":2}`), &v0); err != nil {
		t.Fatalf("first CAS should succeed: %v", err)
	}

	// stale version should be rejected
	err = UpsertDocument(ctx, a, "orders", id, []byte(`{"qty":3}`), &v0)
	if !errors.Is(err, tools.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	v1 := int64(1)
	if err := UpsertDocument(ctx, a, "orders", id, []byte(`{"qty":3}`), &v1); err != nil {
		t.Fatalf("second CAS should succeed: %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	id, err := InsertDocument(ctx, a, "widgets", []byte(`{"x":1}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := DeleteDocument(ctx, a, "widgets", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err := FindDocument(ctx, a, "widgets", id)
	if err != nil {
		t.Fatalf("find after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected row to be gone")
	}
}

func TestBulkUpsertInsertsAndReplacesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	existing, err := InsertDocument(ctx, a, "widgets", []byte(`{"v":1}`))
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	ids, err := BulkUpsert(ctx, a, "widgets", []BulkEntry{
		{ID: existing, Data: []byte(`{"v":99}`)},
		{ID: 0, Data: []byte(`{"v":2}`)},
		{ID: 0, Data: []byte(`{"v":3}`)},
	})
	if err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}
	if len(ids) != 3 || ids[0] != existing {
		t.Fatalf("unexpected ids: %+v", ids)
	}

	data, _, err := FindDocument(ctx, a, "widgets", existing)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if string(data) != `{"v":99}` {
		t.Fatalf("expected replaced row, got %s", data)
	}
}

func TestBulkUpsertEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	ids, err := BulkUpsert(ctx, a, "widgets", nil)
	if err != nil || ids != nil {
		t.Fatalf("expected no-op, got ids=%v err=%v", ids, err)
	}
}

func TestCreateIndexUniqueAndPartial(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := CreateIndex(ctx, a, "widgets", "sku", IndexOptions{Unique: true}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	// Re-creating is idempotent thanks to IF NOT EXISTS.
	if err := CreateIndex(ctx, a, "widgets", "sku", IndexOptions{Unique: true}); err != nil {
		t.Fatalf("CreateIndex idempotent: %v", err)
	}
	if err := CreateIndex(ctx, a, "widgets", "category", IndexOptions{Where: "json_extract(data, '$.active') = 1"}); err != nil {
		t.Fatalf("CreateIndex partial: %v", err)
	}
}

func TestCreateIndexRejectsInvalidPathSegment(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	if err := EnsureTable(ctx, a, "widgets", TableOptions{}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	err := CreateIndex(ctx, a, "widgets", "sku; DROP TABLE widgets", IndexOptions{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
