package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/shelf"
	"github.com/atomicshelf/shelf/tools"
)

// Model wraps a decoded document with its identity: the synthetic _id and,
// for "safe" models, the _version last observed by this instance.
type Model[T any] struct {
	ID      int64
	Version int64
	Value   T
}

// New wraps value as an unsaved Model — ID is 0 until Save assigns one.
func New[T any](value T) *Model[T] {
	return &Model[T]{Value: value}
}

// Save inserts the model if it has no ID yet, or writes it back otherwise.
// For safe models, the write is a conditional UPDATE ... WHERE _id=? AND
// _version=?; a zero-row result surfaces as tools.ErrStaleVersion and the
// caller's in-memory Version is left untouched so a retry after Refresh
// lines up correctly.
func (m *Model[T]) Save(ctx context.Context) error {
	b, err := lookupBinding[T]()
	if err != nil {
		return err
	}

	data, err := b.descriptor.Encode(m.Value)
	if err != nil {
		return err
	}

	if m.ID == 0 {
		id, err := shelf.InsertDocument(ctx, b.adapter, b.descriptor.Table, data)
		if err != nil {
			return err
		}
		m.ID = id
		return nil
	}

	if b.descriptor.Safe {
		expected := m.Version
		if err := shelf.UpsertDocument(ctx, b.adapter, b.descriptor.Table, m.ID, data, &expected); err != nil {
			if errors.Is(err, tools.ErrStaleVersion) {
				tools.Logger.Warn("save.stale_version", "table", b.descriptor.Table, "id", m.ID, "expected_version", expected)
			}
			return err
		}
		m.Version = expected + 1
		return nil
	}

	return shelf.UpsertDocument(ctx, b.adapter, b.descriptor.Table, m.ID, data, nil)
}

// Refresh reloads the document's current data (and, for safe models, its
// current version) from storage, discarding any unsaved local edits.
func (m *Model[T]) Refresh(ctx context.Context) error {
	b, err := lookupBinding[T]()
	if err != nil {
		return err
	}

	// The version is read before the data: if another writer commits in
	// between, the data is the newer of the two and the next Save fails as
	// stale instead of overwriting that write.
	var version int64
	if b.descriptor.Safe {
		version, err = fetchVersion(ctx, b.adapter, b.descriptor.Table, m.ID)
		if err != nil {
			return err
		}
	}

	data, ok, err := shelf.FindDocument(ctx, b.adapter, b.descriptor.Table, m.ID)
	if err != nil {
		return err
	}
	if !ok {
		return tools.NotFoundErr(b.descriptor.Table, m.ID)
	}

	var v T
	if err := b.descriptor.Decode(data, &v); err != nil {
		return err
	}
	m.Value = v

	if b.descriptor.Safe {
		m.Version = version
	}
	return nil
}

// Delete removes the document under the Restrict policy: it fails with
// tools.ErrReferentialIntegrity if any document of another model bound to
// the same adapter still references it.
func (m *Model[T]) Delete(ctx context.Context) error {
	return m.DeleteWithPolicy(ctx, Restrict)
}

// DeleteWithPolicy removes the document under the given delete policy.
func (m *Model[T]) DeleteWithPolicy(ctx context.Context, policy Policy) error {
	b, err := lookupBinding[T]()
	if err != nil {
		return err
	}
	return deleteWithPolicy(ctx, b.adapter, b.descriptor.Table, m.ID, policy)
}

// Ref returns a Reference pointing at this model's own document, for
// embedding in another model's reference-typed field — e.g.
// book.Value.Author = author.Ref() instead of hand-building
// Reference{Table: "authors", ID: author.ID}. Fails with tools.ErrNotBound
// if T hasn't been bound, and returns a zero Reference if m hasn't been
// saved yet (ID == 0) since there is nothing to point at.
func (m *Model[T]) Ref() (Reference, error) {
	b, err := lookupBinding[T]()
	if err != nil {
		return Reference{}, err
	}
	if m.ID == 0 {
		return Reference{}, nil
	}
	return Reference{Table: b.descriptor.Table, ID: m.ID}, nil
}

func fetchVersion(ctx context.Context, a adapter.Adapter, table string, id int64) (int64, error) {
	if err := tools.ValidateTableName(table); err != nil {
		return 0, err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf("SELECT _version FROM [%s] WHERE _id = ?", table), id)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	row, ok, err := cur.FetchOne()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, tools.NotFoundErr(table, id)
	}
	switch v := row.Values[0].(type) {
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected _version column type", tools.ErrInvalidSQL)
	}
}
