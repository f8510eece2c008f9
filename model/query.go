package model

import (
	"context"

	"github.com/atomicshelf/shelf/field"
	"github.com/atomicshelf/shelf/query"
)

// TypedQuery is a model-bound query.Builder: the same immutable chainable
// surface, but its terminal operations decode rows into *Model[T] and
// hydrate references instead of returning raw query.Doc values.
type TypedQuery[T any] struct {
	b       query.Builder
	binding *binding
	bindErr error
}

// Query starts a query over T's bound table. If T has not been bound, the
// error surfaces lazily from the first terminal operation (All/First/Count),
// matching query.Builder's own "compile errors surface at SQL()" contract.
func Query[T any]() TypedQuery[T] {
	b, err := lookupBinding[T]()
	if err != nil {
		return TypedQuery[T]{bindErr: err}
	}
	return TypedQuery[T]{b: query.New(b.descriptor.Table), binding: b}
}

func (q TypedQuery[T]) Filter(e field.Expr) TypedQuery[T] {
	q.b = q.b.Filter(e)
	return q
}

func (q TypedQuery[T]) Exclude(e field.Expr) TypedQuery[T] {
	q.b = q.b.Exclude(e)
	return q
}

func (q TypedQuery[T]) OrderBy(f field.Field, desc bool) TypedQuery[T] {
	q.b = q.b.OrderBy(f, desc)
	return q
}

func (q TypedQuery[T]) Limit(n int) TypedQuery[T] {
	q.b = q.b.Limit(n)
	return q
}

// Resolve toggles reference hydration for this query; true by default.
func (q TypedQuery[T]) Resolve(r bool) TypedQuery[T] {
	q.b = q.b.Resolve(r)
	return q
}

// Debug returns the compiled SQL and parameters without executing.
func (q TypedQuery[T]) Debug() (string, []any, error) {
	if q.bindErr != nil {
		return "", nil, q.bindErr
	}
	return q.b.SQL()
}

// All executes the query and decodes each matching document (up to the
// query's effective limit, see query.Builder.All) into a *Model[T],
// hydrating references unless Resolve(false) was chained.
func (q TypedQuery[T]) All(ctx context.Context) ([]*Model[T], error) {
	if q.bindErr != nil {
		return nil, q.bindErr
	}
	docs, err := q.b.All(ctx, q.binding.adapter)
	if err != nil {
		return nil, err
	}
	return hydrateAndDecode[T](ctx, q.binding, docs, q.b.Resolved())
}

// First executes the query with an effective limit of 1.
func (q TypedQuery[T]) First(ctx context.Context) (*Model[T], bool, error) {
	if q.bindErr != nil {
		return nil, false, q.bindErr
	}
	doc, ok, err := q.b.First(ctx, q.binding.adapter)
	if err != nil || !ok {
		return nil, ok, err
	}
	models, err := hydrateAndDecode[T](ctx, q.binding, []query.Doc{doc}, q.b.Resolved())
	if err != nil {
		return nil, false, err
	}
	return models[0], true, nil
}

// Count executes the count(*) projection over the query's predicates.
func (q TypedQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.bindErr != nil {
		return 0, q.bindErr
	}
	return q.b.Count(ctx, q.binding.adapter)
}
