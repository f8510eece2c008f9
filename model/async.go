package model

import (
	"context"

	"github.com/atomicshelf/shelf/adapter"
)

// Async mirrors Model[T] and TypedQuery[T], suspending every operation at
// the adapter boundary by running its synchronous counterpart on the bound
// AsyncAdapter's single worker goroutine — the Go shape of the source's
// "async vs sync duplication" contract (SPEC_FULL.md §6.6), without actually
// duplicating the save/query/delete logic: it just schedules the existing
// synchronous methods and returns a Future for the result.
type Async[T any] struct {
	async *adapter.AsyncAdapter
}

// NewAsync returns an Async handle scheduling work on async. T must already
// be bound (via Bind, against async.Sync()) before any of these methods are
// called.
func NewAsync[T any](async *adapter.AsyncAdapter) Async[T] {
	return Async[T]{async: async}
}

// Save submits m.Save to the worker goroutine.
func (a Async[T]) Save(ctx context.Context, m *Model[T]) *adapter.Future[struct{}] {
	return adapter.Submit(a.async, func() (struct{}, error) {
		return struct{}{}, m.Save(ctx)
	})
}

// Refresh submits m.Refresh to the worker goroutine.
func (a Async[T]) Refresh(ctx context.Context, m *Model[T]) *adapter.Future[struct{}] {
	return adapter.Submit(a.async, func() (struct{}, error) {
		return struct{}{}, m.Refresh(ctx)
	})
}

// Delete submits m.Delete (Restrict policy) to the worker goroutine.
func (a Async[T]) Delete(ctx context.Context, m *Model[T]) *adapter.Future[struct{}] {
	return adapter.Submit(a.async, func() (struct{}, error) {
		return struct{}{}, m.Delete(ctx)
	})
}

// DeleteWithPolicy submits m.DeleteWithPolicy to the worker goroutine.
func (a Async[T]) DeleteWithPolicy(ctx context.Context, m *Model[T], policy Policy) *adapter.Future[struct{}] {
	return adapter.Submit(a.async, func() (struct{}, error) {
		return struct{}{}, m.DeleteWithPolicy(ctx, policy)
	})
}

// All submits q.All to the worker goroutine.
func (a Async[T]) All(ctx context.Context, q TypedQuery[T]) *adapter.Future[[]*Model[T]] {
	return adapter.Submit(a.async, func() ([]*Model[T], error) {
		return q.All(ctx)
	})
}

// First submits q.First to the worker goroutine. A nil result with no error
// means no document matched.
func (a Async[T]) First(ctx context.Context, q TypedQuery[T]) *adapter.Future[*Model[T]] {
	return adapter.Submit(a.async, func() (*Model[T], error) {
		m, ok, err := q.First(ctx)
		if err != nil || !ok {
			return nil, err
		}
		return m, nil
	})
}

// Count submits q.Count to the worker goroutine.
func (a Async[T]) Count(ctx context.Context, q TypedQuery[T]) *adapter.Future[int64] {
	return adapter.Submit(a.async, func() (int64, error) {
		return q.Count(ctx)
	})
}
