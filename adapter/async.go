package adapter

import "context"

// Future is a suspendable computation: the result of an AsyncAdapter call.
// Await blocks the calling goroutine until the underlying adapter call
// completes or ctx is cancelled — the Go shape of the source's cooperative-
// async "suspend at every I/O boundary" contract (Design Notes §9: "Async vs
// sync duplication").
type Future[R any] struct {
	done chan struct{}
	val  R
	err  error
}

// Await blocks until the future resolves or ctx is done, whichever comes
// first. Calling Await more than once is safe; it always returns the same
// result.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

func (f *Future[R]) resolve(val R, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// job is one unit of work submitted to the AsyncAdapter's single worker.
type job func()

// AsyncAdapter mirrors Adapter's surface but suspends at every adapter
// touch. A single dedicated goroutine drains the job queue, giving the
// async surface the same single-writer serialization the sync surface gets
// from sharing one *sql.DB (SPEC_FULL.md §7).
type AsyncAdapter struct {
	inner Adapter
	jobs  chan job
	done  chan struct{}
}

// NewAsync wraps inner with an async surface and starts its worker
// goroutine, so operations can be issued as soon as it returns.
func NewAsync(inner Adapter) *AsyncAdapter {
	a := &AsyncAdapter{inner: inner, jobs: make(chan job, 64), done: make(chan struct{})}
	go a.loop()
	return a
}

func (a *AsyncAdapter) loop() {
	for {
		select {
		case j, ok := <-a.jobs:
			if !ok {
				return
			}
			j()
		case <-a.done:
			for {
				select {
				case j := <-a.jobs:
					j()
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the worker goroutine. Pending futures submitted before
// Shutdown still run; work submitted once the worker has stopped is never
// run, and its future never resolves.
func (a *AsyncAdapter) Shutdown() {
	close(a.done)
}

func submit[R any](a *AsyncAdapter, fn func() (R, error)) *Future[R] {
	f := newFuture[R]()
	a.jobs <- func() {
		val, err := fn()
		f.resolve(val, err)
	}
	return f
}

// Connect opens the connection, asynchronously.
func (a *AsyncAdapter) Connect(ctx context.Context) *Future[struct{}] {
	return submit(a, func() (struct{}, error) {
		return struct{}{}, a.inner.Connect(ctx)
	})
}

// Close releases the connection, asynchronously.
func (a *AsyncAdapter) Close() *Future[struct{}] {
	return submit(a, func() (struct{}, error) {
		return struct{}{}, a.inner.Close()
	})
}

// Execute runs a single parameterized statement, asynchronously.
func (a *AsyncAdapter) Execute(ctx context.Context, query string, args ...any) *Future[*Cursor] {
	return submit(a, func() (*Cursor, error) {
		return a.inner.Execute(ctx, query, args...)
	})
}

// ExecuteMany runs a batch of parameterized statements, asynchronously.
func (a *AsyncAdapter) ExecuteMany(ctx context.Context, query string, argSets [][]any) *Future[struct{}] {
	return submit(a, func() (struct{}, error) {
		return struct{}{}, a.inner.ExecuteMany(ctx, query, argSets)
	})
}

// ExecuteScript runs a multi-statement script, asynchronously.
func (a *AsyncAdapter) ExecuteScript(ctx context.Context, script string) *Future[struct{}] {
	return submit(a, func() (struct{}, error) {
		return struct{}{}, a.inner.ExecuteScript(ctx, script)
	})
}

// WithTx runs fn inside a transaction, asynchronously. fn itself still runs
// synchronously on the worker goroutine once scheduled, preserving the
// single-writer invariant.
func (a *AsyncAdapter) WithTx(ctx context.Context, fn func(*Tx) error) *Future[struct{}] {
	return submit(a, func() (struct{}, error) {
		return struct{}{}, a.inner.WithTx(ctx, fn)
	})
}

// Sync exposes the wrapped blocking Adapter for callers that need to drop
// down to the synchronous surface (e.g. test setup).
func (a *AsyncAdapter) Sync() Adapter { return a.inner }

// Submit schedules fn on a's worker goroutine and returns a Future for its
// result. This is the hook higher layers (the model package's Async[T])
// use to suspend arbitrary synchronous calls at the adapter boundary
// without duplicating the worker/queue machinery above.
func Submit[R any](a *AsyncAdapter, fn func() (R, error)) *Future[R] {
	return submit(a, fn)
}
