package model

import (
	"context"
	"reflect"
	"sync"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/shelf"
	"github.com/atomicshelf/shelf/tools"
)

// binding pairs a Descriptor with the adapter it is bound to, guarded by
// registryMu — a generalization of the teacher's schemaMu/primarySchema
// guard (api/data/base.go) from schema-cache protection to model-binding
// protection.
type binding struct {
	descriptor *Descriptor
	adapter    adapter.Adapter
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]*binding{}
)

// Bind registers T against a: builds its Descriptor from opts, ensures the
// document table exists, creates any declared indexes, and records the
// binding for Save/Query/Delete to find later. Calling Bind again for the
// same T replaces the binding — handy in tests that rebind against a fresh
// in-memory adapter per test.
func Bind[T any](ctx context.Context, a adapter.Adapter, opts ...Option) error {
	d := Describe[T](opts...)

	if err := shelf.EnsureTable(ctx, a, d.Table, shelf.TableOptions{Safe: d.Safe}); err != nil {
		return err
	}
	for _, idx := range d.Indexes {
		if err := shelf.CreateIndex(ctx, a, d.Table, idx.Path, shelf.IndexOptions{Unique: idx.Unique}); err != nil {
			return err
		}
	}

	registryMu.Lock()
	registry[d.Type] = &binding{descriptor: d, adapter: a}
	registryMu.Unlock()
	return nil
}

// Unbind removes T's registration, mainly useful for test teardown.
func Unbind[T any]() {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	registryMu.Lock()
	delete(registry, typ)
	registryMu.Unlock()
}

func lookupBinding[T any]() (*binding, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	registryMu.RLock()
	b, ok := registry[typ]
	registryMu.RUnlock()
	if !ok {
		return nil, tools.ErrNotBound
	}
	return b, nil
}

// boundTables returns the table name of every model currently bound to a,
// excluding none — callers filter out the table they're operating on
// themselves. Used by policy.go to scan for referring documents.
func boundTables(a adapter.Adapter) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for _, b := range registry {
		if b.adapter == a {
			out = append(out, b.descriptor.Table)
		}
	}
	return out
}
