// Package model is the document ORM runtime: binding Go struct types to
// tables, save/refresh/delete with optimistic concurrency and delete
// policies, reference hydration, and an async mirror over adapter.AsyncAdapter.
package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// IndexSpec declares a json_extract expression index to create alongside a
// model's table when it is bound.
type IndexSpec struct {
	Path   string
	Unique bool
}

// Descriptor captures everything the model runtime needs to know about a Go
// struct type: its table name, whether it carries optimistic-concurrency
// versioning, and any declared indexes.
type Descriptor struct {
	Type    reflect.Type
	Table   string
	Safe    bool
	Indexes []IndexSpec
}

// Option configures a Descriptor built by Describe.
type Option func(*Descriptor)

// Table overrides the default table name (the lowercased type name with a
// trailing "s"), per SPEC_FULL.md §11(c).
func Table(name string) Option {
	return func(d *Descriptor) { d.Table = name }
}

// Safe enables the _version column and the optimistic compare-and-swap path
// on Save.
func Safe() Option {
	return func(d *Descriptor) { d.Safe = true }
}

// Index declares a json_extract expression index over path, created the
// first time the model is bound.
func Index(path string, unique bool) Option {
	return func(d *Descriptor) {
		d.Indexes = append(d.Indexes, IndexSpec{Path: path, Unique: unique})
	}
}

// Describe builds a Descriptor for T from its reflect.Type plus the given
// options.
func Describe[T any](opts ...Option) *Descriptor {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	d := &Descriptor{Type: typ}
	if typ != nil {
		d.Table = defaultTableName(typ.Name())
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// defaultTableName lowercases a type name and appends an "s" — a plain
// default a caller overrides with Table(...) for irregular plurals or an
// existing table name.
func defaultTableName(typeName string) string {
	if typeName == "" {
		return typeName
	}
	return strings.ToLower(typeName) + "s"
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("model.Descriptor{Table: %q, Safe: %v, Indexes: %d}", d.Table, d.Safe, len(d.Indexes))
}

// Encode serializes a Value the same way Save persists it. Every write path
// (Model.Save, shelf.BulkUpsert callers building their own payloads) goes
// through here rather than calling json.Marshal directly, so a future
// encoding change has one place to land.
func (d *Descriptor) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes stored document bytes into dest, the inverse of
// Encode. Used by Refresh and hydration wherever a document's data column
// becomes a Go value again.
func (d *Descriptor) Decode(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}
