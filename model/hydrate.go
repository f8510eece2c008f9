package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/query"
	"github.com/atomicshelf/shelf/tools"
)

// hydrateAndDecode turns raw (_id, data) documents into *Model[T]. When
// resolve is true, every top-level Reference found anywhere in a document's
// JSON is replaced with the referenced document's own decoded content
// before unmarshaling into T — one hop deep, batched into exactly one
// "SELECT _id, data FROM <table> WHERE _id IN (...)" per referenced table
// rather than one query per reference (SPEC_FULL.md §6.5).
func hydrateAndDecode[T any](ctx context.Context, b *binding, docs []query.Doc, resolve bool) ([]*Model[T], error) {
	out := make([]*Model[T], 0, len(docs))

	if !resolve {
		for _, d := range docs {
			m, err := decodeDoc[T](ctx, b, d)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	decoded := make([]map[string]any, len(docs))
	for i, d := range docs {
		var v map[string]any
		if err := json.Unmarshal(d.JSON, &v); err != nil {
			return nil, err
		}
		decoded[i] = v
	}

	wanted := map[string]map[int64]bool{}
	for _, v := range decoded {
		collectReferences(v, wanted)
	}

	resolved := make(map[string]map[int64]map[string]any, len(wanted))
	for table, ids := range wanted {
		idList := make([]int64, 0, len(ids))
		for id := range ids {
			idList = append(idList, id)
		}
		byID, err := fetchByIDs(ctx, b.adapter, table, idList)
		if err != nil {
			return nil, err
		}
		resolved[table] = byID
	}

	for _, v := range decoded {
		replaceReferences(v, resolved)
	}

	for i, v := range decoded {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var value T
		if err := b.descriptor.Decode(raw, &value); err != nil {
			return nil, err
		}
		m := &Model[T]{ID: docs[i].ID, Value: value}
		if b.descriptor.Safe {
			ver, err := fetchVersion(ctx, b.adapter, b.descriptor.Table, docs[i].ID)
			if err != nil {
				return nil, err
			}
			m.Version = ver
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeDoc[T any](ctx context.Context, b *binding, d query.Doc) (*Model[T], error) {
	var v T
	if err := b.descriptor.Decode(d.JSON, &v); err != nil {
		return nil, err
	}
	m := &Model[T]{ID: d.ID, Value: v}
	if b.descriptor.Safe {
		ver, err := fetchVersion(ctx, b.adapter, b.descriptor.Table, d.ID)
		if err != nil {
			return nil, err
		}
		m.Version = ver
	}
	return m, nil
}

// collectReferences walks a decoded document and records every {table, id}
// shape found, grouped by table. It does not recurse into a reference
// node's own (not-yet-fetched) contents — there's nothing to recurse into
// until it's fetched, which is what keeps hydration one hop deep.
func collectReferences(v any, into map[string]map[int64]bool) {
	switch node := v.(type) {
	case map[string]any:
		if ref, ok := asReference(node); ok {
			if into[ref.Table] == nil {
				into[ref.Table] = map[int64]bool{}
			}
			into[ref.Table][ref.ID] = true
			return
		}
		for _, child := range node {
			collectReferences(child, into)
		}
	case []any:
		for _, child := range node {
			collectReferences(child, into)
		}
	}
}

// replaceReferences swaps every {table, id} node for its resolved document,
// mutating maps and slices in place (both are reference types in Go, so no
// pointer threading is needed for the in-place replacement itself).
func replaceReferences(v any, resolved map[string]map[int64]map[string]any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if m, ok := child.(map[string]any); ok {
				if ref, isRef := asReference(m); isRef {
					if doc, found := resolved[ref.Table][ref.ID]; found {
						node[k] = doc
					}
					continue
				}
				replaceReferences(m, resolved)
				continue
			}
			if arr, ok := child.([]any); ok {
				replaceReferencesInSlice(arr, resolved)
			}
		}
	case []any:
		replaceReferencesInSlice(node, resolved)
	}
}

func replaceReferencesInSlice(arr []any, resolved map[string]map[int64]map[string]any) {
	for i, child := range arr {
		m, ok := child.(map[string]any)
		if !ok {
			continue
		}
		if ref, isRef := asReference(m); isRef {
			if doc, found := resolved[ref.Table][ref.ID]; found {
				arr[i] = doc
			}
			continue
		}
		replaceReferences(m, resolved)
	}
}

// fetchByIDs issues exactly one batched lookup per referenced table.
func fetchByIDs(ctx context.Context, a adapter.Adapter, table string, ids []int64) (map[int64]map[string]any, error) {
	if err := tools.ValidateTableName(table); err != nil {
		return nil, err
	}
	out := map[int64]map[string]any{}
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]any, len(ids))
	qmarks := ""
	for i, id := range ids {
		placeholders[i] = id
		if i > 0 {
			qmarks += ", "
		}
		qmarks += "?"
	}

	cur, err := a.Execute(ctx, fmt.Sprintf("SELECT _id, data FROM [%s] WHERE _id IN (%s)", table, qmarks), placeholders...)
	if err != nil {
		return nil, err
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		id, data, ok := r.Doc()
		if !ok {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, nil
}
