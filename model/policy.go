package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/shelf"
	"github.com/atomicshelf/shelf/tools"
)

// Policy selects what happens to referring documents when a document is
// deleted. Referrers are looked for in the tables of the other models bound
// to the same adapter; documents in the deleted document's own table are not
// scanned.
type Policy int

const (
	// Restrict fails the delete if any document of another model bound to
	// the same adapter still references it.
	Restrict Policy = iota
	// SetNull nullifies every referring field in place, preserving list
	// arity (an array element becomes null rather than being removed), then
	// proceeds with the delete.
	SetNull
	// Cascade deletes every referring document first, recursively and in
	// reverse-topological order, before deleting the target itself. A
	// visited set makes this safe against cyclic reference graphs.
	Cascade
)

func deleteWithPolicy(ctx context.Context, a adapter.Adapter, table string, id int64, policy Policy) error {
	switch policy {
	case Restrict:
		referrer, found, err := findReferrer(ctx, a, table, id)
		if err != nil {
			return err
		}
		if found {
			tools.Logger.Warn("delete.restrict", "table", table, "id", id, "referrer", referrer)
			return tools.ReferentialIntegrityErr(table, id, referrer)
		}
		return shelf.DeleteDocument(ctx, a, table, id)

	case SetNull:
		if err := nullifyReferences(ctx, a, table, id); err != nil {
			return err
		}
		return shelf.DeleteDocument(ctx, a, table, id)

	case Cascade:
		return cascadeDelete(ctx, a, table, id, map[string]map[int64]bool{})

	default:
		return fmt.Errorf("%w: unknown delete policy %d", tools.ErrValidationError, policy)
	}
}

func otherTables(a adapter.Adapter, table string) []string {
	var out []string
	for _, t := range boundTables(a) {
		if t != table {
			out = append(out, t)
		}
	}
	return out
}

func findReferrer(ctx context.Context, a adapter.Adapter, table string, id int64) (string, bool, error) {
	for _, other := range otherTables(a, table) {
		ids, err := findAllReferrerIDs(ctx, a, other, table, id)
		if err != nil {
			return "", false, err
		}
		if len(ids) > 0 {
			return other, true, nil
		}
	}
	return "", false, nil
}

func findAllReferrerIDs(ctx context.Context, a adapter.Adapter, scanTable, refTable string, refID int64) ([]int64, error) {
	if err := tools.ValidateTableName(scanTable); err != nil {
		return nil, err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf("SELECT _id, data FROM [%s]", scanTable))
	if err != nil {
		return nil, err
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, row := range rows {
		rowID, data, ok := row.Doc()
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, err
		}
		if containsReference(decoded, refTable, refID) {
			ids = append(ids, rowID)
		}
	}
	return ids, nil
}

func containsReference(v any, table string, id int64) bool {
	switch node := v.(type) {
	case map[string]any:
		if ref, ok := asReference(node); ok {
			return ref.Table == table && ref.ID == id
		}
		for _, child := range node {
			if containsReference(child, table, id) {
				return true
			}
		}
	case []any:
		for _, child := range node {
			if containsReference(child, table, id) {
				return true
			}
		}
	}
	return false
}

func nullifyReferences(ctx context.Context, a adapter.Adapter, table string, id int64) error {
	for _, other := range otherTables(a, table) {
		if err := nullifyInTable(ctx, a, other, table, id); err != nil {
			return err
		}
	}
	return nil
}

func nullifyInTable(ctx context.Context, a adapter.Adapter, scanTable, refTable string, refID int64) error {
	if err := tools.ValidateTableName(scanTable); err != nil {
		return err
	}
	cur, err := a.Execute(ctx, fmt.Sprintf("SELECT _id, data FROM [%s]", scanTable))
	if err != nil {
		return err
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return err
	}

	for _, row := range rows {
		rowID, data, ok := row.Doc()
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		if !nullifyReferencesIn(decoded, refTable, refID) {
			continue
		}
		newData, err := json.Marshal(decoded)
		if err != nil {
			return err
		}
		cur, err := a.Execute(ctx, fmt.Sprintf("UPDATE [%s] SET data = ? WHERE _id = ?", scanTable), string(newData), rowID)
		if err != nil {
			return err
		}
		if err := cur.Close(); err != nil {
			return err
		}
	}
	return nil
}

func nullifyReferencesIn(v any, table string, id int64) bool {
	changed := false
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if m, ok := child.(map[string]any); ok {
				if ref, isRef := asReference(m); isRef {
					if ref.Table == table && ref.ID == id {
						node[k] = nil
						changed = true
					}
					continue
				}
				if nullifyReferencesIn(m, table, id) {
					changed = true
				}
				continue
			}
			if arr, ok := child.([]any); ok {
				if nullifyReferencesInSlice(arr, table, id) {
					changed = true
				}
			}
		}
	case []any:
		if nullifyReferencesInSlice(node, table, id) {
			changed = true
		}
	}
	return changed
}

func nullifyReferencesInSlice(arr []any, table string, id int64) bool {
	changed := false
	for i, child := range arr {
		m, ok := child.(map[string]any)
		if !ok {
			continue
		}
		if ref, isRef := asReference(m); isRef {
			if ref.Table == table && ref.ID == id {
				arr[i] = nil
				changed = true
			}
			continue
		}
		if nullifyReferencesIn(m, table, id) {
			changed = true
		}
	}
	return changed
}

// cascadeDelete deletes id's referrers first (recursively), then id itself.
// visited is keyed by table then id so a cyclic reference graph terminates
// instead of looping.
func cascadeDelete(ctx context.Context, a adapter.Adapter, table string, id int64, visited map[string]map[int64]bool) error {
	if visited[table] == nil {
		visited[table] = map[int64]bool{}
	}
	if visited[table][id] {
		return nil
	}
	visited[table][id] = true

	for _, other := range otherTables(a, table) {
		referrerIDs, err := findAllReferrerIDs(ctx, a, other, table, id)
		if err != nil {
			return err
		}
		for _, rid := range referrerIDs {
			if visited[other] != nil && visited[other][rid] {
				continue
			}
			if err := cascadeDelete(ctx, a, other, rid, visited); err != nil {
				return err
			}
		}
	}

	return shelf.DeleteDocument(ctx, a, table, id)
}
