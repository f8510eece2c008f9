package model

// Reference is a typed pointer from one document to another: the literal
// JSON shape {"table": "...", "id": N} found anywhere inside a decoded
// document. Hydration replaces a matching node with the referenced
// document's own decoded content, one hop deep (SPEC_FULL.md §11(b)) —
// references inside the hydrated replacement are left untouched.
type Reference struct {
	Table string `json:"table"`
	ID    int64  `json:"id"`
}

// asReference reports whether m is exactly the {table, id} shape a
// Reference encodes to — no more, no fewer keys, so an ordinary two-field
// object never masquerades as one by accident in normal use, though a
// document author who genuinely wants a two-key {table, id} object of their
// own will still trigger hydration; this is a deliberate, documented
// ambiguity the compiler does not try to resolve further.
func asReference(m map[string]any) (Reference, bool) {
	if len(m) != 2 {
		return Reference{}, false
	}
	tableRaw, hasTable := m["table"]
	idRaw, hasID := m["id"]
	if !hasTable || !hasID {
		return Reference{}, false
	}
	table, ok := tableRaw.(string)
	if !ok {
		return Reference{}, false
	}
	var id int64
	switch v := idRaw.(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	default:
		return Reference{}, false
	}
	return Reference{Table: table, ID: id}, true
}
