// Package field implements the expression algebra: typed field paths,
// comparisons, boolean composition, array predicates, and filter-scoped
// any() quantifiers. Values here are inert data — the query package walks
// them into SQL; nothing in this package touches a database.
package field

import "fmt"

// SegmentKind discriminates the closed set of path-segment shapes.
type SegmentKind int

const (
	// SegKey addresses an object key: .foo
	SegKey SegmentKind = iota
	// SegIndex addresses an array index: [3]
	SegIndex
	// SegAny opens a quantified scope over an array at the path
	// accumulated so far; everything chained after it addresses the
	// array's elements rather than the enclosing document.
	SegAny
)

// Segment is one step of a Field path.
type Segment struct {
	Kind  SegmentKind
	Key   string // set when Kind == SegKey
	Index int    // set when Kind == SegIndex
	Where *Expr  // set when Kind == SegAny and .Where(...) was chained
}

// Field is an immutable sequence of path segments addressing some location
// inside a document's JSON payload. Every method returns a new Field value;
// none mutate the receiver, so a Field can be extended along multiple
// branches (e.g. built once, then compared two different ways) safely.
type Field struct {
	Segments []Segment
}

// F starts a new field path at the given top-level key. This is the usual
// entry point: F("tags"), F("address").Key("city"), and so on.
func F(name string) Field {
	return Field{Segments: []Segment{{Kind: SegKey, Key: name}}}
}

// Path builds a Field from a mixed sequence of string keys and int indices,
// e.g. Path("items", 0, "sku") — the Go stand-in for the source's "/" and
// "[]" indexing sugar, which Go cannot overload for an arbitrary value type.
func Path(parts ...any) Field {
	var f Field
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			if i == 0 {
				f = F(v)
			} else {
				f = f.Key(v)
			}
		case int:
			f = f.Index(v)
		default:
			panic(fmt.Sprintf("field.Path: unsupported segment type %T", p))
		}
	}
	return f
}

func (f Field) append(seg Segment) Field {
	segs := make([]Segment, len(f.Segments)+1)
	copy(segs, f.Segments)
	segs[len(f.Segments)] = seg
	return Field{Segments: segs}
}

// Key appends an object-key segment.
func (f Field) Key(name string) Field {
	return f.append(Segment{Kind: SegKey, Key: name})
}

// Slash is sugar for Key, mirroring the source's "/" operator.
func (f Field) Slash(name string) Field { return f.Key(name) }

// Index appends a numeric array-index segment.
func (f Field) Index(i int) Field {
	return f.append(Segment{Kind: SegIndex, Index: i})
}

// Any opens a quantified builder over the array at this Field's path.
// Chain .Where(pred) then .Field(subpath) to address array elements.
func (f Field) Any() AnyBuilder {
	return AnyBuilder{base: f}
}

// AnyBuilder accumulates the optional per-element predicate scope for a
// quantified array access before the caller picks the element subpath to
// finally compare.
type AnyBuilder struct {
	base  Field
	where *Expr
}

// Where scopes pred onto the quantified sub-query: the compiled SQL becomes
// "EXISTS (... WHERE (pred) AND element[subpath] op value)", with pred's own
// field references resolved against the array element, not the enclosing
// document.
func (a AnyBuilder) Where(pred Expr) AnyBuilder {
	a.where = &pred
	return a
}

// Field addresses a key within the quantified array element, continuing the
// path from there. Nested any() chains are supported by calling .Any()
// again on the returned Field.
func (a AnyBuilder) Field(name string) Field {
	seg := Segment{Kind: SegAny, Where: a.where}
	segs := make([]Segment, len(a.base.Segments), len(a.base.Segments)+2)
	copy(segs, a.base.Segments)
	segs = append(segs, seg, Segment{Kind: SegKey, Key: name})
	return Field{Segments: segs}
}

// Elements addresses the quantified array element itself (no further key),
// for predicates like any().where(pred) with no subpath, or for
// Contains/IsIn composed after a nested any().
func (a AnyBuilder) Elements() Field {
	segs := make([]Segment, len(a.base.Segments)+1)
	copy(segs, a.base.Segments)
	segs[len(a.base.Segments)] = Segment{Kind: SegAny, Where: a.where}
	return Field{Segments: segs}
}
