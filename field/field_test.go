package field

import "testing"

func TestFieldBuildsImmutablePaths(t *testing.T) {
	base := F("address")
	city := base.Key("city")
	zip := base.Key("zip")

	if len(base.Segments) != 1 {
		t.Fatalf("base mutated: %d segments", len(base.Segments))
	}
	if len(city.Segments) != 2 || city.Segments[1].Key != "city" {
		t.Fatalf("unexpected city path: %+v", city.Segments)
	}
	if len(zip.Segments) != 2 || zip.Segments[1].Key != "zip" {
		t.Fatalf("unexpected zip path: %+v", zip.Segments)
	}
}

func TestPathMixedSegments(t *testing.T) {
	f := Path("items", 0, "sku")
	if len(f.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(f.Segments))
	}
	if f.Segments[0].Kind != SegKey || f.Segments[0].Key != "items" {
		t.Fatalf("segment 0: %+v", f.Segments[0])
	}
	if f.Segments[1].Kind != SegIndex || f.Segments[1].Index != 0 {
		t.Fatalf("segment 1: %+v", f.Segments[1])
	}
	if f.Segments[2].Kind != SegKey || f.Segments[2].Key != "sku" {
		t.Fatalf("segment 2: %+v", f.Segments[2])
	}
}

func TestAnyBuilderChain(t *testing.T) {
	pred := F("sku").Eq("RamenSet")
	f := F("items").Any().Where(pred).Field("qty")

	if len(f.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(f.Segments))
	}
	if f.Segments[1].Kind != SegAny || f.Segments[1].Where == nil {
		t.Fatalf("expected any-segment with predicate, got %+v", f.Segments[1])
	}
	if f.Segments[2].Key != "qty" {
		t.Fatalf("expected final key qty, got %+v", f.Segments[2])
	}
}

func TestNestedAny(t *testing.T) {
	f := F("orders").Any().Field("items").Any().Field("sku")
	var anyCount int
	for _, s := range f.Segments {
		if s.Kind == SegAny {
			anyCount++
		}
	}
	if anyCount != 2 {
		t.Fatalf("expected 2 any-segments, got %d", anyCount)
	}
}

func TestExprCombinators(t *testing.T) {
	a := F("a").Eq(1)
	b := F("b").Gt(2)

	and := a.And(b)
	if and.Kind != KindAnd || len(and.Children) != 2 {
		t.Fatalf("unexpected and expr: %+v", and)
	}

	or := Or(a, b)
	if or.Kind != KindOr || len(or.Children) != 2 {
		t.Fatalf("unexpected or expr: %+v", or)
	}

	not := Not(a)
	if not.Kind != KindNot || not.Child == nil {
		t.Fatalf("unexpected not expr: %+v", not)
	}
}
