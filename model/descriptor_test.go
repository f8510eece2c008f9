package model

import "testing"

type Person struct {
	Name string `json:"name"`
}

func TestDescribeDefaultTableName(t *testing.T) {
	d := Describe[Person]()
	if d.Table != "persons" {
		t.Fatalf("expected default table 'persons', got %q", d.Table)
	}
	if d.Safe {
		t.Fatalf("expected Safe false by default")
	}
}

func TestDescribeTableOverride(t *testing.T) {
	d := Describe[Person](Table("people"))
	if d.Table != "people" {
		t.Fatalf("expected overridden table 'people', got %q", d.Table)
	}
}

func TestDescribeSafeAndIndexOptions(t *testing.T) {
	d := Describe[Person](Safe(), Index("name", true))
	if !d.Safe {
		t.Fatalf("expected Safe true")
	}
	if len(d.Indexes) != 1 || d.Indexes[0].Path != "name" || !d.Indexes[0].Unique {
		t.Fatalf("unexpected indexes: %+v", d.Indexes)
	}
}
