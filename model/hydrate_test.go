package model

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/atomicshelf/shelf/adapter"
)

// countingAdapter wraps an Adapter and records every statement passed to
// Execute, so tests can assert on how many queries a batched operation
// actually issues.
type countingAdapter struct {
	adapter.Adapter
	mu      sync.Mutex
	queries []string
}

func (c *countingAdapter) Execute(ctx context.Context, query string, args ...any) (*adapter.Cursor, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	return c.Adapter.Execute(ctx, query, args...)
}

func (c *countingAdapter) countContaining(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.queries {
		if strings.Contains(q, substr) {
			n++
		}
	}
	return n
}

type author struct {
	Name string `json:"name"`
}

// post.Author holds either a Reference (before hydration) or the resolved
// author document (after hydration) — an untyped field is the Go shape for
// a dynamically-typed reference slot, since a struct field's static type
// cannot vary with Resolve(true/false).
type post struct {
	Title  string `json:"title"`
	Author any    `json:"author"`
}

func TestHydrationBatchesOneQueryPerReferencedTable(t *testing.T) {
	ctx := context.Background()
	inner := adapter.NewInMemory()
	if err := inner.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer inner.Close()

	counting := &countingAdapter{Adapter: inner}

	if err := Bind[author](ctx, counting); err != nil {
		t.Fatalf("bind author: %v", err)
	}
	if err := Bind[post](ctx, counting); err != nil {
		t.Fatalf("bind post: %v", err)
	}

	a1 := New(author{Name: "Ada"})
	if err := a1.Save(ctx); err != nil {
		t.Fatalf("save author: %v", err)
	}
	a2 := New(author{Name: "Grace"})
	if err := a2.Save(ctx); err != nil {
		t.Fatalf("save author: %v", err)
	}

	ref1 := Reference{Table: "authors", ID: a1.ID}
	ref2 := Reference{Table: "authors", ID: a2.ID}
	for i, ref := range []Reference{ref1, ref1, ref2, ref1, ref2} {
		p := New(post{Title: "post", Author: ref})
		if err := p.Save(ctx); err != nil {
			t.Fatalf("save post %d: %v", i, err)
		}
	}

	counting.mu.Lock()
	counting.queries = nil
	counting.mu.Unlock()

	posts, err := Query[post]().All(ctx)
	if err != nil {
		t.Fatalf("query posts: %v", err)
	}
	if len(posts) != 5 {
		t.Fatalf("expected 5 posts, got %d", len(posts))
	}
	for _, p := range posts {
		m, ok := p.Value.Author.(map[string]any)
		if !ok {
			t.Fatalf("expected hydrated author map, got %T", p.Value.Author)
		}
		if m["name"] != "Ada" && m["name"] != "Grace" {
			t.Fatalf("unexpected hydrated author: %+v", m)
		}
	}

	// Five referencing posts, only two distinct authors -> exactly one
	// batched IN (...) lookup against the authors table, not five.
	if n := counting.countContaining("FROM [authors] WHERE _id IN"); n != 1 {
		t.Fatalf("expected exactly 1 batched authors lookup, got %d", n)
	}
}

func TestResolveFalseSkipsHydration(t *testing.T) {
	ctx := context.Background()
	a := adapter.NewInMemory()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	type rawAuthor author
	type rawPost struct {
		Title  string `json:"title"`
		Author any    `json:"author"`
	}

	if err := Bind[rawAuthor](ctx, a); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := Bind[rawPost](ctx, a); err != nil {
		t.Fatalf("bind: %v", err)
	}

	au := New(rawAuthor{Name: "Ada"})
	if err := au.Save(ctx); err != nil {
		t.Fatalf("save author: %v", err)
	}
	p := New(rawPost{Title: "x", Author: Reference{Table: "rawauthors", ID: au.ID}})
	if err := p.Save(ctx); err != nil {
		t.Fatalf("save post: %v", err)
	}

	got, ok, err := Query[rawPost]().Resolve(false).First(ctx)
	if err != nil || !ok {
		t.Fatalf("query: %v ok=%v", err, ok)
	}
	m, ok := got.Value.Author.(map[string]any)
	if !ok {
		t.Fatalf("expected raw reference map, got %T", got.Value.Author)
	}
	if m["table"] != "rawauthors" {
		t.Fatalf("expected un-hydrated reference, got %+v", m)
	}
}
