package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/config"
	"github.com/atomicshelf/shelf/field"
	"github.com/atomicshelf/shelf/tools"
)

// Dir is an ORDER BY direction.
type Dir bool

const (
	Asc  Dir = false
	Desc Dir = true
)

type orderClause struct {
	field field.Field
	dir   Dir
}

// Builder is an immutable, chainable query over one document table. Every
// method returns a new Builder; none mutate the receiver, matching
// SPEC_FULL.md §6.4's "immutable value" contract.
type Builder struct {
	table   string
	preds   []field.Expr
	order   []orderClause
	limit   *int
	resolve bool
}

// New starts a query against table. Hydration (Resolve) defaults to true.
func New(table string) Builder {
	return Builder{table: table, resolve: true}
}

func (b Builder) clone() Builder {
	nb := b
	nb.preds = append([]field.Expr(nil), b.preds...)
	nb.order = append([]orderClause(nil), b.order...)
	return nb
}

// Table returns the table this query runs against.
func (b Builder) Table() string { return b.table }

// Resolved reports whether hydration is enabled for this query.
func (b Builder) Resolved() bool { return b.resolve }

// Filter ANDs e onto the query's predicate list.
func (b Builder) Filter(e field.Expr) Builder {
	nb := b.clone()
	nb.preds = append(nb.preds, e)
	return nb
}

// Exclude is equivalent to Filter(field.Not(e)).
func (b Builder) Exclude(e field.Expr) Builder {
	return b.Filter(field.Not(e))
}

// OrderBy appends an ordering clause; chained calls are stable (insertion
// order is preserved in the compiled ORDER BY list).
func (b Builder) OrderBy(f field.Field, desc bool) Builder {
	nb := b.clone()
	dir := Asc
	if desc {
		dir = Desc
	}
	nb.order = append(nb.order, orderClause{field: f, dir: dir})
	return nb
}

// Limit sets the row limit; last call wins.
func (b Builder) Limit(n int) Builder {
	nb := b.clone()
	nb.limit = &n
	return nb
}

// Resolve toggles hydration for model-bound queries. Pure plumbing at this
// layer — the model package reads it back via Resolved().
func (b Builder) Resolve(r bool) Builder {
	nb := b.clone()
	nb.resolve = r
	return nb
}

func (b Builder) compileWhere() (string, []any, error) {
	if len(b.preds) == 0 {
		return "", nil, nil
	}
	conj := field.And(b.preds...)
	sql, args, err := Compile(conj, "data")
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql + " ", args, nil
}

func (b Builder) compileOrder() (string, error) {
	if len(b.order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(b.order))
	for _, o := range b.order {
		c := &compiler{}
		sql, _, err := c.compilePath(o.field.Segments, "data", func(base, path string) (string, []any, error) {
			return fmt.Sprintf("json_extract(%s, '%s')", base, path), nil, nil
		})
		if err != nil {
			return "", err
		}
		if o.dir == Desc {
			sql += " DESC"
		}
		parts = append(parts, sql)
	}
	return "ORDER BY " + strings.Join(parts, ", ") + " ", nil
}

func (b Builder) effectiveLimit() int {
	limit := config.Cfg.DefaultLimit
	if b.limit != nil {
		limit = *b.limit
	}
	if config.Cfg.MaxQueryLimit > 0 && (limit > config.Cfg.MaxQueryLimit || limit <= 0) {
		limit = config.Cfg.MaxQueryLimit
	}
	return limit
}

// SQL compiles the query into its final SELECT statement and parameters
// without executing it — the source's debug()/sql().
func (b Builder) SQL() (string, []any, error) {
	if err := tools.ValidateTableName(b.table); err != nil {
		return "", nil, err
	}
	sel := fmt.Sprintf("SELECT _id, data FROM [%s] ", b.table)

	where, args, err := b.compileWhere()
	if err != nil {
		return "", nil, err
	}
	sel += where

	order, err := b.compileOrder()
	if err != nil {
		return "", nil, err
	}
	sel += order

	if limit := b.effectiveLimit(); limit > 0 {
		sel += fmt.Sprintf("LIMIT %d ", limit)
	}

	return strings.TrimSpace(sel), args, nil
}

// Debug is an alias for SQL, matching the source's naming.
func (b Builder) Debug() (string, []any, error) { return b.SQL() }

// CountSQL compiles a count(*) projection over the same predicates,
// ignoring ordering and limit.
func (b Builder) CountSQL() (string, []any, error) {
	if err := tools.ValidateTableName(b.table); err != nil {
		return "", nil, err
	}
	where, args, err := b.compileWhere()
	if err != nil {
		return "", nil, err
	}
	sql := strings.TrimSpace(fmt.Sprintf("SELECT count(*) FROM [%s] %s", b.table, where))
	return sql, args, nil
}

// Doc is a materialized (_id, data) row, the shape every terminal operation
// below returns; the model package turns these into typed instances.
type Doc struct {
	ID   int64
	JSON []byte
}

// All executes the query and returns the matching rows, up to the effective
// limit: the Limit set on the query, or config.Cfg.DefaultLimit when none was
// set, capped at config.Cfg.MaxQueryLimit.
func (b Builder) All(ctx context.Context, a adapter.Adapter) ([]Doc, error) {
	sql, args, err := b.SQL()
	if err != nil {
		return nil, err
	}
	tools.Logger.Debug("query.all", "sql", sql, "args", len(args))
	cur, err := a.Execute(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}
	docs := make([]Doc, 0, len(rows))
	for _, r := range rows {
		id, data, ok := r.Doc()
		if !ok {
			return nil, fmt.Errorf("%w: unexpected row shape", tools.ErrInvalidSQL)
		}
		docs = append(docs, Doc{ID: id, JSON: data})
	}
	return docs, nil
}

// First executes the query with an effective limit of 1 and returns the
// first matching row, if any.
func (b Builder) First(ctx context.Context, a adapter.Adapter) (Doc, bool, error) {
	docs, err := b.Limit(1).All(ctx, a)
	if err != nil {
		return Doc{}, false, err
	}
	if len(docs) == 0 {
		return Doc{}, false, nil
	}
	return docs[0], true, nil
}

// Count executes the count(*) projection.
func (b Builder) Count(ctx context.Context, a adapter.Adapter) (int64, error) {
	sql, args, err := b.CountSQL()
	if err != nil {
		return 0, err
	}
	cur, err := a.Execute(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	row, ok, err := cur.FetchOne()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	switch v := row.Values[0].(type) {
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected count() result shape", tools.ErrInvalidSQL)
	}
}

// ExplainQueryPlan prepends EXPLAIN QUERY PLAN to the compiled SQL and
// returns the resulting rows as-is.
func (b Builder) ExplainQueryPlan(ctx context.Context, a adapter.Adapter) ([]adapter.Row, error) {
	sql, args, err := b.SQL()
	if err != nil {
		return nil, err
	}
	cur, err := a.Execute(ctx, "EXPLAIN QUERY PLAN "+sql, args...)
	if err != nil {
		return nil, err
	}
	return cur.FetchAll()
}
