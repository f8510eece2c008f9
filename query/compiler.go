// Package query implements the immutable chainable query builder and the
// compiler that turns field.Expr trees into parameterized SQL using
// json_extract, json_each, and correlated EXISTS subqueries.
package query

import (
	"fmt"
	"strings"

	"github.com/atomicshelf/shelf/config"
	"github.com/atomicshelf/shelf/field"
	"github.com/atomicshelf/shelf/tools"
)

// Compile renders e into a parameterized SQL boolean expression evaluated
// against the given top-level JSON column (almost always "data"). Every
// any() scope gets a freshly allocated alias (e0, e1, ...), unique across
// the whole call, per SPEC_FULL.md §8.
func Compile(e field.Expr, column string) (string, []any, error) {
	c := &compiler{}
	return c.compile(e, column)
}

type compiler struct {
	aliasN int
	depth  int
}

func (c *compiler) nextAlias() string {
	a := fmt.Sprintf("e%d", c.aliasN)
	c.aliasN++
	return a
}

func (c *compiler) compile(e field.Expr, base string) (string, []any, error) {
	switch e.Kind {
	case field.KindAnd:
		return c.compileBool(e.Children, "AND", base)
	case field.KindOr:
		return c.compileBool(e.Children, "OR", base)
	case field.KindNot:
		if e.Child == nil {
			return "", nil, fmt.Errorf("%w: NOT with no operand", tools.ErrInvalidOperator)
		}
		inner, args, err := c.compile(*e.Child, base)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", inner), args, nil

	case field.KindCompare:
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("json_extract(%s, '%s') %s ?", leafBase, path, e.Op), []any{e.Value}, nil
		})

	case field.KindLike:
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("json_extract(%s, '%s') LIKE ?", leafBase, path), []any{e.Value}, nil
		})

	case field.KindIsNull:
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("json_extract(%s, '%s') IS NULL", leafBase, path), nil, nil
		})

	case field.KindIn:
		if len(e.Values) == 0 {
			return "0", nil, nil
		}
		if err := checkArraySize(len(e.Values)); err != nil {
			return "", nil, err
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(e.Values)), ", ")
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("json_extract(%s, '%s') IN (%s)", leafBase, path, placeholders), e.Values, nil
		})

	case field.KindContains:
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s, '%s') WHERE value = ?)", leafBase, path), []any{e.Value}, nil
		})

	case field.KindIsIn:
		if len(e.Values) == 0 {
			return "0", nil, nil
		}
		if err := checkArraySize(len(e.Values)); err != nil {
			return "", nil, err
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(e.Values)), ", ")
		return c.compilePath(e.Field.Segments, base, func(leafBase, path string) (string, []any, error) {
			return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s, '%s') WHERE value IN (%s))", leafBase, path, placeholders), e.Values, nil
		})

	default:
		return "", nil, fmt.Errorf("%w: unknown expression kind %d", tools.ErrInvalidOperator, e.Kind)
	}
}

func checkArraySize(n int) error {
	if config.Cfg.MaxInArraySize > 0 && n > config.Cfg.MaxInArraySize {
		return fmt.Errorf("%w: %d elements (max %d)", tools.ErrArrayTooLarge, n, config.Cfg.MaxInArraySize)
	}
	return nil
}

func (c *compiler) compileBool(children []field.Expr, op, base string) (string, []any, error) {
	if len(children) == 0 {
		return "1", nil, nil
	}
	parts := make([]string, 0, len(children))
	var args []any
	for _, ch := range children {
		s, a, err := c.compile(ch, base)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+s+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " "+op+" "), args, nil
}

// compilePath walks segments against base, consuming Key/Index segments
// into an accumulated JSON path and wrapping each SegAny into a correlated
// EXISTS (SELECT 1 FROM json_each(...) AS alias WHERE ...), recursing with
// base rebound to alias.value for everything after it. Once the segment
// list is exhausted with no further any()s pending, leaf renders the final
// comparison against whatever path/base remain.
func (c *compiler) compilePath(segments []field.Segment, base string, leaf func(base, jsonPath string) (string, []any, error)) (string, []any, error) {
	var keys []string

	for i, seg := range segments {
		switch seg.Kind {
		case field.SegKey:
			if err := tools.ValidatePathSegment(seg.Key); err != nil {
				return "", nil, err
			}
			keys = append(keys, "."+seg.Key)
		case field.SegIndex:
			keys = append(keys, fmt.Sprintf("[%d]", seg.Index))
		case field.SegAny:
			c.depth++
			if config.Cfg.MaxAnyDepth > 0 && c.depth > config.Cfg.MaxAnyDepth {
				return "", nil, fmt.Errorf("%w: depth %d exceeds limit %d", tools.ErrQueryTooDeep, c.depth, config.Cfg.MaxAnyDepth)
			}

			arrPath := "$" + strings.Join(keys, "")
			alias := c.nextAlias()

			var whereParts []string
			var args []any
			if seg.Where != nil {
				predSQL, predArgs, err := c.compile(*seg.Where, alias+".value")
				if err != nil {
					c.depth--
					return "", nil, err
				}
				whereParts = append(whereParts, predSQL)
				args = append(args, predArgs...)
			}

			restSQL, restArgs, err := c.compilePath(segments[i+1:], alias+".value", leaf)
			if err != nil {
				c.depth--
				return "", nil, err
			}
			whereParts = append(whereParts, restSQL)
			args = append(args, restArgs...)
			c.depth--

			return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s, '%s') AS %s WHERE %s)",
				base, arrPath, alias, strings.Join(whereParts, " AND ")), args, nil
		}
	}

	jsonPath := "$" + strings.Join(keys, "")
	return leaf(base, jsonPath)
}
