package shelf

import (
	"context"
	"fmt"
	"strings"

	"github.com/atomicshelf/shelf/adapter"
	"github.com/atomicshelf/shelf/tools"
)

// IndexOptions controls CreateIndex.
type IndexOptions struct {
	Unique bool
	// Where, if non-empty, is appended as a partial-index predicate
	// (raw SQL fragment evaluated against the json_extract expression set).
	Where string
}

// CreateIndex builds an expression index over json_extract(data, '$.<path>'),
// named idx_<table>_<sanitized path>, generalizing the teacher's
// idx_<table>_<column> naming (constants.go, base.go) from plain columns to
// JSON-path expressions.
func CreateIndex(ctx context.Context, a adapter.Adapter, table, path string, opts IndexOptions) error {
	if err := tools.ValidateTableName(table); err != nil {
		return err
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if err := tools.ValidatePathSegment(seg); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("idx_%s_%s", table, strings.Join(segments, "_"))
	if err := tools.ValidateIdentifier(name); err != nil {
		return err
	}

	unique := ""
	if opts.Unique {
		unique = "UNIQUE "
	}

	ddl := fmt.Sprintf(
		"CREATE %sINDEX IF NOT EXISTS %s ON [%s] (json_extract(data, '$.%s'))",
		unique, name, table, strings.Join(segments, "."),
	)
	if opts.Where != "" {
		ddl += " WHERE " + opts.Where
	}

	_, err := a.Execute(ctx, ddl)
	return err
}
