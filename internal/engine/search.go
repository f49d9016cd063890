package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// CompileSearch turns a free-text query into a predicate over columns.
//
// The query is split on whitespace. A row matches when every token is a
// case-insensitive substring of at least one of the columns; different tokens
// may match different columns. Column names must already be validated.
func CompileSearch(d *adapter.Dialect, columns []string, query string) (core.Predicate, error) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return core.Predicate{}, ErrNothingToSearch
	}
	if len(columns) == 0 {
		return core.Predicate{}, ErrNoColumns
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}

	var (
		groups = make([]string, 0, len(tokens))
		args   = make([]any, 0, len(tokens)*len(columns))
		n      = 1
	)
	for _, tok := range tokens {
		pattern := "%" + adapter.EscapeLike(tok) + "%"
		ors := make([]string, len(quoted))
		for i, c := range quoted {
			ors[i] = d.ContainsFold(c, d.FormatPlaceholder(n))
			args = append(args, pattern)
			n++
		}
		groups = append(groups, "("+strings.Join(ors, " OR ")+")")
	}

	return core.Predicate{SQL: strings.Join(groups, " AND "), Args: args}, nil
}

// Search returns a page of rows matching query in columns, using the same
// ordering and window rules as FetchPage. No columns means all columns.
func (e *Engine) Search(ctx context.Context, desc *core.TableDescriptor, columns []string, query string, req core.PageRequest) (*core.Page, error) {
	if len(columns) == 0 {
		columns = desc.ColumnNames()
	}
	resolved := make([]string, 0, len(columns))
	for _, c := range columns {
		col, ok := desc.ColumnFold(c)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
		resolved = append(resolved, col.Name)
	}

	pred, err := CompileSearch(e.session.Dialect(), resolved, query)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("searching", "table", desc.Name, "tokens", len(strings.Fields(query)), "columns", len(resolved))
	return e.fetch(ctx, desc, req, pred)
}
