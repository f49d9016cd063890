package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// FetchPage returns one ordered window of rows.
// Pending writes are committed first so the read sees them.
func (e *Engine) FetchPage(ctx context.Context, desc *core.TableDescriptor, req core.PageRequest) (*core.Page, error) {
	return e.fetch(ctx, desc, req, core.Predicate{})
}

func (e *Engine) window(req core.PageRequest) (limit, offset int) {
	limit = req.Limit
	if limit <= 0 {
		limit = e.pageSize
	}
	return limit, max(0, req.Offset)
}

// orderColumn resolves the ORDER BY column: the requested one, else the
// primary key, else the first column.
func orderColumn(desc *core.TableDescriptor, requested string) (string, error) {
	if requested != "" {
		col, ok := desc.ColumnFold(requested)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownColumn, requested)
		}
		return col.Name, nil
	}
	if desc.HasPrimaryKey() {
		return desc.PrimaryKey, nil
	}
	if len(desc.Columns) == 0 {
		return "", fmt.Errorf("%w: %s has no columns", ErrUnknownColumn, desc.Name)
	}
	return desc.Columns[0].Name, nil
}

func (e *Engine) fetch(ctx context.Context, desc *core.TableDescriptor, req core.PageRequest, where core.Predicate) (*core.Page, error) {
	if err := e.session.Flush(); err != nil {
		return nil, err
	}

	limit, offset := e.window(req)
	order, err := orderColumn(desc, req.OrderBy)
	if err != nil {
		return nil, err
	}

	d := e.session.Dialect()
	names := desc.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}

	direction := "DESC"
	if req.Ascending {
		direction = "ASC"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(quoted, ", "), d.QuoteIdent(desc.Name))
	if where.SQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where.SQL)
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s LIMIT %d OFFSET %d", d.QuoteIdent(order), direction, limit, offset)

	q, err := e.session.querier()
	if err != nil {
		return nil, err
	}

	e.logger.Debug("fetching page", "table", desc.Name, "limit", limit, "offset", offset, "order", order)

	rows, err := q.QueryContext(ctx, sb.String(), where.Args...)
	if err != nil {
		return nil, storeErr("fetch page", err)
	}
	defer func() { _ = rows.Close() }()

	page := &core.Page{
		Table:   desc.Name,
		Columns: names,
		Rows:    []core.Row{},
		Limit:   limit,
		Offset:  offset,
	}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storeErr("scan row", err)
		}
		row := make(core.Row, len(vals))
		for i, v := range vals {
			row[i] = normalize(v)
		}
		page.Rows = append(page.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch page", err)
	}

	page.HasNext = len(page.Rows) == limit
	return page, nil
}
