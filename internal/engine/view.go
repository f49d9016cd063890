package engine

import "github.com/leapstack-labs/tablekit/pkg/core"

// View is the caller's position in a table: the explicit replacement for
// "current table" and "current offset" state.
type View struct {
	Table         string
	Offset        int
	Limit         int
	OrderBy       string
	Ascending     bool
	Search        string
	SearchColumns []string
}

// Request converts the view into a page request.
func (v View) Request() core.PageRequest {
	return core.PageRequest{
		Limit:     v.Limit,
		Offset:    v.Offset,
		OrderBy:   v.OrderBy,
		Ascending: v.Ascending,
	}
}

// Next advances one page.
func (v View) Next() View {
	v.Offset += v.limit()
	return v
}

// Prev moves back one page, never below offset 0.
func (v View) Prev() View {
	v.Offset = max(0, v.Offset-v.limit())
	return v
}

// Reset returns to the first page and clears any search.
func (v View) Reset() View {
	v.Offset = 0
	v.Search = ""
	v.SearchColumns = nil
	return v
}

// Open switches to table, keeping the page size.
func (v View) Open(table string) View {
	return View{Table: table, Limit: v.Limit}
}

func (v View) limit() int {
	if v.Limit > 0 {
		return v.Limit
	}
	return DefaultPageSize
}
