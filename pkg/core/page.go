package core

// Row is an ordered tuple of values aligned to Page.Columns.
type Row []any

// PageRequest describes a (limit, offset) window over a table.
type PageRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	// OrderBy defaults to the primary key when empty.
	OrderBy string `json:"order_by,omitempty"`
	// Ascending flips the default descending order.
	Ascending bool `json:"ascending,omitempty"`
}

// Page is one fetched window of rows.
type Page struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	// HasNext is true when the fetch returned exactly Limit rows.
	HasNext bool `json:"has_next"`
}

// Predicate is a compiled WHERE fragment and its bound arguments.
type Predicate struct {
	SQL  string
	Args []any
}
