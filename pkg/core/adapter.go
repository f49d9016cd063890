package core

import "strings"

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// TypeCategory is the coarse input/coercion class of a column.
type TypeCategory string

// Type categories.
const (
	CategoryText     TypeCategory = "textual"
	CategoryNumeric  TypeCategory = "numeric"
	CategoryDateTime TypeCategory = "datetime"
	CategoryBoolean  TypeCategory = "boolean"
)

// Column represents a column in a database table.
type Column struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Category   TypeCategory `json:"category"`
	Nullable   bool         `json:"nullable"`
	PrimaryKey bool         `json:"primary_key"`
	Position   int          `json:"position"`
}

// CategoryOf maps a declared column type to its category.
// The mapping is best-effort and only drives input coercion.
func CategoryOf(declared string) TypeCategory {
	t := strings.ToLower(strings.TrimSpace(declared))
	switch {
	case t == "":
		return CategoryText
	case strings.Contains(t, "bool"), strings.HasPrefix(t, "tinyint(1)"), t == "bit", t == "bit(1)":
		return CategoryBoolean
	case strings.Contains(t, "date"), strings.Contains(t, "time"), strings.Contains(t, "year"):
		return CategoryDateTime
	case strings.Contains(t, "interval"), strings.Contains(t, "point"):
		return CategoryText
	case strings.Contains(t, "int"), strings.Contains(t, "serial"),
		strings.Contains(t, "dec"), strings.Contains(t, "numeric"),
		strings.Contains(t, "real"), strings.Contains(t, "double"),
		strings.Contains(t, "float"), strings.Contains(t, "number"):
		return CategoryNumeric
	default:
		return CategoryText
	}
}

// TableDescriptor describes one table as seen at call time.
// PrimaryKey is empty when the backend reports no primary key.
type TableDescriptor struct {
	Name       string   `json:"name"`
	PrimaryKey string   `json:"primary_key,omitempty"`
	Columns    []Column `json:"columns"`
}

// ColumnNames returns the column names in ordinal order.
func (d *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (d *TableDescriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnFold looks up a column by case-insensitive name.
func (d *TableDescriptor) ColumnFold(name string) (Column, bool) {
	if c, ok := d.Column(name); ok {
		return c, true
	}
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// HasPrimaryKey reports whether a primary key column was discovered.
func (d *TableDescriptor) HasPrimaryKey() bool {
	return d.PrimaryKey != ""
}
