package adapter

import (
	"fmt"
	"strings"
)

// PlaceholderStyle selects how bind parameters are written.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
)

// Dialect holds the statement rendering rules of one backend.
type Dialect struct {
	Name          string
	DefaultSchema string
	IdentQuote    byte
	Placeholders  PlaceholderStyle

	// TextType is the cast target used for substring matching.
	TextType string
	// ILike uses the ILIKE operator instead of LOWER(..) LIKE LOWER(..).
	ILike bool
	// LikeEscape is appended to LIKE expressions, e.g. ` ESCAPE '\'`.
	LikeEscape string

	// ForeignKeysOff and ForeignKeysOn toggle constraint enforcement.
	// Empty when the backend has no session-level toggle.
	ForeignKeysOff string
	ForeignKeysOn  string

	// BackslashEscapes is true when string literals treat backslash as an escape.
	BackslashEscapes bool
	// EscapeStringPrefix is written before escaped literals (Postgres uses E).
	EscapeStringPrefix string
}

// QuoteIdent quotes an identifier, doubling any embedded quote character.
func (d *Dialect) QuoteIdent(name string) string {
	q := string(d.IdentQuote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// FormatPlaceholder returns the bind placeholder for the n-th (1-based) argument.
func (d *Dialect) FormatPlaceholder(n int) string {
	if d.Placeholders == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// PlaceholderList returns count placeholders starting at the 1-based index start.
func (d *Dialect) PlaceholderList(start, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = d.FormatPlaceholder(start + i)
	}
	return out
}

// ContainsFold renders a case-insensitive substring test of expr against a
// bound LIKE pattern.
func (d *Dialect) ContainsFold(expr, placeholder string) string {
	cast := fmt.Sprintf("CAST(%s AS %s)", expr, d.TextType)
	if d.ILike {
		return fmt.Sprintf("%s ILIKE %s%s", cast, placeholder, d.LikeEscape)
	}
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)%s", cast, placeholder, d.LikeEscape)
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Known dialects.
var (
	MySQL = &Dialect{
		Name:             "mysql",
		IdentQuote:       '`',
		Placeholders:     PlaceholderQuestion,
		TextType:         "CHAR",
		ForeignKeysOff:   "SET FOREIGN_KEY_CHECKS = 0",
		ForeignKeysOn:    "SET FOREIGN_KEY_CHECKS = 1",
		BackslashEscapes: true,
	}

	Postgres = &Dialect{
		Name:               "postgres",
		DefaultSchema:      "public",
		IdentQuote:         '"',
		Placeholders:       PlaceholderDollar,
		TextType:           "TEXT",
		ILike:              true,
		ForeignKeysOff:     "SET session_replication_role = replica",
		ForeignKeysOn:      "SET session_replication_role = origin",
		BackslashEscapes:   true,
		EscapeStringPrefix: "E",
	}

	SQLite = &Dialect{
		Name:           "sqlite",
		DefaultSchema:  "main",
		IdentQuote:     '"',
		Placeholders:   PlaceholderQuestion,
		TextType:       "TEXT",
		LikeEscape:     ` ESCAPE '\'`,
		ForeignKeysOff: "PRAGMA foreign_keys = OFF",
		ForeignKeysOn:  "PRAGMA foreign_keys = ON",
	}

	DuckDB = &Dialect{
		Name:          "duckdb",
		DefaultSchema: "main",
		IdentQuote:    '"',
		Placeholders:  PlaceholderQuestion,
		TextType:      "VARCHAR",
		LikeEscape:    ` ESCAPE '\'`,
	}
)
