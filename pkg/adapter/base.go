package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Conn, and information_schema implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Conn returns the underlying connection pool.
func (b *BaseSQLAdapter) Conn() *sql.DB {
	return b.DB
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Querier returns q, or the adapter's pool when q is nil.
func (b *BaseSQLAdapter) Querier(q Querier) (Querier, error) {
	if q != nil {
		return q, nil
	}
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	return b.DB, nil
}

// SchemaOr returns the configured schema, falling back to def.
func (b *BaseSQLAdapter) SchemaOr(def string) string {
	if b.Cfg.Schema != "" {
		return b.Cfg.Schema
	}
	return def
}

// TablesCommon lists base tables of a schema through information_schema.tables.
func (b *BaseSQLAdapter) TablesCommon(ctx context.Context, q Querier, d *Dialect, schema string) ([]string, error) {
	q, err := b.Querier(q)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, d.FormatPlaceholder(1))

	rows, err := q.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return ScanStrings(rows)
}

// ColumnsCommon provides a shared implementation of Columns.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) ColumnsCommon(ctx context.Context, q Querier, d *Dialect, schema, table string) ([]core.Column, error) {
	q, err := b.Querier(q)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := q.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.Category = core.CategoryOf(col.Type)
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	return columns, nil
}

// MarkPrimaryKey flags the named column as the primary key.
func MarkPrimaryKey(columns []core.Column, pk string) {
	for i := range columns {
		columns[i].PrimaryKey = columns[i].Name == pk
	}
}

// ScanStrings drains a single-column result set and closes it.
func ScanStrings(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// FirstString runs a query expected to return at most one string.
// Returns "" with no error when no row matches.
func FirstString(ctx context.Context, q Querier, query string, args ...any) (string, error) {
	var s sql.NullString
	err := q.QueryRowContext(ctx, query, args...).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.String, nil
}
