// Package duckdb provides a DuckDB database adapter for tablekit.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Dialect returns the DuckDB rendering rules.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// A single connection keeps in-memory databases and session settings stable.
	db.SetMaxOpenConns(1)

	if err := applyParams(ctx, db, params); err != nil {
		_ = db.Close()
		return err
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// applyParams loads extensions first, then applies settings in key order.
func applyParams(ctx context.Context, db execer, p *Params) error {
	for _, ext := range p.Extensions {
		if !isSimpleName(ext) {
			return fmt.Errorf("invalid extension name %q", ext)
		}
		for _, stmt := range []string{"INSTALL " + ext, "LOAD " + ext} {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to load extension %s: %w", ext, err)
			}
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !isSimpleName(k) {
			return fmt.Errorf("invalid setting name %q", k)
		}
		v := strings.ReplaceAll(p.Settings[k], "'", "''")
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", k, v)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

func isSimpleName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Tables lists base tables in the configured schema.
func (a *Adapter) Tables(ctx context.Context, q adapter.Querier) ([]string, error) {
	return a.TablesCommon(ctx, q, adapter.DuckDB, a.SchemaOr(adapter.DuckDB.DefaultSchema))
}

// Columns returns the live column list of a table.
func (a *Adapter) Columns(ctx context.Context, q adapter.Querier, table string) ([]core.Column, error) {
	cols, err := a.ColumnsCommon(ctx, q, adapter.DuckDB, a.SchemaOr(adapter.DuckDB.DefaultSchema), table)
	if err != nil {
		return nil, err
	}
	pk, err := a.PrimaryKey(ctx, q, table)
	if err != nil {
		return nil, err
	}
	adapter.MarkPrimaryKey(cols, pk)
	return cols, nil
}

// PrimaryKey returns the first primary key column of table.
func (a *Adapter) PrimaryKey(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}

	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = ? AND tc.table_name = ?
		ORDER BY kcu.ordinal_position
		LIMIT 1
	`
	pk, err := adapter.FirstString(ctx, q, query, a.SchemaOr(adapter.DuckDB.DefaultSchema), table)
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

// NextAutoValue is not supported: DuckDB sequences cannot be repositioned.
func (a *Adapter) NextAutoValue(_ context.Context, _ adapter.Querier, _, _ string) (int64, error) {
	return 0, adapter.ErrNoSequence
}

// SetNextAutoValue is not supported: DuckDB sequences cannot be repositioned.
func (a *Adapter) SetNextAutoValue(_ context.Context, _ adapter.Querier, _, _ string, _ int64) error {
	return adapter.ErrNoSequence
}

// CreateTableSQL returns the stored CREATE statement of a table.
func (a *Adapter) CreateTableSQL(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}
	stmt, err := adapter.FirstString(ctx, q,
		`SELECT sql FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?`,
		a.SchemaOr(adapter.DuckDB.DefaultSchema), table)
	if err != nil {
		return "", fmt.Errorf("failed to read create statement: %w", err)
	}
	if stmt == "" {
		return "", fmt.Errorf("table %s not found", table)
	}
	return strings.TrimSuffix(strings.TrimSpace(stmt), ";"), nil
}
