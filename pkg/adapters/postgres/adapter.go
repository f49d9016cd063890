// Package postgres provides a PostgreSQL database adapter for tablekit.
package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Dialect returns the PostgreSQL rendering rules.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.Postgres
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cmp.Or(cfg.Host, "localhost")
	port := cmp.Or(cfg.Port, 5432)
	sslmode := cmp.Or(cfg.Options["sslmode"], "disable")

	parts := []string{
		"host=" + dsnValue(host),
		"port=" + strconv.Itoa(port),
		"dbname=" + dsnValue(cfg.Database),
		"sslmode=" + dsnValue(sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}
	if root := cfg.Options["sslrootcert"]; root != "" {
		parts = append(parts, "sslrootcert="+dsnValue(root))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes a libpq keyword value when it is empty or holds
// whitespace, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func (a *Adapter) schema() string {
	return a.SchemaOr(adapter.Postgres.DefaultSchema)
}

// qualified returns the quoted schema.table reference.
func (a *Adapter) qualified(table string) string {
	d := adapter.Postgres
	return d.QuoteIdent(a.schema()) + "." + d.QuoteIdent(table)
}

// Tables lists base tables in the configured schema.
func (a *Adapter) Tables(ctx context.Context, q adapter.Querier) ([]string, error) {
	return a.TablesCommon(ctx, q, adapter.Postgres, a.schema())
}

// Columns returns the live column list of a table.
func (a *Adapter) Columns(ctx context.Context, q adapter.Querier, table string) ([]core.Column, error) {
	cols, err := a.ColumnsCommon(ctx, q, adapter.Postgres, a.schema(), table)
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

// PrimaryKey returns the first primary key column using pg_index.
func (a *Adapter) PrimaryKey(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}

	query := `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY array_position(i.indkey::int2[], a.attnum)
		LIMIT 1
	`
	pk, err := adapter.FirstString(ctx, q, query, a.qualified(table))
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

// sequenceOf returns the sequence backing a serial or identity column.
func (a *Adapter) sequenceOf(ctx context.Context, q adapter.Querier, table, column string) (string, error) {
	seq, err := adapter.FirstString(ctx, q, `SELECT pg_get_serial_sequence($1, $2)`, a.qualified(table), column)
	if err != nil {
		return "", fmt.Errorf("failed to resolve sequence: %w", err)
	}
	if seq == "" {
		return "", adapter.ErrNoSequence
	}
	return seq, nil
}

// NextAutoValue reads the sequence state of pkColumn.
func (a *Adapter) NextAutoValue(ctx context.Context, q adapter.Querier, table, pkColumn string) (int64, error) {
	q, err := a.Querier(q)
	if err != nil {
		return 0, err
	}
	seq, err := a.sequenceOf(ctx, q, table, pkColumn)
	if err != nil {
		return 0, err
	}

	var (
		last     int64
		isCalled bool
	)
	// seq comes from pg_get_serial_sequence and is already quoted where needed.
	query := fmt.Sprintf("SELECT last_value, is_called FROM %s", seq) //nolint:gosec // catalog-provided name
	if err := q.QueryRowContext(ctx, query).Scan(&last, &isCalled); err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", seq, err)
	}
	if isCalled {
		return last + 1, nil
	}
	return last, nil
}

// SetNextAutoValue repositions the sequence so nextval returns next.
func (a *Adapter) SetNextAutoValue(ctx context.Context, q adapter.Querier, table, pkColumn string, next int64) error {
	q, err := a.Querier(q)
	if err != nil {
		return err
	}
	seq, err := a.sequenceOf(ctx, q, table, pkColumn)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `SELECT setval($1::regclass, $2, false)`, seq, next); err != nil {
		return fmt.Errorf("failed to set sequence %s: %w", seq, err)
	}
	return nil
}

// CreateTableSQL rebuilds a CREATE TABLE statement from the catalog.
// Only columns, defaults, NOT NULL and the primary key are reproduced.
func (a *Adapter) CreateTableSQL(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}

	query := `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull, pg_get_expr(d.adbin, d.adrelid)
		FROM pg_attribute a
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`
	rows, err := q.QueryContext(ctx, query, a.qualified(table))
	if err != nil {
		return "", fmt.Errorf("failed to read table definition: %w", err)
	}
	defer func() { _ = rows.Close() }()

	d := adapter.Postgres
	var defs []string
	for rows.Next() {
		var (
			name, typ string
			notNull   bool
			def       sql.NullString
		)
		if err := rows.Scan(&name, &typ, &notNull, &def); err != nil {
			return "", fmt.Errorf("failed to scan table definition: %w", err)
		}
		col := d.QuoteIdent(name) + " " + typ
		if def.Valid {
			col += " DEFAULT " + def.String
		}
		if notNull {
			col += " NOT NULL"
		}
		defs = append(defs, col)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating table definition: %w", err)
	}
	if len(defs) == 0 {
		return "", fmt.Errorf("table %s not found", table)
	}

	pk, err := a.PrimaryKey(ctx, q, table)
	if err != nil {
		return "", err
	}
	if pk != "" {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", d.QuoteIdent(pk)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdent(table), strings.Join(defs, ",\n  ")), nil
}
