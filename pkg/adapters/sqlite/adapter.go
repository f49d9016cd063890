// Package sqlite provides a SQLite database adapter for tablekit.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new SQLite adapter instance.
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
	return "sqlite"
}

// Dialect returns the SQLite rendering rules.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.SQLite
}

// Connect opens the database file at cfg.Path.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection: an in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if strings.EqualFold(cfg.Options["foreign_keys"], "on") {
		if _, err := db.ExecContext(ctx, adapter.SQLite.ForeignKeysOn); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Tables lists user tables, skipping SQLite's internal ones.
func (a *Adapter) Tables(ctx context.Context, q adapter.Querier) ([]string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return adapter.ScanStrings(rows)
}

// Columns reads PRAGMA table_info for table.
func (a *Adapter) Columns(ctx context.Context, q adapter.Querier, table string) ([]core.Column, error) {
	q, err := a.Querier(q)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			col     core.Column
			cid     int
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0
		col.PrimaryKey = pk == 1
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

// PrimaryKey returns the first column of the table's primary key.
func (a *Adapter) PrimaryKey(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}
	pk, err := adapter.FirstString(ctx, q,
		`SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk LIMIT 1`, table)
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

// NextAutoValue reads sqlite_sequence. Only AUTOINCREMENT tables have a counter.
func (a *Adapter) NextAutoValue(ctx context.Context, q adapter.Querier, table, _ string) (int64, error) {
	q, err := a.Querier(q)
	if err != nil {
		return 0, err
	}

	seq, found, err := a.sequence(ctx, q, table)
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return seq + 1, nil
}

// SetNextAutoValue writes sqlite_sequence so the next generated rowid is next.
func (a *Adapter) SetNextAutoValue(ctx context.Context, q adapter.Querier, table, _ string, next int64) error {
	q, err := a.Querier(q)
	if err != nil {
		return err
	}

	_, found, err := a.sequence(ctx, q, table)
	if err != nil {
		return err
	}

	if found {
		_, err = q.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = ?`, next-1, table)
	} else {
		_, err = q.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, next-1)
	}
	if err != nil {
		return fmt.Errorf("failed to set sequence: %w", err)
	}
	return nil
}

// sequence returns the stored sqlite_sequence value. found is false when the
// table uses AUTOINCREMENT but has never generated a key.
func (a *Adapter) sequence(ctx context.Context, q adapter.Querier, table string) (seq int64, found bool, err error) {
	stmt, err := a.CreateTableSQL(ctx, q, table)
	if err != nil {
		return 0, false, err
	}
	if !strings.Contains(strings.ToUpper(stmt), "AUTOINCREMENT") {
		return 0, false, adapter.ErrNoSequence
	}

	err = q.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = ?`, table).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read sequence: %w", err)
	}
	return seq, true, nil
}

// CreateTableSQL returns the stored CREATE statement of a table.
func (a *Adapter) CreateTableSQL(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}
	stmt, err := adapter.FirstString(ctx, q,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return "", fmt.Errorf("failed to read create statement: %w", err)
	}
	if stmt == "" {
		return "", fmt.Errorf("table %s not found", table)
	}
	return stmt, nil
}
