// Package adapter provides database adapter interfaces for tablekit.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Type aliases for the shared core types.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column
)

// ErrNoSequence is returned when a table has no auto-generated key counter.
var ErrNoSequence = errors.New("table has no auto-increment counter")

// Querier is satisfied by both *sql.DB and *sql.Tx.
// Metadata methods take a Querier so they can run inside an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter defines the interface that all database adapters must implement.
// It provides methods for connecting, discovering schema, and maintaining
// the auto-increment counter of a table.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Conn returns the underlying connection pool, or nil before Connect.
	Conn() *sql.DB

	// DialectName returns the registered name of the adapter.
	DialectName() string

	// Dialect returns the SQL rendering rules for this backend.
	Dialect() *Dialect

	// Tables lists base table names in the connected schema.
	Tables(ctx context.Context, q Querier) ([]string, error)

	// Columns returns the live column list of a table in ordinal order.
	Columns(ctx context.Context, q Querier, table string) ([]core.Column, error)

	// PrimaryKey returns the first primary key column, or "" when there is none.
	PrimaryKey(ctx context.Context, q Querier, table string) (string, error)

	// NextAutoValue reads the next value the backend will generate for pkColumn.
	// Returns ErrNoSequence when the table has no counter.
	NextAutoValue(ctx context.Context, q Querier, table, pkColumn string) (int64, error)

	// SetNextAutoValue sets the next generated value for pkColumn.
	// Returns ErrNoSequence when the table has no counter.
	SetNextAutoValue(ctx context.Context, q Querier, table, pkColumn string, next int64) error

	// CreateTableSQL returns a statement that recreates the table structure.
	CreateTableSQL(ctx context.Context, q Querier, table string) (string, error)
}
