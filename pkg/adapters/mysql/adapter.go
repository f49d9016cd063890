// Package mysql provides a MySQL/MariaDB database adapter for tablekit.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// tlsConfigName is the key under which the TLS config is registered with the driver.
const tlsConfigName = "tablekit"

// Adapter implements the adapter.Adapter interface for MySQL and MariaDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new MySQL adapter instance.
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
	return "mysql"
}

// Dialect returns the MySQL rendering rules.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.MySQL
}

// Connect establishes a connection to MySQL or MariaDB.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	mc := buildMySQLConfig(cfg)
	if params.TLSEnabled() {
		tlsCfg, err := BuildTLSConfig(params)
		if err != nil {
			return err
		}
		if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
			return fmt.Errorf("failed to register TLS config: %w", err)
		}
		mc.TLSConfig = tlsConfigName
	}

	a.Logger.Debug("connecting to mysql",
		slog.String("addr", mc.Addr),
		slog.String("database", cfg.Database),
		slog.Bool("tls", params.TLSEnabled()))

	db, err := open(ctx, mc)
	if err != nil {
		return err
	}

	// MySQL 8 caches information_schema.tables.auto_increment for
	// information_schema_stats_expiry seconds. The variable goes into the DSN so
	// every pooled connection sets it. MariaDB rejects the variable.
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read server version: %w", err)
	}
	if cachesTableStats(version) {
		_ = db.Close()
		withStatsExpiry(mc)
		if db, err = open(ctx, mc); err != nil {
			return err
		}
	}
	a.Logger.Debug("connected to mysql", slog.String("version", version))

	a.DB = db
	a.Cfg = cfg
	return nil
}

func open(ctx context.Context, mc *mysql.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	return db, nil
}

// cachesTableStats reports whether a server version string belongs to
// MySQL 8.0 or later, which caches table statistics.
func cachesTableStats(version string) bool {
	if strings.Contains(strings.ToLower(version), "mariadb") {
		return false
	}
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	return err == nil && n >= 8
}

// withStatsExpiry makes the driver disable the statistics cache on connect.
func withStatsExpiry(mc *mysql.Config) {
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	mc.Params["information_schema_stats_expiry"] = "0"
}

// buildMySQLConfig maps the adapter config onto the driver config.
func buildMySQLConfig(cfg adapter.Config) *mysql.Config {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.Local
	if len(cfg.Options) > 0 {
		mc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc
}

// Tables lists base tables of the connected database.
func (a *Adapter) Tables(ctx context.Context, q adapter.Querier) ([]string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return adapter.ScanStrings(rows)
}

// Columns returns the live column list using COLUMN_TYPE, so tinyint(1)
// is reported as boolean-like.
func (a *Adapter) Columns(ctx context.Context, q adapter.Querier, table string) ([]core.Column, error) {
	q, err := a.Querier(q)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, ordinal_position, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			col      core.Column
			nullable string
			key      string
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position, &key); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.PrimaryKey = key == "PRI"
		col.Category = core.CategoryOf(col.Type)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	// Composite keys mark several columns PRI; keep only the first.
	pk, err := a.PrimaryKey(ctx, q, table)
	if err != nil {
		return nil, err
	}
	adapter.MarkPrimaryKey(columns, pk)
	return columns, nil
}

// PrimaryKey returns the first column of the PRIMARY index.
func (a *Adapter) PrimaryKey(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}
	pk, err := adapter.FirstString(ctx, q, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
		LIMIT 1
	`, table)
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

// NextAutoValue reads the table's AUTO_INCREMENT counter.
func (a *Adapter) NextAutoValue(ctx context.Context, q adapter.Querier, table, _ string) (int64, error) {
	q, err := a.Querier(q)
	if err != nil {
		return 0, err
	}

	var next sql.NullInt64
	err = q.QueryRowContext(ctx, `
		SELECT auto_increment
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, table).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to read auto_increment: %w", err)
	}
	if !next.Valid {
		return 0, adapter.ErrNoSequence
	}
	return next.Int64, nil
}

// SetNextAutoValue issues ALTER TABLE ... AUTO_INCREMENT.
func (a *Adapter) SetNextAutoValue(ctx context.Context, q adapter.Querier, table, pkColumn string, next int64) error {
	q, err := a.Querier(q)
	if err != nil {
		return err
	}
	if _, err := a.NextAutoValue(ctx, q, table, pkColumn); err != nil {
		return err
	}

	stmt := fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", adapter.MySQL.QuoteIdent(table), next)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to set auto_increment: %w", err)
	}
	return nil
}

// CreateTableSQL returns the output of SHOW CREATE TABLE.
func (a *Adapter) CreateTableSQL(ctx context.Context, q adapter.Querier, table string) (string, error) {
	q, err := a.Querier(q)
	if err != nil {
		return "", err
	}
	var name, stmt string
	query := "SHOW CREATE TABLE " + adapter.MySQL.QuoteIdent(table)
	if err := q.QueryRowContext(ctx, query).Scan(&name, &stmt); err != nil {
		return "", fmt.Errorf("failed to read create statement: %w", err)
	}
	return stmt, nil
}
