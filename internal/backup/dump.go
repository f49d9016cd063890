// Package backup produces and restores plain SQL backup artifacts.
//
// An artifact is a header comment, a statement disabling foreign key checks,
// one CREATE statement plus one INSERT per row for every table, and a
// statement re-enabling the checks. Restore replays such a file statement by
// statement, skipping the ones that fail.
package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

// Header is the first line of every artifact.
const Header = "-- tablekit SQL backup"

// FileName returns the artifact name for a backup taken at t.
func FileName(t time.Time) string {
	return "database_backup_" + t.Format("20060102_150405") + ".sql"
}

// DumpStats summarizes a produced artifact.
type DumpStats struct {
	Tables int
	Rows   int64
}

// DumpOptions configures Dump.
type DumpOptions struct {
	// Now stamps the header; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Dump writes an artifact covering every table of the connected schema to w.
// Reads go through q, or the adapter's pool when q is nil.
func Dump(ctx context.Context, w io.Writer, adp adapter.Adapter, q adapter.Querier, opts DumpOptions) (*DumpStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if q == nil {
		db := adp.Conn()
		if db == nil {
			return nil, adapter.ErrNotConnected
		}
		q = db
	}

	d := adp.Dialect()
	tables, err := adp.Tables(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	fmt.Fprintf(bw, "-- Generated: %s\n", now().Format(time.RFC3339))
	writeToggle(bw, d.ForeignKeysOff, "disable")
	fmt.Fprintln(bw)

	stats := &DumpStats{}
	for _, table := range tables {
		n, err := dumpTable(ctx, bw, adp, q, table)
		if err != nil {
			return nil, err
		}
		stats.Tables++
		stats.Rows += n
		logger.Debug("dumped table", "table", table, "rows", n)
	}

	writeToggle(bw, d.ForeignKeysOn, "enable")

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return stats, nil
}

func writeToggle(w io.Writer, stmt, verb string) {
	if stmt == "" {
		fmt.Fprintf(w, "-- no session-level foreign key toggle to %s\n", verb)
		return
	}
	fmt.Fprintf(w, "%s;\n", stmt)
}

func dumpTable(ctx context.Context, w io.Writer, adp adapter.Adapter, q adapter.Querier, table string) (int64, error) {
	d := adp.Dialect()

	create, err := adp.CreateTableSQL(ctx, q, table)
	if err != nil {
		return 0, fmt.Errorf("failed to read definition of %s: %w", table, err)
	}

	fmt.Fprintf(w, "-- Table: %s\n", table)
	fmt.Fprintf(w, "%s;\n\n", strings.TrimRight(strings.TrimSpace(create), ";"))

	quoted := d.QuoteIdent(table)
	//nolint:gosec // table comes from the live table list
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	colList := make([]string, len(cols))
	for i, c := range cols {
		colList[i] = d.QuoteIdent(c)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", quoted, strings.Join(colList, ", "))

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	literals := make([]string, len(cols))

	var n int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		for i, v := range values {
			literals[i] = Literal(d, v)
		}
		fmt.Fprintf(w, "%s%s);\n", prefix, strings.Join(literals, ", "))
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("error iterating rows of %s: %w", table, err)
	}

	fmt.Fprintln(w)
	return n, nil
}
