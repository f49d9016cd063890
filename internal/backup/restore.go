package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

// Execer runs one statement. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StatementError records a statement that failed during restore.
type StatementError struct {
	Index     int    `json:"index"`
	Statement string `json:"statement"`
	Err       string `json:"error"`
}

// RestoreReport summarizes a restore.
type RestoreReport struct {
	Executed int              `json:"executed"`
	Failed   int              `json:"failed"`
	Errors   []StatementError `json:"errors,omitempty"`
}

// maxStatementEcho bounds how much of a failed statement is kept in reports.
const maxStatementEcho = 200

// Restore replays the artifact read from r against ex.
//
// Statements run in order. A failing statement is logged and skipped; only
// read errors and context cancellation abort the restore. Callers that rely
// on the artifact's session-level foreign key toggles must pass a single
// connection (*sql.Conn), not a pool.
func Restore(ctx context.Context, ex Execer, r io.Reader, d *adapter.Dialect, logger *slog.Logger) (*RestoreReport, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backslash := d != nil && d.BackslashEscapes
	sp := NewSplitter(r, backslash)
	report := &RestoreReport{}

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		stmt, err := sp.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("failed to read backup: %w", err)
		}

		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, StatementError{
				Index:     i,
				Statement: truncate(stmt, maxStatementEcho),
				Err:       err.Error(),
			})
			logger.Warn("restore statement failed, skipping",
				"index", i,
				"statement", truncate(stmt, maxStatementEcho),
				"error", err)
			continue
		}
		report.Executed++
	}

	logger.Info("restore finished", "executed", report.Executed, "failed", report.Failed)
	return report, nil
}

// RestoreAdapter replays r over one dedicated connection of adp.
func RestoreAdapter(ctx context.Context, adp adapter.Adapter, r io.Reader, logger *slog.Logger) (*RestoreReport, error) {
	db := adp.Conn()
	if db == nil {
		return nil, adapter.ErrNotConnected
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return Restore(ctx, conn, r, adp.Dialect(), logger)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
