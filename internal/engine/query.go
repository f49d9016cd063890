package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// ErrEmptyQuery is returned when an ad-hoc statement is blank.
var ErrEmptyQuery = errors.New("empty query")

// DefaultQueryRowLimit caps the rows an ad-hoc read returns.
const DefaultQueryRowLimit = 1000

// QueryResult is the outcome of an ad-hoc statement.
// Reads fill Columns and Rows; everything else reports RowsAffected.
type QueryResult struct {
	Statement    string     `json:"statement"`
	Columns      []string   `json:"columns,omitempty"`
	Rows         []core.Row `json:"rows,omitempty"`
	Truncated    bool       `json:"truncated,omitempty"`
	RowsAffected int64      `json:"rows_affected"`
	IsRead       bool       `json:"is_read"`
}

// Page presents a read result as an unpaginated page.
func (r *QueryResult) Page() *core.Page {
	rows := r.Rows
	if rows == nil {
		rows = []core.Row{}
	}
	return &core.Page{Columns: r.Columns, Rows: rows, Limit: len(rows)}
}

// readKeywords start statements that return a result set.
var readKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"VALUES":    true,
	"TABLE":     true,
	"SHOW":      true,
	"PRAGMA":    true,
	"EXPLAIN":   true,
	"DESCRIBE":  true,
	"DESC":      true,
	"SUMMARIZE": true,
}

// IsReadStatement reports whether stmt returns rows rather than a row count.
// Leading comments and parentheses are skipped.
func IsReadStatement(stmt string) bool {
	return readKeywords[leadingKeyword(stmt)]
}

func leadingKeyword(stmt string) string {
	s := stmt
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}

// Query runs an ad-hoc statement against the connected store.
// Pending writes are flushed first. A read returns at most limit rows
// (DefaultQueryRowLimit when limit <= 0); any other statement runs in its
// own transaction, is journaled, and reports the affected row count.
func (e *Engine) Query(ctx context.Context, stmt string, limit int) (*QueryResult, error) {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultQueryRowLimit
	}

	if e.session.InTx() {
		e.logger.Info("committing pending writes before query")
	}
	if err := e.session.Flush(); err != nil {
		return nil, err
	}

	res := &QueryResult{Statement: stmt, IsRead: IsReadStatement(stmt)}
	if res.IsRead {
		if err := e.runRead(ctx, res, limit); err != nil {
			return nil, err
		}
		e.logger.Debug("query returned rows", "rows", len(res.Rows), "truncated", res.Truncated)
		return res, nil
	}

	err := e.session.atomically(ctx, func(q adapter.Querier) error {
		result, err := q.ExecContext(ctx, stmt)
		if err != nil {
			return storeErr("execute query", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			// Some drivers cannot count rows for DDL.
			n = 0
		}
		res.RowsAffected = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("query executed", "rows_affected", res.RowsAffected)
	e.record(&core.JournalEntry{
		Action:   core.ActionQuery,
		NewValue: stmt,
		Rows:     res.RowsAffected,
	})
	return res, nil
}

func (e *Engine) runRead(ctx context.Context, res *QueryResult, limit int) error {
	q, err := e.session.querier()
	if err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, res.Statement)
	if err != nil {
		return storeErr("run query", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return storeErr("read columns", err)
	}
	res.Columns = cols
	res.Rows = []core.Row{}
	for rows.Next() {
		if len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return storeErr("scan row", err)
		}
		row := make(core.Row, len(vals))
		for i, v := range vals {
			row[i] = normalize(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return storeErr("run query", err)
	}
	return nil
}

// String summarizes the result in one line.
func (r *QueryResult) String() string {
	if r.IsRead {
		return fmt.Sprintf("%d rows", len(r.Rows))
	}
	return fmt.Sprintf("%d rows affected", r.RowsAffected)
}
