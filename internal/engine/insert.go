package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// InsertOptions controls column defaults applied by BuildInsert.
type InsertOptions struct {
	StatusColumn  string
	DefaultStatus string
	EndColumn     string
	Now           time.Time
}

// BuildInsert coerces form input into an INSERT statement.
//
// Every non-key column is written. The primary key is written only when a
// non-blank value is given. Blank input becomes NULL except for the data-save
// flag (1), the status column (DefaultStatus) and start dates (now). End
// dates stay NULL.
func BuildInsert(d *adapter.Dialect, desc *core.TableDescriptor, values map[string]string, opts InsertOptions) (string, []any, error) {
	given := make(map[string]string, len(values))
	for k, v := range values {
		col, ok := desc.ColumnFold(k)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		given[col.Name] = v
	}

	var (
		cols []string
		args []any
	)
	for _, col := range desc.Columns {
		raw := given[col.Name]
		blank := strings.TrimSpace(raw) == ""

		if col.Name == desc.PrimaryKey {
			if blank {
				continue
			}
			v, err := coerce(col, raw)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, col.Name)
			args = append(args, v)
			continue
		}

		var (
			v   any
			err error
		)
		if blank {
			v = defaultFor(col, opts)
		} else if v, err = coerce(col, raw); err != nil {
			return "", nil, err
		}
		cols = append(cols, col.Name)
		args = append(args, v)
	}

	if len(cols) == 0 {
		if d == adapter.MySQL {
			return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.QuoteIdent(desc.Name)), nil, nil
		}
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.QuoteIdent(desc.Name)), nil, nil
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(desc.Name),
		strings.Join(quoted, ", "),
		strings.Join(d.PlaceholderList(1, len(cols)), ", "))
	return stmt, args, nil
}

// squash lower-cases a column name and drops separators.
func squash(name string) string {
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.ToLower(name))
}

func isEndColumn(name string, opts InsertOptions) bool {
	if opts.EndColumn != "" && strings.EqualFold(name, opts.EndColumn) {
		return true
	}
	return strings.HasSuffix(squash(name), "enddate")
}

func isStartColumn(col core.Column, opts InsertOptions) bool {
	if isEndColumn(col.Name, opts) {
		return false
	}
	n := squash(col.Name)
	if n == "startdate" || n == "date" {
		return true
	}
	t := strings.ToLower(col.Type)
	return strings.Contains(t, "date") || strings.Contains(t, "timestamp")
}

func defaultFor(col core.Column, opts InsertOptions) any {
	switch {
	case strings.Contains(squash(col.Name), "datasave"):
		return 1
	case opts.StatusColumn != "" && strings.EqualFold(col.Name, opts.StatusColumn):
		return opts.DefaultStatus
	case isEndColumn(col.Name, opts):
		return nil
	case isStartColumn(col, opts):
		if strings.Contains(strings.ToLower(col.Type), "time") {
			return opts.Now.Format(DateTimeLayout)
		}
		return opts.Now.Format(DateLayout)
	default:
		return nil
	}
}

// coerce converts non-blank input according to the column category.
func coerce(col core.Column, raw string) (any, error) {
	switch col.Category {
	case core.CategoryNumeric:
		s := strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, col.Name, raw)
	case core.CategoryBoolean:
		b, ok := parseBool(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a yes/no value, got %q", ErrInvalidValue, col.Name, raw)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	default:
		return raw, nil
	}
}

// ParseKey converts a primary key given as text into the value bound for the
// key column. Numeric keys that parse as integers are returned as int64.
func ParseKey(desc *core.TableDescriptor, raw string) (any, error) {
	if !desc.HasPrimaryKey() {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ErrBlankKey
	}
	if col, ok := desc.ColumnFold(desc.PrimaryKey); ok && col.Category == core.CategoryNumeric {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return raw, nil
}

// Insert writes one record built from values and resyncs the counter in the
// same transaction.
func (e *Engine) Insert(ctx context.Context, desc *core.TableDescriptor, values map[string]string) (int64, error) {
	if !desc.HasPrimaryKey() {
		return 0, fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	stmt, args, err := BuildInsert(e.session.Dialect(), desc, values, InsertOptions{
		StatusColumn:  e.status.Column,
		DefaultStatus: e.status.Default,
		EndColumn:     e.status.EndColumn,
		Now:           e.now().Truncate(time.Second),
	})
	if err != nil {
		return 0, err
	}

	var n int64
	err = e.session.atomically(ctx, func(q adapter.Querier) error {
		res, err := q.ExecContext(ctx, stmt, args...)
		if err != nil {
			return storeErr("insert record", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return storeErr("insert record", err)
		}
		if _, err := e.resync(ctx, q, desc); err != nil {
			e.logger.Warn("resync after insert failed, rolling back", "table", desc.Name, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("record inserted", "table", desc.Name)
	e.record(&core.JournalEntry{
		Table:  desc.Name,
		Action: core.ActionInsert,
		Key:    givenKey(desc, values),
		Rows:   n,
	})
	return n, nil
}

func givenKey(desc *core.TableDescriptor, values map[string]string) string {
	for k, v := range values {
		if strings.EqualFold(k, desc.PrimaryKey) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
