package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// SetStatus writes newStatus into the status column of the row keyed by key.
//
// Moving to the terminal status also stamps the end column with the current
// time (second precision) in the same statement. Any other status leaves the
// end column untouched. The key check, the update and the counter resync run
// in one transaction, like EditCell.
func (e *Engine) SetStatus(ctx context.Context, desc *core.TableDescriptor, key any, newStatus string) error {
	if !desc.HasPrimaryKey() {
		return fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	statusCol, ok := desc.ColumnFold(e.status.Column)
	if !ok {
		return fmt.Errorf("%w: status column %q not in %s", ErrUnknownColumn, e.status.Column, desc.Name)
	}

	terminal := newStatus == e.status.Terminal
	var endCol core.Column
	if terminal {
		endCol, ok = desc.ColumnFold(e.status.EndColumn)
		if !ok {
			return fmt.Errorf("%w: end column %q not in %s", ErrUnknownColumn, e.status.EndColumn, desc.Name)
		}
	}

	d := e.session.Dialect()
	table := d.QuoteIdent(desc.Name)
	qpk := d.QuoteIdent(desc.PrimaryKey)

	var (
		stmt string
		args []any
	)
	if terminal {
		ended := e.now().Truncate(time.Second).Format(DateTimeLayout)
		stmt = fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s WHERE %s = %s",
			table,
			d.QuoteIdent(statusCol.Name), d.FormatPlaceholder(1),
			d.QuoteIdent(endCol.Name), d.FormatPlaceholder(2),
			qpk, d.FormatPlaceholder(3))
		args = []any{newStatus, ended, key}
	} else {
		stmt = fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
			table, d.QuoteIdent(statusCol.Name), d.FormatPlaceholder(1), qpk, d.FormatPlaceholder(2))
		args = []any{newStatus, key}
	}

	err := e.session.atomically(ctx, func(q adapter.Querier) error {
		var count int64
		check := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", table, qpk, d.FormatPlaceholder(1))
		if err := q.QueryRowContext(ctx, check, key).Scan(&count); err != nil {
			return storeErr("validate row", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s %s=%v", ErrStaleRow, desc.Name, desc.PrimaryKey, key)
		}

		if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
			return storeErr("update status", err)
		}
		if _, err := e.resync(ctx, q, desc); err != nil {
			e.logger.Warn("resync after status change failed, rolling back", "table", desc.Name, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("status updated", "table", desc.Name, "key", key, "status", newStatus, "terminal", terminal)
	e.record(&core.JournalEntry{
		Table:    desc.Name,
		Action:   core.ActionStatus,
		Key:      textOf(key),
		Column:   statusCol.Name,
		NewValue: newStatus,
		Rows:     1,
	})
	return nil
}
