package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// DeleteByKeys removes every row whose primary key is in keys with one
// statement, then resets the counter: to 1 when the table is now empty,
// otherwise to MAX(pk)+1.
func (e *Engine) DeleteByKeys(ctx context.Context, desc *core.TableDescriptor, keys []any) (int64, error) {
	if !desc.HasPrimaryKey() {
		return 0, fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	if len(keys) == 0 {
		return 0, ErrNoKeys
	}

	d := e.session.Dialect()
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		d.QuoteIdent(desc.Name),
		d.QuoteIdent(desc.PrimaryKey),
		strings.Join(d.PlaceholderList(1, len(keys)), ", "))

	var deleted int64
	err := e.session.atomically(ctx, func(q adapter.Querier) error {
		res, err := q.ExecContext(ctx, stmt, keys...)
		if err != nil {
			return storeErr("delete rows", err)
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return storeErr("delete rows", err)
		}
		return e.resetCounter(ctx, q, desc)
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("rows deleted", "table", desc.Name, "requested", len(keys), "deleted", deleted)
	e.record(&core.JournalEntry{
		Table:  desc.Name,
		Action: core.ActionDeleteMany,
		Key:    joinKeys(keys),
		Rows:   deleted,
	})
	return deleted, nil
}

// DeleteOne removes the row keyed by key. A missing key yields ErrNotFound.
func (e *Engine) DeleteOne(ctx context.Context, desc *core.TableDescriptor, key any) error {
	if !desc.HasPrimaryKey() {
		return fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}

	d := e.session.Dialect()
	table := d.QuoteIdent(desc.Name)
	qpk := d.QuoteIdent(desc.PrimaryKey)

	err := e.session.atomically(ctx, func(q adapter.Querier) error {
		var count int64
		check := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", table, qpk, d.FormatPlaceholder(1))
		if err := q.QueryRowContext(ctx, check, key).Scan(&count); err != nil {
			return storeErr("check row", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s %s=%v", ErrNotFound, desc.Name, desc.PrimaryKey, key)
		}

		stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, qpk, d.FormatPlaceholder(1))
		if _, err := q.ExecContext(ctx, stmt, key); err != nil {
			return storeErr("delete row", err)
		}
		return e.resetCounter(ctx, q, desc)
	})
	if err != nil {
		return err
	}

	e.logger.Info("row deleted", "table", desc.Name, "key", key)
	e.record(&core.JournalEntry{
		Table:  desc.Name,
		Action: core.ActionDelete,
		Key:    textOf(key),
		Rows:   1,
	})
	return nil
}

// resetCounter applies the post-delete counter rule. Unlike Resync, an empty
// table resets the counter to 1.
func (e *Engine) resetCounter(ctx context.Context, q adapter.Querier, desc *core.TableDescriptor) error {
	d := e.session.Dialect()

	var count int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(desc.Name))
	if err := q.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return storeErr("count rows", err)
	}

	next := int64(1)
	if count > 0 {
		maxKey, err := e.maxKey(ctx, q, desc)
		if err != nil {
			return err
		}
		n, ok := toInt64(maxKey)
		if !ok {
			e.logger.Debug("skipping counter reset", "table", desc.Name, "reason", SkipNonInteger)
			return nil
		}
		next = n + 1
	}

	err := e.session.Adapter().SetNextAutoValue(ctx, q, desc.Name, desc.PrimaryKey, next)
	if errors.Is(err, adapter.ErrNoSequence) {
		e.logger.Debug("skipping counter reset", "table", desc.Name, "reason", SkipNoCounter)
		return nil
	}
	if err != nil {
		return storeErr("reset counter", err)
	}
	return nil
}

func joinKeys(keys []any) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = textOf(k)
	}
	return strings.Join(parts, ",")
}
