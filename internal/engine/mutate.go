package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// EditOutcome describes what a cell edit did.
type EditOutcome string

// EditOutcome values.
const (
	OutcomeUpdated   EditOutcome = "updated"
	OutcomeRenamed   EditOutcome = "renamed"
	OutcomeUnchanged EditOutcome = "unchanged"
)

// EditResult is the result of EditCell.
type EditResult struct {
	Outcome EditOutcome `json:"outcome"`
	Column  string      `json:"column"`
	Old     any         `json:"old"`
	New     any         `json:"new"`
	// Key identifies the row after the edit (the new value after a rename).
	Key any `json:"key"`
}

// Err returns ErrUnchanged for a no-op edit and nil otherwise.
func (r EditResult) Err() error {
	if r.Outcome == OutcomeUnchanged {
		return ErrUnchanged
	}
	return nil
}

// EditCell writes newValue into one cell of the row identified by anchor.
//
// The anchor is re-validated against the store before anything is written.
// Editing the primary key renames the row and fails with a *DuplicateKeyError
// when the new key is taken. Writing a value equal to the stored one returns
// OutcomeUnchanged without issuing a write. Text written to a numeric or
// boolean column is coerced first and rejected with ErrInvalidValue when it
// does not fit. The checks, the write and the counter resync share one
// transaction, so a failure at any step leaves the row as it was.
func (e *Engine) EditCell(ctx context.Context, desc *core.TableDescriptor, anchor any, column string, newValue any) (EditResult, error) {
	if !desc.HasPrimaryKey() {
		return EditResult{}, fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	col, ok := desc.ColumnFold(column)
	if !ok {
		return EditResult{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	pk := desc.PrimaryKey
	isKey := col.Name == pk
	if isKey && isBlank(newValue) {
		return EditResult{}, ErrBlankKey
	}

	// value is what gets bound; newValue stays as given for comparison and the journal.
	value := newValue
	if !isKey {
		if s, ok := newValue.(string); ok {
			if strings.TrimSpace(s) == "" {
				value = nil
			} else {
				v, err := coerce(col, s)
				if err != nil {
					return EditResult{}, err
				}
				value = v
			}
		}
	}

	d := e.session.Dialect()
	table := d.QuoteIdent(desc.Name)
	qpk := d.QuoteIdent(pk)
	qcol := d.QuoteIdent(col.Name)

	var (
		result EditResult
		entry  *core.JournalEntry
	)
	err := e.session.atomically(ctx, func(q adapter.Querier) error {
		var stored, storedKey any
		lookup := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s", qcol, qpk, table, qpk, d.FormatPlaceholder(1))
		err := q.QueryRowContext(ctx, lookup, anchor).Scan(&stored, &storedKey)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s %s=%v", ErrStaleRow, desc.Name, pk, anchor)
		}
		if err != nil {
			return storeErr("validate row", err)
		}
		stored, storedKey = normalize(stored), normalize(storedKey)

		result = EditResult{Column: col.Name, Old: stored, New: newValue, Key: storedKey}
		if sameValue(stored, newValue) {
			result.Outcome = OutcomeUnchanged
			return nil
		}

		entry = &core.JournalEntry{
			Table:    desc.Name,
			Column:   col.Name,
			Key:      textOf(storedKey),
			OldValue: textOf(stored),
			NewValue: textOf(newValue),
			Rows:     1,
		}

		if isKey {
			var count int64
			check := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", table, qpk, d.FormatPlaceholder(1))
			if err := q.QueryRowContext(ctx, check, newValue).Scan(&count); err != nil {
				return storeErr("check duplicate key", err)
			}
			if count > 0 {
				return &DuplicateKeyError{Table: desc.Name, Old: storedKey, New: newValue}
			}

			rename := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s", table, qpk, d.FormatPlaceholder(1), qpk, d.FormatPlaceholder(2))
			if _, err := q.ExecContext(ctx, rename, newValue, storedKey); err != nil {
				return storeErr("rename key", err)
			}
			result.Outcome = OutcomeRenamed
			result.Key = newValue
			entry.Action = core.ActionRename
		} else {
			update := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s", table, qcol, d.FormatPlaceholder(1), qpk, d.FormatPlaceholder(2))
			if _, err := q.ExecContext(ctx, update, value, storedKey); err != nil {
				return storeErr("update cell", err)
			}
			result.Outcome = OutcomeUpdated
			entry.Action = core.ActionEdit
		}

		if _, err := e.resync(ctx, q, desc); err != nil {
			e.logger.Warn("resync after edit failed, rolling back", "table", desc.Name, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return EditResult{}, err
	}

	if result.Outcome == OutcomeUnchanged {
		e.logger.Debug("edit unchanged", "table", desc.Name, "column", col.Name)
		return result, nil
	}

	e.logger.Info("cell edited",
		"table", desc.Name,
		"column", col.Name,
		"key", entry.Key,
		"outcome", result.Outcome)
	e.record(entry)
	return result, nil
}
