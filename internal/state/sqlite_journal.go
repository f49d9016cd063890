package state

import (
	"database/sql"
	"fmt"
	"time"
)

// --- Journal operations ---

// RecordJournal stores one mutation entry. ID and CreatedAt are filled in when empty.
func (s *SQLiteStore) RecordJournal(entry *JournalEntry) error {
	if s.db == nil {
		return errNotOpened
	}
	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO edit_journal (id, table_name, action, record_key, column_name, old_value, new_value, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Table, entry.Action,
		nullable(entry.Key), nullable(entry.Column),
		nullable(entry.OldValue), nullable(entry.NewValue),
		entry.Rows, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// ListJournal returns recent entries, newest first. An empty table lists all tables.
func (s *SQLiteStore) ListJournal(table string, limit int) ([]*JournalEntry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, table_name, action, record_key, column_name, old_value, new_value, row_count, created_at
		FROM edit_journal`
	args := []any{}
	if table != "" {
		query += ` WHERE table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*JournalEntry
	for rows.Next() {
		e := &JournalEntry{}
		var key, column, oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.Table, &e.Action, &key, &column, &oldValue, &newValue, &e.Rows, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Key = key.String
		e.Column = column.String
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
