package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// --- Backup run operations ---

// CreateBackupRun records the start of a backup written to path.
func (s *SQLiteStore) CreateBackupRun(path string) (*BackupRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &BackupRun{
		ID:        generateID(),
		Path:      path,
		Status:    BackupStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO backup_runs (id, path, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Path, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup run: %w", err)
	}

	return run, nil
}

// CompleteBackupRun marks a run finished with the given status and totals.
func (s *SQLiteStore) CompleteBackupRun(id string, status BackupStatus, tables int, rows int64, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.Exec(
		`UPDATE backup_runs SET status = ?, table_count = ?, row_count = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, tables, rows, time.Now().UTC(), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete backup run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("backup run not found: %s", id)
	}
	return nil
}

// GetBackupRun retrieves a run by ID.
func (s *SQLiteStore) GetBackupRun(id string) (*BackupRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRow(
		`SELECT id, path, status, table_count, row_count, started_at, completed_at, error FROM backup_runs WHERE id = ?`,
		id,
	)
	run, err := scanBackupRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("backup run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup run: %w", err)
	}
	return run, nil
}

// ListBackupRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListBackupRuns(limit int) ([]*BackupRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, path, status, table_count, row_count, started_at, completed_at, error
		 FROM backup_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*BackupRun
	for rows.Next() {
		run, err := scanBackupRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBackupRun(sc scanner) (*BackupRun, error) {
	run := &BackupRun{}
	var (
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Path, &run.Status, &run.Tables, &run.Rows, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}
