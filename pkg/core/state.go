package core

import "time"

// Store defines the interface for local state operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Backup run operations
	CreateBackupRun(path string) (*BackupRun, error)
	CompleteBackupRun(id string, status BackupStatus, tables int, rows int64, errMsg string) error
	ListBackupRuns(limit int) ([]*BackupRun, error)

	// Journal operations
	RecordJournal(entry *JournalEntry) error
	ListJournal(table string, limit int) ([]*JournalEntry, error)
}

// BackupStatus represents the status of a backup run.
type BackupStatus string

// BackupStatus values.
const (
	BackupStatusRunning   BackupStatus = "running"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// BackupRun records one backup artifact production.
type BackupRun struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	Status      BackupStatus `json:"status"`
	Tables      int          `json:"tables"`
	Rows        int64        `json:"rows"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// JournalAction names a mutating operation.
type JournalAction string

// JournalAction values.
const (
	ActionEdit       JournalAction = "edit"
	ActionRename     JournalAction = "rename"
	ActionStatus     JournalAction = "status"
	ActionInsert     JournalAction = "insert"
	ActionDelete     JournalAction = "delete"
	ActionDeleteMany JournalAction = "delete_many"
	ActionQuery      JournalAction = "query"
)

// JournalEntry records one successful mutation.
type JournalEntry struct {
	ID        string        `json:"id"`
	Table     string        `json:"table"`
	Action    JournalAction `json:"action"`
	Key       string        `json:"key,omitempty"`
	Column    string        `json:"column,omitempty"`
	OldValue  string        `json:"old_value,omitempty"`
	NewValue  string        `json:"new_value,omitempty"`
	Rows      int64         `json:"rows"`
	CreatedAt time.Time     `json:"created_at"`
}
