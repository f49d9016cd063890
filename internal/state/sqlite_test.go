package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	if err := store.InitSchema(); err == nil {
		t.Error("expected error from InitSchema before Open")
	}
	if _, err := store.CreateBackupRun("x.sql"); err == nil {
		t.Error("expected error from CreateBackupRun before Open")
	}
	if err := store.RecordJournal(&JournalEntry{}); err == nil {
		t.Error("expected error from RecordJournal before Open")
	}
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store := setupTestStore(t)

	// Verify tables exist by querying them
	for _, table := range []string{"backup_runs", "edit_journal"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
		} else {
			_ = rows.Close()
		}
	}

	// Running migrations again is a no-op.
	if err := store.InitSchema(); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
	version, err := store.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("failed to read migration version: %v", err)
	}
	if version != 1 {
		t.Errorf("migration version = %d, want 1", version)
	}
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store := NewSQLiteStore(nil)
	if err := store.Open(path); err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
}

// --- Backup run tests ---

func TestSQLiteStore_BackupRunLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		status BackupStatus
		errMsg string
	}{
		{name: "completed", status: BackupStatusCompleted},
		{name: "failed", status: BackupStatusFailed, errMsg: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run, err := store.CreateBackupRun("/backups/database_backup_20260101_120000.sql")
			if err != nil {
				t.Fatalf("failed to create backup run: %v", err)
			}
			if run.ID == "" {
				t.Fatal("expected generated ID")
			}
			if run.Status != BackupStatusRunning {
				t.Errorf("status = %s, want running", run.Status)
			}

			if err := store.CompleteBackupRun(run.ID, tt.status, 3, 120, tt.errMsg); err != nil {
				t.Fatalf("failed to complete backup run: %v", err)
			}

			got, err := store.GetBackupRun(run.ID)
			if err != nil {
				t.Fatalf("failed to get backup run: %v", err)
			}
			if got.Status != tt.status {
				t.Errorf("status = %s, want %s", got.Status, tt.status)
			}
			if got.Tables != 3 || got.Rows != 120 {
				t.Errorf("totals = (%d, %d), want (3, 120)", got.Tables, got.Rows)
			}
			if got.CompletedAt == nil {
				t.Error("expected completed_at to be set")
			}
			if got.Error != tt.errMsg {
				t.Errorf("error = %q, want %q", got.Error, tt.errMsg)
			}
		})
	}
}

func TestSQLiteStore_CompleteUnknownRun(t *testing.T) {
	store := setupTestStore(t)

	if err := store.CompleteBackupRun("missing", BackupStatusCompleted, 0, 0, ""); err == nil {
		t.Error("expected error for unknown run")
	}
	if _, err := store.GetBackupRun("missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestSQLiteStore_ListBackupRuns(t *testing.T) {
	store := setupTestStore(t)

	for _, p := range []string{"a.sql", "b.sql", "c.sql"} {
		if _, err := store.CreateBackupRun(p); err != nil {
			t.Fatalf("failed to create backup run: %v", err)
		}
	}

	runs, err := store.ListBackupRuns(2)
	if err != nil {
		t.Fatalf("failed to list backup runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Path != "c.sql" {
		t.Errorf("newest run = %s, want c.sql", runs[0].Path)
	}
}

// --- Journal tests ---

func TestSQLiteStore_Journal(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := []*JournalEntry{
		{Table: "jobs", Action: core.ActionEdit, Key: "7", Column: "Status", OldValue: "Open", NewValue: "Closed", Rows: 1, CreatedAt: base},
		{Table: "customers", Action: core.ActionInsert, Rows: 1, CreatedAt: base.Add(time.Minute)},
		{Table: "jobs", Action: core.ActionDeleteMany, Key: "1,2", Rows: 2, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.RecordJournal(e); err != nil {
			t.Fatalf("failed to record journal entry: %v", err)
		}
		if e.ID == "" {
			t.Error("expected generated ID")
		}
	}

	all, err := store.ListJournal("", 10)
	if err != nil {
		t.Fatalf("failed to list journal: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].Action != core.ActionDeleteMany {
		t.Errorf("newest action = %s, want delete_many", all[0].Action)
	}

	jobs, err := store.ListJournal("jobs", 10)
	if err != nil {
		t.Fatalf("failed to list journal: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs entries, want 2", len(jobs))
	}
	edit := jobs[1]
	if edit.Column != "Status" || edit.OldValue != "Open" || edit.NewValue != "Closed" || edit.Key != "7" {
		t.Errorf("edit entry round-trip mismatch: %+v", edit)
	}
	if !edit.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", edit.CreatedAt, base)
	}
}
