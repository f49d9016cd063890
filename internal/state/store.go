// Package state records tablekit's local history in SQLite:
// backup runs and the journal of successful edits.
//
// Core types are defined in pkg/core. This package re-exports them via
// type aliases so callers can stay within one import.
package state

import (
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Type aliases for the types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// BackupRun is an alias for core.BackupRun.
	BackupRun = core.BackupRun

	// BackupStatus is an alias for core.BackupStatus.
	BackupStatus = core.BackupStatus

	// JournalEntry is an alias for core.JournalEntry.
	JournalEntry = core.JournalEntry
)

// Re-export constants for convenience.
const (
	BackupStatusRunning   = core.BackupStatusRunning
	BackupStatusCompleted = core.BackupStatusCompleted
	BackupStatusFailed    = core.BackupStatusFailed
)
