// Package core defines the shared language of tablekit.
//
// This package contains:
//   - Schema entities (TableDescriptor, Column, TypeCategory)
//   - Read-path values (PageRequest, Page, Row, Predicate)
//   - State entities (BackupRun, JournalEntry)
//   - Configuration types (AdapterConfig, TargetConfig)
//
// pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
