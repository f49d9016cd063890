// Package engine provides the schema-agnostic table editor.
// It pages, searches, inserts, edits and deletes rows of any table while
// keeping primary keys intact and the auto-increment counter in step.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// DefaultPageSize is used when a request carries no positive limit.
const DefaultPageSize = 50

// Timestamp layouts written by the engine.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

// StatusConfig names the status column and its terminal value.
type StatusConfig struct {
	Column    string
	EndColumn string
	Terminal  string
	// Default is written by inserts that leave the status blank.
	Default string
}

// Recorder receives an entry for each successful mutation.
type Recorder interface {
	RecordJournal(entry *core.JournalEntry) error
}

// Config holds engine configuration.
type Config struct {
	PageSize int
	Status   StatusConfig
	// Recorder is optional.
	Recorder Recorder
	// Now overrides the wall clock (tests).
	Now    func() time.Time
	Logger *slog.Logger
}

// Engine runs table operations over one session.
type Engine struct {
	session  *Session
	intro    *Introspector
	pageSize int
	status   StatusConfig
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an engine over an open session.
func New(session *Session, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	status := cfg.Status
	if status.Column == "" {
		status.Column = "Status"
	}
	if status.EndColumn == "" {
		status.EndColumn = "EndDate"
	}
	if status.Terminal == "" {
		status.Terminal = "Completed"
	}
	if status.Default == "" {
		status.Default = "In Progress"
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		session:  session,
		intro:    NewIntrospector(session),
		pageSize: pageSize,
		status:   status,
		recorder: cfg.Recorder,
		now:      now,
		logger:   logger,
	}
}

// Session returns the engine's session.
func (e *Engine) Session() *Session {
	return e.session
}

// Introspector returns the engine's schema introspector.
func (e *Engine) Introspector() *Introspector {
	return e.intro
}

// PageSize returns the configured default page size.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// StatusConfig returns the resolved status settings.
func (e *Engine) StatusConfig() StatusConfig {
	return e.status
}

// Describe builds the live descriptor of table.
func (e *Engine) Describe(ctx context.Context, table string) (*core.TableDescriptor, error) {
	return e.intro.Describe(ctx, table)
}

// Close closes the underlying session.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	return e.session.Close()
}

func (e *Engine) record(entry *core.JournalEntry) {
	if e.recorder == nil {
		return
	}
	entry.CreatedAt = e.now().UTC()
	if err := e.recorder.RecordJournal(entry); err != nil {
		e.logger.Warn("failed to record journal entry",
			"table", entry.Table,
			"action", entry.Action,
			"error", err)
	}
}
