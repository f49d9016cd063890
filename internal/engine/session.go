package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

// Session owns one live adapter connection and at most one pending write transaction.
// A Session is not safe for concurrent use; callers serialize access.
type Session struct {
	adp    adapter.Adapter
	tx     *sql.Tx
	logger *slog.Logger
}

// Open creates the adapter named by cfg.Type and connects it.
func Open(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("opening session", "adapter_type", cfg.Type)

	adp, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSession(adp, logger), nil
}

// NewSession wraps an already connected adapter.
func NewSession(adp adapter.Adapter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{adp: adp, logger: logger}
}

// Adapter returns the session's adapter.
func (s *Session) Adapter() adapter.Adapter {
	return s.adp
}

// Dialect returns the rendering rules of the connected backend.
func (s *Session) Dialect() *adapter.Dialect {
	return s.adp.Dialect()
}

// InTx reports whether a write transaction is pending.
func (s *Session) InTx() bool {
	return s.tx != nil
}

// Begin opens a write transaction that subsequent operations join.
// It is a no-op when one is already pending.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	db := s.adp.Conn()
	if db == nil {
		return adapter.ErrNotConnected
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	s.tx = tx
	return nil
}

// Flush commits the pending write transaction, if any.
func (s *Session) Flush() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.logger.Debug("flushing pending writes")
	return storeErr("commit", tx.Commit())
}

// Rollback discards the pending write transaction, if any.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storeErr("rollback", err)
	}
	return nil
}

// Close rolls back pending writes and closes the connection.
func (s *Session) Close() error {
	rbErr := s.Rollback()
	if err := s.adp.Close(); err != nil {
		return err
	}
	return rbErr
}

// querier returns the pending transaction or the connection pool.
func (s *Session) querier() (adapter.Querier, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	db := s.adp.Conn()
	if db == nil {
		return nil, adapter.ErrNotConnected
	}
	return db, nil
}

// atomically runs fn inside the pending transaction, or inside a new one
// that is committed when fn succeeds.
func (s *Session) atomically(ctx context.Context, fn func(q adapter.Querier) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	db := s.adp.Conn()
	if db == nil {
		return adapter.ErrNotConnected
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return storeErr("commit", tx.Commit())
}
