package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// ErrBackupRunning is returned when a backup is requested while one is in progress.
var ErrBackupRunning = errors.New("backup already running")

// Source is the connection a backup reads from.
// engine.Session satisfies it.
type Source interface {
	Adapter() adapter.Adapter
	// Flush commits pending writes so the backup sees them.
	Flush() error
}

// RunStore records backup runs. state.SQLiteStore satisfies it.
type RunStore interface {
	CreateBackupRun(path string) (*core.BackupRun, error)
	CompleteBackupRun(id string, status core.BackupStatus, tables int, rows int64, errMsg string) error
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Dir string
	// Store is optional.
	Store RunStore
	// Locker, when set, is held for the duration of each backup so the
	// source is not used concurrently.
	Locker sync.Locker
	Now    func() time.Time
	Logger *slog.Logger
}

// Runner produces backup artifacts, one at a time.
type Runner struct {
	src     Source
	cfg     RunnerConfig
	running atomic.Bool
	logger  *slog.Logger
}

// NewRunner creates a runner writing artifacts into cfg.Dir.
func NewRunner(src Source, cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Runner{src: src, cfg: cfg, logger: logger}
}

// Running reports whether a backup is in progress.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run produces one artifact. It returns ErrBackupRunning when another run
// has not finished.
func (r *Runner) Run(ctx context.Context) (*core.BackupRun, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBackupRunning
	}
	defer r.running.Store(false)

	if r.cfg.Locker != nil {
		r.cfg.Locker.Lock()
		defer r.cfg.Locker.Unlock()
	}

	started := r.cfg.Now()
	path := filepath.Join(r.cfg.Dir, FileName(started))

	run := &core.BackupRun{Path: path, Status: core.BackupStatusRunning, StartedAt: started.UTC()}
	if r.cfg.Store != nil {
		stored, err := r.cfg.Store.CreateBackupRun(path)
		if err != nil {
			r.logger.Warn("failed to record backup run", "error", err)
		} else {
			run = stored
		}
	}

	r.logger.Info("starting backup", "path", path)
	stats, err := r.produce(ctx, path, started)
	finished := r.cfg.Now().UTC()
	run.CompletedAt = &finished

	if err != nil {
		run.Status = core.BackupStatusFailed
		run.Error = err.Error()
		r.complete(run)
		r.logger.Error("backup failed", "path", path, "error", err)
		return run, err
	}

	run.Status = core.BackupStatusCompleted
	run.Tables = stats.Tables
	run.Rows = stats.Rows
	r.complete(run)
	r.logger.Info("backup completed", "path", path, "tables", stats.Tables, "rows", stats.Rows)
	return run, nil
}

func (r *Runner) produce(ctx context.Context, path string, started time.Time) (*DumpStats, error) {
	if err := r.src.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush pending writes: %w", err)
	}

	if err := os.MkdirAll(r.cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	//nolint:gosec // path is built from the configured directory
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	stats, err := Dump(ctx, f, r.src.Adapter(), nil, DumpOptions{
		Now:    func() time.Time { return started },
		Logger: r.logger,
	})
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close backup file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return stats, nil
}

func (r *Runner) complete(run *core.BackupRun) {
	if r.cfg.Store == nil || run.ID == "" {
		return
	}
	if err := r.cfg.Store.CompleteBackupRun(run.ID, run.Status, run.Tables, run.Rows, run.Error); err != nil {
		r.logger.Warn("failed to complete backup run record", "id", run.ID, "error", err)
	}
}

// Schedule runs a backup every interval until ctx is cancelled.
// Failed runs and overlaps are logged; Schedule only returns on cancellation.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid backup interval %s", interval)
	}

	r.logger.Info("backup scheduler started", "interval", interval, "dir", r.cfg.Dir)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("backup scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Run(ctx); errors.Is(err, ErrBackupRunning) {
				r.logger.Warn("skipping scheduled backup", "reason", err)
			}
		}
	}
}
