package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/tablekit/internal/cli/config"
	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine, state store and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
// Cleanup commits writes still pending in the session.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

	store, err := openStore(cfg.StatePath, logger)
	if err != nil {
		return nil, nil, err
	}

	session, err := engine.Open(cmd.Context(), cfg.Target.AdapterConfig(), logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng := engine.New(session, engine.Config{
		PageSize: cfg.PageSize,
		Status: engine.StatusConfig{
			Column:    cfg.Status.Column,
			EndColumn: cfg.Status.EndColumn,
			Terminal:  cfg.Status.Terminal,
			Default:   cfg.Status.Default,
		},
		Recorder: store,
		Logger:   logger,
	})

	cleanup := func() {
		if err := session.Flush(); err != nil {
			logger.Error("failed to commit pending writes", "error", err)
		}
		_ = eng.Close()
		_ = store.Close()
	}

	cmdCtx.Engine = eng
	cmdCtx.Store = store
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need database access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading it
// when a command runs without the root (tests).
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", cmd.Flags())
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}
	return store, nil
}
