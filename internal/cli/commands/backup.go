package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/tablekit/internal/backup"
	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a SQL backup of every table",
		Long: `Write a plain SQL script that recreates every table and its rows.

The script is written to backup.dir as database_backup_YYYYMMDD_HHMMSS.sql.
Each run is recorded in the state store; see 'tablekit backup list'.`,
		Example: `  tablekit backup
  tablekit backup --backup-dir /var/backups/shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runner := backup.NewRunner(cmdCtx.Engine.Session(), backup.RunnerConfig{
				Dir:    cmdCtx.Cfg.Backup.Dir,
				Store:  cmdCtx.Store,
				Logger: cmdCtx.Logger,
			})
			run, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
				return cmdCtx.Renderer.JSON(run)
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("backup written to %s (%d tables, %d rows)", run.Path, run.Tables, run.Rows))
			return nil
		},
	}
	cmd.AddCommand(newBackupListCommand())
	return cmd
}

func newBackupListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent backup runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListBackupRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to list backup runs: %w", err)
			}
			return renderBackupRuns(cmdCtx.Renderer, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replay a SQL backup into the database",
		Long: `Replay a backup script statement by statement.

A statement that fails is reported and skipped; the rest still run. The
script creates its tables, so restore into an empty database.`,
		Example: `  tablekit restore backups/database_backup_20260203_040506.sql --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("restore writes to the target database; pass --yes to continue")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open backup: %w", err)
			}
			defer func() { _ = f.Close() }()

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := backup.RestoreAdapter(cmd.Context(), cmdCtx.Engine.Session().Adapter(), f, cmdCtx.Logger)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(report)
			}
			for _, se := range report.Errors {
				r.Warning(fmt.Sprintf("statement %d failed: %s\n  %s", se.Index+1, se.Err, se.Statement))
			}
			msg := fmt.Sprintf("restored %s: %d statements executed, %d failed", args[0], report.Executed, report.Failed)
			if report.Failed > 0 {
				r.Warning(msg)
			} else {
				r.Success(msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm writing to the target database")
	return cmd
}

func renderBackupRuns(r *output.Renderer, runs []*core.BackupRun) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Muted("no backups recorded")
		return nil
	}

	t := newTable(r)
	t.AppendHeader(table.Row{"Started", "Status", "Tables", "Rows", "Path", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			run.Tables,
			run.Rows,
			run.Path,
			run.Error,
		})
	}
	flush(r, t)
	return nil
}
