package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/leapstack-labs/tablekit/internal/api"
	"github.com/leapstack-labs/tablekit/internal/backup"
	sharedcfg "github.com/leapstack-labs/tablekit/internal/config"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the table editor as a JSON API",
		Long: `Start an HTTP server exposing the table operations as a JSON API.

Routes:
  GET    /api/tables                          list tables
  GET    /api/tables/{table}                  columns and primary key
  GET    /api/tables/{table}/rows             one page (limit, offset, order, asc)
  GET    /api/tables/{table}/search           search (q, columns)
  POST   /api/tables/{table}/rows             insert
  PATCH  /api/tables/{table}/rows/{key}       edit one cell
  PUT    /api/tables/{table}/rows/{key}/status set status
  DELETE /api/tables/{table}/rows/{key}       delete one row
  POST   /api/tables/{table}/delete           delete many
  POST   /api/tables/{table}/resync           resync the counter
  GET    /api/backups, POST /api/backups      backup history, run a backup
  GET    /api/journal                         recent edits

With --backup-every (or backup.interval) a backup is written on that interval
while the server runs.`,
		Example: `  # Serve on the default address
  tablekit serve

  # Serve on all interfaces with an hourly backup
  tablekit serve --addr :8088 --backup-every 1h`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", sharedcfg.DefaultAPIAddr, "Address to listen on")
	cmd.Flags().Duration("backup-every", 0, "Write a backup on this interval (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	var mu sync.Mutex

	runner := backup.NewRunner(cmdCtx.Engine.Session(), backup.RunnerConfig{
		Dir:    cfg.Backup.Dir,
		Store:  cmdCtx.Store,
		Locker: &mu,
		Logger: cmdCtx.Logger,
	})

	server := api.NewServer(api.Config{
		Engine:  cmdCtx.Engine,
		Runner:  runner,
		Store:   cmdCtx.Store,
		Exclude: cfg.ExcludeTables,
		Locker:  &mu,
		Addr:    cfg.API.Addr,
		Logger:  cmdCtx.Logger,
	})

	var workers []func(context.Context) error
	if cfg.Backup.Interval > 0 {
		interval := cfg.Backup.Interval
		workers = append(workers, func(ctx context.Context) error {
			return runner.Schedule(ctx, interval)
		})
		cmdCtx.Renderer.Muted(fmt.Sprintf("Backing up to %s every %s", cfg.Backup.Dir, interval.Round(time.Second)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Println(fmt.Sprintf("Serving API on http://%s", cfg.API.Addr))
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")

	return server.Serve(ctx, workers...)
}
