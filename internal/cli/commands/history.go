package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [table]",
		Short: "Show recent edits",
		Long: `Show the journal of successful edits, renames, status changes, inserts and
deletes, newest first.`,
		Example: `  tablekit history
  tablekit history jobs --limit 50`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var tableName string
			if len(args) == 1 {
				tableName = args[0]
			}
			entries, err := store.ListJournal(tableName, limit)
			if err != nil {
				return fmt.Errorf("failed to list journal: %w", err)
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(entries)
			}
			if len(entries) == 0 {
				r.Muted("no edits recorded")
				return nil
			}

			t := newTable(r)
			t.AppendHeader(table.Row{"When", "Table", "Action", "Key", "Column", "Old", "New", "Rows"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.CreatedAt.Local().Format(time.DateTime),
					e.Table, string(e.Action), e.Key, e.Column, e.OldValue, e.NewValue, e.Rows,
				})
			}
			flush(r, t)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}
