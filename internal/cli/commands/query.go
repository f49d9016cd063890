package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <sql>...",
		Short: "Run an SQL statement",
		Long: `Run one SQL statement against the database.

Statements that return rows (SELECT, WITH, SHOW, PRAGMA, EXPLAIN, ...) are
printed as a table. Any other statement runs in its own transaction, is
recorded in the edit history, and reports the number of affected rows.`,
		Example: `  # Read
  tablekit query "SELECT Status, COUNT(*) FROM jobs GROUP BY Status"

  # Write
  tablekit query "UPDATE jobs SET Status = 'Waiting' WHERE Status = 'Open'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := cmdCtx.Engine.Query(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return renderQueryResult(cmdCtx.Renderer, res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", engine.DefaultQueryRowLimit, "Maximum rows to print")
	return cmd
}

// renderQueryResult writes the rows of a read or the row count of a write.
func renderQueryResult(r *output.Renderer, res *engine.QueryResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	if !res.IsRead {
		r.Success(res.String())
		return nil
	}

	if err := renderPage(r, res.Page()); err != nil {
		return err
	}
	if res.Truncated && r.EffectiveMode() != output.ModeCSV {
		r.Warning(fmt.Sprintf("output stopped after %d rows", len(res.Rows)))
	}
	return nil
}
