package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/spf13/cobra"
)

// PageOptions holds the window flags shared by page and search.
type PageOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	Ascending bool
}

func (o *PageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "Rows per page (default: page_size)")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "Rows to skip")
	cmd.Flags().StringVar(&o.OrderBy, "order", "", "Column to order by (default: primary key)")
	cmd.Flags().BoolVar(&o.Ascending, "asc", false, "Ascending order (default: newest first)")
}

func (o *PageOptions) request() core.PageRequest {
	return core.PageRequest{
		Limit:     o.Limit,
		Offset:    o.Offset,
		OrderBy:   o.OrderBy,
		Ascending: o.Ascending,
	}
}

// NewPageCommand creates the page command.
func NewPageCommand() *cobra.Command {
	opts := &PageOptions{}
	cmd := &cobra.Command{
		Use:   "page <table>",
		Short: "Show one page of rows",
		Long: `Show one page of rows of a table.

Rows are ordered by the primary key, newest first, unless --order or --asc is given.`,
		Example: `  # First page of jobs
  tablekit page jobs

  # Second page of 20 rows, oldest first
  tablekit page jobs --limit 20 --offset 20 --asc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := describeTable(cmd.Context(), cmdCtx, args[0])
			if err != nil {
				return err
			}
			page, err := cmdCtx.Engine.FetchPage(cmd.Context(), desc, opts.request())
			if err != nil {
				return err
			}
			return renderPage(cmdCtx.Renderer, page)
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	opts := &PageOptions{}
	var columns []string
	cmd := &cobra.Command{
		Use:   "search <table> <query>...",
		Short: "Find rows containing every search word",
		Long: `Find rows where every whitespace-separated word of the query appears,
case-insensitively, in at least one of the searched columns.`,
		Example: `  # Rows mentioning both words anywhere
  tablekit search jobs alpha 99

  # Only search two columns
  tablekit search jobs "brake pads" --columns Customer,Notes`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := describeTable(cmd.Context(), cmdCtx, args[0])
			if err != nil {
				return err
			}
			query := strings.Join(args[1:], " ")
			page, err := cmdCtx.Engine.Search(cmd.Context(), desc, columns, query, opts.request())
			if errors.Is(err, engine.ErrNothingToSearch) {
				cmdCtx.Renderer.Muted("nothing to search")
				return nil
			}
			if err != nil {
				return err
			}
			return renderPage(cmdCtx.Renderer, page)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to search (default: all)")
	return cmd
}

// describeTable describes table unless it is excluded by configuration.
func describeTable(ctx context.Context, cmdCtx *CommandContext, table string) (*core.TableDescriptor, error) {
	if slices.ContainsFunc(cmdCtx.Cfg.ExcludeTables, func(x string) bool { return strings.EqualFold(x, table) }) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownTable, table)
	}
	return cmdCtx.Engine.Describe(ctx, table)
}
