package commands

import (
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Long: `List the base tables of the connected database, sorted by name.

Tables named in exclude_tables are hidden.`,
		Example: `  # List tables
  tablekit tables

  # List tables of a PostgreSQL database as JSON
  tablekit tables --type postgres --database shop -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := cmdCtx.Engine.Introspector().TableNames(cmd.Context(), cmdCtx.Cfg.ExcludeTables...)
			if err != nil {
				return err
			}
			return renderNames(cmdCtx.Renderer, "Tables", names)
		},
	}
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "columns <table>",
		Aliases: []string{"describe"},
		Short:   "Show the columns and primary key of a table",
		Args:    cobra.ExactArgs(1),
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
			return renderDescriptor(cmdCtx.Renderer, desc)
		},
	}
}
