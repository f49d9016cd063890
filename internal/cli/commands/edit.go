package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/spf13/cobra"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> [column=value]...",
		Short: "Add a record",
		Long: `Add one record. Columns left out take their defaults:

  - the status column gets status.default ("In Progress")
  - a start date column gets the current date and time
  - the end date column stays empty
  - a DataSave flag gets 0

The primary key may be given or left to the auto-increment counter, which is
resynced afterwards.`,
		Example: `  tablekit insert jobs Customer="Ada Lovelace" Notes="brake pads"
  tablekit insert jobs JobID=500 Customer=Bo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := describeTable(cmd.Context(), cmdCtx, args[0])
			if err != nil {
				return err
			}
			n, err := cmdCtx.Engine.Insert(cmd.Context(), desc, values)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("inserted %d row(s) into %s", n, desc.Name))
			return nil
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	var setNull bool
	cmd := &cobra.Command{
		Use:   "edit <table> <key> <column> [value]",
		Short: "Change one cell",
		Long: `Change one cell of the row identified by its primary key.

Editing the primary key column renames the row; the rename is refused when the
new key is already taken. Writing the value a cell already holds does nothing.
An empty value, or --null, stores NULL.`,
		Example: `  tablekit edit jobs 42 Notes "new pads fitted"
  tablekit edit jobs 42 JobID 420
  tablekit edit jobs 42 EndDate --null`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			switch {
			case setNull:
			case len(args) == 4:
				value = args[3]
			default:
				return errors.New("a value or --null is required")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := describeTable(cmd.Context(), cmdCtx, args[0])
			if err != nil {
				return err
			}
			key, err := engine.ParseKey(desc, args[1])
			if err != nil {
				return err
			}
			res, err := cmdCtx.Engine.EditCell(cmd.Context(), desc, key, args[2], value)
			if err != nil {
				return err
			}
			return renderEdit(cmdCtx.Renderer, desc.Name, res)
		},
	}
	cmd.Flags().BoolVar(&setNull, "null", false, "Store NULL")
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <table> <key> <status>",
		Short: "Move a row to a new status",
		Long: `Write a new value into the status column of a row.

Moving to the terminal status (status.terminal, "Completed" by default) also
stamps the end date column with the current time. Other statuses leave the
end date as it is.`,
		Example: `  tablekit status jobs 42 Completed
  tablekit status jobs 42 "Picked Up"`,
		Args: cobra.ExactArgs(3),
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
			key, err := engine.ParseKey(desc, args[1])
			if err != nil {
				return err
			}
			if err := cmdCtx.Engine.SetStatus(cmd.Context(), desc, key, args[2]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("%s %v: status set to %q", desc.Name, key, args[2]))
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <key>...",
		Short: "Delete rows by primary key",
		Long: `Delete one or more rows by primary key.

A single key that does not exist is an error. Several keys are deleted in one
statement and missing ones are ignored. The auto-increment counter is reset
afterwards.`,
		Example: `  tablekit delete jobs 42
  tablekit delete jobs 40 41 42`,
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
			keys := make([]any, 0, len(args)-1)
			for _, raw := range args[1:] {
				key, err := engine.ParseKey(desc, raw)
				if err != nil {
					return err
				}
				keys = append(keys, key)
			}

			if len(keys) == 1 {
				if err := cmdCtx.Engine.DeleteOne(cmd.Context(), desc, keys[0]); err != nil {
					return err
				}
				cmdCtx.Renderer.Success(fmt.Sprintf("deleted %s %v", desc.Name, keys[0]))
				return nil
			}

			n, err := cmdCtx.Engine.DeleteByKeys(cmd.Context(), desc, keys)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("deleted %d of %d row(s) from %s", n, len(keys), desc.Name))
			return nil
		},
	}
}

// NewResyncCommand creates the resync command.
func NewResyncCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "resync [table]",
		Short: "Move the auto-increment counter past the largest key",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			tables := args
			if all {
				if tables, err = cmdCtx.Engine.Introspector().TableNames(cmd.Context(), cmdCtx.Cfg.ExcludeTables...); err != nil {
					return err
				}
			}

			results := make([]engine.ResyncResult, 0, len(tables))
			for _, name := range tables {
				desc, err := describeTable(cmd.Context(), cmdCtx, name)
				if err != nil {
					return err
				}
				if all && !desc.HasPrimaryKey() {
					continue
				}
				res, err := cmdCtx.Engine.Resync(cmd.Context(), desc)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return renderResync(cmdCtx.Renderer, results)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Resync every table with a primary key")
	return cmd
}

// parseAssignments turns column=value arguments into a map.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("expected column=value, got %q", arg)
		}
		values[strings.TrimSpace(col)] = val
	}
	return values, nil
}

func renderEdit(r *output.Renderer, table string, res engine.EditResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	switch res.Outcome {
	case engine.OutcomeUnchanged:
		r.Muted(fmt.Sprintf("%s %v: %s unchanged", table, res.Key, res.Column))
	case engine.OutcomeRenamed:
		r.Success(fmt.Sprintf("%s %v renamed to %v", table, res.Old, res.Key))
	default:
		r.Success(fmt.Sprintf("%s %v: %s = %s", table, res.Key, res.Column, formatValue(res.New)))
	}
	return nil
}

func renderResync(r *output.Renderer, results []engine.ResyncResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	for _, res := range results {
		switch {
		case res.Skipped != "":
			r.StatusLine(res.Table, "skipped", res.Skipped)
		case res.Changed:
			r.StatusLine(res.Table, "success", fmt.Sprintf("counter %d -> %d", res.Current, res.Target))
		default:
			r.StatusLine(res.Table, "success", fmt.Sprintf("counter already %d", res.Current))
		}
	}
	return nil
}
