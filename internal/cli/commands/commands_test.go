// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewTablesCommand(), "tables", nil},
		{NewColumnsCommand(), "columns <table>", nil},
		{NewPageCommand(), "page <table>", []string{"limit", "offset", "order", "asc"}},
		{NewSearchCommand(), "search <table> <query>...", []string{"limit", "offset", "columns"}},
		{NewInsertCommand(), "insert <table> [column=value]...", nil},
		{NewEditCommand(), "edit <table> <key> <column> [value]", []string{"null"}},
		{NewStatusCommand(), "status <table> <key> <status>", nil},
		{NewDeleteCommand(), "delete <table> <key>...", nil},
		{NewResyncCommand(), "resync [table]", []string{"all"}},
		{NewQueryCommand(), "query <sql>...", []string{"limit"}},
		{NewBackupCommand(), "backup", nil},
		{NewRestoreCommand(), "restore <file>", []string{"yes"}},
		{NewHistoryCommand(), "history [table]", []string{"limit"}},
		{NewShellCommand(), "shell [table]", nil},
		{NewServeCommand(), "serve", []string{"addr", "backup-every"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestBackupCommandHasList(t *testing.T) {
	cmd := NewBackupCommand()
	sub, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)
	assert.Equal(t, "list", sub.Name())
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"Customer=Ada Lovelace", " Notes =a=b", "EndDate="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Customer": "Ada Lovelace",
		"Notes":    "a=b",
		"EndDate":  "",
	}, values)

	_, err = parseAssignments([]string{"Customer"})
	assert.Error(t, err)

	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestParseShellAssignments(t *testing.T) {
	values, err := parseShellAssignments([]string{"Customer=Ada", "Lovelace", "Notes=pads"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Customer": "Ada Lovelace", "Notes": "pads"}, values)

	_, err = parseShellAssignments([]string{"orphan"})
	assert.Error(t, err)
}

func TestResyncArgs(t *testing.T) {
	cmd := NewResyncCommand()
	require.NoError(t, cmd.Flags().Set("all", "true"))
	assert.NoError(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"jobs"}))

	cmd = NewResyncCommand()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"jobs"}))
}
