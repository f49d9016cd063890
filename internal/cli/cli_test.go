package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tablekit/internal/cli/config"
	clitest "github.com/leapstack-labs/tablekit/internal/cli/testutil"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	if errOut.Len() > 0 {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}

func TestTables_HidesExcluded(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)

	out, err := run(t, cfgPath, "tables", "-o", "json")
	require.NoError(t, err)

	var got map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"jobs"}, got["tables"])

	_, err = run(t, cfgPath, "columns", "users")
	assert.ErrorIs(t, err, engine.ErrUnknownTable)
}

func TestPage_CSV(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)

	out, err := run(t, cfgPath, "page", "jobs", "--limit", "2", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer")
	assert.Contains(t, out, "Carol")
	assert.Contains(t, out, "Bob")
	assert.NotContains(t, out, "Alice", "newest rows come first")
}

func TestSearch_JSON(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)

	out, err := run(t, cfgPath, "search", "jobs", "alice", "-o", "json")
	require.NoError(t, err)

	var page struct {
		Rows [][]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Rows, 2)
	assert.Equal(t, float64(3), page.Rows[0][0])
	assert.Equal(t, float64(1), page.Rows[1][0])
}

func TestEdit_RecordsHistory(t *testing.T) {
	cfgPath, dbPath := clitest.SetupTestProject(t)

	out, err := run(t, cfgPath, "edit", "jobs", "1", "Customer", "Zed")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer = Zed")

	var customer string
	clitest.QueryRow(t, dbPath, `SELECT Customer FROM jobs WHERE id = 1`, &customer)
	assert.Equal(t, "Zed", customer)

	_, err = run(t, cfgPath, "edit", "jobs", "1", "id", "2")
	assert.ErrorIs(t, err, engine.ErrDuplicateKey)

	_, err = run(t, cfgPath, "edit", "jobs", "9", "Customer", "x")
	assert.ErrorIs(t, err, engine.ErrStaleRow)

	out, err = run(t, cfgPath, "history", "jobs", "-o", "json")
	require.NoError(t, err)
	var entries []core.JournalEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, core.ActionEdit, entries[0].Action)
	assert.Equal(t, "Zed", entries[0].NewValue)
}

func TestStatusInsertDelete(t *testing.T) {
	cfgPath, dbPath := clitest.SetupTestProject(t)

	_, err := run(t, cfgPath, "status", "jobs", "2", "Completed")
	require.NoError(t, err)
	var end sql.NullString
	clitest.QueryRow(t, dbPath, `SELECT CAST(EndDate AS TEXT) FROM jobs WHERE id = 2`, &end)
	assert.True(t, end.Valid, "terminal status stamps the end date")

	out, err := run(t, cfgPath, "insert", "jobs", "Customer=Dana")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 1 row(s) into jobs")

	var status string
	clitest.QueryRow(t, dbPath, `SELECT Status FROM jobs WHERE id = 4`, &status)
	assert.Equal(t, "In Progress", status)

	_, err = run(t, cfgPath, "delete", "jobs", "4")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "delete", "jobs", "4")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	out, err = run(t, cfgPath, "delete", "jobs", "1", "2", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 of 2 row(s) from jobs")

	_, err = run(t, cfgPath, "insert", "jobs", "Customer")
	assert.Error(t, err)
}

func TestBackupAndRestore(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)

	out, err := run(t, cfgPath, "backup", "-o", "json")
	require.NoError(t, err)
	var runRec core.BackupRun
	require.NoError(t, json.Unmarshal([]byte(out), &runRec))
	assert.Equal(t, core.BackupStatusCompleted, runRec.Status)
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "backups"), filepath.Dir(runRec.Path))
	assert.Equal(t, 2, runRec.Tables, "backups cover excluded tables too")

	out, err = run(t, cfgPath, "backup", "list", "-o", "json")
	require.NoError(t, err)
	var runs []core.BackupRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 1)

	restored := filepath.Join(t.TempDir(), "restored.db")
	_, err = run(t, cfgPath, "--database", restored, "restore", runRec.Path)
	require.Error(t, err, "restore needs --yes")

	out, err = run(t, cfgPath, "--database", restored, "restore", runRec.Path, "--yes", "-o", "json")
	require.NoError(t, err)
	var report struct {
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Failed)

	var count int
	clitest.QueryRow(t, restored, `SELECT COUNT(*) FROM jobs`, &count)
	assert.Equal(t, 3, count)
}

func TestConfigShow(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)
	t.Setenv("TABLEKIT_TARGET__PASSWORD", "hunter2")

	out, err := run(t, cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "type: sqlite")
	assert.Contains(t, out, "page_size: 50")
	assert.NotContains(t, out, "hunter2")
}

func TestInvalidConfig(t *testing.T) {
	cfgPath, _ := clitest.SetupTestProject(t)

	_, err := run(t, cfgPath, "tables", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
