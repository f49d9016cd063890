package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.duckdb")

	first := New(nil)
	require.NoError(t, first.Connect(ctx, core.AdapterConfig{Path: path}))
	_, err := first.Conn().ExecContext(ctx, `CREATE TABLE jobs (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	second := New(nil)
	require.NoError(t, second.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = second.Close() }()

	tables, err := second.Tables(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs"}, tables)
	assert.Same(t, adapter.DuckDB, second.Dialect())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.Tables(ctx, nil)
	require.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.PrimaryKey(ctx, nil, "jobs")
	require.ErrorIs(t, err, adapter.ErrNotConnected)
}

func setupJobs(t *testing.T) *Adapter {
	t.Helper()
	ctx := context.Background()

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	_, err := adp.Conn().ExecContext(ctx, `
		CREATE TABLE jobs (
			id INTEGER PRIMARY KEY,
			"Status" VARCHAR,
			"EndDate" TIMESTAMP
		)`)
	require.NoError(t, err)
	_, err = adp.Conn().ExecContext(ctx, `CREATE TABLE notes (body VARCHAR)`)
	require.NoError(t, err)
	return adp
}

func TestAdapter_Introspection(t *testing.T) {
	ctx := context.Background()
	adp := setupJobs(t)

	tables, err := adp.Tables(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "notes"}, tables)

	pk, err := adp.PrimaryKey(ctx, nil, "jobs")
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	pk, err = adp.PrimaryKey(ctx, nil, "notes")
	require.NoError(t, err)
	assert.Empty(t, pk)

	cols, err := adp.Columns(ctx, nil, "jobs")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, core.CategoryNumeric, cols[0].Category)
	assert.Equal(t, core.CategoryDateTime, cols[2].Category)

	stmt, err := adp.CreateTableSQL(ctx, nil, "jobs")
	require.NoError(t, err)
	assert.Contains(t, stmt, "CREATE TABLE")
	assert.NotContains(t, stmt, ";")
}

func TestAdapter_NoSequence(t *testing.T) {
	ctx := context.Background()
	adp := setupJobs(t)

	_, err := adp.NextAutoValue(ctx, nil, "jobs", "id")
	require.ErrorIs(t, err, adapter.ErrNoSequence)
	require.ErrorIs(t, adp.SetNextAutoValue(ctx, nil, "jobs", "id", 5), adapter.ErrNoSequence)
}

func TestConnect_AppliesSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	}))
	defer func() { _ = adp.Close() }()

	var threads string
	require.NoError(t, adp.Conn().QueryRowContext(ctx, "SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestConnect_InvalidSettingName(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.AdapterConfig{
		Params: map[string]any{"settings": map[string]any{"threads; DROP": "1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid setting name")
}
