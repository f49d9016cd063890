package engine

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/tablekit/internal/testutil"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter serves schema metadata from memory and runs statements on a sqlmock pool.
type stubAdapter struct {
	adapter.BaseSQLAdapter
	tables     []string
	columns    map[string][]core.Column
	pks        map[string]string
	counter    int64
	noSequence bool
	setCalls   []int64
}

func (s *stubAdapter) Connect(context.Context, adapter.Config) error { return nil }
func (s *stubAdapter) DialectName() string                           { return "sqlite" }
func (s *stubAdapter) Dialect() *adapter.Dialect                     { return adapter.SQLite }

func (s *stubAdapter) Tables(context.Context, adapter.Querier) ([]string, error) {
	return s.tables, nil
}

func (s *stubAdapter) Columns(_ context.Context, _ adapter.Querier, table string) ([]core.Column, error) {
	return s.columns[table], nil
}

func (s *stubAdapter) PrimaryKey(_ context.Context, _ adapter.Querier, table string) (string, error) {
	return s.pks[table], nil
}

func (s *stubAdapter) NextAutoValue(context.Context, adapter.Querier, string, string) (int64, error) {
	if s.noSequence {
		return 0, adapter.ErrNoSequence
	}
	return s.counter, nil
}

func (s *stubAdapter) SetNextAutoValue(_ context.Context, _ adapter.Querier, _, _ string, next int64) error {
	if s.noSequence {
		return adapter.ErrNoSequence
	}
	s.setCalls = append(s.setCalls, next)
	s.counter = next
	return nil
}

func (s *stubAdapter) CreateTableSQL(context.Context, adapter.Querier, string) (string, error) {
	return "", nil
}

type memRecorder struct {
	entries []*core.JournalEntry
}

func (m *memRecorder) RecordJournal(e *core.JournalEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)

func jobsDescriptor() *core.TableDescriptor {
	return &core.TableDescriptor{
		Name:       "jobs",
		PrimaryKey: "id",
		Columns: []core.Column{
			{Name: "id", Type: "INTEGER", Category: core.CategoryNumeric, PrimaryKey: true, Position: 1},
			{Name: "Status", Type: "TEXT", Category: core.CategoryText, Position: 2},
			{Name: "EndDate", Type: "DATETIME", Category: core.CategoryDateTime, Position: 3},
		},
	}
}

func newMockEngine(t *testing.T) (*Engine, *stubAdapter, sqlmock.Sqlmock, *memRecorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	desc := jobsDescriptor()
	stub := &stubAdapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db},
		tables:         []string{"jobs", "users", "notes"},
		columns:        map[string][]core.Column{"jobs": desc.Columns, "notes": {{Name: "body", Type: "TEXT"}}},
		pks:            map[string]string{"jobs": "id"},
		counter:        1,
	}
	rec := &memRecorder{}
	logger := testutil.NewTestLogger(t)
	eng := New(NewSession(stub, logger), Config{
		Recorder: rec,
		Now:      func() time.Time { return fixedNow },
		Logger:   logger,
	})
	return eng, stub, mock, rec
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestNew_Defaults(t *testing.T) {
	eng, _, _, _ := newMockEngine(t)

	assert.Equal(t, DefaultPageSize, eng.PageSize())
	assert.Equal(t, StatusConfig{
		Column:    "Status",
		EndColumn: "EndDate",
		Terminal:  "Completed",
		Default:   "In Progress",
	}, eng.StatusConfig())
}

func TestIntrospector_TableNames(t *testing.T) {
	eng, _, _, _ := newMockEngine(t)
	ctx := context.Background()

	names, err := eng.Introspector().TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "notes", "users"}, names)

	names, err = eng.Introspector().TableNames(ctx, "USERS")
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "notes"}, names)
}

func TestIntrospector_Describe(t *testing.T) {
	eng, _, _, _ := newMockEngine(t)
	ctx := context.Background()

	desc, err := eng.Describe(ctx, "JOBS")
	require.NoError(t, err)
	assert.Equal(t, "jobs", desc.Name)
	assert.Equal(t, "id", desc.PrimaryKey)
	assert.Len(t, desc.Columns, 3)

	desc, err = eng.Describe(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, desc.HasPrimaryKey())

	_, err = eng.Describe(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = eng.Introspector().PrimaryKeyOf(ctx, "notes")
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestFetchPage_Statement(t *testing.T) {
	eng, _, mock, _ := newMockEngine(t)

	mock.ExpectQuery(q(`SELECT "id", "Status", "EndDate" FROM "jobs" ORDER BY "id" DESC LIMIT 50 OFFSET 0`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "Status", "EndDate"}).
			AddRow(int64(2), []byte("Open"), nil).
			AddRow(int64(1), "Completed", "2026-01-01 10:00:00"))

	page, err := eng.FetchPage(context.Background(), jobsDescriptor(), core.PageRequest{Offset: -10})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 50, page.Limit)
	assert.False(t, page.HasNext)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, core.Row{int64(2), "Open", nil}, page.Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchPage_OrderAndWindow(t *testing.T) {
	eng, _, mock, _ := newMockEngine(t)

	mock.ExpectQuery(q(`SELECT "id", "Status", "EndDate" FROM "jobs" ORDER BY "Status" ASC LIMIT 2 OFFSET 4`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "Status", "EndDate"}).
			AddRow(int64(5), "A", nil).
			AddRow(int64(6), "B", nil))

	page, err := eng.FetchPage(context.Background(), jobsDescriptor(), core.PageRequest{
		Limit: 2, Offset: 4, OrderBy: "status", Ascending: true,
	})
	require.NoError(t, err)
	assert.True(t, page.HasNext)

	_, err = eng.FetchPage(context.Background(), jobsDescriptor(), core.PageRequest{OrderBy: "nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchPage_NoPrimaryKeyOrdersByFirstColumn(t *testing.T) {
	eng, _, mock, _ := newMockEngine(t)
	desc := &core.TableDescriptor{Name: "notes", Columns: []core.Column{{Name: "body"}}}

	mock.ExpectQuery(q(`SELECT "body" FROM "notes" ORDER BY "body" DESC LIMIT 50 OFFSET 0`)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	page, err := eng.FetchPage(context.Background(), desc, core.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.NotNil(t, page.Rows)
}

func TestFetchPage_FlushesPendingWrites(t *testing.T) {
	eng, _, mock, _ := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT .* FROM "jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "Status", "EndDate"}))

	require.NoError(t, eng.Session().Begin(ctx))
	assert.True(t, eng.Session().InTx())

	_, err := eng.FetchPage(ctx, jobsDescriptor(), core.PageRequest{})
	require.NoError(t, err)
	assert.False(t, eng.Session().InTx())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestView_Navigation(t *testing.T) {
	v := View{Table: "jobs", Limit: 20}

	v = v.Next().Next()
	assert.Equal(t, 40, v.Offset)

	v = v.Prev()
	assert.Equal(t, 20, v.Offset)

	v = v.Prev().Prev()
	assert.Equal(t, 0, v.Offset, "offset never goes below zero")

	v.Search = "alpha"
	v.SearchColumns = []string{"Status"}
	v = v.Next().Reset()
	assert.Equal(t, View{Table: "jobs", Limit: 20}, v)

	assert.Equal(t, View{Table: "notes", Limit: 20}, v.Next().Open("notes"))
	assert.Equal(t, core.PageRequest{Limit: 20, Offset: 20}, v.Next().Request())
}
