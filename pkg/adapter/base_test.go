package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Lifecycle(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.False(t, base.IsConnected())
	assert.Nil(t, base.Conn())
	assert.NoError(t, base.Close(), "closing an unconnected adapter is a no-op")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	base.DB = db
	base.Logger = slog.New(slog.DiscardHandler)
	assert.True(t, base.IsConnected())
	assert.Same(t, db, base.Conn())
	require.NoError(t, base.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_SchemaOr(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.Equal(t, "public", base.SchemaOr("public"))

	base.Cfg.Schema = "shop"
	assert.Equal(t, "shop", base.SchemaOr("public"))
}

func TestBaseSQLAdapter_Querier(t *testing.T) {
	base := &BaseSQLAdapter{}

	_, err := base.Querier(nil)
	require.ErrorIs(t, err, ErrNotConnected)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	base.DB = db

	q, err := base.Querier(nil)
	require.NoError(t, err)
	assert.Same(t, db, q)
}

func TestBaseSQLAdapter_TablesCommon(t *testing.T) {
	tests := []struct {
		name      string
		dialect   *Dialect
		setupMock func(mock sqlmock.Sqlmock)
		want      []string
		errMsg    string
	}{
		{
			name:    "postgres placeholders",
			dialect: Postgres,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`table_schema = \$1 AND table_type = 'BASE TABLE'`).
					WithArgs("public").
					WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("jobs"))
			},
			want: []string{"customers", "jobs"},
		},
		{
			name:    "query error",
			dialect: DuckDB,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("information_schema.tables").WillReturnError(assert.AnError)
			},
			errMsg: "failed to list tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			base := &BaseSQLAdapter{DB: db}
			got, err := base.TablesCommon(context.Background(), nil, tt.dialect, tt.dialect.DefaultSchema)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_ColumnsCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "jobs").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("id", "integer", "NO", 1).
			AddRow("Status", "character varying", "YES", 2).
			AddRow("EndDate", "timestamp without time zone", "YES", 3))

	base := &BaseSQLAdapter{DB: db}
	cols, err := base.ColumnsCommon(context.Background(), nil, Postgres, "public", "jobs")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.Equal(t, "id", cols[0].Name)
	assert.False(t, cols[0].Nullable)
	assert.Equal(t, core.CategoryNumeric, cols[0].Category)
	assert.Equal(t, core.CategoryText, cols[1].Category)
	assert.Equal(t, core.CategoryDateTime, cols[2].Category)

	MarkPrimaryKey(cols, "id")
	assert.True(t, cols[0].PrimaryKey)
	assert.False(t, cols[1].PrimaryKey)
}

func TestBaseSQLAdapter_ColumnsCommon_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	base := &BaseSQLAdapter{DB: db}
	_, err = base.ColumnsCommon(context.Background(), nil, DuckDB, "main", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table ghost not found")
}

func TestFirstString(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT name").WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id"))
	mock.ExpectQuery("SELECT name").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	got, err := FirstString(context.Background(), db, "SELECT name FROM t")
	require.NoError(t, err)
	assert.Equal(t, "id", got)

	got, err = FirstString(context.Background(), db, "SELECT name FROM t")
	require.NoError(t, err)
	assert.Empty(t, got)
}
