package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intakeDescriptor() *core.TableDescriptor {
	return &core.TableDescriptor{
		Name:       "jobs",
		PrimaryKey: "JobID",
		Columns: []core.Column{
			{Name: "JobID", Type: "int(11)", Category: core.CategoryNumeric, PrimaryKey: true},
			{Name: "Customer", Type: "varchar(255)", Category: core.CategoryText},
			{Name: "Status", Type: "varchar(50)", Category: core.CategoryText},
			{Name: "DataSave", Type: "tinyint(1)", Category: core.CategoryBoolean},
			{Name: "StartDate", Type: "datetime", Category: core.CategoryDateTime},
			{Name: "Received", Type: "date", Category: core.CategoryDateTime},
			{Name: "EndDate", Type: "datetime", Category: core.CategoryDateTime},
			{Name: "Price", Type: "decimal(10,2)", Category: core.CategoryNumeric},
		},
	}
}

func intakeOptions() InsertOptions {
	return InsertOptions{
		StatusColumn:  "Status",
		DefaultStatus: "In Progress",
		EndColumn:     "EndDate",
		Now:           fixedNow,
	}
}

func TestBuildInsert_Defaults(t *testing.T) {
	stmt, args, err := BuildInsert(adapter.MySQL, intakeDescriptor(), map[string]string{
		"customer": "Ada",
	}, intakeOptions())
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO `jobs` (`Customer`, `Status`, `DataSave`, `StartDate`, `Received`, `EndDate`, `Price`) VALUES (?, ?, ?, ?, ?, ?, ?)",
		stmt)
	assert.Equal(t, []any{
		"Ada",
		"In Progress",
		1,
		"2026-03-04 05:06:07",
		"2026-03-04",
		nil,
		nil,
	}, args)
}

func TestBuildInsert_ExplicitValues(t *testing.T) {
	stmt, args, err := BuildInsert(adapter.Postgres, intakeDescriptor(), map[string]string{
		"JobID":     " 42 ",
		"Customer":  "Bo",
		"Status":    "Waiting for Parts",
		"DataSave":  "no",
		"StartDate": "2025-12-01 08:00:00",
		"EndDate":   "",
		"Price":     " 19.50",
	}, intakeOptions())
	require.NoError(t, err)

	assert.Equal(t,
		`INSERT INTO "jobs" ("JobID", "Customer", "Status", "DataSave", "StartDate", "Received", "EndDate", "Price") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stmt)
	assert.Equal(t, []any{
		int64(42),
		"Bo",
		"Waiting for Parts",
		0,
		"2025-12-01 08:00:00",
		"2026-03-04",
		nil,
		19.5,
	}, args)
}

func TestBuildInsert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   error
	}{
		{"unknown column", map[string]string{"Ghost": "x"}, ErrUnknownColumn},
		{"bad number", map[string]string{"Price": "cheap"}, ErrInvalidValue},
		{"bad flag", map[string]string{"DataSave": "maybe"}, ErrInvalidValue},
		{"bad key", map[string]string{"JobID": "abc"}, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildInsert(adapter.MySQL, intakeDescriptor(), tt.values, intakeOptions())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildInsert_KeyOnlyTable(t *testing.T) {
	desc := &core.TableDescriptor{
		Name:       "tickets",
		PrimaryKey: "id",
		Columns:    []core.Column{{Name: "id", Category: core.CategoryNumeric}},
	}

	stmt, args, err := BuildInsert(adapter.SQLite, desc, nil, intakeOptions())
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "tickets" DEFAULT VALUES`, stmt)
	assert.Empty(t, args)

	stmt, _, err = BuildInsert(adapter.MySQL, desc, nil, intakeOptions())
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `tickets` () VALUES ()", stmt)
}

func TestInsert_Resyncs(t *testing.T) {
	eng, stub, mock, rec := newMockEngine(t)
	stub.counter = 3

	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO "jobs" ("id", "Status", "EndDate") VALUES (?, ?, ?)`)).
		WithArgs(int64(20), "In Progress", nil).
		WillReturnResult(sqlmock.NewResult(20, 1))
	mock.ExpectQuery(q(selectMax)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(20)))
	mock.ExpectCommit()

	n, err := eng.Insert(context.Background(), jobsDescriptor(), map[string]string{"id": "20"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []int64{21}, stub.setCalls)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, core.ActionInsert, rec.entries[0].Action)
	assert.Equal(t, "20", rec.entries[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ResyncFailureRollsBack(t *testing.T) {
	eng, _, mock, rec := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO "jobs"`)).
		WillReturnResult(sqlmock.NewResult(20, 1))
	mock.ExpectQuery(q(selectMax)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	n, err := eng.Insert(context.Background(), jobsDescriptor(), map[string]string{"id": "20"})
	require.ErrorIs(t, err, ErrStore)
	assert.Zero(t, n, "no rows reported for a rolled back insert")
	assert.Empty(t, rec.entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_NoPrimaryKey(t *testing.T) {
	eng, _, _, _ := newMockEngine(t)

	_, err := eng.Insert(context.Background(), &core.TableDescriptor{Name: "notes"}, nil)
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestParseKey(t *testing.T) {
	desc := intakeDescriptor()

	key, err := ParseKey(desc, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), key)

	key, err = ParseKey(desc, "A-7")
	require.NoError(t, err)
	assert.Equal(t, "A-7", key)

	_, err = ParseKey(desc, "  ")
	assert.ErrorIs(t, err, ErrBlankKey)

	_, err = ParseKey(&core.TableDescriptor{Name: "notes"}, "1")
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}
