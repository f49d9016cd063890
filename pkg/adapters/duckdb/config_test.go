package duckdb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr string
	}{
		{name: "absent", input: nil, want: &Params{}},
		{
			name:  "yaml list of extensions",
			input: map[string]any{"extensions": []any{"httpfs"}},
			want:  &Params{Extensions: []string{"httpfs"}},
		},
		{
			name: "numeric and boolean settings become strings",
			input: map[string]any{"settings": map[string]any{
				"threads":                  2,
				"preserve_insertion_order": false,
			}},
			want: &Params{Settings: map[string]string{
				"threads":                  "2",
				"preserve_insertion_order": "0",
			}},
		},
		{
			name:    "typo in key",
			input:   map[string]any{"extension": []any{"json"}},
			wantErr: "invalid duckdb params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyParams_Order(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSTALL json").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("LOAD json").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET memory_limit = '1GB'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET timezone = 'Europe/Dublin''s'").WillReturnResult(sqlmock.NewResult(0, 0))

	err = applyParams(context.Background(), db, &Params{
		Extensions: []string{"json"},
		Settings:   map[string]string{"timezone": "Europe/Dublin's", "memory_limit": "1GB"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyParams_Rejects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = applyParams(context.Background(), db, &Params{Extensions: []string{"json; DROP TABLE jobs"}})
	assert.ErrorContains(t, err, "invalid extension name")

	err = applyParams(context.Background(), db, &Params{Settings: map[string]string{"a b": "1"}})
	assert.ErrorContains(t, err, "invalid setting name")

	mock.ExpectExec("SET threads").WillReturnError(errors.New("out of range"))
	err = applyParams(context.Background(), db, &Params{Settings: map[string]string{"threads": "-1"}})
	assert.ErrorContains(t, err, "failed to apply setting threads")
	assert.NoError(t, mock.ExpectationsWereMet())
}
