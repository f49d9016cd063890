package backup

import (
	"math"
	"testing"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	ts := time.Date(2025, 7, 1, 14, 30, 5, 999, time.UTC)

	tests := []struct {
		name    string
		dialect *adapter.Dialect
		value   any
		want    string
	}{
		{"null", adapter.MySQL, nil, "NULL"},
		{"int", adapter.MySQL, int64(-42), "-42"},
		{"uint", adapter.MySQL, uint8(7), "7"},
		{"float", adapter.MySQL, 19.5, "19.5"},
		{"nan", adapter.MySQL, math.NaN(), "NULL"},
		{"bool", adapter.SQLite, true, "TRUE"},
		{"time", adapter.Postgres, ts, "'2025-07-01 14:30:05'"},
		{"bytes as text", adapter.MySQL, []byte("abc"), "'abc'"},
		{"mysql quote", adapter.MySQL, "O'Brien", "'O''Brien'"},
		{"mysql control chars", adapter.MySQL, "a\\b\nc\rd\te", `'a\\b\nc\rd\te'`},
		{"postgres prefix", adapter.Postgres, "line1\nline2", `E'line1\nline2'`},
		{"sqlite keeps backslash", adapter.SQLite, `C:\tmp\'x`, `'C:\tmp\''x'`},
		{"sqlite keeps newline", adapter.SQLite, "a\nb", "'a\nb'"},
		{"duckdb quote", adapter.DuckDB, "it's", "'it''s'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.dialect, tt.value))
		})
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 1, 9, 8, 7, 6, 0, time.Local)
	assert.Equal(t, "database_backup_20260109_080706.sql", FileName(at))
}
