// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/pkg/adapters/sqlite"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/require"
)

// JobsSchema is the jobs table every CLI fixture starts from.
const JobsSchema = `CREATE TABLE jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	Customer TEXT,
	Notes TEXT,
	Status TEXT,
	StartDate DATETIME,
	EndDate DATETIME,
	DataSave BOOLEAN
)`

// SetupTestProject creates a temporary project: a seeded shop.db holding
// jobs (Alice, Bob, Carol) and users, and a tablekit.yaml that hides users.
func SetupTestProject(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "shop.db")
	Exec(t, dbPath,
		JobsSchema,
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`,
		`INSERT INTO jobs (id, Customer, Notes, Status) VALUES
			(1, 'Alice', 'brakes', 'Open'),
			(2, 'Bob', 'tyres', 'Open'),
			(3, 'Carol', 'alice referral', 'Open')`,
	)

	cfgPath = filepath.Join(dir, "tablekit.yaml")
	content := `target:
  type: sqlite
  database: shop.db
exclude_tables: [users]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to create tablekit.yaml: %v", err)
	}
	return cfgPath, dbPath
}

// Exec runs statements against the SQLite database at path.
func Exec(t *testing.T, path string, stmts ...string) {
	t.Helper()
	withDB(t, path, func(adp *sqlite.Adapter) {
		for _, stmt := range stmts {
			_, err := adp.Conn().ExecContext(context.Background(), stmt)
			require.NoError(t, err)
		}
	})
}

// QueryRow scans a single row from the SQLite database at path.
func QueryRow(t *testing.T, path, query string, dest ...any) {
	t.Helper()
	withDB(t, path, func(adp *sqlite.Adapter) {
		require.NoError(t, adp.Conn().QueryRowContext(context.Background(), query).Scan(dest...))
	})
}

func withDB(t *testing.T, path string, fn func(*sqlite.Adapter)) {
	t.Helper()
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Type: "sqlite", Path: path}))
	defer func() { _ = adp.Close() }()
	fn(adp)
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
