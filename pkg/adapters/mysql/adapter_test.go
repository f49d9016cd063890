package mysql

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMySQLConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		mc := buildMySQLConfig(adapter.Config{Database: "jobs"})
		assert.Equal(t, "tcp", mc.Net)
		assert.Equal(t, "localhost:3306", mc.Addr)
		assert.Equal(t, "jobs", mc.DBName)
		assert.True(t, mc.ParseTime)
		assert.Equal(t, time.Local, mc.Loc)
		assert.Empty(t, mc.Params)
	})

	t.Run("explicit values", func(t *testing.T) {
		mc := buildMySQLConfig(adapter.Config{
			Host:     "db.example.com",
			Port:     3307,
			Database: "tracker",
			Username: "app",
			Password: "secret",
			Options:  map[string]string{"charset": "utf8mb4"},
		})
		assert.Equal(t, "db.example.com:3307", mc.Addr)
		assert.Equal(t, "app", mc.User)
		assert.Equal(t, "secret", mc.Passwd)
		assert.Equal(t, map[string]string{"charset": "utf8mb4"}, mc.Params)
	})
}

func TestCachesTableStats(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"8.0.36", true},
		{"8.4.0-log", true},
		{"9.1.0", true},
		{"5.7.44", false},
		{"10.11.6-MariaDB-0+deb12u1", false},
		{"11.4.2-MariaDB", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, cachesTableStats(tt.version))
		})
	}
}

func TestWithStatsExpiry(t *testing.T) {
	mc := buildMySQLConfig(adapter.Config{Database: "jobs", Options: map[string]string{"charset": "utf8mb4"}})
	withStatsExpiry(mc)
	assert.Equal(t, "0", mc.Params["information_schema_stats_expiry"])
	assert.Equal(t, "utf8mb4", mc.Params["charset"])
	assert.Contains(t, mc.FormatDSN(), "information_schema_stats_expiry=0")

	bare := buildMySQLConfig(adapter.Config{Database: "jobs"})
	withStatsExpiry(bare)
	assert.Equal(t, map[string]string{"information_schema_stats_expiry": "0"}, bare.Params)
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams(map[string]any{"ssl_dir": "/etc/certs", "tls_skip_verify": "true"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/certs", p.SSLDir)
	assert.True(t, p.TLSSkipVerify)
	assert.True(t, p.TLSEnabled())

	p, err = ParseParams(nil)
	require.NoError(t, err)
	assert.False(t, p.TLSEnabled())

	_, err = ParseParams(map[string]any{"ssl_directory": "/x"})
	assert.Error(t, err)
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
	return dir
}

func TestMatchSSLFiles(t *testing.T) {
	t.Run("ca cert and key", func(t *testing.T) {
		dir := writeFiles(t, "client.key", "client.crt", "ca.crt", "notes.txt")
		files, err := MatchSSLFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "ca.crt"), files.CA)
		assert.Equal(t, filepath.Join(dir, "client.crt"), files.Cert)
		assert.Equal(t, filepath.Join(dir, "client.key"), files.Key)
	})

	t.Run("pem pair falls back to ca as cert", func(t *testing.T) {
		dir := writeFiles(t, "ca.pem", "key.pem")
		files, err := MatchSSLFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "ca.pem"), files.CA)
		assert.Equal(t, filepath.Join(dir, "ca.pem"), files.Cert)
		assert.Equal(t, filepath.Join(dir, "key.pem"), files.Key)
	})

	t.Run("missing key", func(t *testing.T) {
		dir := writeFiles(t, "ca.crt")
		_, err := MatchSSLFiles(dir)
		assert.ErrorIs(t, err, ErrMissingSSLFiles)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := MatchSSLFiles(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}

func mockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	adp := New(nil)
	adp.DB = db
	return adp, mock
}

func TestAdapter_Columns(t *testing.T) {
	adp, mock := mockAdapter(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("jobs").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable", "ordinal_position", "column_key"}).
			AddRow("id", "int(11)", "NO", 1, "PRI").
			AddRow("Title", "varchar(255)", "YES", 2, "").
			AddRow("datasave", "tinyint(1)", "YES", 3, "").
			AddRow("StartDate", "datetime", "YES", 4, ""))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("jobs").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	cols, err := adp.Columns(context.Background(), nil, "jobs")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, core.CategoryNumeric, cols[0].Category)
	assert.True(t, cols[1].Nullable)
	assert.Equal(t, core.CategoryBoolean, cols[2].Category)
	assert.Equal(t, core.CategoryDateTime, cols[3].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_NextAutoValue(t *testing.T) {
	adp, mock := mockAdapter(t)

	mock.ExpectQuery("SELECT auto_increment").
		WithArgs("jobs").
		WillReturnRows(sqlmock.NewRows([]string{"auto_increment"}).AddRow(12))
	mock.ExpectQuery("SELECT auto_increment").
		WithArgs("codes").
		WillReturnRows(sqlmock.NewRows([]string{"auto_increment"}).AddRow(nil))

	next, err := adp.NextAutoValue(context.Background(), nil, "jobs", "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), next)

	_, err = adp.NextAutoValue(context.Background(), nil, "codes", "code")
	require.ErrorIs(t, err, adapter.ErrNoSequence)
}

func TestAdapter_SetNextAutoValue(t *testing.T) {
	adp, mock := mockAdapter(t)

	mock.ExpectQuery("SELECT auto_increment").
		WillReturnRows(sqlmock.NewRows([]string{"auto_increment"}).AddRow(12))
	mock.ExpectExec("ALTER TABLE `jobs` AUTO_INCREMENT = 5").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adp.SetNextAutoValue(context.Background(), nil, "jobs", "id", 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetNextAutoValue_NoCounter(t *testing.T) {
	adp, mock := mockAdapter(t)

	mock.ExpectQuery("SELECT auto_increment").
		WillReturnRows(sqlmock.NewRows([]string{"auto_increment"}).AddRow(nil))

	err := adp.SetNextAutoValue(context.Background(), nil, "codes", "code", 5)
	require.ErrorIs(t, err, adapter.ErrNoSequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CreateTableSQL(t *testing.T) {
	adp, mock := mockAdapter(t)

	ddl := "CREATE TABLE `jobs` (\n  `id` int(11) NOT NULL AUTO_INCREMENT,\n  PRIMARY KEY (`id`)\n)"
	mock.ExpectQuery("SHOW CREATE TABLE `jobs`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("jobs", ddl))

	got, err := adp.CreateTableSQL(context.Background(), nil, "jobs")
	require.NoError(t, err)
	assert.Equal(t, ddl, got)
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	_, err := adp.Tables(context.Background(), nil)
	require.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_Registry(t *testing.T) {
	for _, name := range []string{"mysql", "mariadb"} {
		factory, ok := adapter.Get(name)
		require.True(t, ok, "%s should be registered", name)
		adp, ok := factory(nil).(*Adapter)
		require.True(t, ok)
		assert.Equal(t, "mysql", adp.DialectName())
	}
}
