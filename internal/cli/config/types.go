// Package config provides configuration management for the tablekit CLI.
//
// The shared target type is defined in pkg/core and re-exported here via a
// type alias for convenience. Target defaults and validation live in
// internal/config so the API server applies the same rules.
package config

import (
	"time"

	sharedcfg "github.com/leapstack-labs/tablekit/internal/config"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// StatusConfig names the status column and its values.
type StatusConfig struct {
	Column    string `koanf:"column" yaml:"column"`
	EndColumn string `koanf:"end_column" yaml:"end_column"`
	Terminal  string `koanf:"terminal" yaml:"terminal"`
	Default   string `koanf:"default" yaml:"default"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	Dir string `koanf:"dir" yaml:"dir"`
	// Interval enables the scheduler in `serve` when positive.
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// Config holds all CLI configuration options.
type Config struct {
	Target        *TargetConfig `koanf:"target" yaml:"target"`
	PageSize      int           `koanf:"page_size" yaml:"page_size"`
	ExcludeTables []string      `koanf:"exclude_tables" yaml:"exclude_tables,omitempty"`
	Status        StatusConfig  `koanf:"status" yaml:"status"`
	Backup        BackupConfig  `koanf:"backup" yaml:"backup"`
	StatePath     string        `koanf:"state_path" yaml:"state_path"`
	OutputFormat  string        `koanf:"output" yaml:"output"`
	Verbose       bool          `koanf:"verbose" yaml:"verbose"`
	API           APIConfig     `koanf:"api" yaml:"api"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStateFile = ".tablekit/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

func defaults() map[string]any {
	return map[string]any{
		"page_size":         sharedcfg.DefaultPageSize,
		"status.column":     sharedcfg.DefaultStatusColumn,
		"status.end_column": sharedcfg.DefaultEndColumn,
		"status.terminal":   sharedcfg.DefaultTerminalStatus,
		"status.default":    sharedcfg.DefaultInitialStatus,
		"backup.dir":        sharedcfg.DefaultBackupDir,
		"state_path":        DefaultStateFile,
		"output":            DefaultOutput,
		"verbose":           false,
		"api.addr":          sharedcfg.DefaultAPIAddr,
	}
}
