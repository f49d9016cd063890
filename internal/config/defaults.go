// Package config holds target defaults, validation and config file discovery
// shared by the CLI and the API server.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Default configuration values.
const (
	DefaultPageSize       = 50
	DefaultStatusColumn   = "Status"
	DefaultEndColumn      = "EndDate"
	DefaultTerminalStatus = "Completed"
	DefaultInitialStatus  = "In Progress"
	DefaultBackupDir      = "backups"
	DefaultAPIAddr        = "127.0.0.1:8088"
)

// fileTypes are backends addressed by a file path rather than a server.
var fileTypes = map[string]bool{
	"sqlite": true,
	"duckdb": true,
}

// defaultPorts is keyed by canonical adapter name.
var defaultPorts = map[string]int{
	"postgres": 5432,
	"mysql":    3306,
}

// IsFileType reports whether targets of dbType are local files.
func IsFileType(dbType string) bool {
	return fileTypes[strings.ToLower(dbType)]
}

// DefaultSchemaForType returns the default schema for a database type.
// It asks the registered adapter for its dialect; unknown types fall back to "main".
func DefaultSchemaForType(dbType string) string {
	if factory, ok := adapter.Get(dbType); ok {
		if d := factory(nil).Dialect(); d != nil && d.DefaultSchema != "" {
			return d.DefaultSchema
		}
		return ""
	}
	return "main"
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(strings.TrimSpace(t.Type))

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	if IsFileType(t.Type) {
		return
	}
	if t.Host == "" {
		t.Host = "localhost"
	}
	if t.Port == 0 {
		name, _ := adapter.Canonical(t.Type)
		t.Port = defaultPorts[name]
	}
}

// ValidateTarget checks that a target names a registered adapter and
// carries what that adapter needs to connect.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return errors.New("target is required")
	}
	if t.Type == "" {
		return errors.New("target.type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if IsFileType(t.Type) {
		return nil
	}
	if t.Database == "" {
		return fmt.Errorf("target.database is required for %s", t.Type)
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target.port %d out of range", t.Port)
	}
	return nil
}
