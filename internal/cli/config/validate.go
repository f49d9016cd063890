package config

import (
	"fmt"
	"slices"
	"strings"

	sharedcfg "github.com/leapstack-labs/tablekit/internal/config"
)

// OutputFormats lists the accepted values of the output setting.
var OutputFormats = []string{"auto", "text", "json", "csv", "markdown"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := sharedcfg.ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if strings.TrimSpace(c.Status.Column) == "" {
		return fmt.Errorf("status.column must not be empty")
	}
	if strings.TrimSpace(c.Status.Terminal) == "" {
		return fmt.Errorf("status.terminal must not be empty")
	}
	if c.Backup.Interval < 0 {
		return fmt.Errorf("backup.interval must not be negative, got %s", c.Backup.Interval)
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q\nHint: use one of %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	return nil
}
