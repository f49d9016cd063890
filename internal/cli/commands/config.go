package commands

import (
	"fmt"

	"github.com/leapstack-labs/tablekit/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Long: `Print the configuration after defaults, the config file, TABLEKIT_
environment variables and flags have been merged. The password is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}

			if file := config.GetConfigFileUsed(); file != "" {
				cmdCtx.Renderer.Muted("# " + file)
			}
			enc := yaml.NewEncoder(cmdCtx.Renderer.Writer())
			enc.SetIndent(2)
			if err := enc.Encode(cmdCtx.Cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	})
	return cmd
}
