package commands

import (
	"runtime"
	"strings"

	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version  string   `json:"version"`
	Commit   string   `json:"commit"`
	Built    string   `json:"built"`
	Go       string   `json:"go"`
	Adapters []string `json:"adapters"`
}

// NewVersionCommand creates the version command. It runs without a config
// file so it also works outside a project.
func NewVersionCommand(version, commit, built string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the tablekit version, build metadata and the database adapters compiled in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := BuildInfo{
				Version:  version,
				Commit:   commit,
				Built:    built,
				Go:       runtime.Version(),
				Adapters: adapter.ListAdapters(),
			}

			mode := output.ModeText
			if asJSON {
				mode = output.ModeJSON
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			if asJSON {
				return r.JSON(info)
			}

			r.Printf("tablekit v%s\n", info.Version)
			r.Muted("commit " + info.Commit + ", built " + info.Built + ", " + info.Go)
			if len(info.Adapters) > 0 {
				r.Println("adapters: " + strings.Join(info.Adapters, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	return cmd
}
