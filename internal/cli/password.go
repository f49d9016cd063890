package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/tablekit/internal/cli/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNoTerminal = errors.New("--ask-password needs an interactive terminal")

// readPassword prompts on stderr and reads the password without echo.
func readPassword(cmd *cobra.Command, t *config.TargetConfig) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // Fd fits in int on supported platforms
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	who := t.User
	if who == "" {
		who = t.Type
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", who)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
