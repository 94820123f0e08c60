package app

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"azcost/internal/config"
)

// Overrides are applied after the defaults of ForCommand. Tests use them to
// inject a scripted runner and a fixed clock.
var Overrides []Option

// stderrIsTerminal reports whether progress output would reach a terminal
func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ForCommand builds an App from config.Config that writes to the command's
// output streams
func ForCommand(cmd *cobra.Command) *App {
	opts := []Option{
		WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		WithSpinner(cmd.ErrOrStderr() == os.Stderr && stderrIsTerminal()),
	}
	return New(config.Config, append(opts, Overrides...)...)
}
