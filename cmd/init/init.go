package init

import (
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize azcost configuration files",
		Long: `Initialize azcost configuration files.

This command helps you create default configuration files for azcost.
You can create either a config.yaml file or a .env file with default settings.`,
	}

	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewEnvCmd())

	return cmd
}
