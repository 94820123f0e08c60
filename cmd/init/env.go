package init

import (
	"github.com/spf13/cobra"

	"azcost/internal/config"
)

// NewEnvCmd creates the env subcommand
func NewEnvCmd() *cobra.Command {
	var force bool
	var output string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Create a default .env file",
		Long: `Create a .env file listing the AZCOST_* environment variables.

Values in the .env file are loaded at startup but never override variables
that are already set in the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = ".env"
			}
			return writeFile(cmd.OutOrStdout(), output, config.DefaultEnvContent, force, "env")
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: ./.env)")

	return cmd
}
