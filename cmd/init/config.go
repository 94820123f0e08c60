package init

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"azcost/internal/config"
)

// writeFile writes content to output unless it exists and force is false
func writeFile(out io.Writer, output, content string, force bool, kind string) error {
	absPath, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil && !force {
		return fmt.Errorf("file %s already exists. Use --force to overwrite", absPath)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	fmt.Fprintf(out, "Created %s file: %s\n", kind, absPath)
	return nil
}

// NewConfigCmd creates the config subcommand
func NewConfigCmd() *cobra.Command {
	var force bool
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create a default config.yaml file",
		Long: `Create a default config.yaml file with recommended settings.

The file will be created in the current directory by default.
You can specify a different location using the --output flag,
for example ~/.azcost/config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "config.yaml"
			}
			return writeFile(cmd.OutOrStdout(), output, config.DefaultConfigContent, force, "config")
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: ./config.yaml)")

	return cmd
}
