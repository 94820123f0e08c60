package cmd

import (
	"github.com/spf13/cobra"

	"azcost/cmd/analyze"
	"azcost/cmd/costs"
	initCmd "azcost/cmd/init"
	"azcost/cmd/list"
	"azcost/cmd/portal"
	"azcost/cmd/report"
	"azcost/cmd/shell"
	"azcost/cmd/summary"
	"azcost/cmd/version"
	"azcost/internal/config"
	"azcost/internal/logging"
	"azcost/internal/output"
)

// skipConfig reports whether cmd runs without loading configuration
func skipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", "init":
			return true
		}
	}
	return false
}

// setup resolves the configuration from .env, config file, environment and
// flags, then configures logging
func setup(cmd *cobra.Command, configFile string) error {
	if path := config.LoadDotEnv(config.DefaultEnvPaths()...); path != "" {
		logging.Debug("Loaded env file", map[string]interface{}{"path": path})
	}

	if err := config.InitConfig(configFile); err != nil {
		return err
	}
	if err := config.BindFlags(cmd); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Configure(logging.LogConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})
	config.LogConfigurationSources(cmd)
	return nil
}

// NewRootCmd builds the azcost command tree
func NewRootCmd() *cobra.Command {
	var configFile string
	defaults := config.Defaults()

	rootCmd := &cobra.Command{
		Use:   "azcost",
		Short: "azcost - Azure cost analysis from the command line",
		Long: `azcost reads Azure resource costs through the az CLI, groups them by
category and asks a local language model for optimization advice.

Without a subcommand it starts the interactive menu. When live cost data
cannot be loaded a demo dataset is used and clearly marked as such.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipConfig(cmd) {
				return nil
			}
			return setup(cmd, configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return shell.Start(cmd, output.DefaultCostLimit)
		},
	}

	// Add global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./config.yaml or ~/.azcost/config.yaml)")
	flags.String("log-level", defaults.LogLevel, "Set logging level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-format", defaults.LogFormat, "Log output format (text or json)")
	flags.StringP("subscription", "s", "", "Azure subscription ID (default: az CLI default subscription)")
	flags.StringP("range", "r", defaults.Range, "Time range: this-month, last-month, last-7-days, last-30-days, year-to-date or YYYY-MM-DD..YYYY-MM-DD")
	flags.Duration("timeout", defaults.Timeout, "Timeout for each az CLI call")
	flags.Bool("demo", false, "Use the demo dataset instead of querying Azure")
	flags.Duration("cache-ttl", defaults.CacheTTL, "Reuse live cost data fetched within this duration (0 disables)")

	// Add commands
	rootCmd.AddCommand(costs.NewCostsCmd())
	rootCmd.AddCommand(summary.NewSummaryCmd())
	rootCmd.AddCommand(analyze.NewAnalyzeCmd())
	rootCmd.AddCommand(portal.NewPortalCmd())
	rootCmd.AddCommand(shell.NewShellCmd())
	rootCmd.AddCommand(report.NewReportCmd())
	rootCmd.AddCommand(list.NewListCmd())
	rootCmd.AddCommand(initCmd.NewInitCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and runs it
func Execute() error {
	return NewRootCmd().Execute()
}
