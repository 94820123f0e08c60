package list

import (
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions and time ranges",
		Long: `List values accepted by the global flags.
Currently supports listing:
  - Azure subscriptions visible to the az CLI login
  - Named time ranges accepted by --range`,
	}

	cmd.AddCommand(NewSubscriptionsCmd())
	cmd.AddCommand(NewRangesCmd())

	return cmd
}
