package list

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"azcost/internal/app"
)

// NewSubscriptionsCmd creates the subscriptions command
func NewSubscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List Azure subscriptions",
		Long: `List the Azure subscriptions available to the signed-in az CLI user.
The default subscription is marked with *.`,
		Example: `  # List subscriptions
  azcost list subscriptions

  # Query costs of one of them
  azcost costs --subscription 00000000-0000-0000-0000-000000000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubscriptions(cmd)
		},
	}
	return cmd
}

func runSubscriptions(cmd *cobra.Command) error {
	a := app.ForCommand(cmd)

	accounts, err := a.Azure.ListSubscriptions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Fprintln(a.Stdout, "No subscriptions found")
		return nil
	}

	fmt.Fprintln(a.Stdout, "Available subscriptions:")
	for _, account := range accounts {
		marker := " "
		if account.IsDefault {
			marker = color.GreenString("*")
		}
		fmt.Fprintf(a.Stdout, "%s %s - %s\n", marker, account.ID, account.Name)
	}
	return nil
}
