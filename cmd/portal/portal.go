package portal

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"azcost/internal/app"
	"azcost/internal/azure"
	"azcost/internal/cli"
	"azcost/internal/costs"
)

// NewPortalCmd creates the portal command
func NewPortalCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "portal <rank>",
		Short: "Open a resource in the Azure portal",
		Long: `Open the resource at the given rank of the costs list (1 is the most
expensive) in the Azure portal of the active cloud.`,
		Example: `  # Open the most expensive resource
  azcost portal 1

  # Only print the link
  azcost portal 3 --print`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rank %q: must be a number", args[0])
			}
			return runPortal(cmd, rank, printOnly)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the portal URL instead of opening a browser")
	return cmd
}

// URLForRank returns the portal link of the record at the 1-based rank
func URLForRank(snapshot *costs.Snapshot, rank int, host string) (costs.CostRecord, string, error) {
	if rank < 1 || rank > len(snapshot.Records) {
		return costs.CostRecord{}, "", fmt.Errorf("%w: rank %d out of range 1..%d", costs.ErrInvalidInput, rank, len(snapshot.Records))
	}
	record := snapshot.Records[rank-1]
	url, ok := azure.PortalURL(host, record.ResourceID)
	if !ok {
		return record, "", fmt.Errorf("%w: %s has no valid resource ID", costs.ErrInvalidInput, record.ResourceName)
	}
	return record, url, nil
}

// OpenCommand returns the command that opens url in the default browser
func OpenCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// Open launches the browser through runner
func Open(ctx context.Context, runner cli.Runner, url string) error {
	name, args := OpenCommand(runtime.GOOS, url)
	if _, err := runner.Run(ctx, nil, name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func runPortal(cmd *cobra.Command, rank int, printOnly bool) error {
	a := app.ForCommand(cmd)

	snapshot, err := a.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	record, url, err := URLForRank(snapshot, rank, a.PortalHost())
	if err != nil {
		return err
	}

	if printOnly {
		fmt.Fprintln(a.Stdout, url)
		return nil
	}

	fmt.Fprintf(a.Stdout, "Opening %s in the Azure portal\n%s\n", record.ResourceName, url)
	if err := Open(cmd.Context(), a.Runner, url); err != nil {
		fmt.Fprintf(a.Stdout, "Could not open a browser (%v), use the link above.\n", err)
	}
	return nil
}
