package list

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"azcost/internal/costs"
)

// now is replaced in tests
var now = time.Now

// NewRangesCmd creates the ranges command
func NewRangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "List the named time ranges",
		Long: `List the time ranges accepted by --range with the dates they resolve to
today. A custom range can be given as YYYY-MM-DD..YYYY-MM-DD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			today := now()
			for _, name := range costs.RangeNames {
				tr, err := costs.ParseTimeRange(name, today)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-14s %s (%d days)\n", name, tr, tr.Days())
			}
			fmt.Fprintln(out, "  custom         YYYY-MM-DD..YYYY-MM-DD")
			return nil
		},
	}
	return cmd
}
