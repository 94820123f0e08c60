package summary

import (
	"fmt"

	"github.com/spf13/cobra"

	costscmd "azcost/cmd/costs"
	"azcost/internal/app"
	"azcost/internal/costs"
	"azcost/internal/output"
)

// NewSummaryCmd creates the summary command
func NewSummaryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show costs grouped by category",
		Long: `Show total cost, share, resource count and average cost per category
(Compute, Storage, Networking, Database and so on), largest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := costscmd.ValidateFormat(format); err != nil {
				return err
			}
			return runSummary(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

type summaryOutput struct {
	Source     costs.Source          `json:"source"`
	Range      costs.TimeRange       `json:"range"`
	Currency   string                `json:"currency"`
	GrandTotal float64               `json:"grand_total"`
	Skipped    int                   `json:"skipped"`
	Categories []costs.CategoryTotal `json:"categories"`
}

func runSummary(cmd *cobra.Command, format string) error {
	a := app.ForCommand(cmd)

	snapshot, err := a.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	summary := costs.Summarize(snapshot)

	if format == "json" {
		return costscmd.WriteJSON(a.Stdout, summaryOutput{
			Source:     snapshot.Source,
			Range:      snapshot.Range,
			Currency:   snapshot.Currency,
			GrandTotal: summary.GrandTotal,
			Skipped:    summary.Skipped,
			Categories: summary.Sorted(),
		})
	}

	if _, err := fmt.Fprintln(a.Stdout, output.Banner(snapshot)); err != nil {
		return err
	}
	_, err = fmt.Fprint(a.Stdout, output.RenderSummary(summary, snapshot.Currency))
	return err
}
