package costs

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"azcost/internal/app"
	"azcost/internal/costs"
	"azcost/internal/output"
)

type costsOptions struct {
	top    int
	format string
}

// NewCostsCmd creates the costs command
func NewCostsCmd() *cobra.Command {
	opts := &costsOptions{}

	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Show resource costs, most expensive first",
		Long: `Show the cost of every billed resource in the selected time range.

Costs are read with the az CLI. When the az CLI is missing, not logged in, or
returns no usable data, a demo dataset is shown instead and clearly marked.`,
		Example: `  # Costs for the current month
  azcost costs

  # Top 5 resources of last month as JSON
  azcost costs --range last-month --top 5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ValidateFormat(opts.format); err != nil {
				return err
			}
			return runCosts(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.top, "top", output.DefaultCostLimit, "Number of resources to show, 0 for all")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json)")

	return cmd
}

// ValidateFormat checks a --format value
func ValidateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func runCosts(cmd *cobra.Command, opts *costsOptions) error {
	a := app.ForCommand(cmd)

	snapshot, err := a.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return WriteJSON(a.Stdout, limitRecords(snapshot, opts.top))
	}

	_, err = fmt.Fprint(a.Stdout, output.RenderCosts(snapshot, opts.top))
	return err
}

// limitRecords returns a copy of snapshot holding at most top records
func limitRecords(snapshot *costs.Snapshot, top int) *costs.Snapshot {
	if top <= 0 || len(snapshot.Records) <= top {
		return snapshot
	}
	limited := *snapshot
	limited.Records = snapshot.Records[:top]
	return &limited
}
