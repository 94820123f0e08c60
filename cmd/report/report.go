package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"azcost/internal/app"
	"azcost/internal/azure"
	"azcost/internal/config"
	"azcost/internal/costs"
	"azcost/internal/llm"
	"azcost/internal/logging"
	"azcost/internal/output"
	"azcost/internal/output/html"
	"azcost/internal/worker"
)

type reportOptions struct {
	output        string // filesystem or s3
	outputFormat  string // json or html
	outputDir     string
	bucket        string
	bucketRegion  string
	role          string
	analyze       bool
	subscriptions string // comma separated IDs or "all"
}

// writerOptions are passed to every report writer; tests use them to stub S3
var writerOptions []output.WriterOption

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a cost report to disk or S3",
		Long: `Write the cost snapshot and category summary as a compressed JSON report,
or as an HTML page, for archiving and sharing.

JSON reports are stored as <dir>/YYYY/MM/DD/<subscription>/HH-MM-SS-ZONE.json.gz
on the filesystem, or under the same key in an S3 bucket.`,
		Example: `  # JSON report in ./output
  azcost report

  # HTML report
  azcost report --output-format html --output-dir reports

  # Upload to S3, including the AI analysis
  azcost report --output s3 --bucket my-bucket --bucket-region eu-west-1 --analyze

  # One report per subscription, fetched concurrently
  azcost report --subscriptions all --max-workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate(opts); err != nil {
				return err
			}
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "filesystem", "Output type (filesystem, s3)")
	cmd.Flags().StringVarP(&opts.outputFormat, "output-format", "o", "json", "Output format (json, html)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "output", "Directory for filesystem output")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "S3 bucket name (required when --output=s3)")
	cmd.Flags().StringVar(&opts.bucketRegion, "bucket-region", "", "S3 bucket region (required when --output=s3)")
	cmd.Flags().StringVar(&opts.role, "role", "", "IAM role to assume for the S3 upload")
	cmd.Flags().BoolVar(&opts.analyze, "analyze", false, "Include the AI analysis in the report")
	cmd.Flags().StringVar(&opts.subscriptions, "subscriptions", "", "Write one report per subscription: comma separated IDs or 'all'")
	cmd.Flags().Int("max-workers", config.Defaults().MaxWorkers, "Subscriptions fetched concurrently")

	return cmd
}

func validate(opts *reportOptions) error {
	switch opts.outputFormat {
	case "json", "html":
	default:
		return fmt.Errorf("invalid output format: %s", opts.outputFormat)
	}

	outputType, err := output.ParseType(opts.output)
	if err != nil {
		return fmt.Errorf("invalid output type: %s", opts.output)
	}

	if outputType == output.S3 {
		if opts.outputFormat == "html" {
			return fmt.Errorf("html reports can only be written to the filesystem")
		}
		if opts.bucket == "" {
			return fmt.Errorf("--bucket is required when --output=s3")
		}
		if opts.bucketRegion == "" {
			return fmt.Errorf("--bucket-region is required when --output=s3")
		}
	}
	return nil
}

// Report is the document written by the report command
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Snapshot    *costs.Snapshot       `json:"snapshot"`
	Total       float64               `json:"total"`
	Categories  []costs.CategoryTotal `json:"categories"`
	Analysis    string                `json:"analysis,omitempty"`
}

// reportName is the per-subscription folder of the report
func reportName(a *app.App, snapshot *costs.Snapshot) string {
	switch {
	case snapshot.IsDemo() && a.Config.Subscription != "":
		return a.Config.Subscription + "-demo"
	case snapshot.IsDemo():
		return "demo"
	case a.Config.Subscription != "":
		return a.Config.Subscription
	default:
		return "default"
	}
}

func runReport(cmd *cobra.Command, opts *reportOptions) error {
	a := app.ForCommand(cmd)
	ctx := cmd.Context()

	if opts.subscriptions == "" {
		msg, err := writeReport(ctx, a, opts, filepath.Join(opts.outputDir, "cost_report.html"))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Stdout, msg)
		return nil
	}

	ids, err := resolveSubscriptions(ctx, a, opts.subscriptions)
	if err != nil {
		return err
	}
	return writeReports(ctx, a, opts, ids)
}

// resolveSubscriptions expands "all" through az account list and
// deduplicates an explicit list
func resolveSubscriptions(ctx context.Context, a *app.App, spec string) ([]string, error) {
	if strings.EqualFold(strings.TrimSpace(spec), "all") {
		accounts, err := a.Azure.ListSubscriptions(ctx)
		if err != nil {
			return nil, err
		}
		enabled := lo.Filter(accounts, func(acc azure.Account, _ int) bool {
			return acc.State == "" || strings.EqualFold(acc.State, "Enabled")
		})
		if len(enabled) == 0 {
			return nil, fmt.Errorf("no enabled subscriptions found")
		}
		return lo.Map(enabled, func(acc azure.Account, _ int) string { return acc.ID }), nil
	}

	ids := lo.Uniq(lo.Compact(lo.Map(strings.Split(spec, ","), func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
	if len(ids) == 0 {
		return nil, fmt.Errorf("--subscriptions needs at least one subscription ID")
	}
	return ids, nil
}

// writeReports writes one report per subscription on a worker pool
func writeReports(ctx context.Context, a *app.App, opts *reportOptions, ids []string) error {
	pool, err := worker.NewPool(ctx, a.Config.MaxWorkers, 0)
	if err != nil {
		return err
	}
	defer pool.Stop()

	messages := make([]string, len(ids))
	tasks := lo.Map(ids, func(id string, i int) worker.Task {
		return func(ctx context.Context) error {
			htmlPath := filepath.Join(opts.outputDir, id, "cost_report.html")
			msg, err := writeReport(ctx, a.ForSubscription(id), opts, htmlPath)
			messages[i] = msg
			return err
		}
	})

	if a.Spinner {
		spinner := output.StartSpinner(a.Stderr, fmt.Sprintf("Fetching costs for %d subscriptions...", len(ids)))
		defer spinner.Stop()
	}
	errs := pool.ExecuteTasks(tasks)

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			logging.Error("Subscription report failed", err, map[string]interface{}{"subscription": ids[i]})
			fmt.Fprintf(a.Stdout, "%s: failed: %v\n", ids[i], err)
			continue
		}
		fmt.Fprintf(a.Stdout, "%s: %s\n", ids[i], messages[i])
	}

	m := pool.GetMetrics()
	logging.Debug("Subscription reports finished", map[string]interface{}{
		"completed":   m.CompletedTasks,
		"failed":      m.FailedTasks,
		"peakWorkers": m.PeakWorkers,
		"averageMs":   m.AverageExecutionMs,
	})

	if failed > 0 {
		return fmt.Errorf("%d of %d subscription reports failed", failed, len(ids))
	}
	return nil
}

// writeReport fetches one snapshot and writes it, returning the line that
// tells the user where the report went
func writeReport(ctx context.Context, a *app.App, opts *reportOptions, htmlPath string) (string, error) {
	snapshot, err := a.Fetch(ctx)
	if err != nil {
		return "", err
	}
	summary := costs.Summarize(snapshot)

	var analysis string
	if opts.analyze {
		analysis, err = a.Analyze(ctx, snapshot)
		switch {
		case err == nil:
		case errors.Is(err, llm.ErrInferenceUnavailable):
			logging.Warn("Report written without AI analysis", map[string]interface{}{"reason": err.Error()})
		default:
			return "", err
		}
	}

	if opts.outputFormat == "html" {
		htmlOpts := html.Options{PortalHost: a.PortalHost(), Analysis: analysis}
		if err := html.WriteHTML(snapshot, summary, htmlOpts, htmlPath); err != nil {
			return "", err
		}
		return "HTML report written to " + htmlPath, nil
	}

	report := Report{
		GeneratedAt: a.Now(),
		Snapshot:    snapshot,
		Total:       summary.GrandTotal,
		Categories:  summary.Sorted(),
		Analysis:    analysis,
	}

	outputType, _ := output.ParseType(opts.output)
	writer := output.NewWriter(output.Config{
		Type:      outputType,
		OutputDir: opts.outputDir,
		S3Bucket:  opts.bucket,
		S3Region:  opts.bucketRegion,
		Role:      opts.role,
	}, append([]output.WriterOption{output.WithClock(a.Now)}, writerOptions...)...)

	dest, err := writer.Write(reportName(a, snapshot), report)
	if err != nil {
		return "", err
	}

	if outputType == output.S3 {
		return fmt.Sprintf("Report uploaded to s3://%s/%s", opts.bucket, dest), nil
	}
	return "Report written to " + dest, nil
}
