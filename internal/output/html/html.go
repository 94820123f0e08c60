package html

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"azcost/internal/azure"
	"azcost/internal/costs"
	"azcost/internal/logging"
)

//go:embed assets/* templates/*
var content embed.FS

// TemplateData represents the data structure passed to the HTML template
type TemplateData struct {
	Title       string
	Period      string
	Source      string
	Demo        bool
	Reason      string
	GeneratedAt string
	Currency    string
	Total       float64
	Skipped     int
	Categories  []costs.CategoryTotal
	Resources   []Resource
	Analysis    string
	Styles      template.CSS
}

// Options carries report content that does not come from the snapshot
type Options struct {
	// PortalHost is used for resource links; empty means portal.azure.com
	PortalHost string
	// Analysis is the model's answer, rendered when not empty
	Analysis string
}

// Resource represents a single ranked row of the report
type Resource struct {
	Rank      int
	Name      string
	Type      string
	Category  string
	Amount    float64
	Share     float64
	ID        string
	PortalURL string
}

// Render writes the HTML cost report for snapshot to buf
func Render(buf *bytes.Buffer, snapshot *costs.Snapshot, summary costs.CategorySummary, opts Options) error {
	tmpl, err := template.New("cost_report.html").Funcs(template.FuncMap{
		"money": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v)
		},
	}).ParseFS(content, "templates/cost_report.html")
	if err != nil {
		return fmt.Errorf("error parsing template: %w", err)
	}

	styles, err := content.ReadFile("assets/styles.css")
	if err != nil {
		return fmt.Errorf("error reading styles: %w", err)
	}

	data := processSnapshot(snapshot, summary, opts.PortalHost)
	data.Analysis = opts.Analysis
	data.Styles = template.CSS(styles)

	if err := tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}
	return nil
}

// WriteHTML writes the cost report to outputPath
func WriteHTML(snapshot *costs.Snapshot, summary costs.CategorySummary, opts Options, outputPath string) error {
	var buf bytes.Buffer
	if err := Render(&buf, snapshot, summary, opts); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	logging.Info("HTML report written", map[string]interface{}{"path": outputPath})
	return nil
}

func processSnapshot(snapshot *costs.Snapshot, summary costs.CategorySummary, portalHost string) TemplateData {
	total := summary.GrandTotal
	resources := make([]Resource, 0, len(snapshot.Records))
	for i, r := range snapshot.Records {
		share := 0.0
		if total > 0 {
			share = r.Amount / total * 100
		}
		link, _ := azure.PortalURL(portalHost, r.ResourceID)
		resources = append(resources, Resource{
			Rank:      i + 1,
			Name:      r.ResourceName,
			Type:      r.ResourceType,
			Category:  r.Category,
			Amount:    r.Amount,
			Share:     share,
			ID:        r.ResourceID,
			PortalURL: link,
		})
	}

	logging.Debug("Prepared HTML report data", map[string]interface{}{
		"resources":  len(resources),
		"categories": len(summary.Totals),
	})

	return TemplateData{
		Title:       "Azure Cost Report",
		Period:      snapshot.Range.String(),
		Source:      string(snapshot.Source),
		Demo:        snapshot.IsDemo(),
		Reason:      snapshot.FallbackReason,
		GeneratedAt: snapshot.RetrievedAt.Format(time.RFC1123),
		Currency:    snapshot.Currency,
		Total:       total,
		Skipped:     snapshot.SkippedCount,
		Categories:  summary.Sorted(),
		Resources:   resources,
	}
}
