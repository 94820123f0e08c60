package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"azcost/internal/costs"
)

// DefaultCostLimit is the default --top value
const DefaultCostLimit = 20

// FormatAmount renders an amount with two decimals and the currency code
func FormatAmount(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// Banner describes where the snapshot came from
func Banner(snapshot *costs.Snapshot) string {
	if snapshot.IsDemo() {
		msg := "DEMO DATA: live Azure costs could not be loaded"
		if snapshot.FallbackReason != "" {
			msg += "\n" + snapshot.FallbackReason
		}
		return bannerStyle.Render(msg)
	}
	return mutedStyle.Render(fmt.Sprintf("Live Azure costs for %s", snapshot.Range))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

// RenderCosts renders the ranked resource table. Records are expected in
// ranked order; at most limit rows are shown, and a limit of 0 shows all.
func RenderCosts(snapshot *costs.Snapshot, limit int) string {
	var b strings.Builder
	b.WriteString(Banner(snapshot))
	b.WriteString("\n")

	if len(snapshot.Records) == 0 {
		b.WriteString("No cost records.\n")
		return b.String()
	}

	shown := snapshot.Records
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	t := newTable("#", "Cost", "Resource", "Type", "Category").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return amountStyle
			default:
				return cellStyle
			}
		})
	for i, r := range shown {
		t.Row(strconv.Itoa(i+1), FormatAmount(r.Amount, r.Currency), r.ResourceName, r.ResourceType, r.Category)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if rest := len(snapshot.Records) - len(shown); rest > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("... and %d more resources", rest)))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("Total: " + FormatAmount(snapshot.Total(), snapshot.Currency)))
	b.WriteString("\n")
	if snapshot.SkippedCount > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d rows skipped", snapshot.SkippedCount)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary renders per-category totals, largest first
func RenderSummary(summary costs.CategorySummary, currency string) string {
	rows := summary.Sorted()
	if len(rows) == 0 {
		return "No cost records.\n"
	}

	t := newTable("Category", "Total", "Share", "Resources", "Average").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return cellStyle.Align(lipgloss.Right)
			}
		})
	for _, r := range rows {
		t.Row(
			r.Category,
			FormatAmount(r.Total, currency),
			fmt.Sprintf("%.1f%%", r.Share),
			strconv.Itoa(r.Count),
			FormatAmount(r.Average, currency),
		)
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Total: " + FormatAmount(summary.GrandTotal, currency)))
	b.WriteString("\n")
	return b.String()
}
