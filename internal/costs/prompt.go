package costs

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

const (
	defaultTopN      = 5
	defaultNameWidth = 40
	maxTopN          = 20
	maxNameWidth     = 80
	maxCurrencyWidth = 8
)

// PromptOptions bounds the content of the analysis prompt
type PromptOptions struct {
	// TopCategories is the number of category lines, capped at 20
	TopCategories int
	// TopResources is the number of resource lines, capped at 20
	TopResources int
	// NameWidth truncates category and resource names, in runes
	NameWidth int
}

// DefaultPromptOptions returns the top five categories and resources
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		TopCategories: defaultTopN,
		TopResources:  defaultTopN,
		NameWidth:     defaultNameWidth,
	}
}

func clamp(v, fallback, limit int) int {
	if v <= 0 {
		return fallback
	}
	if v > limit {
		return limit
	}
	return v
}

func (o PromptOptions) normalized() PromptOptions {
	return PromptOptions{
		TopCategories: clamp(o.TopCategories, defaultTopN, maxTopN),
		TopResources:  clamp(o.TopResources, defaultTopN, maxTopN),
		NameWidth:     clamp(o.NameWidth, defaultNameWidth, maxNameWidth),
	}
}

// truncate shortens s to width runes and replaces control characters so a
// name cannot add lines to the prompt
func truncate(s string, width int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, strings.TrimSpace(s))

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// formatAmount renders two decimals, switching to exponent form for values
// too large to print compactly
func formatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	if math.Abs(v) >= 1e12 {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// BuildAnalysisPrompt renders the cost summary sent to the language model.
// Its length is bounded by opts regardless of how many records or
// categories the snapshot holds.
func BuildAnalysisPrompt(snapshot *Snapshot, summary CategorySummary, opts PromptOptions) string {
	opts = opts.normalized()

	currency := "USD"
	period := "the current month"
	var records []CostRecord
	if snapshot != nil {
		if snapshot.Currency != "" {
			currency = truncate(snapshot.Currency, maxCurrencyWidth)
		}
		if !snapshot.Range.Start.IsZero() {
			period = snapshot.Range.String()
		}
		records = lo.Filter(snapshot.Records, func(r CostRecord, _ int) bool {
			return validAmount(r)
		})
	}

	var b strings.Builder
	b.WriteString("You are an Azure cloud cost optimization expert.\n")
	fmt.Fprintf(&b, "Analyze these resources and their costs for %s:\n\n", period)
	fmt.Fprintf(&b, "Total Cost: %s %s\n", formatAmount(summary.GrandTotal), currency)

	categories := summary.Sorted()
	if len(categories) > opts.TopCategories {
		categories = categories[:opts.TopCategories]
	}
	b.WriteString("Top Categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s %s (%.1f%%, %d resources)\n",
			truncate(c.Category, opts.NameWidth), formatAmount(c.Total), currency, c.Share, c.Count)
	}

	top := append([]CostRecord(nil), records...)
	SortByAmount(top)
	if len(top) > opts.TopResources {
		top = top[:opts.TopResources]
	}
	b.WriteString("Top Resources:\n")
	for _, r := range top {
		fmt.Fprintf(&b, "- %s %s (%.1f%%) - %s [%s]\n",
			formatAmount(r.Amount), currency, percent(r.Amount, summary.GrandTotal),
			truncate(r.ResourceName, opts.NameWidth), truncate(r.Category, opts.NameWidth))
	}

	b.WriteString(`
Provide specific recommendations for:
1. Which resources are unusually expensive
2. Potential cost savings opportunities
3. Resources that might be candidates for shutdown or resizing

Be concise and actionable.`)

	return b.String()
}
