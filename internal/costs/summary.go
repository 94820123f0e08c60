package costs

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// CategorySummary aggregates a snapshot by category. It is derived on demand
// and never stored.
type CategorySummary struct {
	Totals     map[string]float64 `json:"totals"`
	Counts     map[string]int     `json:"counts"`
	GrandTotal float64            `json:"grand_total"`
	// Skipped counts records excluded for a negative or non-finite amount
	Skipped int `json:"skipped"`
}

// CategoryTotal is one row of a sorted summary
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Share    float64 `json:"share"`
}

func validAmount(r CostRecord) bool {
	return r.Amount >= 0 && !math.IsInf(r.Amount, 0)
}

// sum adds amounts in ascending order so the result does not depend on the
// order records arrived in
func sum(amounts []float64) float64 {
	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)
	var total float64
	for _, a := range sorted {
		total += a
	}
	return total
}

func amountOf(r CostRecord, _ int) float64 {
	return r.Amount
}

// Summarize groups record amounts by category. Equal multisets of records
// always produce equal summaries.
func Summarize(snapshot *Snapshot) CategorySummary {
	summary := CategorySummary{
		Totals: map[string]float64{},
		Counts: map[string]int{},
	}
	if snapshot == nil {
		return summary
	}

	valid := lo.Filter(snapshot.Records, func(r CostRecord, _ int) bool {
		return validAmount(r)
	})
	summary.Skipped = len(snapshot.Records) - len(valid)

	groups := lo.GroupBy(valid, func(r CostRecord) string {
		if r.Category == "" {
			return "Other"
		}
		return r.Category
	})
	for category, records := range groups {
		summary.Totals[category] = sum(lo.Map(records, amountOf))
		summary.Counts[category] = len(records)
	}
	summary.GrandTotal = sum(lo.Map(valid, amountOf))

	return summary
}

// Sorted returns the categories ordered by total, highest first, then by name
func (s CategorySummary) Sorted() []CategoryTotal {
	rows := lo.Map(lo.Keys(s.Totals), func(category string, _ int) CategoryTotal {
		total := s.Totals[category]
		row := CategoryTotal{
			Category: category,
			Total:    total,
			Count:    s.Counts[category],
		}
		if row.Count > 0 {
			row.Average = total / float64(row.Count)
		}
		if s.GrandTotal > 0 {
			row.Share = total / s.GrandTotal * 100
		}
		return row
	})

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}
