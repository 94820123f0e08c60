package costs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"azcost/internal/azure"
	"azcost/internal/logging"
)

// ErrMissingColumn is returned when a required column is absent from the query result
var ErrMissingColumn = errors.New("missing required column")

// Layout names the query result columns that feed a CostRecord. Only the
// cost and resource ID columns are required.
type Layout struct {
	CostColumns        []string
	ResourceIDColumn   string
	ResourceTypeColumn string
	CurrencyColumn     string
	// DefaultCurrency applies when there is no currency column or it is empty
	DefaultCurrency string
}

// DefaultLayout matches `az costmanagement query` grouped by ResourceId
func DefaultLayout() Layout {
	return Layout{
		CostColumns:        []string{"PreTaxCost", "Cost"},
		ResourceIDColumn:   "ResourceId",
		ResourceTypeColumn: "ResourceType",
		CurrencyColumn:     "Currency",
		DefaultCurrency:    "USD",
	}
}

// SplitColumns parses a comma-separated column list
func SplitColumns(list string) []string {
	var cols []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// GroupBy returns the dimensions the cost query must group on
func (l Layout) GroupBy() []string {
	dims := []string{l.ResourceIDColumn}
	if l.ResourceTypeColumn != "" {
		dims = append(dims, l.ResourceTypeColumn)
	}
	return dims
}

// CostColumn returns the column aggregated by the query
func (l Layout) CostColumn() string {
	if len(l.CostColumns) == 0 {
		return "PreTaxCost"
	}
	return l.CostColumns[0]
}

// parseAmount accepts JSON numbers and numeric strings
func parseAmount(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	if s, ok := row[idx].(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(row[idx])
}

// ParseRows converts query rows into records. Rows with a negative, missing
// or non-numeric amount, or in a currency other than the first record's,
// are dropped and counted as skipped. Zero-cost rows are dropped silently.
func ParseRows(result *azure.QueryResult, layout Layout) ([]CostRecord, int, error) {
	if result == nil {
		return nil, 0, fmt.Errorf("%w: empty result", ErrMissingColumn)
	}

	costIdx := result.ColumnIndex(layout.CostColumns...)
	if costIdx < 0 {
		return nil, 0, fmt.Errorf("%w: cost (%s)", ErrMissingColumn, strings.Join(layout.CostColumns, ","))
	}
	idIdx := result.ColumnIndex(layout.ResourceIDColumn)
	if idIdx < 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, layout.ResourceIDColumn)
	}
	typeIdx := result.ColumnIndex(layout.ResourceTypeColumn)
	currencyIdx := result.ColumnIndex(layout.CurrencyColumn)

	var (
		records  []CostRecord
		skipped  int
		currency string
	)

	for i, row := range result.Rows {
		if costIdx >= len(row) {
			skipped++
			continue
		}
		amount, ok := parseAmount(row[costIdx])
		if !ok || amount < 0 {
			logging.Debug("Skipping cost row", map[string]interface{}{
				"row":    i,
				"amount": row[costIdx],
			})
			skipped++
			continue
		}
		if amount == 0 {
			continue
		}

		rowCurrency := strings.ToUpper(cell(row, currencyIdx))
		if rowCurrency == "" {
			rowCurrency = layout.DefaultCurrency
		}
		if currency == "" {
			currency = rowCurrency
		} else if rowCurrency != currency {
			logging.Warn("Skipping cost row in a different currency", map[string]interface{}{
				"row":      i,
				"currency": rowCurrency,
				"expected": currency,
			})
			skipped++
			continue
		}

		records = append(records, newRecord(cell(row, idIdx), cell(row, typeIdx), amount, rowCurrency))
	}

	return records, skipped, nil
}

// newRecord derives name, type and category from the resource ID, falling
// back to the resource type column for IDs that do not parse
func newRecord(id, resourceType string, amount float64, currency string) CostRecord {
	if id == "" {
		id = "Unknown"
	}

	record := CostRecord{
		ResourceName: azure.DisplayName(id),
		ResourceType: resourceType,
		Amount:       amount,
		Currency:     currency,
		ResourceID:   id,
	}

	if r, ok := azure.ParseResourceID(id); ok {
		record.ResourceName = r.Name
		if record.ResourceType == "" {
			record.ResourceType = r.FullType()
		}
		record.Category = azure.CategoryForType(r.FullType())
		return record
	}

	record.Category = azure.CategoryForType(resourceType)
	if record.ResourceType == "" {
		record.ResourceType = "Unknown"
	}
	return record
}
