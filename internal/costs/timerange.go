package costs

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Named time ranges accepted by ParseTimeRange
const (
	RangeThisMonth   = "this-month"
	RangeLastMonth   = "last-month"
	RangeLast7Days   = "last-7-days"
	RangeLast30Days  = "last-30-days"
	RangeYearToDate  = "year-to-date"
	rangeMonthToDate = "month-to-date"
)

// RangeNames lists the named ranges in help order
var RangeNames = []string{RangeThisMonth, RangeLastMonth, RangeLast7Days, RangeLast30Days, RangeYearToDate}

// TimeRange is an inclusive pair of billing dates
type TimeRange struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders the range as "YYYY-MM-DD to YYYY-MM-DD"
func (r TimeRange) String() string {
	return r.Start.Format(dateLayout) + " to " + r.End.Format(dateLayout)
}

// Days returns the number of days covered, inclusive
func (r TimeRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseTimeRange resolves a range spec against now. Accepted specs are the
// named ranges and an explicit YYYY-MM-DD..YYYY-MM-DD pair. An empty spec
// means this-month.
func ParseTimeRange(spec string, now time.Time) (TimeRange, error) {
	today := day(now)
	name := strings.ToLower(strings.TrimSpace(spec))

	switch name {
	case "", RangeThisMonth, rangeMonthToDate:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return TimeRange{Name: RangeThisMonth, Start: start, End: today}, nil
	case RangeLastMonth:
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		start := firstOfMonth.AddDate(0, -1, 0)
		return TimeRange{Name: RangeLastMonth, Start: start, End: firstOfMonth.AddDate(0, 0, -1)}, nil
	case RangeLast7Days:
		return TimeRange{Name: RangeLast7Days, Start: today.AddDate(0, 0, -6), End: today}, nil
	case RangeLast30Days:
		return TimeRange{Name: RangeLast30Days, Start: today.AddDate(0, 0, -29), End: today}, nil
	case RangeYearToDate:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return TimeRange{Name: RangeYearToDate, Start: start, End: today}, nil
	}

	from, to, ok := strings.Cut(name, "..")
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: unknown time range %q (use %s or YYYY-MM-DD..YYYY-MM-DD)",
			ErrInvalidInput, spec, strings.Join(RangeNames, ", "))
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: invalid start date %q", ErrInvalidInput, from)
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: invalid end date %q", ErrInvalidInput, to)
	}
	if end.Before(start) {
		return TimeRange{}, fmt.Errorf("%w: range end %s is before start %s",
			ErrInvalidInput, end.Format(dateLayout), start.Format(dateLayout))
	}

	return TimeRange{Name: "custom", Start: start, End: end}, nil
}
