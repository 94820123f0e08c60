package costs

import (
	"errors"
	"time"
)

var (
	// ErrInvalidInput is returned for caller mistakes such as an unparsable time range
	ErrInvalidInput = errors.New("invalid input")

	// ErrCollaboratorUnavailable marks a failed live query. FetchCosts absorbs it
	// and answers with demo data instead.
	ErrCollaboratorUnavailable = errors.New("cost data source unavailable")
)

// Source tags the provenance of a snapshot
type Source string

const (
	SourceLive Source = "LIVE"
	SourceDemo Source = "DEMO"
)

// CostRecord is one line item of cloud spend
type CostRecord struct {
	ResourceName string  `json:"resource_name"`
	ResourceType string  `json:"resource_type"`
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	ResourceID   string  `json:"resource_id,omitempty"`
}

// Snapshot is the result of one ingestion call
type Snapshot struct {
	Records        []CostRecord `json:"records"`
	Source         Source       `json:"source"`
	RetrievedAt    time.Time    `json:"retrieved_at"`
	Currency       string       `json:"currency"`
	Range          TimeRange    `json:"range"`
	SkippedCount   int          `json:"skipped_count"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
}

// IsDemo reports whether the snapshot holds demo data
func (s *Snapshot) IsDemo() bool {
	return s != nil && s.Source == SourceDemo
}

// Total returns the sum of all record amounts
func (s *Snapshot) Total() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, r := range s.Records {
		total += r.Amount
	}
	return total
}
