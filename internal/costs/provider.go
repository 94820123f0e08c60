package costs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"azcost/internal/azure"
	"azcost/internal/logging"
)

// CostQuerier runs the live cost query; *azure.Client implements it
type CostQuerier interface {
	QueryCosts(ctx context.Context, opts azure.QueryOptions) (*azure.QueryResult, error)
}

// Provider produces cost snapshots, preferring live data and degrading to
// the demo dataset when the live query fails
type Provider struct {
	querier   CostQuerier
	layout    Layout
	demo      []CostRecord
	forceDemo bool
	now       func() time.Time
}

// ProviderOption configures a Provider
type ProviderOption func(*Provider)

// WithLayout sets the column layout of the query output
func WithLayout(layout Layout) ProviderOption {
	return func(p *Provider) {
		p.layout = layout
	}
}

// WithDemoRecords replaces the built-in demo dataset
func WithDemoRecords(records []CostRecord) ProviderOption {
	return func(p *Provider) {
		p.demo = records
	}
}

// WithForcedDemo skips the live query entirely
func WithForcedDemo(force bool) ProviderOption {
	return func(p *Provider) {
		p.forceDemo = force
	}
}

// WithClock sets the time source used to resolve ranges and stamp snapshots
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// NewProvider creates a Provider. A nil querier always yields demo data.
func NewProvider(querier CostQuerier, opts ...ProviderOption) *Provider {
	p := &Provider{
		querier: querier,
		layout:  DefaultLayout(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.demo == nil {
		p.demo = DemoRecords(p.layout.DefaultCurrency)
	}
	return p
}

// FetchCosts returns a snapshot for the given range spec. Only an invalid
// range is reported as an error; live query failures produce a DEMO snapshot.
func (p *Provider) FetchCosts(ctx context.Context, rangeSpec string) (*Snapshot, error) {
	tr, err := ParseTimeRange(rangeSpec, p.now())
	if err != nil {
		return nil, err
	}

	logging.FetchStart(tr.String(), "")

	if p.forceDemo {
		snapshot := p.demoSnapshot(tr, "demo mode requested")
		logging.FetchComplete(string(snapshot.Source), len(snapshot.Records), 0)
		return snapshot, nil
	}

	snapshot, err := p.fetchLive(ctx, tr)
	if err != nil {
		logging.DemoFallback(err)
		snapshot = p.demoSnapshot(tr, err.Error())
	}

	logging.FetchComplete(string(snapshot.Source), len(snapshot.Records), snapshot.SkippedCount)
	return snapshot, nil
}

func (p *Provider) fetchLive(ctx context.Context, tr TimeRange) (*Snapshot, error) {
	if p.querier == nil {
		return nil, fmt.Errorf("%w: no cost source configured", ErrCollaboratorUnavailable)
	}

	result, err := p.querier.QueryCosts(ctx, azure.QueryOptions{
		From:       tr.Start,
		To:         tr.End,
		CostColumn: p.layout.CostColumn(),
		GroupBy:    p.layout.GroupBy(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}

	records, skipped, err := ParseRows(result, p.layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no cost data found for %s (%d rows skipped)", ErrCollaboratorUnavailable, tr, skipped)
	}

	SortByAmount(records)
	return &Snapshot{
		Records:      records,
		Source:       SourceLive,
		RetrievedAt:  p.now(),
		Currency:     records[0].Currency,
		Range:        tr,
		SkippedCount: skipped,
	}, nil
}

func (p *Provider) demoSnapshot(tr TimeRange, reason string) *Snapshot {
	records := make([]CostRecord, len(p.demo))
	copy(records, p.demo)

	currency := p.layout.DefaultCurrency
	for i := range records {
		if records[i].Currency == "" {
			records[i].Currency = currency
		}
	}
	if len(records) > 0 {
		currency = records[0].Currency
	}

	SortByAmount(records)
	return &Snapshot{
		Records:        records,
		Source:         SourceDemo,
		RetrievedAt:    p.now(),
		Currency:       currency,
		Range:          tr,
		FallbackReason: reason,
	}
}

// SortByAmount orders records by amount, highest first, then by name
func SortByAmount(records []CostRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Amount != records[j].Amount {
			return records[i].Amount > records[j].Amount
		}
		return records[i].ResourceName < records[j].ResourceName
	})
}
