package costs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azcost/internal/azure"
	"azcost/internal/cli"
)

type fakeQuerier struct {
	result *azure.QueryResult
	err    error
	calls  []azure.QueryOptions
}

func (f *fakeQuerier) QueryCosts(ctx context.Context, opts azure.QueryOptions) (*azure.QueryResult, error) {
	f.calls = append(f.calls, opts)
	return f.result, f.err
}

var fixedNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestFetchCostsLive(t *testing.T) {
	querier := &fakeQuerier{result: decode(t, `{"columns":`+cols3+`,"rows":[
		[15.25,"`+diskID+`","USD"],
		[120.5,"`+vm1ID+`","USD"],
		[-1,"`+vm2ID+`","USD"]
	]}`)}

	snapshot, err := NewProvider(querier, WithClock(clock)).FetchCosts(context.Background(), "this-month")
	require.NoError(t, err)

	assert.Equal(t, SourceLive, snapshot.Source)
	assert.False(t, snapshot.IsDemo())
	assert.Equal(t, fixedNow, snapshot.RetrievedAt)
	assert.Equal(t, "USD", snapshot.Currency)
	assert.Equal(t, 1, snapshot.SkippedCount)
	assert.Empty(t, snapshot.FallbackReason)
	require.Len(t, snapshot.Records, 2)
	assert.Equal(t, "vm-1", snapshot.Records[0].ResourceName, "sorted by amount")
	assert.InDelta(t, 135.75, snapshot.Total(), 1e-9)

	require.Len(t, querier.calls, 1)
	assert.Equal(t, date(2026, 10, 1), querier.calls[0].From)
	assert.Equal(t, date(2026, 10, 16), querier.calls[0].To)
	assert.Equal(t, "PreTaxCost", querier.calls[0].CostColumn)
	assert.Equal(t, []string{"ResourceId", "ResourceType"}, querier.calls[0].GroupBy)
}

func TestFetchCostsFallsBackToDemo(t *testing.T) {
	tests := []struct {
		name    string
		querier CostQuerier
	}{
		{name: "no querier", querier: nil},
		{name: "cli missing", querier: &fakeQuerier{err: fmt.Errorf("%w: az", cli.ErrNotFound)}},
		{name: "not logged in", querier: &fakeQuerier{err: azure.ErrNotLoggedIn}},
		{name: "non-zero exit", querier: &fakeQuerier{err: errors.New("cost query failed: exit status 1")}},
		{name: "malformed output", querier: &fakeQuerier{err: azure.ErrMalformedOutput}},
		{name: "missing columns", querier: &fakeQuerier{result: &azure.QueryResult{Columns: []azure.Column{{Name: "Foo"}}}}},
		{name: "no rows", querier: &fakeQuerier{result: &azure.QueryResult{Columns: []azure.Column{{Name: "PreTaxCost"}, {Name: "ResourceId"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := NewProvider(tt.querier, WithClock(clock)).FetchCosts(context.Background(), "last-month")
			require.NoError(t, err)
			assert.Equal(t, SourceDemo, snapshot.Source)
			assert.True(t, snapshot.IsDemo())
			assert.NotEmpty(t, snapshot.Records)
			assert.NotEmpty(t, snapshot.FallbackReason)
			assert.Equal(t, "USD", snapshot.Currency)
			assert.Equal(t, RangeLastMonth, snapshot.Range.Name)
		})
	}
}

func TestFetchCostsInvalidRange(t *testing.T) {
	querier := &fakeQuerier{}
	snapshot, err := NewProvider(querier).FetchCosts(context.Background(), "fortnight")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, snapshot)
	assert.Empty(t, querier.calls, "no query for invalid input")
}

func TestFetchCostsForcedDemo(t *testing.T) {
	querier := &fakeQuerier{}
	snapshot, err := NewProvider(querier, WithForcedDemo(true)).FetchCosts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, snapshot.Source)
	assert.Equal(t, "demo mode requested", snapshot.FallbackReason)
	assert.Empty(t, querier.calls)
}

func TestDemoSnapshotUsesConfiguredCurrency(t *testing.T) {
	layout := DefaultLayout()
	layout.DefaultCurrency = "EUR"

	snapshot, err := NewProvider(nil, WithLayout(layout)).FetchCosts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "EUR", snapshot.Currency)
	for _, r := range snapshot.Records {
		assert.Equal(t, "EUR", r.Currency)
	}
}

func TestDemoSnapshotIsACopy(t *testing.T) {
	provider := NewProvider(nil)
	first, err := provider.FetchCosts(context.Background(), "")
	require.NoError(t, err)
	first.Records[0].Amount = 1e9

	second, err := provider.FetchCosts(context.Background(), "")
	require.NoError(t, err)
	assert.NotEqual(t, 1e9, second.Records[0].Amount)
}

func TestDemoRecords(t *testing.T) {
	records := DemoRecords("USD")
	require.Len(t, records, 8)
	for _, r := range records {
		assert.Positive(t, r.Amount)
		assert.NotEmpty(t, r.ResourceID)
		_, ok := azure.PortalURL("", r.ResourceID)
		assert.True(t, ok, "demo ids must produce portal links")
	}
	assert.Equal(t, "mywebapp", records[0].ResourceName)
	assert.Equal(t, "Web Apps", records[0].Category)
}

func TestEndToEndDemoScenario(t *testing.T) {
	demo := []CostRecord{
		{ResourceName: "vm-1", Category: "Compute", Amount: 120.50},
		{ResourceName: "disk-1", Category: "Storage", Amount: 15.25},
		{ResourceName: "vm-2", Category: "Compute", Amount: 80.00},
	}
	querier := &fakeQuerier{err: fmt.Errorf("%w: az", cli.ErrNotFound)}

	snapshot, err := NewProvider(querier, WithDemoRecords(demo)).FetchCosts(context.Background(), "this-month")
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, snapshot.Source)

	summary := Summarize(snapshot)
	assert.Equal(t, map[string]float64{"Compute": 200.50, "Storage": 15.25}, summary.Totals)
	assert.Equal(t, 215.75, summary.GrandTotal)
}
