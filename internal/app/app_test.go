package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azcost/internal/cache"
	"azcost/internal/cli"
	"azcost/internal/cli/clitest"
	"azcost/internal/config"
	"azcost/internal/costs"
	"azcost/internal/llm"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }

func newTestApp(cfg *config.GlobalConfig, runner cli.Runner) (*App, *bytes.Buffer) {
	var stdout bytes.Buffer
	a := New(cfg,
		WithRunner(runner),
		WithOutput(&stdout, &bytes.Buffer{}),
		WithClock(fixedNow),
		WithSpinner(false),
	)
	return a, &stdout
}

func TestLayout(t *testing.T) {
	cfg := config.Defaults()
	cfg.Columns.Cost = "CostUSD, PreTaxCost"
	cfg.Columns.ResourceType = ""
	cfg.Currency = "EUR"

	layout := Layout(cfg)
	assert.Equal(t, []string{"CostUSD", "PreTaxCost"}, layout.CostColumns)
	assert.Equal(t, "ResourceId", layout.ResourceIDColumn)
	assert.Empty(t, layout.ResourceTypeColumn)
	assert.Equal(t, "Currency", layout.CurrencyColumn)
	assert.Equal(t, "EUR", layout.DefaultCurrency)
}

func TestFetchLive(t *testing.T) {
	runner := clitest.Azure(clitest.CostQuery)
	a, _ := newTestApp(config.Defaults(), runner)

	snapshot, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, costs.SourceLive, snapshot.Source)
	assert.Equal(t, "EUR", snapshot.Currency)
	require.Len(t, snapshot.Records, 3)
	assert.Equal(t, "build-agent", snapshot.Records[0].ResourceName)
	assert.Equal(t, "Compute", snapshot.Records[0].Category)
	assert.InDelta(t, 260.0, snapshot.Total(), 1e-9)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	query := calls[1].String()
	assert.Contains(t, query, "from=2026-10-01T00:00:00Z")
	assert.Contains(t, query, "to=2026-10-16T23:59:59Z")
	assert.Contains(t, query, "name=ResourceType type=Dimension")
}

func TestFetchFallsBackToDemo(t *testing.T) {
	runner := &clitest.Fake{Errors: map[string]error{
		"az account show": cli.ErrNotFound,
	}}
	a, _ := newTestApp(config.Defaults(), runner)

	snapshot, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.IsDemo())
	assert.Len(t, snapshot.Records, 8)
	assert.Contains(t, snapshot.FallbackReason, "command not found")
}

func TestFetchForcedDemoSkipsAz(t *testing.T) {
	cfg := config.Defaults()
	cfg.Demo = true
	runner := &clitest.Fake{}
	a, _ := newTestApp(cfg, runner)

	snapshot, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.IsDemo())
	assert.Empty(t, runner.Calls())
}

func TestFetchInvalidRange(t *testing.T) {
	a, _ := newTestApp(config.Defaults(), &clitest.Fake{})
	_, err := a.FetchRange(context.Background(), "next-decade")
	assert.ErrorIs(t, err, costs.ErrInvalidInput)
}

func TestPromptOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.TopN = 3
	a, _ := newTestApp(cfg, &clitest.Fake{})

	opts := a.PromptOptions()
	assert.Equal(t, 3, opts.TopCategories)
	assert.Equal(t, 3, opts.TopResources)
}

func TestAnalyze(t *testing.T) {
	cfg := config.Defaults()
	cfg.AIBackend = llm.BackendOllamaCLI
	cfg.Demo = true

	t.Run("answers with the ollama CLI", func(t *testing.T) {
		runner := &clitest.Fake{Responses: map[string]string{
			"ollama list":          "NAME ID SIZE MODIFIED\ntinyllama:latest abc 637MB now\n",
			"ollama run tinyllama": "Shut down idle VMs.\n",
		}}
		a, _ := newTestApp(cfg, runner)
		snapshot, err := a.Fetch(context.Background())
		require.NoError(t, err)

		out, err := a.Analyze(context.Background(), snapshot)
		require.NoError(t, err)
		assert.Equal(t, "Shut down idle VMs.", out)

		calls := runner.Calls()
		prompt := string(calls[len(calls)-1].Stdin)
		assert.True(t, strings.HasPrefix(prompt, "You are an Azure cloud cost optimization expert."))
		assert.Contains(t, prompt, "Total Cost: 338.85 USD")
	})

	t.Run("unavailable", func(t *testing.T) {
		runner := &clitest.Fake{Errors: map[string]error{"ollama list": cli.ErrNotFound}}
		a, _ := newTestApp(cfg, runner)
		snapshot, err := a.Fetch(context.Background())
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), snapshot)
		assert.ErrorIs(t, err, llm.ErrInferenceUnavailable)
	})

	t.Run("bad backend", func(t *testing.T) {
		bad := *cfg
		bad.AIBackend = "gpt"
		a, _ := newTestApp(&bad, &clitest.Fake{})
		_, err := a.Analyze(context.Background(), &costs.Snapshot{})
		require.Error(t, err)
		assert.False(t, errors.Is(err, llm.ErrInferenceUnavailable))
	})
}

func TestPortalHost(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AZURE_CONFIG_DIR", dir)

	a, _ := newTestApp(config.Defaults(), &clitest.Fake{})
	assert.Equal(t, "portal.azure.com", a.PortalHost())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("[cloud]\nname = AzureChinaCloud\n"), 0644))
	assert.Equal(t, "portal.azure.cn", a.PortalHost())

	cfg := config.Defaults()
	cfg.PortalHost = "portal.example.test"
	a, _ = newTestApp(cfg, &clitest.Fake{})
	assert.Equal(t, "portal.example.test", a.PortalHost())
}

func TestRateLimits(t *testing.T) {
	cfg := config.Defaults()
	cfg.RequestsPerSecond = 0.5
	cfg.MaxRetries = 7

	limits := RateLimits(cfg)
	assert.Equal(t, 7, limits.MaxRetries)
	assert.Equal(t, map[string]float64{"az costmanagement query": 0.5}, limits.APILimits)
}

func TestForSubscription(t *testing.T) {
	runner := clitest.Azure(clitest.CostQuery)
	a, _ := newTestApp(config.Defaults(), runner)

	prod := a.ForSubscription("87654321-4321-4321-4321-210987654321")
	assert.Empty(t, a.Config.Subscription)
	assert.Equal(t, "87654321-4321-4321-4321-210987654321", prod.Config.Subscription)
	assert.False(t, prod.Spinner)
	assert.NotSame(t, a.Provider, prod.Provider)

	snapshot, err := prod.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, costs.SourceLive, snapshot.Source)

	var query string
	for _, call := range runner.Calls() {
		if strings.HasPrefix(call.String(), "az costmanagement query") {
			query = call.String()
		}
	}
	assert.Contains(t, query, "/subscriptions/87654321-4321-4321-4321-210987654321")
}

func countQueries(runner *clitest.Fake) int {
	n := 0
	for _, call := range runner.Calls() {
		if strings.HasPrefix(call.String(), "az costmanagement query") {
			n++
		}
	}
	return n
}

func TestFetchUsesCache(t *testing.T) {
	sc, err := cache.New(filepath.Join(t.TempDir(), "snapshots.json"))
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.CacheTTL = time.Hour
	runner := clitest.Azure(clitest.CostQuery)
	a := New(cfg,
		WithRunner(runner),
		WithOutput(&bytes.Buffer{}, &bytes.Buffer{}),
		WithClock(fixedNow),
		WithSpinner(false),
		WithCache(sc),
	)

	first, err := a.Fetch(context.Background())
	require.NoError(t, err)
	second, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, countQueries(runner))
	assert.Equal(t, first.Total(), second.Total())

	_, err = a.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, countQueries(runner))

	other := a.ForSubscription("87654321-4321-4321-4321-210987654321")
	_, err = other.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, countQueries(runner))
}

func TestFetchDoesNotCacheDemo(t *testing.T) {
	sc, err := cache.New(filepath.Join(t.TempDir(), "snapshots.json"))
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.CacheTTL = time.Hour
	runner := &clitest.Fake{Errors: map[string]error{"az account show": cli.ErrNotFound}}
	a := New(cfg, WithRunner(runner), WithClock(fixedNow), WithSpinner(false), WithCache(sc))

	for i := 0; i < 2; i++ {
		snapshot, err := a.Fetch(context.Background())
		require.NoError(t, err)
		assert.True(t, snapshot.IsDemo())
	}
	assert.Len(t, runner.Calls(), 2)
}
