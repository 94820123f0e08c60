// Package app builds the collaborators every command needs from the
// resolved configuration.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"azcost/internal/azure"
	"azcost/internal/cache"
	"azcost/internal/cli"
	"azcost/internal/config"
	"azcost/internal/costs"
	"azcost/internal/llm"
	"azcost/internal/logging"
	"azcost/internal/output"
	"azcost/internal/ratelimit"
)

// App bundles the az client, the cost provider and the inference backend
type App struct {
	Config   *config.GlobalConfig
	Runner   cli.Runner
	Azure    *azure.Client
	Provider *costs.Provider
	Stdout   io.Writer
	Stderr   io.Writer
	Now      func() time.Time
	// Spinner enables the fetch spinner on Stderr
	Spinner bool
	// Cache holds recent live snapshots; nil when azure.cache_ttl is zero
	Cache *cache.SnapshotCache

	// azRunner throttles az calls and is shared by ForSubscription copies
	azRunner cli.Runner
}

// Option configures an App
type Option func(*App)

// WithRunner replaces the subprocess runner used for az and ollama
func WithRunner(r cli.Runner) Option {
	return func(a *App) {
		a.Runner = r
	}
}

// WithOutput sets the writers used for command output and progress
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.Stdout = stdout
		a.Stderr = stderr
	}
}

// WithClock sets the time source used to resolve ranges
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.Now = now
	}
}

// WithSpinner toggles the fetch spinner
func WithSpinner(enabled bool) Option {
	return func(a *App) {
		a.Spinner = enabled
	}
}

// WithCache sets the snapshot cache instead of the one under ~/.azcost
func WithCache(c *cache.SnapshotCache) Option {
	return func(a *App) {
		a.Cache = c
	}
}

// Layout converts the configured column names into a parse layout
func Layout(cfg *config.GlobalConfig) costs.Layout {
	layout := costs.DefaultLayout()
	if cols := costs.SplitColumns(cfg.Columns.Cost); len(cols) > 0 {
		layout.CostColumns = cols
	}
	if cfg.Columns.ResourceID != "" {
		layout.ResourceIDColumn = cfg.Columns.ResourceID
	}
	layout.ResourceTypeColumn = cfg.Columns.ResourceType
	layout.CurrencyColumn = cfg.Columns.Currency
	if cfg.Currency != "" {
		layout.DefaultCurrency = cfg.Currency
	}
	return layout
}

// New wires an App from cfg; nil cfg uses config.Config
func New(cfg *config.GlobalConfig, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Config
	}
	a := &App{
		Config:  cfg,
		Runner:  cli.ExecRunner{},
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Now:     time.Now,
		Spinner: true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.CacheTTL > 0 && a.Cache == nil {
		a.Cache = openCache()
	}

	a.azRunner = cli.NewThrottled(a.Runner, RateLimits(cfg))
	a.wire()
	return a
}

// openCache opens the cache file under the config directory, or returns nil
// when it cannot be used
func openCache() *cache.SnapshotCache {
	dir, err := config.Dir()
	if err != nil {
		logging.Warn("Snapshot cache disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	c, err := cache.New(filepath.Join(dir, filepath.FromSlash(cache.DefaultFile)))
	if err != nil {
		logging.Warn("Snapshot cache disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return c
}

// RateLimits derives the az throttling settings from cfg
func RateLimits(cfg *config.GlobalConfig) ratelimit.Config {
	limits := ratelimit.Config{MaxRetries: cfg.MaxRetries}
	if cfg.RequestsPerSecond > 0 {
		limits.APILimits = map[string]float64{
			"az costmanagement query": cfg.RequestsPerSecond,
		}
	}
	return limits
}

func (a *App) wire() {
	a.Azure = azure.NewClient(a.azRunner,
		azure.WithSubscription(a.Config.Subscription),
		azure.WithTimeout(a.Config.Timeout),
	)
	a.Provider = costs.NewProvider(a.Azure,
		costs.WithLayout(Layout(a.Config)),
		costs.WithForcedDemo(a.Config.Demo),
		costs.WithClock(a.Now),
	)
}

// ForSubscription returns a copy of a scoped to subscription id. The copy
// shares the az rate limiter and shows no spinner.
func (a *App) ForSubscription(id string) *App {
	cfg := *a.Config
	cfg.Subscription = id

	b := *a
	b.Config = &cfg
	b.Spinner = false
	b.wire()
	return &b
}

// Fetch loads a snapshot for the configured range
func (a *App) Fetch(ctx context.Context) (*costs.Snapshot, error) {
	return a.FetchRange(ctx, a.Config.Range)
}

// Refresh loads the configured range from Azure, bypassing the cache
func (a *App) Refresh(ctx context.Context) (*costs.Snapshot, error) {
	return a.fetch(ctx, a.Config.Range, true)
}

// FetchRange loads a snapshot for rangeSpec, showing a spinner while az runs.
// A cached live snapshot younger than azure.cache_ttl is reused.
func (a *App) FetchRange(ctx context.Context, rangeSpec string) (*costs.Snapshot, error) {
	return a.fetch(ctx, rangeSpec, false)
}

func (a *App) fetch(ctx context.Context, rangeSpec string, bypassCache bool) (*costs.Snapshot, error) {
	key, cacheable := a.cacheKey(rangeSpec)
	if cacheable && !bypassCache {
		if snapshot, ok := a.Cache.Get(key, a.Now(), a.Config.CacheTTL); ok {
			logging.Debug("Using cached cost data", map[string]interface{}{
				"key":         key,
				"retrievedAt": snapshot.RetrievedAt,
			})
			return snapshot, nil
		}
	}

	if a.Spinner && !a.Config.Demo {
		spinner := output.StartSpinner(a.Stderr, "Fetching Azure costs...")
		defer spinner.Stop()
	}
	snapshot, err := a.Provider.FetchCosts(ctx, rangeSpec)
	if err != nil {
		return nil, err
	}

	if cacheable && !snapshot.IsDemo() {
		a.Cache.Set(key, snapshot, a.Now())
		a.Cache.Prune(a.Now(), a.Config.CacheTTL)
		if err := a.Cache.Save(); err != nil {
			logging.Warn("Failed to save snapshot cache", map[string]interface{}{"error": err.Error()})
		}
	}
	return snapshot, nil
}

// cacheKey returns the cache key of rangeSpec when caching applies
func (a *App) cacheKey(rangeSpec string) (string, bool) {
	if a.Cache == nil || a.Config.CacheTTL <= 0 || a.Config.Demo {
		return "", false
	}
	tr, err := costs.ParseTimeRange(rangeSpec, a.Now())
	if err != nil {
		return "", false
	}
	return cache.Key(a.Config.Subscription, tr), true
}

// Analyzer builds the inference chain for the configured backend
func (a *App) Analyzer() (llm.Chain, error) {
	return llm.NewAnalyzer(llm.Settings{
		Backend: a.Config.AIBackend,
		Model:   a.Config.AIModel,
		Host:    a.Config.OllamaHost,
		Timeout: a.Config.AITimeout,
	}, a.Runner)
}

// PromptOptions returns prompt bounds from the configured top_n
func (a *App) PromptOptions() costs.PromptOptions {
	opts := costs.DefaultPromptOptions()
	if a.Config.TopN > 0 {
		opts.TopCategories = a.Config.TopN
		opts.TopResources = a.Config.TopN
	}
	return opts
}

// Analyze builds the prompt for snapshot and asks the model. The error wraps
// llm.ErrInferenceUnavailable when no backend could answer.
func (a *App) Analyze(ctx context.Context, snapshot *costs.Snapshot) (string, error) {
	analyzer, err := a.Analyzer()
	if err != nil {
		return "", err
	}
	prompt := costs.BuildAnalysisPrompt(snapshot, costs.Summarize(snapshot), a.PromptOptions())
	logging.Debug("Built analysis prompt", map[string]interface{}{
		"backend": analyzer.Name(),
		"bytes":   len(prompt),
	})

	if a.Spinner {
		spinner := output.StartSpinner(a.Stderr, "Analyzing costs...")
		defer spinner.Stop()
	}
	return analyzer.Analyze(ctx, prompt)
}

// PortalHost returns the configured portal host, falling back to the host of
// the cloud selected in the az CLI configuration
func (a *App) PortalHost() string {
	if a.Config.PortalHost != "" {
		return a.Config.PortalHost
	}
	dir, err := azure.CLIConfigDir()
	if err != nil {
		return azure.DefaultPortalHost
	}
	cliCfg, err := azure.LoadCLIConfig(dir)
	if err != nil {
		logging.Debug("Could not read az CLI config", map[string]interface{}{"error": err.Error()})
		return azure.DefaultPortalHost
	}
	return cliCfg.PortalHost()
}
