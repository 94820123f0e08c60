package config

import "time"

// Columns names the fields of the cost query response the provider reads.
// Cost may list several names separated by commas; the first present wins.
type Columns struct {
	Cost         string
	ResourceID   string
	ResourceType string
	Currency     string
}

// GlobalConfig holds the global configuration for the application
type GlobalConfig struct {
	// Subscription scopes cost queries; empty uses the az CLI default subscription
	Subscription string

	// Range is the default time range spec, e.g. this-month
	Range string

	// Timeout bounds each az CLI invocation
	Timeout time.Duration

	// Currency is used when the query output carries no currency column
	Currency string

	// PortalHost overrides the portal host derived from the az CLI cloud
	PortalHost string

	Columns Columns

	// RequestsPerSecond limits cost queries sent to the Cost Management API
	RequestsPerSecond float64

	// MaxRetries bounds the attempts of an az call rejected with 429
	MaxRetries int

	// CacheTTL keeps live snapshots on disk for reuse; zero disables the cache
	CacheTTL time.Duration

	// AIBackend selects the analyzer: auto, ollama or ollama-cli
	AIBackend string

	// AIModel is the local model name
	AIModel string

	// OllamaHost is the base URL of the Ollama API
	OllamaHost string

	// AITimeout bounds a single analysis request
	AITimeout time.Duration

	// TopN is the number of categories and resources embedded in the analysis prompt
	TopN int

	// LogLevel is the minimum level that is logged
	LogLevel string

	// LogFormat is the format for logging
	LogFormat string

	// Demo forces the demo dataset
	Demo bool

	// MaxWorkers bounds the subscriptions fetched concurrently
	MaxWorkers int
}

// Defaults returns the built-in configuration
func Defaults() *GlobalConfig {
	return &GlobalConfig{
		Range:    "this-month",
		Timeout:  60 * time.Second,
		Currency: "USD",
		Columns: Columns{
			Cost:         "PreTaxCost,Cost",
			ResourceID:   "ResourceId",
			ResourceType: "ResourceType",
			Currency:     "Currency",
		},
		RequestsPerSecond: 2,
		MaxRetries:        4,
		AIBackend:         "auto",
		AIModel:           "tinyllama",
		OllamaHost:        "http://localhost:11434",
		AITimeout:         60 * time.Second,
		TopN:              5,
		LogLevel:          "INFO",
		LogFormat:         "text",
		MaxWorkers:        4,
	}
}

// Config is the global configuration instance
var Config = Defaults()
