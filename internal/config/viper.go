package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"azcost/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by azcost
const EnvPrefix = "AZCOST"

// flagNames maps config keys to the flags that override them
var flagNames = map[string]string{
	"azure.subscription":          "subscription",
	"azure.range":                 "range",
	"azure.timeout":               "timeout",
	"azure.currency":              "currency",
	"azure.portal_host":           "portal-host",
	"azure.columns.cost":          "cost-column",
	"azure.columns.resource_id":   "resource-id-column",
	"azure.columns.resource_type": "resource-type-column",
	"azure.columns.currency":      "currency-column",
	"azure.requests_per_second":   "requests-per-second",
	"azure.max_retries":           "max-retries",
	"azure.cache_ttl":             "cache-ttl",
	"ai.backend":                  "ai-backend",
	"ai.model":                    "model",
	"ai.ollama_host":              "ollama-host",
	"ai.timeout":                  "ai-timeout",
	"ai.top_n":                    "top-n",
	"app.log_level":               "log-level",
	"app.log_format":              "log-format",
	"app.demo":                    "demo",
	"app.max_workers":             "max-workers",
}

// Keys lists every configuration key in display order
var Keys = []string{
	"azure.subscription",
	"azure.range",
	"azure.timeout",
	"azure.currency",
	"azure.portal_host",
	"azure.columns.cost",
	"azure.columns.resource_id",
	"azure.columns.resource_type",
	"azure.columns.currency",
	"azure.requests_per_second",
	"azure.max_retries",
	"azure.cache_ttl",
	"ai.backend",
	"ai.model",
	"ai.ollama_host",
	"ai.timeout",
	"ai.top_n",
	"app.log_level",
	"app.log_format",
	"app.demo",
	"app.max_workers",
}

// FlagName returns the flag bound to a config key
func FlagName(key string) string {
	if name, ok := flagNames[key]; ok {
		return name
	}
	return strings.ReplaceAll(key, ".", "-")
}

// parameterSource tracks where each parameter value came from
type parameterSource struct {
	Key    string
	Value  interface{}
	Source string
}

// getParameterSource determines where a parameter value came from (config file, env var, flag, or default)
func getParameterSource(key string, cmd *cobra.Command) parameterSource {
	value := viper.Get(key)
	envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	flagName := FlagName(key)

	if cmd != nil {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			return parameterSource{key, value, "command line flag"}
		}

		// Walk up the command chain checking persistent flags
		for current := cmd; current != nil; current = current.Parent() {
			if f := current.PersistentFlags().Lookup(flagName); f != nil && f.Changed {
				return parameterSource{key, value, "command line flag"}
			}
		}
	}

	if _, exists := os.LookupEnv(envKey); exists {
		return parameterSource{key, value, "environment variable"}
	}

	if viper.GetViper().InConfig(key) {
		return parameterSource{key, value, "config file"}
	}

	return parameterSource{key, value, "default value"}
}

// LogConfigurationSources logs the source of each configuration parameter
func LogConfigurationSources(cmd *cobra.Command) {
	logging.Debug("Configuration parameter sources:", nil)
	for _, key := range Keys {
		source := getParameterSource(key, cmd)
		logging.Debug(fmt.Sprintf("  %s = %v (from %s)", source.Key, source.Value, source.Source), nil)
	}
}

// LoadDotEnv loads the first .env file found in the given paths.
// Variables already present in the environment are not overridden.
func LoadDotEnv(paths ...string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logging.Warn("Failed to load env file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		return path
	}
	return ""
}

// DefaultEnvPaths returns the .env locations checked at startup
func DefaultEnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if dir, err := Dir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	return paths
}

// Dir returns the per-user configuration directory, ~/.azcost
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".azcost"), nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("azure.subscription", d.Subscription)
	v.SetDefault("azure.range", d.Range)
	v.SetDefault("azure.timeout", d.Timeout)
	v.SetDefault("azure.currency", d.Currency)
	v.SetDefault("azure.portal_host", d.PortalHost)
	v.SetDefault("azure.columns.cost", d.Columns.Cost)
	v.SetDefault("azure.columns.resource_id", d.Columns.ResourceID)
	v.SetDefault("azure.columns.resource_type", d.Columns.ResourceType)
	v.SetDefault("azure.columns.currency", d.Columns.Currency)
	v.SetDefault("azure.requests_per_second", d.RequestsPerSecond)
	v.SetDefault("azure.max_retries", d.MaxRetries)
	v.SetDefault("azure.cache_ttl", d.CacheTTL)
	v.SetDefault("ai.backend", d.AIBackend)
	v.SetDefault("ai.model", d.AIModel)
	v.SetDefault("ai.ollama_host", d.OllamaHost)
	v.SetDefault("ai.timeout", d.AITimeout)
	v.SetDefault("ai.top_n", d.TopN)
	v.SetDefault("app.log_level", d.LogLevel)
	v.SetDefault("app.log_format", d.LogFormat)
	v.SetDefault("app.demo", d.Demo)
	v.SetDefault("app.max_workers", d.MaxWorkers)
}

// InitConfig initializes the Viper configuration. An explicit configFile must
// exist; otherwise config.yaml is looked up in the current directory and ~/.azcost.
func InitConfig(configFile string) error {
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		logging.Debug("Loaded config file", map[string]interface{}{"path": viper.ConfigFileUsed()})
		return nil
	}

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	if dir, err := Dir(); err == nil {
		viper.AddConfigPath(dir)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		logging.Debug("No config file found, using defaults and environment variables", nil)
		return nil
	}

	logging.Debug("Loaded config file", map[string]interface{}{"path": viper.ConfigFileUsed()})
	return nil
}

// BindFlags binds every flag of cmd that backs a config key
func BindFlags(cmd *cobra.Command) error {
	for _, key := range Keys {
		name := FlagName(key)
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load copies the resolved viper values into Config
func Load() (*GlobalConfig, error) {
	cfg := &GlobalConfig{
		Subscription: viper.GetString("azure.subscription"),
		Range:        viper.GetString("azure.range"),
		Timeout:      viper.GetDuration("azure.timeout"),
		Currency:     viper.GetString("azure.currency"),
		PortalHost:   viper.GetString("azure.portal_host"),
		Columns: Columns{
			Cost:         viper.GetString("azure.columns.cost"),
			ResourceID:   viper.GetString("azure.columns.resource_id"),
			ResourceType: viper.GetString("azure.columns.resource_type"),
			Currency:     viper.GetString("azure.columns.currency"),
		},
		RequestsPerSecond: viper.GetFloat64("azure.requests_per_second"),
		MaxRetries:        viper.GetInt("azure.max_retries"),
		CacheTTL:          viper.GetDuration("azure.cache_ttl"),
		AIBackend:         strings.ToLower(viper.GetString("ai.backend")),
		AIModel:           viper.GetString("ai.model"),
		OllamaHost:        viper.GetString("ai.ollama_host"),
		AITimeout:         viper.GetDuration("ai.timeout"),
		TopN:              viper.GetInt("ai.top_n"),
		LogLevel:          viper.GetString("app.log_level"),
		LogFormat:         viper.GetString("app.log_format"),
		Demo:              viper.GetBool("app.demo"),
		MaxWorkers:        viper.GetInt("app.max_workers"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Config = cfg
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command
func (c *GlobalConfig) Validate() error {
	switch c.AIBackend {
	case "auto", "ollama", "ollama-cli":
	default:
		return fmt.Errorf("invalid ai.backend %q (auto, ollama, ollama-cli)", c.AIBackend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("azure.timeout must be positive, got %s", c.Timeout)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %s", c.AITimeout)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("azure.requests_per_second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("azure.max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("azure.cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("app.max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("ai.top_n must be positive, got %d", c.TopN)
	}
	if c.Columns.Cost == "" || c.Columns.ResourceID == "" {
		return fmt.Errorf("azure.columns.cost and azure.columns.resource_id are required")
	}
	return nil
}

// DefaultConfigContent is written by `azcost init config`
const DefaultConfigContent = `# azcost Configuration File

# Azure Configuration
azure:
  subscription: ""  # Subscription ID to query (default: az CLI default subscription)
  range: this-month  # this-month, last-month, last-7-days, last-30-days, year-to-date or YYYY-MM-DD..YYYY-MM-DD
  timeout: 60s  # Timeout for each az CLI call
  currency: USD  # Used when the query output has no currency column
  portal_host: ""  # Portal host override (default: derived from the az CLI cloud)
  columns:
    cost: PreTaxCost,Cost  # Cost column names, first present wins
    resource_id: ResourceId
    resource_type: ResourceType
    currency: Currency
  requests_per_second: 2  # Cost queries per second, Azure throttles bursts with 429
  max_retries: 4  # Attempts for a throttled az call
  cache_ttl: 0s  # Reuse live cost data for this long, 0s disables the cache

# AI Configuration
ai:
  backend: auto  # auto, ollama (HTTP API) or ollama-cli
  model: tinyllama
  ollama_host: http://localhost:11434
  timeout: 60s
  top_n: 5  # Categories and resources included in the analysis prompt

# Application Configuration
app:
  log_level: INFO  # DEBUG, INFO, WARN, ERROR
  log_format: text  # text or json
  demo: false  # Always use the demo dataset
  max_workers: 4  # Subscriptions fetched concurrently by report --subscriptions
`

// DefaultEnvContent is written by `azcost init env`
const DefaultEnvContent = `# azcost environment overrides
# AZCOST_AZURE_SUBSCRIPTION=00000000-0000-0000-0000-000000000000
# AZCOST_AZURE_RANGE=this-month
# AZCOST_AI_MODEL=tinyllama
# AZCOST_AI_OLLAMA_HOST=http://localhost:11434
# AZCOST_APP_LOG_LEVEL=INFO
`

// CreateDefaultConfig writes the default config file into dir unless one exists
func CreateDefaultConfig(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigContent), 0644); err != nil {
		return "", fmt.Errorf("error writing default config file: %w", err)
	}
	return configPath, nil
}
