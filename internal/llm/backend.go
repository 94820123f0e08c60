package llm

import (
	"fmt"
	"time"

	"azcost/internal/cli"
)

// Backend names accepted by ai.backend
const (
	BackendAuto      = "auto"
	BackendOllama    = "ollama"
	BackendOllamaCLI = "ollama-cli"
)

// Settings selects and configures the inference backend
type Settings struct {
	Backend string
	Model   string
	Host    string
	Timeout time.Duration
}

// NewAnalyzer builds the analyzer chain for the configured backend.
// auto prefers the HTTP API and falls back to the ollama CLI.
func NewAnalyzer(s Settings, runner cli.Runner) (Chain, error) {
	if s.Model == "" {
		return nil, fmt.Errorf("no model configured")
	}
	if runner == nil {
		runner = cli.ExecRunner{}
	}

	httpClient := NewOllamaClient(s.Host, s.Model, s.Timeout)
	command := NewCommandAnalyzer(runner, s.Model, s.Timeout)

	switch s.Backend {
	case BackendAuto, "":
		return Chain{httpClient, command}, nil
	case BackendOllama:
		return Chain{httpClient}, nil
	case BackendOllamaCLI:
		return Chain{command}, nil
	default:
		return nil, fmt.Errorf("unknown AI backend %q", s.Backend)
	}
}
