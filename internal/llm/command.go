package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"azcost/internal/cli"
)

// CommandAnalyzer runs `ollama run <model>` with the prompt on stdin
type CommandAnalyzer struct {
	runner  cli.Runner
	binary  string
	model   string
	timeout time.Duration
}

// NewCommandAnalyzer creates an analyzer that shells out to the ollama CLI.
// Each invocation is bounded by timeout; zero leaves it to the caller's context.
func NewCommandAnalyzer(runner cli.Runner, model string, timeout time.Duration) *CommandAnalyzer {
	return &CommandAnalyzer{runner: runner, binary: "ollama", model: model, timeout: timeout}
}

func (a *CommandAnalyzer) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	out, err := a.runner.Run(ctx, stdin, a.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", a.binary, args[0], ctxErr)
		}
		return nil, err
	}
	return out, nil
}

// Name implements Analyzer
func (a *CommandAnalyzer) Name() string {
	return "ollama-cli"
}

// Available checks that `ollama list` runs and includes the model
func (a *CommandAnalyzer) Available(ctx context.Context) error {
	out, err := a.run(ctx, nil, "list")
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) > 0 && modelMatches(fields[0], a.model) {
			return nil
		}
	}
	return fmt.Errorf("model %s not installed, run: ollama pull %s", a.model, a.model)
}

// Analyze implements Analyzer
func (a *CommandAnalyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	out, err := a.run(ctx, []byte(prompt), "run", a.model)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
