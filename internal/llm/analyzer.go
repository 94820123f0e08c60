package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"azcost/internal/logging"
)

// ErrInferenceUnavailable is returned when no model backend can answer
var ErrInferenceUnavailable = errors.New("AI analysis unavailable")

// Analyzer sends a prompt to a language model
type Analyzer interface {
	// Name identifies the backend in logs
	Name() string
	// Available reports whether the backend can serve the configured model
	Available(ctx context.Context) error
	// Analyze returns the model response for prompt
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Chain tries each analyzer in order and uses the first available one
type Chain []Analyzer

// Name lists the chained backends
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name()
	}
	return strings.Join(names, ",")
}

// Select returns the first available analyzer
func (c Chain) Select(ctx context.Context) (Analyzer, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: no backend configured", ErrInferenceUnavailable)
	}

	var reasons []string
	for _, a := range c {
		err := a.Available(ctx)
		if err == nil {
			return a, nil
		}
		logging.Debug("AI backend unavailable", map[string]interface{}{
			"backend": a.Name(),
			"error":   err.Error(),
		})
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Name(), err))
	}
	return nil, fmt.Errorf("%w: %s", ErrInferenceUnavailable, strings.Join(reasons, "; "))
}

// Available succeeds when any backend is available
func (c Chain) Available(ctx context.Context) error {
	_, err := c.Select(ctx)
	return err
}

// Analyze answers with the first available backend. Every failure wraps
// ErrInferenceUnavailable so callers can degrade without inspecting backends.
func (c Chain) Analyze(ctx context.Context, prompt string) (string, error) {
	a, err := c.Select(ctx)
	if err != nil {
		return "", err
	}

	response, err := a.Analyze(ctx, prompt)
	if err != nil {
		logging.AnalysisError(a.Name(), err)
		return "", fmt.Errorf("%w: %s: %w", ErrInferenceUnavailable, a.Name(), err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("%w: %s returned an empty response", ErrInferenceUnavailable, a.Name())
	}
	return response, nil
}
