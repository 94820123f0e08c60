package cli

import (
	"context"
	"strings"

	"azcost/internal/ratelimit"
)

// Throttled runs commands through a rate limiter keyed by the command and
// its first two arguments, so "az costmanagement query" calls are spaced
// apart and retried when Azure answers with 429
type Throttled struct {
	Runner  Runner
	Limiter *ratelimit.Limiter
}

// NewThrottled wraps r with a limiter built from cfg
func NewThrottled(r Runner, cfg ratelimit.Config) *Throttled {
	return &Throttled{Runner: r, Limiter: ratelimit.New(cfg)}
}

// APIName returns the limiter key of a command line
func APIName(name string, args ...string) string {
	parts := []string{name}
	for _, arg := range args {
		if len(parts) == 3 || strings.HasPrefix(arg, "-") {
			break
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (t *Throttled) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	var out []byte
	err := t.Limiter.Execute(ctx, APIName(name, args...), func() error {
		var err error
		out, err = t.Runner.Run(ctx, stdin, name, args...)
		return err
	})
	return out, err
}
