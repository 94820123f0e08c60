// Package ratelimit spaces out calls to a throttled API and retries the ones
// rejected for exceeding its rate limits.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"azcost/internal/logging"
)

const jitterPercent = 0.1

// Config holds the limits applied to every API of a limiter
type Config struct {
	// RequestsPerSecond is the default rate for APIs not listed in APILimits
	RequestsPerSecond float64
	// APILimits overrides the rate of specific APIs
	APILimits map[string]float64
	// MaxRetries is the number of attempts made for a throttled call
	MaxRetries int
	// BaseDelay is the first backoff delay, doubled on every retry
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
}

// DefaultConfig suits the Cost Management API, which throttles per tenant
// at a few queries per second
var DefaultConfig = Config{
	RequestsPerSecond: 5,
	APILimits: map[string]float64{
		"az costmanagement query": 2,
	},
	MaxRetries: 4,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// Limiter enforces a minimum interval between calls of the same API
type Limiter struct {
	mu            sync.Mutex
	lastCallTimes map[string]time.Time
	config        Config
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter; zero fields of cfg fall back to DefaultConfig
func New(cfg Config) *Limiter {
	d := DefaultConfig
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = d.RequestsPerSecond
	}
	if cfg.APILimits == nil {
		cfg.APILimits = d.APILimits
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = d.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = d.MaxDelay
	}
	return &Limiter{
		lastCallTimes: make(map[string]time.Time),
		config:        cfg,
		now:           time.Now,
		sleep:         sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// interval returns the minimum interval between requests for a given API
func (l *Limiter) interval(apiName string) time.Duration {
	rps := l.config.RequestsPerSecond
	if v, ok := l.config.APILimits[apiName]; ok && v > 0 {
		rps = v
	}
	return time.Duration(float64(time.Second) / rps)
}

// addJitter adds up to jitterPercent of random jitter to the delay
func addJitter(delay time.Duration) time.Duration {
	jitter := float64(delay) * jitterPercent
	return delay + time.Duration(jitter*(rand.Float64()*2-1))
}

// IsThrottled reports whether err is a rate limit rejection from Azure
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "toomanyrequests") ||
		strings.Contains(errStr, "(429)") ||
		strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "rate limit")
}

// reserve records a call of apiName and returns how long the caller must wait
func (l *Limiter) reserve(apiName string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	next := now
	if last, ok := l.lastCallTimes[apiName]; ok {
		if earliest := last.Add(l.interval(apiName)); earliest.After(now) {
			next = earliest
		}
	}
	l.lastCallTimes[apiName] = next
	return next.Sub(now)
}

// Execute runs operation once the interval for apiName has passed, retrying
// throttled attempts with exponential backoff
func (l *Limiter) Execute(ctx context.Context, apiName string, operation func() error) error {
	if err := l.sleep(ctx, l.reserve(apiName)); err != nil {
		return err
	}

	var err error
	delay := l.config.BaseDelay

	for attempt := 0; attempt < l.config.MaxRetries; attempt++ {
		err = operation()
		if !IsThrottled(err) {
			return err
		}
		if attempt == l.config.MaxRetries-1 {
			break
		}

		logging.Debug("Rate limited, retrying operation", map[string]interface{}{
			"api":      apiName,
			"attempt":  attempt + 1,
			"maxRetry": l.config.MaxRetries,
			"delay":    delay.String(),
		})

		if serr := l.sleep(ctx, addJitter(delay)); serr != nil {
			return serr
		}

		delay *= 2
		if delay > l.config.MaxDelay {
			delay = l.config.MaxDelay
		}
	}

	return fmt.Errorf("max retries exceeded for %s: %w", apiName, err)
}
