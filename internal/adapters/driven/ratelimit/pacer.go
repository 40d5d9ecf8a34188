// Package ratelimit paces model calls with a token bucket and decides
// when a failed call is worth retrying.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure Pacer implements the interface.
var _ driven.Pacer = (*Pacer)(nil)

// Default pacing values.
const (
	DefaultRequestsPerSecond = 1.0
	DefaultBurst             = 1
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	MaxBackoff               = 60 * time.Second
)

// Config holds pacing configuration.
type Config struct {
	// RequestsPerSecond is the sustained call rate.
	RequestsPerSecond float64
	// Burst is the maximum burst size.
	Burst int
	// MaxRetries is how many times a rate-limited call is retried.
	MaxRetries int
	// InitialBackoff is the first retry delay. It doubles per attempt.
	InitialBackoff time.Duration
}

// FromSettings builds a Config from application settings, keeping
// defaults for unset fields.
func FromSettings(s domain.RateLimitSettings) Config {
	return Config{
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
		MaxRetries:        s.MaxRetries,
		InitialBackoff:    s.InitialBackoff,
	}
}

// Pacer provides rate limiting for model requests.
// It uses a token bucket algorithm with exponential backoff for 429 responses.
type Pacer struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	retryAt    time.Time
	maxRetries int
	initial    time.Duration
}

// New creates a pacer. Zero fields fall back to defaults; a negative
// MaxRetries disables retries.
func New(cfg Config) *Pacer {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}

	return &Pacer{
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxRetries: cfg.MaxRetries,
		initial:    cfg.InitialBackoff,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by Backoff.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return p.limiter.Wait(ctx)
}

// Backoff reports whether the call that failed with err on the given
// zero-based attempt should be retried, and after how long. Only
// rate-limited and unavailable-service errors are retried.
func (p *Pacer) Backoff(attempt int, err error) (time.Duration, bool) {
	if !Retryable(err) || attempt >= p.maxRetries {
		return 0, false
	}

	delay := p.initial << attempt
	if delay <= 0 || delay > MaxBackoff {
		delay = MaxBackoff
	}

	p.mu.Lock()
	if until := time.Now().Add(delay); until.After(p.retryAt) {
		p.retryAt = until
	}
	p.mu.Unlock()

	return delay, true
}

// Retryable reports whether err is transient.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrLLMUnavailable)
}
