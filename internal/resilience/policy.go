// Package resilience wraps calls to the embedding and language-model services
// with rate limiting and retry. The arbitration engine itself never retries;
// these policies sit in the service clients it is handed.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy controls how a single external call is throttled and retried.
type Policy struct {
	// Service and Operation label retry log lines.
	Service   string
	Operation string

	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 mean 1.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Jitter is the ± fraction applied to each backoff (0.25 = ±25%).
	Jitter float64

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter

	// Retryable overrides IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy returns a policy suited to hosted model APIs.
func DefaultPolicy(service, operation string) Policy {
	return Policy{
		Service:        service,
		Operation:      operation,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     20 * time.Second,
		Jitter:         0.25,
	}
}

// NewLimiter returns a token bucket allowing rps calls per second with the
// given burst, or nil (unlimited) when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Call runs fn under p. Non-retryable errors and context cancellation return
// immediately with the last error unchanged.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, eris.Wrapf(err, "%s: %s: rate limit wait", p.Service, p.Operation)
			}
		}

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == attempts-1 {
			break
		}

		delay := p.backoff(attempt)
		zap.L().Warn("retrying external call",
			zap.String("service", p.Service),
			zap.String("operation", p.Operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	d := float64(initial) * math.Pow(2, float64(attempt))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
