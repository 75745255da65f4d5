// Package backoff implements capped exponential backoff as an explicit
// retry policy wrapped around external capability calls.
package backoff

import (
	"context"
	"time"

	"docchat/pkg/types"
)

// Default retry configuration for upstream API calls.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy configures exponential backoff retry behavior. Retryable decides
// whether a failed attempt is worth repeating; errors it rejects are
// returned immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Retryable   func(error) bool
}

// Default returns the standard policy: 3 attempts, base delay 100ms
// doubling up to 5s, retrying only rate-limit classified errors.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
		Retryable:   types.IsRateLimit,
	}
}

// Retry executes fn under the policy. The last error is returned after
// attempt exhaustion. Retry is skipped on context cancellation.
func Retry[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.Multiplier)
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
