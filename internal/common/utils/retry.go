// Package utils holds small helpers shared by the upstream client.
package utils

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig holds configuration for retry operations with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth of the delay
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after every retry
	BackoffFactor float64

	// JitterFactor adds up to this fraction of the delay at random (0.0-1.0)
	JitterFactor float64

	// Retryable decides which errors are worth another attempt.
	// If nil, all errors are considered retryable.
	Retryable func(error) bool
}

// DefaultRetryConfig returns the backoff used for upstream GETs. Only the
// attempt count is expected to change per deployment.
//
// Default settings:
//   - MaxAttempts: 1 (no retry)
//   - InitialDelay: 100 milliseconds
//   - MaxDelay: 2 seconds
//   - BackoffFactor: 2.0
//   - JitterFactor: 0.2
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   1,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.2,
	}
}

// RetryWithBackoff executes fn until it succeeds, returns a non-retryable
// error, runs out of attempts or ctx is done.
//
// Returns:
//   - nil if fn succeeds within the attempt limit
//   - the error itself when it is not retryable or only one attempt is allowed
//   - "max retries exceeded" wrapping the last error otherwise
//   - "retry cancelled" wrapping ctx.Err() if the context ends while waiting
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if config.Retryable != nil && !config.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if config.JitterFactor > 0 && wait > 0 {
			wait += time.Duration(rand.Int64N(int64(float64(wait)*config.JitterFactor) + 1))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		if config.BackoffFactor > 1 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
		}
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
