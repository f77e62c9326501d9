// Package providers holds HTTP clients for the external services the
// bot relies on: the chat assistant, the video resolver, and the URL
// shortener. Each client is a thin typed wrapper with shared retry.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig controls the retry loop for provider calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig is tuned for chat-latency tolerances: a couple of
// quick retries, never more than a few seconds of added wait.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// TransientError marks an error as retryable. Errors not wrapped in it
// fail the call immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// RetryDo runs fn with exponential backoff and jitter. Only errors
// marked Transient are retried.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay << (attempt - 1)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			delay += time.Duration(rand.Int63n(int64(cfg.BaseDelay)))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		var transient *TransientError
		if !errors.As(err, &transient) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
