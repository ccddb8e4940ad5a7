package util

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ShouldRetryFunc func(error) bool

	// OnRetry is called before each retry attempt with the attempt number (starting at 1)
	// and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig provides sensible defaults for retry operations
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		BaseDelay:       10 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		ShouldRetryFunc: nil, // No retry by default
	}
}

// WithRetryMatcher returns a copy of the config that retries errors matched by fn.
func (c RetryConfig) WithRetryMatcher(fn func(error) bool) RetryConfig {
	c.ShouldRetryFunc = fn
	return c
}

// backoff returns the delay before the given retry attempt (attempt >= 1).
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	// Add jitter to prevent thundering herd
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
	return delay + jitter
}

// Retry implements exponential backoff retry logic with configurable error matching
func Retry(ctx context.Context, config RetryConfig, operation func() error) error {
	_, err := Do(ctx, config, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// Do runs operation with the same policy as Retry and returns its value on success.
func Do[T any](ctx context.Context, config RetryConfig, operation func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.backoff(attempt)):
			}
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if config.ShouldRetryFunc != nil && config.ShouldRetryFunc(err) {
			continue
		}

		// Error doesn't match retry criteria, don't retry
		return zero, err
	}

	return zero, fmt.Errorf("operation failed after %d retries, last error: %w", config.MaxRetries, lastErr)
}
