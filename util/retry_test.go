package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errBusy     = errors.New("database is locked")
	errRejected = errors.New("note payload rejected")
)

func isBusy(err error) bool {
	return errors.Is(err, errBusy)
}

func fastConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}.WithRetryMatcher(isBusy)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0

	blob, err := Do(context.Background(), fastConfig(3), func() ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errBusy
		}
		return []byte(`[]`), nil
	})

	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), blob)
	require.Equal(t, 3, calls)
}

func TestDo_StopsOnUnmatchedError(t *testing.T) {
	calls := 0

	count, err := Do(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		return 7, errRejected
	})

	require.ErrorIs(t, err, errRejected)
	require.Zero(t, count, "Failed calls return the zero value")
	require.Equal(t, 1, calls)
}

func TestDo_WithoutMatcherNeverRetries(t *testing.T) {
	calls := 0
	config := fastConfig(3)
	config.ShouldRetryFunc = nil

	err := Retry(context.Background(), config, func() error {
		calls++
		return errBusy
	})

	require.ErrorIs(t, err, errBusy)
	require.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3} {
		calls := 0

		err := Retry(context.Background(), fastConfig(maxRetries), func() error {
			calls++
			return errBusy
		})

		require.ErrorIs(t, err, errBusy, "The last error stays inspectable")
		require.ErrorContains(t, err, "operation failed after")
		require.Equal(t, maxRetries+1, calls)
	}
}

func TestDo_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{
		MaxRetries: 10,
		BaseDelay:  time.Second,
		MaxDelay:   time.Second,
		OnRetry: func(int, error) {
			cancel()
		},
	}.WithRetryMatcher(isBusy)

	calls := 0
	start := time.Now()
	err := Retry(ctx, config, func() error {
		calls++
		return errBusy
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), 500*time.Millisecond, "Cancellation must not wait out the backoff")
}

func TestBackoff_DoublesUpToMaxDelay(t *testing.T) {
	config := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	expected := []time.Duration{10, 20, 40, 50, 50}
	for i, want := range expected {
		want *= time.Millisecond
		got := config.backoff(i + 1)

		// Up to 10% jitter is added on top of the base delay
		require.GreaterOrEqual(t, got, want, "attempt %d", i+1)
		require.LessOrEqual(t, got, want+want/10, "attempt %d", i+1)
	}
}

func TestWithRetryMatcher_LeavesOriginalUntouched(t *testing.T) {
	base := DefaultRetryConfig()
	matched := base.WithRetryMatcher(isBusy)

	require.Nil(t, base.ShouldRetryFunc)
	require.NotNil(t, matched.ShouldRetryFunc)
	require.Equal(t, base.MaxRetries, matched.MaxRetries)
}

func TestRetry_OnRetryHook(t *testing.T) {
	var attempts []int
	config := fastConfig(2)
	config.OnRetry = func(attempt int, err error) {
		require.ErrorIs(t, err, errBusy)
		attempts = append(attempts, attempt)
	}

	err := Retry(context.Background(), config, func() error {
		return errBusy
	})

	require.ErrorContains(t, err, "operation failed after 2 retries")
	require.Equal(t, []int{1, 2}, attempts)
}
