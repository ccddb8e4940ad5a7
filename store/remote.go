package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/brunoscheufler/quicknotes/util"
	"github.com/sony/gobreaker"
)

// Table is the tabular CRUD service the remote backend talks to.
type Table interface {
	// Select returns every row ordered by updated_at descending.
	Select(ctx context.Context) ([]Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	// Update returns ErrNoteNotFound when no row has the given id.
	Update(ctx context.Context, id string, fields map[string]any) (Record, error)
	Delete(ctx context.Context, id string) error
}

// RemoteOptions configures the remote backend
type RemoteOptions struct {
	Retry   util.RetryConfig
	Breaker BreakerConfig
	Logger  *slog.Logger
}

// BreakerConfig holds configuration for the remote circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultRemoteOptions returns the retry and breaker policy used for the remote table.
func DefaultRemoteOptions() RemoteOptions {
	return RemoteOptions{
		Retry: util.RetryConfig{
			MaxRetries:      3,
			BaseDelay:       100 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			ShouldRetryFunc: isTransientRemoteError,
		},
		Breaker: BreakerConfig{
			Name:             "remote-notes",
			MaxRequests:      1,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
		Logger: slog.Default(),
	}
}

type remoteBackend struct {
	table   Table
	breaker *gobreaker.CircuitBreaker
	retry   util.RetryConfig
	logger  *slog.Logger
}

// NewRemoteBackend returns a backend that stores notes in table.
func NewRemoteBackend(table Table, opts RemoteOptions) Backend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := opts.Retry
	retry.OnRetry = func(attempt int, err error) {
		logger.Debug("Retrying remote notes call", "attempt", attempt, "error", err)
	}

	cfg := opts.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoteNotFound)
		},
	})

	return &remoteBackend{
		table:   table,
		breaker: breaker,
		retry:   retry,
		logger:  logger,
	}
}

// call runs op through the circuit breaker and the retry policy.
func call[T any](ctx context.Context, b *remoteBackend, op func() (T, error)) (T, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return util.Do(ctx, b.retry, op)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := result.(T)
	return value, nil
}

func (b *remoteBackend) Name() string {
	return "remote"
}

// Init assumes the notes table already exists.
func (b *remoteBackend) Init(ctx context.Context, seed Note) error {
	return nil
}

func (b *remoteBackend) List(ctx context.Context) ([]Record, error) {
	recs, err := call(ctx, b, func() ([]Record, error) {
		return b.table.Select(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	return recs, nil
}

func (b *remoteBackend) Insert(ctx context.Context, note Note) (Record, error) {
	rec, err := call(ctx, b, func() (Record, error) {
		return b.table.Insert(ctx, note.Record())
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert note: %w", err)
	}
	return rec, nil
}

func (b *remoteBackend) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	fields := map[string]any{
		"title":      patch.Title,
		"content":    patch.Content,
		"updated_at": formatTimestamp(patch.UpdatedAt),
	}

	rec, err := call(ctx, b, func() (Record, error) {
		return b.table.Update(ctx, id, fields)
	})
	if errors.Is(err, ErrNoteNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return &rec, nil
}

func (b *remoteBackend) Delete(ctx context.Context, id string) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		return struct{}{}, b.table.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (b *remoteBackend) Close() error {
	return nil
}

// RemoteStatusError is a throttled or failed response from the remote
// service, carrying the PostgREST error code when the body had one.
type RemoteStatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteStatusError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Transient reports whether the same request may succeed later.
func (e *RemoteStatusError) Transient() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// isTransientRemoteError reports whether a remote failure is worth retrying.
func isTransientRemoteError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNoteNotFound) {
		return false
	}

	// Checked first: the HTTP client wraps it in a *url.Error, which is a net.Error.
	var statusErr *RemoteStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "EOF"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
