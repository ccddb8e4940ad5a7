package store

import (
	"context"
	"errors"
	"time"
)

// Note is the normalized note shape handed to every caller.
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Record is a note as persisted by a backend. Any field except ID may be
// missing, and timestamps are kept in whatever textual form the backend used.
type Record struct {
	ID        string  `json:"id"`
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// Patch carries the fields replaced by an update.
type Patch struct {
	Title     string
	Content   string
	UpdatedAt time.Time
}

// Backend is the storage contract both the local and the remote implementation satisfy.
type Backend interface {
	// Name identifies the backend in logs, metrics and status lines.
	Name() string

	// Init prepares the backend. Backends that support seeding store seed
	// when they hold no notes.
	Init(ctx context.Context, seed Note) error

	// List returns all records, most recently updated first unless the
	// backend is a localStorage.
	List(ctx context.Context) ([]Record, error)

	Insert(ctx context.Context, note Note) (Record, error)

	// Update returns nil and no error when no record has the given id.
	Update(ctx context.Context, id string, patch Patch) (*Record, error)

	Delete(ctx context.Context, id string) error

	Close() error
}

// localStorage is implemented by backends keeping notes on this machine.
// They list records in storage order, so the store sorts their notes after
// normalization, which can move updated_at. Their deletes always report
// success; a failed write is still logged and recorded.
type localStorage interface {
	isLocal()
}

// healthChecker is implemented by backends and blob stores that can probe
// their storage cheaply.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Recorder receives one observation per store operation.
type Recorder interface {
	TrackStoreOperation(backend, operation string, duration time.Duration, success bool)
}

var ErrNoteNotFound = errors.New("note not found")

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	EnableWAL       bool
}

// DefaultDatabaseConfig returns sensible defaults for database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		EnableWAL:       true,
	}
}

func stringPtr(s string) *string {
	return &s
}
