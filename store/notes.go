package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	SampleNoteTitle   = "Welcome to Notes"
	SampleNoteContent = "This is a sample note. No remote backend is configured, so your notes are saved on this machine only."
)

// Store is the note store. It runs every operation against a single backend
// chosen by the caller and normalizes every note it returns. Backend failures
// never reach the caller; they are logged and turned into the per-operation
// fallback value.
type Store struct {
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	recorder Recorder
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used to report absorbed backend failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for created_at/updated_at
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides how note ids are generated
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithRecorder reports every operation to r
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// New creates a note store on top of backend.
func New(backend Backend, options ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Backend returns the name of the active backend.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// HealthCheck probes the backend storage. Backends without a cheap probe are
// reported healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if hc, ok := s.backend.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// timestamp returns the current time at the precision notes are stored with.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Store) track(operation string, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.TrackStoreOperation(s.backend.Name(), operation, time.Since(start), err == nil)
	}
	if err != nil {
		s.logger.Warn("Note store operation failed",
			"backend", s.backend.Name(),
			"operation", operation,
			"error", err,
		)
	}
}

// Initialize prepares the backend, seeding a sample note into an empty local
// collection. It is best-effort: failures are logged and otherwise ignored.
func (s *Store) Initialize(ctx context.Context) {
	start := time.Now()
	now := s.timestamp()
	seed := Note{
		ID:        s.newID(),
		Title:     SampleNoteTitle,
		Content:   SampleNoteContent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.backend.Init(ctx, seed)
	s.track("initialize", start, err)
}

// List returns the notes whose title or content contains query, ignoring case,
// or every note when query is blank. Notes are ordered most recently updated
// first. A failing backend yields an empty list.
func (s *Store) List(ctx context.Context, query string) []Note {
	start := time.Now()
	recs, err := s.backend.List(ctx)
	s.track("list", start, err)
	if err != nil {
		return []Note{}
	}

	notes := normalizeAll(recs, s.timestamp())
	if _, ok := s.backend.(localStorage); ok {
		sortByUpdatedAt(notes)
	}
	// Filtering keeps the order.
	return filterNotes(notes, query)
}

// Create stores a new note and returns it. When the backend fails the
// unsaved note is returned anyway.
func (s *Store) Create(ctx context.Context, title, content string) Note {
	start := time.Now()
	now := s.timestamp()
	payload := normalize(Record{
		ID:        s.newID(),
		Title:     stringPtr(title),
		Content:   stringPtr(content),
		CreatedAt: formatTimestamp(now),
		UpdatedAt: formatTimestamp(now),
	}, now)

	rec, err := s.backend.Insert(ctx, payload)
	s.track("create", start, err)
	if err != nil {
		return payload
	}
	return normalize(rec, now)
}

// Update replaces the title and content of the note with the given id and
// refreshes its updated_at. It returns nil when the note does not exist or the
// backend fails.
func (s *Store) Update(ctx context.Context, id, title, content string) *Note {
	start := time.Now()
	now := s.timestamp()

	rec, err := s.backend.Update(ctx, id, Patch{
		Title:     title,
		Content:   content,
		UpdatedAt: now,
	})
	s.track("update", start, err)
	if err != nil || rec == nil {
		return nil
	}

	note := normalize(*rec, now)
	return &note
}

// Delete removes the note with the given id. Deleting a missing note
// succeeds. Local deletes always report true; other backends report false
// when they fail.
func (s *Store) Delete(ctx context.Context, id string) bool {
	start := time.Now()
	err := s.backend.Delete(ctx, id)
	s.track("delete", start, err)
	if _, ok := s.backend.(localStorage); ok {
		return true
	}
	return err == nil
}
