package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock hands out a controllable current time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memBlobStore is an in-memory BlobStore. Setting err makes every call fail.
type memBlobStore struct {
	mu     sync.Mutex
	values map[string][]byte
	err    error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{values: make(map[string][]byte)}
}

func (m *memBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memBlobStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memBlobStore) Close() error {
	return nil
}

// recordingRecorder keeps every tracked store operation.
type recordingRecorder struct {
	mu  sync.Mutex
	ops []trackedOp
}

type trackedOp struct {
	backend   string
	operation string
	success   bool
}

func (r *recordingRecorder) TrackStoreOperation(backend, operation string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, trackedOp{backend: backend, operation: operation, success: success})
}

var errBackendDown = errors.New("backend down")

// setupLocalStore creates a store on a fresh SQLite file in a temp dir.
func setupLocalStore(t *testing.T, clock *fakeClock) (*Store, *SQLiteBlobStore) {
	t.Helper()

	blobs, err := NewSQLiteBlobStore(StoreOptions{
		Name:     "notes",
		BasePath: t.TempDir(),
		Config:   DefaultDatabaseConfig(),
	})
	require.NoError(t, err, "Failed to create blob store")

	s := New(NewLocalBackend(blobs, DefaultStorageKey, discardLogger()),
		WithLogger(discardLogger()),
		WithClock(clock.Now),
	)
	t.Cleanup(func() { s.Close() })

	return s, blobs
}

func findNote(notes []Note, id string) *Note {
	for i := range notes {
		if notes[i].ID == id {
			return &notes[i]
		}
	}
	return nil
}
