package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultStorageKey is the blob key holding the local note collection.
const DefaultStorageKey = "notes_app_items_v1"

// BlobStore persists opaque values under fixed keys.
type BlobStore interface {
	// Get returns false when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// localBackend keeps the whole note collection as one JSON array under a
// single blob key. Every operation reads the full collection and mutating
// operations write it back in full.
type localBackend struct {
	blobs  BlobStore
	key    string
	logger *slog.Logger

	// mu serializes read-modify-write cycles within this process only.
	mu sync.Mutex
}

// NewLocalBackend returns a backend storing notes in blobs under key.
func NewLocalBackend(blobs BlobStore, key string, logger *slog.Logger) Backend {
	if key == "" {
		key = DefaultStorageKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &localBackend{blobs: blobs, key: key, logger: logger}
}

func (b *localBackend) Name() string {
	return "local"
}

// load returns the stored records. A blob that cannot be decoded is treated
// as an empty collection.
func (b *localBackend) load(ctx context.Context) ([]Record, error) {
	raw, ok, err := b.blobs.Get(ctx, b.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes blob: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []Record{}, nil
	}

	var recs []Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		b.logger.Warn("Discarding unreadable local notes", "key", b.key, "error", err)
		return []Record{}, nil
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func (b *localBackend) save(ctx context.Context, recs []Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	if err := b.blobs.Put(ctx, b.key, raw); err != nil {
		return fmt.Errorf("failed to write notes blob: %w", err)
	}
	return nil
}

func (b *localBackend) Init(ctx context.Context, seed Note) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.load(ctx)
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		return nil
	}

	b.logger.Debug("Seeding empty local note collection", "key", b.key)
	return b.save(ctx, []Record{seed.Record()})
}

// List returns records in storage order; the store sorts them once they are
// normalized.
func (b *localBackend) List(ctx context.Context) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.load(ctx)
}

func (b *localBackend) isLocal() {}

func (b *localBackend) Insert(ctx context.Context, note Note) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.load(ctx)
	if err != nil {
		return Record{}, err
	}

	rec := note.Record()
	recs = append([]Record{rec}, recs...)
	if err := b.save(ctx, recs); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (b *localBackend) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.load(ctx)
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		if rec.ID != id {
			continue
		}

		rec.Title = stringPtr(patch.Title)
		rec.Content = stringPtr(patch.Content)
		rec.UpdatedAt = formatTimestamp(patch.UpdatedAt)
		// Stored records are rewritten in normalized form.
		updated := normalize(rec, patch.UpdatedAt).Record()
		recs[i] = updated

		if err := b.save(ctx, recs); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	return nil, nil
}

func (b *localBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.load(ctx)
	if err != nil {
		return err
	}

	kept := recs[:0]
	for _, rec := range recs {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	return b.save(ctx, kept)
}

func (b *localBackend) HealthCheck(ctx context.Context) error {
	if hc, ok := b.blobs.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (b *localBackend) Close() error {
	return b.blobs.Close()
}
