package restapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/brunoscheufler/quicknotes/store"
)

// Backend adapts the client to store.Backend so a running server can stand
// in for local or remote storage. The server assigns ids and timestamps.
func (c *Client) Backend() store.Backend {
	return &clientBackend{client: c}
}

type clientBackend struct {
	client *Client
}

func (b *clientBackend) Name() string {
	return "server"
}

// Init only checks that the server is reachable; the server seeds its own store.
func (b *clientBackend) Init(ctx context.Context, seed store.Note) error {
	if _, err := b.client.Health(ctx); err != nil {
		return fmt.Errorf("failed to reach %s: %w", b.client.BaseURL(), err)
	}
	return nil
}

func (b *clientBackend) List(ctx context.Context) ([]store.Record, error) {
	notes, err := b.client.ListNotes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	recs := make([]store.Record, 0, len(notes))
	for _, note := range notes {
		recs = append(recs, note.Record())
	}
	return recs, nil
}

func (b *clientBackend) Insert(ctx context.Context, note store.Note) (store.Record, error) {
	created, err := b.client.CreateNote(ctx, note.Title, note.Content)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to create note: %w", err)
	}
	return created.Record(), nil
}

func (b *clientBackend) Update(ctx context.Context, id string, patch store.Patch) (*store.Record, error) {
	updated, err := b.client.UpdateNote(ctx, id, patch.Title, patch.Content)
	if errors.Is(err, store.ErrNoteNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	rec := updated.Record()
	return &rec, nil
}

func (b *clientBackend) Delete(ctx context.Context, id string) error {
	if err := b.client.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (b *clientBackend) Close() error {
	b.client.httpClient.CloseIdleConnections()
	return nil
}
