package restapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brunoscheufler/quicknotes/store"
	"github.com/brunoscheufler/quicknotes/telemetry"
	"github.com/stretchr/testify/require"
)

func TestClient_CRUD(t *testing.T) {
	srv, _ := setupServer(t, newTestStore(t))
	client := NewClient(srv.URL + "/")
	ctx := context.Background()

	health, err := client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "local", health.Backend)

	created, err := client.CreateNote(ctx, "Trip", "pack the tent")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	notes, err := client.ListNotes(ctx, "tent & stove")
	require.NoError(t, err)
	require.Empty(t, notes, "Query must be escaped, not split into parameters")

	notes, err = client.ListNotes(ctx, "TENT")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	updated, err := client.UpdateNote(ctx, created.ID, "Trip", "pack the tent and stove")
	require.NoError(t, err)
	require.Equal(t, "pack the tent and stove", updated.Content)

	_, err = client.UpdateNote(ctx, "missing", "x", "y")
	require.ErrorIs(t, err, store.ErrNoteNotFound)

	require.NoError(t, client.DeleteNote(ctx, created.ID))

	notes, err = client.ListNotes(ctx, "")
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestClient_APIError(t *testing.T) {
	srv, _ := setupServer(t, failingDeletes{newTestStore(t)})
	client := NewClient(srv.URL)

	err := client.DeleteNote(context.Background(), "x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "Failed to delete note", apiErr.Message)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListNotes(context.Background(), "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClientBackend_DrivesStore(t *testing.T) {
	srv, _ := setupServer(t, newTestStore(t))
	tel := telemetry.New(telemetry.WithCLIMode(true))
	s := store.New(NewClient(srv.URL).Backend(), store.WithLogger(tel.Logger))
	defer s.Close()
	ctx := context.Background()

	require.Equal(t, "server", s.Backend())

	s.Initialize(ctx)
	require.Empty(t, s.List(ctx, ""), "Server store is not seeded through the client")

	created := s.Create(ctx, "Via API", "body")
	listed := s.List(ctx, "via api")
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID, "Create must return the id the server assigned")
	require.True(t, created.CreatedAt.Equal(listed[0].CreatedAt))

	updated := s.Update(ctx, created.ID, "Via API", "changed")
	require.NotNil(t, updated)
	require.Equal(t, "changed", updated.Content)
	require.Nil(t, s.Update(ctx, "missing", "x", "y"))

	require.True(t, s.Delete(ctx, created.ID))
	require.Empty(t, s.List(ctx, ""))
}

func TestClientBackend_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tel := telemetry.New(telemetry.WithCLIMode(true))
	s := store.New(NewClient(url).Backend(), store.WithLogger(tel.Logger))
	ctx := context.Background()

	s.Initialize(ctx)
	require.Empty(t, s.List(ctx, ""))
	require.False(t, s.Delete(ctx, "x"))

	note := s.Create(ctx, "offline", "draft")
	require.Equal(t, "offline", note.Title, "Create returns the unsaved payload")
}
