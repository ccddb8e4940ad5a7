package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/supabase-community/postgrest-go"
)

// postgrestStub answers the subset of the PostgREST protocol used by SupabaseTable.
type postgrestStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (p *postgrestStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	p.requests = append(p.requests, r.Clone(context.Background()))
	p.bodies = append(p.bodies, string(body))
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		w.Write([]byte(`[
			{"id":"n2","title":"second","content":"b","created_at":"2025-06-02T10:00:00+00:00","updated_at":"2025-06-02T10:00:00+00:00"},
			{"id":"n1","title":"first","content":"a","created_at":"2025-06-01T10:00:00+00:00","updated_at":"2025-06-01T10:00:00+00:00"}
		]`))
	case http.MethodPost:
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("[" + string(body) + "]"))
	case http.MethodPatch:
		if r.URL.Query().Get("id") == "eq.missing" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":"n1","title":"patched","content":"c","created_at":"2025-06-01T10:00:00+00:00","updated_at":"2025-06-03T10:00:00+00:00"}]`))
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (p *postgrestStub) last() (*http.Request, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1], p.bodies[len(p.bodies)-1]
}

func setupSupabaseTable(t *testing.T) (*SupabaseTable, *postgrestStub) {
	t.Helper()
	stub := &postgrestStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := postgrest.NewClient(srv.URL, "public", map[string]string{"apikey": "test-key"})
	return NewPostgrestTable(client, ""), stub
}

// failingPostgrest answers every request with the given status and a
// PostgREST error body.
type failingPostgrest struct {
	status int
	code   string

	mu    sync.Mutex
	calls int
}

func (f *failingPostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    f.code,
		"message": "request failed",
	})
}

func (f *failingPostgrest) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupFailingTable(t *testing.T, status int, code string) (*SupabaseTable, *failingPostgrest) {
	t.Helper()
	stub := &failingPostgrest{status: status, code: code}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := postgrest.NewClient(srv.URL, "public", nil)
	return NewPostgrestTable(client, ""), stub
}

func TestSupabaseTable_SelectOrdersByUpdatedAt(t *testing.T) {
	table, stub := setupSupabaseTable(t)

	recs, err := table.Select(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "n2", recs[0].ID)
	require.Equal(t, "second", *recs[0].Title)

	req, _ := stub.last()
	require.True(t, strings.HasSuffix(req.URL.Path, "/notes"), "unexpected path %s", req.URL.Path)
	require.True(t, strings.HasPrefix(req.URL.Query().Get("order"), "updated_at.desc"))
}

func TestSupabaseTable_InsertSendsRecord(t *testing.T) {
	table, stub := setupSupabaseTable(t)

	rec := Record{
		ID:        "n3",
		Title:     stringPtr("third"),
		Content:   stringPtr(""),
		CreatedAt: "2025-06-03T10:00:00Z",
		UpdatedAt: "2025-06-03T10:00:00Z",
	}
	stored, err := table.Insert(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, rec, stored)

	req, body := stub.last()
	require.Equal(t, http.MethodPost, req.Method)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &sent))
	require.Equal(t, "n3", sent["id"])
	require.Equal(t, "", sent["content"], "Empty content must still be sent")
}

func TestSupabaseTable_UpdateMissingRow(t *testing.T) {
	table, stub := setupSupabaseTable(t)
	ctx := context.Background()

	rec, err := table.Update(ctx, "n1", map[string]any{"title": "patched"})
	require.NoError(t, err)
	require.Equal(t, "patched", *rec.Title)

	req, _ := stub.last()
	require.Equal(t, http.MethodPatch, req.Method)
	require.Equal(t, "eq.n1", req.URL.Query().Get("id"))

	_, err = table.Update(ctx, "missing", map[string]any{"title": "x"})
	require.ErrorIs(t, err, ErrNoteNotFound)
}

func TestSupabaseTable_Delete(t *testing.T) {
	table, stub := setupSupabaseTable(t)

	require.NoError(t, table.Delete(context.Background(), "n1"))

	req, _ := stub.last()
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, "eq.n1", req.URL.Query().Get("id"))
}

func TestFirstRow(t *testing.T) {
	_, err := firstRow(nil)
	require.ErrorIs(t, err, ErrNoteNotFound)

	_, err = firstRow([]byte(`{"id":`))
	require.Error(t, err)

	rec, err := firstRow([]byte(`[{"id":"a"},{"id":"b"}]`))
	require.NoError(t, err)
	require.Equal(t, "a", rec.ID)
}

func TestSupabaseTable_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		transient bool
	}{
		{"database unavailable", http.StatusServiceUnavailable, "PGRST000", true},
		{"gateway timeout", http.StatusGatewayTimeout, "PGRST003", true},
		{"rate limited", http.StatusTooManyRequests, "", true},
		{"not implemented", http.StatusNotImplemented, "PGRST127", false},
		{"bad request", http.StatusBadRequest, "PGRST100", false},
		{"unknown column", http.StatusBadRequest, "42703", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, _ := setupFailingTable(t, tt.status, tt.code)

			_, err := table.Select(context.Background())
			require.Error(t, err)
			require.Equal(t, tt.transient, isTransientRemoteError(err))

			var statusErr *RemoteStatusError
			if tt.status >= http.StatusInternalServerError || tt.status == http.StatusTooManyRequests {
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, tt.status, statusErr.StatusCode)
				require.Equal(t, tt.code, statusErr.Code)
			} else {
				require.False(t, errors.As(err, &statusErr), "Client errors keep the PostgREST message")
				require.Contains(t, err.Error(), tt.code)
			}
		})
	}
}

func TestRemote_RetriesUnavailableDatabase(t *testing.T) {
	table, stub := setupFailingTable(t, http.StatusServiceUnavailable, "PGRST000")
	opts := testRemoteOptions()
	s := New(NewRemoteBackend(table, opts), WithLogger(discardLogger()))

	require.Empty(t, s.List(context.Background(), ""))
	require.Equal(t, opts.Retry.MaxRetries+1, stub.callCount())
}

func TestRemote_DoesNotRetryRejectedRequest(t *testing.T) {
	table, stub := setupFailingTable(t, http.StatusBadRequest, "PGRST100")
	s := New(NewRemoteBackend(table, testRemoteOptions()), WithLogger(discardLogger()))

	require.False(t, s.Delete(context.Background(), "n1"))
	require.Equal(t, 1, stub.callCount())
}
