package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// DefaultTableName is the remote table holding notes.
const DefaultTableName = "notes"

// RestClient builds PostgREST queries. Both *supabase.Client and
// *postgrest.Client satisfy it.
type RestClient interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseTable is a Table over a PostgREST endpoint.
type SupabaseTable struct {
	client RestClient
	name   string
}

// NewSupabaseTable connects to the Supabase project at url with the given API key.
func NewSupabaseTable(url, key, table string) (*SupabaseTable, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key are required")
	}

	// Same endpoint and headers as supabase.NewClient, which keeps its
	// PostgREST client private.
	client := postgrest.NewClient(url+supabase.REST_URL, "public", map[string]string{
		"Authorization": "Bearer " + key,
		"apikey":        key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("could not create supabase client: %w", client.ClientError)
	}
	return NewPostgrestTable(client, table), nil
}

// NewPostgrestTable returns a Table over client. Throttled and server-side
// failures surface as *RemoteStatusError so they can be retried.
func NewPostgrestTable(client *postgrest.Client, table string) *SupabaseTable {
	client.Transport.Parent = statusTransport{next: http.DefaultTransport}
	return NewRestTable(client, table)
}

// statusTransport fails requests answered with 429 or 5xx before the
// PostgREST client flattens the response into a message without its status.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}
	defer resp.Body.Close()

	statusErr := &RemoteStatusError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var pgErr postgrest.ExecuteError
	if json.Unmarshal(body, &pgErr) == nil {
		statusErr.Code = pgErr.Code
		statusErr.Message = pgErr.Message
	}
	return nil, statusErr
}

// NewRestTable returns a Table using client for the named table.
func NewRestTable(client RestClient, table string) *SupabaseTable {
	if table == "" {
		table = DefaultTableName
	}
	return &SupabaseTable{client: client, name: table}
}

// The PostgREST builders do not take a context; requests run to completion
// on their own client timeout.

func (t *SupabaseTable) Select(ctx context.Context) ([]Record, error) {
	body, _, err := t.client.From(t.name).
		Select("*", "", false).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", t.name, err)
	}
	return decodeRows(body)
}

func (t *SupabaseTable) Insert(ctx context.Context, rec Record) (Record, error) {
	body, _, err := t.client.From(t.name).
		Insert(rec, false, "", "representation", "").
		Execute()
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	return firstRow(body)
}

func (t *SupabaseTable) Update(ctx context.Context, id string, fields map[string]any) (Record, error) {
	body, _, err := t.client.From(t.name).
		Update(fields, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return Record{}, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	return firstRow(body)
}

func (t *SupabaseTable) Delete(ctx context.Context, id string) error {
	_, _, err := t.client.From(t.name).
		Delete("", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	return nil
}

func decodeRows(body []byte) ([]Record, error) {
	recs := []Record{}
	if len(body) == 0 {
		return recs, nil
	}
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return recs, nil
}

// firstRow returns the single row of a representation response, or
// ErrNoteNotFound when the statement touched no rows.
func firstRow(body []byte) (Record, error) {
	recs, err := decodeRows(body)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNoteNotFound
	}
	return recs[0], nil
}
