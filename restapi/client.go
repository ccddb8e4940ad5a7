package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/store"
)

// Client talks to a quicknotes API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is returned for every response with a status of 400 or above.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: constants.ClientTimeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/healthz", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListNotes(ctx context.Context, query string) ([]store.Note, error) {
	path := "/notes"
	if strings.TrimSpace(query) != "" {
		path += "?q=" + url.QueryEscape(query)
	}

	notes := []store.Note{}
	err := c.doRequest(ctx, http.MethodGet, path, nil, &notes)
	return notes, err
}

func (c *Client) CreateNote(ctx context.Context, title, content string) (*store.Note, error) {
	var result store.Note
	if err := c.doRequest(ctx, http.MethodPost, "/notes", NoteInput{Title: title, Content: content}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateNote returns store.ErrNoteNotFound when the server has no note with id.
func (c *Client) UpdateNote(ctx context.Context, id, title, content string) (*store.Note, error) {
	var result store.Note
	path := "/notes/" + url.PathEscape(id)
	err := c.doRequest(ctx, http.MethodPut, path, NoteInput{Title: title, Content: content}, &result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, store.ErrNoteNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	path := "/notes/" + url.PathEscape(id)
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}
