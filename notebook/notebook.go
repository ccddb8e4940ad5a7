// Package notebook holds the state a note-taking front end works against:
// the currently listed notes, the active search query and a loading flag.
package notebook

import (
	"context"
	"log/slog"
	"sync"

	"github.com/brunoscheufler/quicknotes/store"
)

// Service is the set of note operations a Notebook drives. *store.Store
// satisfies it.
type Service interface {
	Initialize(ctx context.Context)
	List(ctx context.Context, query string) []store.Note
	Create(ctx context.Context, title, content string) store.Note
	Update(ctx context.Context, id, title, content string) *store.Note
	Delete(ctx context.Context, id string) bool
}

// Notebook is safe for concurrent use. Every mutation is followed by a
// re-list using the current query.
type Notebook struct {
	service Service
	logger  *slog.Logger

	mu      sync.RWMutex
	notes   []store.Note
	query   string
	pending int
	// generation counts Refresh calls; only the latest one may store its result.
	generation uint64
	onChange   func()
}

func New(service Service, logger *slog.Logger) *Notebook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notebook{
		service: service,
		logger:  logger,
		notes:   []store.Note{},
	}
}

// OnChange registers fn to be called after the loading flag or the note list
// changes. fn runs on the goroutine that caused the change.
func (n *Notebook) OnChange(fn func()) {
	n.mu.Lock()
	n.onChange = fn
	n.mu.Unlock()
}

func (n *Notebook) notify() {
	n.mu.RLock()
	fn := n.onChange
	n.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Start initializes the store and loads every note.
func (n *Notebook) Start(ctx context.Context) {
	n.service.Initialize(ctx)
	n.Refresh(ctx, "")
}

// Refresh lists the notes matching query and makes query the current one.
func (n *Notebook) Refresh(ctx context.Context, query string) {
	n.mu.Lock()
	n.pending++
	n.generation++
	generation := n.generation
	n.query = query
	n.mu.Unlock()
	n.notify()

	notes := n.service.List(ctx, query)

	n.mu.Lock()
	if n.generation == generation {
		n.notes = notes
	}
	n.pending--
	n.mu.Unlock()

	n.logger.Debug("Notes refreshed", "query", query, "count", len(notes))
	n.notify()
}

func (n *Notebook) AddNote(ctx context.Context, title, content string) store.Note {
	note := n.service.Create(ctx, title, content)
	n.Refresh(ctx, n.Query())
	return note
}

// EditNote returns nil when the note no longer exists or could not be saved.
func (n *Notebook) EditNote(ctx context.Context, id, title, content string) *store.Note {
	note := n.service.Update(ctx, id, title, content)
	n.Refresh(ctx, n.Query())
	return note
}

func (n *Notebook) RemoveNote(ctx context.Context, id string) bool {
	ok := n.service.Delete(ctx, id)
	n.Refresh(ctx, n.Query())
	return ok
}

// Notes returns a copy of the current notes.
func (n *Notebook) Notes() []store.Note {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]store.Note, len(n.notes))
	copy(out, n.notes)
	return out
}

// Note returns the current note with the given id.
func (n *Notebook) Note(id string) (store.Note, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, note := range n.notes {
		if note.ID == id {
			return note, true
		}
	}
	return store.Note{}, false
}

// Loading reports whether any refresh is in flight.
func (n *Notebook) Loading() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pending > 0
}

func (n *Notebook) Query() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.query
}
