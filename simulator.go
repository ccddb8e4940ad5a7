package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/restapi"
	"github.com/brunoscheufler/quicknotes/telemetry"
)

type SimulatorOptions struct {
	Workers        int
	NotesPerWorker int
	RequestsPerMin int
	BaseURL        string
}

// Simulator drives the notes API with a configurable request rate and checks
// that every worker reads back what it wrote.
type Simulator struct {
	apiClient *restapi.Client
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
	options   SimulatorOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type workerLoop struct {
	name      string
	apiClient *restapi.Client
	logger    *slog.Logger

	// Track owned notes with their expected content hashes
	notes     map[string]string
	notesLock sync.Mutex

	ctx      context.Context
	interval time.Duration
}

// hashContents returns a SHA256 hash of the given title and content
func hashContents(title, content string) string {
	hash := sha256.Sum256([]byte(title + "\x00" + content))
	return fmt.Sprintf("%x", hash)
}

func NewSimulator(telemetry *telemetry.Telemetry, options SimulatorOptions) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())

	return &Simulator{
		apiClient: restapi.NewClient(options.BaseURL),
		telemetry: telemetry,
		logger:    telemetry.GetLogger(),
		options:   options,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Simulator) BaseURL() string {
	return s.apiClient.BaseURL()
}

func (s *Simulator) Start() error {
	if s.options.Workers <= 0 {
		return fmt.Errorf("load generator needs at least one worker, got %d", s.options.Workers)
	}

	s.logger.Info("Starting load generator",
		"workers", s.options.Workers,
		"notes_per_worker", s.options.NotesPerWorker,
		"requests_per_min", s.options.RequestsPerMin,
	)

	interval := time.Second
	if s.options.RequestsPerMin > 0 {
		interval = time.Duration(constants.MillisecondsPerMinute/s.options.RequestsPerMin) * time.Millisecond
	}

	runID := time.Now().Format("15:04:05")
	for i := 0; i < s.options.Workers; i++ {
		worker := &workerLoop{
			name:      fmt.Sprintf("loadgen-%d-%s", i+1, runID),
			apiClient: s.apiClient,
			logger:    s.logger,
			notes:     make(map[string]string),
			ctx:       s.ctx,
			interval:  interval,
		}

		s.wg.Add(1)
		go s.runWorker(worker)
	}

	return nil
}

func (s *Simulator) Stop() {
	s.logger.Info("Stopping load generator...")
	s.cancel()

	// Wait for goroutines to finish with a timeout to prevent hanging
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Load generator stopped")
	case <-time.After(constants.LoadGenStopTimeout):
		s.logger.Warn("Load generator stop timed out, some goroutines may still be running")
	}
}

func (s *Simulator) runWorker(w *workerLoop) {
	defer s.wg.Done()

	for i := 0; i < s.options.NotesPerWorker; i++ {
		if err := w.createNote(); err != nil {
			if w.ctx.Err() == nil {
				s.logger.Error("Failed to create initial notes", "worker", w.name, "error", err)
			}
			return
		}
	}

	w.run()
}

func (w *workerLoop) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	operations := []func() error{
		w.createNote,
		w.updateNote,
		w.deleteNote,
		w.listNotes,
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			operation := operations[rand.Intn(len(operations))]
			if err := operation(); err != nil && w.ctx.Err() == nil {
				w.logger.Error("Load generator operation failed", "worker", w.name, "error", err)
			}
		}
	}
}

// randomNote returns one owned note id. The caller must hold notesLock.
func (w *workerLoop) randomNote() (string, bool) {
	if len(w.notes) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(w.notes))
	for id := range w.notes {
		ids = append(ids, id)
	}
	return ids[rand.Intn(len(ids))], true
}

func (w *workerLoop) createNote() error {
	title := w.name
	content := fmt.Sprintf("Note created at %s", time.Now().Format(time.RFC3339Nano))

	created, err := w.apiClient.CreateNote(w.ctx, title, content)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	w.notesLock.Lock()
	w.notes[created.ID] = hashContents(created.Title, created.Content)
	w.notesLock.Unlock()

	return nil
}

func (w *workerLoop) updateNote() error {
	w.notesLock.Lock()
	defer w.notesLock.Unlock()

	id, ok := w.randomNote()
	if !ok {
		return nil
	}

	content := fmt.Sprintf("Updated at %s", time.Now().Format(time.RFC3339Nano))
	updated, err := w.apiClient.UpdateNote(w.ctx, id, w.name, content)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	if updated.Content != content {
		w.logger.Warn("CONSISTENCY ERROR: Update returned stale content", "worker", w.name, "note", id)
	}
	w.notes[id] = hashContents(updated.Title, updated.Content)

	return nil
}

func (w *workerLoop) deleteNote() error {
	w.notesLock.Lock()
	defer w.notesLock.Unlock()

	id, ok := w.randomNote()
	if !ok {
		return nil
	}

	if err := w.apiClient.DeleteNote(w.ctx, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	delete(w.notes, id)

	return nil
}

// listNotes compares the server's notes titled with this worker's name
// against the notes the worker believes it owns.
func (w *workerLoop) listNotes() error {
	w.notesLock.Lock()
	defer w.notesLock.Unlock()

	notes, err := w.apiClient.ListNotes(w.ctx, w.name)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	serverNotes := make(map[string]string, len(notes))
	for _, note := range notes {
		if note.Title != w.name {
			continue
		}
		serverNotes[note.ID] = hashContents(note.Title, note.Content)
	}

	for id, expectedHash := range w.notes {
		if actualHash, exists := serverNotes[id]; !exists {
			w.logger.Warn("CONSISTENCY ERROR: Note missing from server", "worker", w.name, "note", id)
		} else if actualHash != expectedHash {
			w.logger.Warn("CONSISTENCY ERROR: Note server/client mismatch", "worker", w.name, "note", id)
		}
	}

	for id := range serverNotes {
		if _, exists := w.notes[id]; !exists {
			w.logger.Warn("CONSISTENCY ERROR: Unexpected note on server", "worker", w.name, "note", id)
		}
	}

	return nil
}
