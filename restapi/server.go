package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/store"
	"github.com/brunoscheufler/quicknotes/telemetry"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodySize = 1 << 20

// NoteService is the store surface exposed over HTTP. *store.Store satisfies it.
type NoteService interface {
	List(ctx context.Context, query string) []store.Note
	Create(ctx context.Context, title, content string) store.Note
	Update(ctx context.Context, id, title, content string) *store.Note
	Delete(ctx context.Context, id string) bool
	Backend() string
	HealthCheck(ctx context.Context) error
}

type Server struct {
	notes       NoteService
	telemetry   *telemetry.Telemetry
	logger      *slog.Logger
	validate    *validator.Validate
	corsOrigins []string
}

// ServerOption defines a functional option for configuring Server
type ServerOption func(*serverConfig)

// serverConfig holds configuration options for Server
type serverConfig struct {
	notes       NoteService
	telemetry   *telemetry.Telemetry
	corsOrigins []string
}

// WithNoteStore configures the note store for the server
func WithNoteStore(notes NoteService) ServerOption {
	return func(config *serverConfig) {
		config.notes = notes
	}
}

// WithTelemetry configures the telemetry instance for the server
func WithTelemetry(tel *telemetry.Telemetry) ServerOption {
	return func(config *serverConfig) {
		config.telemetry = tel
	}
}

// WithCORSOrigins sets the origins browsers may call the API from
func WithCORSOrigins(origins ...string) ServerOption {
	return func(config *serverConfig) {
		config.corsOrigins = origins
	}
}

// NewServer creates a new server with functional options
func NewServer(options ...ServerOption) *Server {
	config := &serverConfig{
		corsOrigins: []string{constants.DefaultCORSOrigin},
	}

	for _, option := range options {
		option(config)
	}

	logger := slog.Default()
	if config.telemetry != nil {
		logger = config.telemetry.GetLogger()
	}

	return &Server{
		notes:       config.notes,
		telemetry:   config.telemetry,
		logger:      logger,
		validate:    validator.New(),
		corsOrigins: config.corsOrigins,
	}
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.LoggingMiddleware)

	s.SetupRoutes(r)
	return r
}

func (s *Server) SetupRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealthCheck)

	if s.telemetry != nil {
		r.Method(http.MethodGet, "/metrics", s.telemetry.Metrics.Handler())
	}

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", s.handleListNotes)
		r.Post("/", s.handleCreateNote)
		r.Put("/{id}", s.handleUpdateNote)
		r.Delete("/{id}", s.handleDeleteNote)
	})
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		// Label by route pattern so note ids do not explode metric cardinality.
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = strings.TrimSuffix(pattern, "/")
				if route == "" {
					route = "/"
				}
			}
		}

		if s.telemetry != nil {
			s.telemetry.Metrics.TrackAPIRequest(r.Method, route, duration, rw.status)
		}

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", duration,
			"status", rw.status,
		)
	})
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status    string    `json:"status"`
	Backend   string    `json:"backend"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// NoteInput is the request body for creating and updating notes
type NoteInput struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"max=10000"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Backend:   s.notes.Backend(),
		Timestamp: time.Now().UTC(),
	}

	if err := s.notes.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("Note storage health check failed", "backend", health.Backend, "error", err)
		health.Status = "unavailable"
		health.Error = "Note storage unavailable"
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON", "error", err)
	}
}

// decodeNote reads and validates a NoteInput, writing the error response
// itself when the body is unusable.
func (s *Server) decodeNote(w http.ResponseWriter, r *http.Request) (NoteInput, bool) {
	var input NoteInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return NoteInput{}, false
	}

	if err := s.validate.Struct(input); err != nil {
		s.writeError(w, http.StatusBadRequest, formatValidationError(err))
		return NoteInput{}, false
	}

	return input, true
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(messages, "; ")
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes := s.notes.List(r.Context(), r.URL.Query().Get("q"))
	s.writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeNote(w, r)
	if !ok {
		return
	}

	note := s.notes.Create(r.Context(), input.Title, input.Content)
	s.writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	input, ok := s.decodeNote(w, r)
	if !ok {
		return
	}

	note := s.notes.Update(r.Context(), id, input.Title, input.Content)
	if note == nil {
		s.writeError(w, http.StatusNotFound, "Note not found")
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !s.notes.Delete(r.Context(), id) {
		s.writeError(w, http.StatusBadGateway, "Failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
