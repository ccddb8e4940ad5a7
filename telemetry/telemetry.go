package telemetry

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/lmittmann/tint"
)

// Telemetry bundles the process logger, the in-memory log capture and the
// Prometheus metrics.
type Telemetry struct {
	Logger     *slog.Logger
	LogCapture *LogCapture
	Metrics    *Metrics

	logLevel slog.Level
	cliMode  bool
}

type Option func(*Telemetry)

// WithCLIMode keeps logs off stderr so they do not corrupt the terminal UI.
// Captured lines are still available for the log pane.
func WithCLIMode(enabled bool) Option {
	return func(t *Telemetry) {
		t.cliMode = enabled
	}
}

// WithLogLevel sets the minimum level: debug, info, warn or error.
func WithLogLevel(level string) Option {
	return func(t *Telemetry) {
		t.logLevel = ParseLogLevel(level)
	}
}

func New(opts ...Option) *Telemetry {
	t := &Telemetry{
		LogCapture: NewLogCapture(constants.DefaultLogBufferSize),
		Metrics:    NewMetrics(),
		logLevel:   slog.LevelDebug,
	}
	for _, opt := range opts {
		opt(t)
	}

	if !t.cliMode {
		t.LogCapture.AddWriter(os.Stderr)
	}

	t.Logger = slog.New(tint.NewHandler(t.LogCapture, &tint.Options{
		Level:      t.logLevel,
		TimeFormat: time.Kitchen,
	}))

	return t
}

func (t *Telemetry) GetLogger() *slog.Logger {
	return t.Logger
}

// SetupLogging makes the telemetry logger the slog default.
func (t *Telemetry) SetupLogging() {
	slog.SetDefault(t.Logger)
}

// ParseLogLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
