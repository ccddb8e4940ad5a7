package constants

import "time"

// Application-wide constants
const (
	AppName = "quicknotes"

	// Health check configuration
	MaxHealthCheckRetries    = 10
	HealthCheckRetryInterval = 200 * time.Millisecond
	HealthCheckTimeout       = 5 * time.Second

	// Server configuration
	DefaultPort             = 8080
	GracefulShutdownTimeout = 5 * time.Second
	ReadHeaderTimeout       = 10 * time.Second
	DefaultCORSOrigin       = "*"

	// API client configuration
	ClientTimeout = 10 * time.Second

	// Load generator configuration
	MillisecondsPerMinute = 60000
	LoadGenStartupDelay   = 100 * time.Millisecond
	LoadGenStopTimeout    = 2 * time.Second

	// Telemetry configuration
	DefaultLogBufferSize = 1000

	// Terminal UI configuration
	SearchDebounce = 300 * time.Millisecond
	ExcerptLength  = 120
	MinCardWidth   = 32
)
