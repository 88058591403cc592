// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Format is "json" (default) or "console" for human-readable output.
	Format string

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Individual page fetches (page, status_code, items)
//   - Dropped points by reason
//   - Status store reads
//
// Info: Normal operation events
//   - Job start and completion
//   - Collection progress (every 10th page and the last one)
//   - Successful publish with location
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Failed pages (HTTP or transport error)
//   - Recovered panics in page workers
//   - Status store write failures
//
// Error: Error conditions requiring attention
//   - Missing API token
//   - Total page probe failures
//   - Publish failures
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (client, collector, job, publish, status, server)
//   - page: Page number being fetched
//   - status_code: HTTP status code
//   - outcome: Page outcome (success, empty_or_malformed, http_error, transport_error)
//   - total_pages: Page count reported by the points API
//   - workers: Worker goroutines used for collection
//   - points: Points kept after normalization
//   - backend: Publish backend (s3, gcs, minio, file)
//   - duration: Elapsed time
