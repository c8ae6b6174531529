// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: true, the
	// exporter is run by hand and read from a terminal).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stdout).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: os.Stdout,
	}
}

// base is the logger configured by Setup, before any run id is attached.
var base = log.Logger

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	base = logger
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

// NewRunID returns a fresh identifier used to correlate every line of one run.
func NewRunID() string {
	return uuid.NewString()
}

// WithRun tags the global logger with a run id, so component loggers created
// afterwards inherit it. A later call replaces the previous run id.
func WithRun(runID string) zerolog.Logger {
	log.Logger = base.With().Str("run_id", runID).Logger()
	return log.Logger
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Request payloads (page, size, event timestamp)
//   - Throttle sleeps and their durations
//   - Raw response bodies of the tracking endpoint
//
// Info: Normal operation events
//   - Page totals (records on page, running total)
//   - Tracking call status
//   - Export file path and summary statistics
//
// Warn: Warning conditions that don't stop the run
//   - Skipped pages (HTTP status, malformed body, transport error)
//   - Tracking call failures
//   - Unparsable withdrawRequest payloads, skipped records
//
// Error: Error conditions that end the run
//   - Invalid configuration
//   - Run lock held by another process
//   - Spreadsheet write failures
//
// Context Fields:
//   - run_id: Identifier of the current run
//   - component: Emitting package (notifier, paginator, exporter, ...)
//   - page: Page number being fetched
//   - endpoint: Logical endpoint name (producer, withdraw_detail)
//   - status: HTTP status code
//   - withdraw_id: Record identifier for per-record warnings
