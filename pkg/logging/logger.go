// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line produced through Setup.
const ServiceName = "meli-trends"

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

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// FromContext returns the request-scoped logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &log.Logger
	}
	return zerolog.Ctx(ctx)
}

// Levels by event. Loggers carry a component field naming their source:
// http, http-server, meli-client, ratelimit, enricher, trends-service, pager.
//
// Debug:
//   - trends-service: snapshot hit with age, joined in-flight computation
//   - meli-client: each upstream request, retry backoff waits
//   - pager: country change resetting the accumulated records
//   - http: 4xx rejections other than 404, with the mapped cause
//
// Info:
//   - trends-service: snapshot computed (records, duration) and invalidated
//   - http: session created (user_id, expires_at) and cleared
//   - ratelimit: upstream block cleared after a successful call
//   - http-server: started, shutdown requested, stopped
//   - trends-server: configuration loaded, Redis connected
//
// Warn:
//   - ratelimit: request suppressed during a CloudFront cooldown
//   - meli-client: upstream 4xx/5xx with its error_class, retries exhausted
//   - trends-service: snapshot write-back failed, unusable snapshot recomputed
//   - enricher: keyword search failed and the record stays unenriched
//
// Error:
//   - http: any response mapped to 5xx, logged with the cause
//   - meli-client: transport failure reaching the upstream
//   - ratelimit: block state unreadable in Redis
//
// Fields: request_id, country, endpoint, status_code, duration,
// error_class, cache_status, user_id, records, offset, limit, total.
