package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	// Level is the minimum level emitted (trace through panic).
	Level string

	// Format selects the encoding: "json", or "console"/"pretty" for
	// human-readable development output.
	Format string

	// Output selects the destination, "stdout" or "stderr".
	Output string

	// AddSource annotates entries with the calling file and line.
	AddSource bool

	// TimeFormat overrides the timestamp layout. Defaults to RFC 3339.
	TimeFormat string
}

// DefaultLoggingConfig returns production defaults: JSON at info level on
// stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds a zerolog logger from cfg. Unknown levels fall back to
// info and unknown outputs to stdout.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if cfg.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	writer := destination(cfg.Output)
	if format := strings.ToLower(cfg.Format); format == "console" || format == "pretty" {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: zerolog.TimeFieldFormat}
	}

	ctx := zerolog.New(writer).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return ctx.Logger().Level(level)
}

func destination(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestContext returns a child logger tagged with the request ID.
func WithRequestContext(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// WithSearchContext returns a child logger tagged with the search query and
// the source handling it.
func WithSearchContext(logger zerolog.Logger, query, source string) zerolog.Logger {
	return logger.With().
		Str("query", query).
		Str("source", source).
		Logger()
}

// WithPaperContext returns a child logger tagged with a paper's canonical
// and source-local identifiers.
func WithPaperContext(logger zerolog.Logger, paperID, externalID string) zerolog.Logger {
	return logger.With().
		Str("paper_id", paperID).
		Str("external_id", externalID).
		Logger()
}
