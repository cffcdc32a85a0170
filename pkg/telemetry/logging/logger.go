package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sta-hq/verdict/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
)

// New builds a slog.Logger from the logging configuration. Output goes to w,
// or os.Stderr when w is nil, so that stdout stays free for NDJSON results.
//
// The returned logger redacts credentials and copies run, envelope and
// trace identifiers from the context onto each record.
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: NewRedactor().ReplaceAttr,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewContextHandler(handler)), nil
}

// Component returns logger tagged with a component attribute, falling back
// to slog.Default() when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// ParseFormat parses a log format string into LogFormat.
func ParseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
