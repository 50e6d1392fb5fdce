// Package logging provides structured logging for perch using stdlib slog,
// plus the rotating file writer used for bar output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig controls logger creation.
type LogConfig struct {
	Level  string         // "debug", "info", "warn", "error"
	Format string         // "text" (default), "json"
	Output io.Writer      // defaults to os.Stderr
	Var    *slog.LevelVar // when set, overrides Level and stays adjustable
}

// New creates a configured *slog.Logger.
func New(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var level slog.Leveler = parseLevel(cfg.Level)
	if cfg.Var != nil {
		level = cfg.Var
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// WithFields returns a child logger with additional context fields.
func WithFields(logger *slog.Logger, fields ...any) *slog.Logger {
	return logger.With(fields...)
}

// ValidateLevel returns an error unless s names a known level.
func ValidateLevel(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
}

// NewLevelVar returns a LevelVar set to the parsed level.
func NewLevelVar(s string) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(s))
	return lv
}

// SetLevel updates lv from a level name. Unknown names select info.
func SetLevel(lv *slog.LevelVar, s string) {
	lv.Set(parseLevel(s))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
