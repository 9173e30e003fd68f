package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the logger of the mdf command line. It mirrors the shared
// observability.NewLogger used by the dashboard but writes to stderr, so
// command reports on stdout stay clean, and it does not replace the default
// logger. format is "json" or "text"; level is one of debug, info, warn or
// error and defaults to info.
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
