package main

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT values.
// Defaults: level=info, format=text. unknown reports an unrecognised level.
func newLogger(level, format string, w io.Writer) (logger *slog.Logger, unknown bool) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		unknown = true
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), unknown
	}
	return slog.New(slog.NewTextHandler(w, opts)), unknown
}

// maskToken keeps the last few characters of a secret for log lines.
func maskToken(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return "***" + tok[len(tok)-4:]
}
