package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"taskbridge/internal/config"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

var (
	lineTokenPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|\b\d{1,3}(?:\.\d{1,3}){3}\b|\b\d+(?:\.\d+)?\b`)
	ipTokenPattern   = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
)

// New builds a logger with configured console/file sinks.
// Params: cfg validated log configuration.
// Returns: slog logger, sink close callback, and setup error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0, 2)
	closers := make([]func(), 0, 1)

	if cfg.Console.Enabled {
		handlers = append(handlers, newSinkHandler(os.Stdout, cfg.Console, true))
	}

	if cfg.File.Enabled {
		file, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.File.Path, err)
		}
		handlers = append(handlers, newSinkHandler(file, cfg.File, false))
		closers = append(closers, func() {
			_ = file.Close()
		})
	}

	if len(handlers) == 0 {
		handlers = append(handlers, newSinkHandler(os.Stdout, config.LogSinkConfig{Level: "info", Format: "line"}, true))
	}

	closeFn := func() {
		for _, closeSink := range closers {
			closeSink()
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(multiHandler{handlers: handlers}), closeFn, nil
}

// newSinkHandler builds one slog handler for a sink destination.
// Params: dst output writer; sink level/format options; colorize enables the
// ANSI line writer for line format.
// Returns: configured handler.
func newSinkHandler(dst io.Writer, sink config.LogSinkConfig, colorize bool) slog.Handler {
	options := &slog.HandlerOptions{Level: parseLevel(sink.Level)}

	if strings.EqualFold(sink.Format, "json") {
		return slog.NewJSONHandler(dst, options)
	}
	if colorize {
		dst = &colorLineWriter{dst: dst}
	}
	return slog.NewTextHandler(dst, options)
}

// parseLevel maps config level names onto slog levels.
// Params: level lower-case level name.
// Returns: slog level, info when unknown.
func parseLevel(level string) slog.Level {
	switch strings.TrimSpace(strings.ToLower(level)) {
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

// multiHandler fans one record out to several sink handlers.
// Params: child handler list.
// Returns: composite slog handler.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled reports whether any child handler accepts the level.
// Params: ctx log context; level record level.
// Returns: true when at least one sink is interested.
func (h multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every interested child handler.
// Params: ctx log context; record log record.
// Returns: first child handler error, if any.
func (h multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs forwards attribute binding to child handlers.
// Params: attrs bound attributes.
// Returns: composite handler with bound children.
func (h multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return multiHandler{handlers: next}
}

// WithGroup forwards group binding to child handlers.
// Params: name group name.
// Returns: composite handler with bound children.
func (h multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return multiHandler{handlers: next}
}

// colorLineWriter colorizes text-format log lines for console output.
// Params: dst underlying writer.
// Returns: writer that highlights level and value tokens.
type colorLineWriter struct {
	dst io.Writer
}

// Write colorizes one log line based on its level token.
// Params: p one rendered text-format record.
// Returns: consumed byte count and write error.
func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := string(p)
	trailing := ""
	if strings.HasSuffix(line, "\n") {
		line = strings.TrimSuffix(line, "\n")
		trailing = "\n"
	}

	base := levelColor(line)
	if base == "" {
		if _, err := w.dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	colored := lineTokenPattern.ReplaceAllStringFunc(line, func(token string) string {
		return tokenColor(token) + token + ansiReset + base
	})

	if _, err := io.WriteString(w.dst, base+colored+ansiReset+trailing); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelColor picks the line base color from the level token.
// Params: line rendered text-format record.
// Returns: ANSI color, empty for unknown levels (passthrough).
func levelColor(line string) string {
	switch {
	case strings.Contains(line, "level=DEBUG"):
		return ansiGray
	case strings.Contains(line, "level=INFO"):
		return ansiBlue
	case strings.Contains(line, "level=WARN"):
		return ansiYellow
	case strings.Contains(line, "level=ERROR"):
		return ansiRed
	default:
		return ""
	}
}

// tokenColor picks the highlight color for one matched value token.
// Params: token quoted string, IP address, or number.
// Returns: ANSI color for the token kind.
func tokenColor(token string) string {
	if strings.HasPrefix(token, `"`) {
		return ansiGreen
	}
	if ipTokenPattern.MatchString(token) {
		return ansiCyan
	}
	return ansiYellow
}
