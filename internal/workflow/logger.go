package workflow

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Log artifacts consumed externally for diagnostics.
const (
	// MainLogFile receives the execution log of provisioning attempts.
	MainLogFile = "launch_instance.log"
	// SetupLogFile receives client initialization and parameter resolution.
	SetupLogFile = "setup_and_info.log"
)

// SetupLogger configures a logger writing colorized output to stderr via
// "tint" and, when logFile is non-empty, plain text records to the file.
// A file that cannot be opened degrades to terminal-only logging.
func SetupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level: logLevel,
		}),
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{
				Level: logLevel,
			}))
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(fanoutHandler{handlers: handlers})
}

// fanoutHandler duplicates records to the terminal and the log file.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, rec.Level) {
			continue
		}
		if err := handler.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return fanoutHandler{handlers: next}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return fanoutHandler{handlers: next}
}
