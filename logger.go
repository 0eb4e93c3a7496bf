package routecache

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/routecache/reducer"
)

// Logger wraps slog.Logger with router-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithAction adds the action name to the logger.
func (l *Logger) WithAction(a reducer.Action) *Logger {
	return &Logger{
		Logger: l.Logger.With("action", a.Name()),
	}
}

// WithURL adds a url field to the logger.
func (l *Logger) WithURL(url string) *Logger {
	return &Logger{
		Logger: l.Logger.With("url", url),
	}
}

// LogDispatch logs a completed reduction.
func (l *Logger) LogDispatch(ctx context.Context, a reducer.Action, out reducer.Outcome, duration time.Duration) {
	l.DebugContext(ctx, "dispatch completed",
		"action", a.Name(),
		"url", out.State.CanonicalURL,
		"pending", out.Pending != nil,
		"pruned", out.Pruned,
		"warnings", len(out.Warnings),
		"duration", duration,
	)
}

// LogWarning logs a recoverable problem reported by a reduction.
func (l *Logger) LogWarning(ctx context.Context, a reducer.Action, err error) {
	l.WarnContext(ctx, "dispatch warning",
		"action", a.Name(),
		"error", err,
	)
}

// LogFallback logs a full document load.
func (l *Logger) LogFallback(ctx context.Context, f *reducer.Fallback) {
	if f.Err != nil {
		l.WarnContext(ctx, "falling back to document load",
			"reason", f.Reason.String(),
			"url", f.URL,
			"error", f.Err,
		)
	} else {
		l.InfoContext(ctx, "falling back to document load",
			"reason", f.Reason.String(),
			"url", f.URL,
		)
	}
}

// LogStalePatch logs a server patch dropped because the tree moved on.
func (l *Logger) LogStalePatch(ctx context.Context, err error) {
	l.DebugContext(ctx, "stale server patch dropped",
		"error", err,
	)
}

// LogSuperseded logs a continuation discarded because a newer navigation
// started. err is set when the late response no longer fits the tree.
func (l *Logger) LogSuperseded(ctx context.Context, a reducer.Action, err error) {
	if err != nil {
		l.WarnContext(ctx, "superseded response does not fit current tree",
			"action", a.Name(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "superseded response discarded",
			"action", a.Name(),
		)
	}
}

// LogHistory logs a failed history update.
func (l *Logger) LogHistory(ctx context.Context, op, url string, err error) {
	l.ErrorContext(ctx, "history update failed",
		"op", op,
		"url", url,
		"error", err,
	)
}
