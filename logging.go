package subst

import (
	"context"
	"log/slog"
	"time"
)

// ResolutionLogEvent describes one top-level resolution for logging.
type ResolutionLogEvent struct {
	Key          string
	ResolutionID string
	Found        bool
	Duration     time.Duration
	Err          error
	// HookErr joins the errors returned by activity hooks during the call.
	// Hook failures never fail the resolution itself.
	HookErr error
}

// ResolutionLogger records resolution events.
type ResolutionLogger interface {
	LogResolution(ResolutionLogEvent)
}

// ResolutionLoggerFunc adapts a function to ResolutionLogger.
type ResolutionLoggerFunc func(ResolutionLogEvent)

// LogResolution implements ResolutionLogger.
func (f ResolutionLoggerFunc) LogResolution(event ResolutionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolutionLogger struct{}

func (noopResolutionLogger) LogResolution(ResolutionLogEvent) {}

// WithLogger attaches a resolution logger.
func WithLogger(logger ResolutionLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopResolutionLogger{}
			return
		}
		cfg.logger = logger
	}
}

// SlogLogger writes resolution events to logger: failures at error level,
// everything else at debug. A nil logger uses slog.Default().
func SlogLogger(logger *slog.Logger) ResolutionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return ResolutionLoggerFunc(func(event ResolutionLogEvent) {
		level := slog.LevelDebug
		msg := "config value resolved"
		attrs := []any{
			"key", event.Key,
			"resolution_id", event.ResolutionID,
			"found", event.Found,
			"duration", event.Duration,
		}
		if event.Err != nil {
			level = slog.LevelError
			msg = "config value resolution failed"
			attrs = append(attrs, "error", event.Err)
		}
		if event.HookErr != nil {
			attrs = append(attrs, "hook_error", event.HookErr)
			if level < slog.LevelWarn {
				level = slog.LevelWarn
			}
		}
		logger.Log(context.Background(), level, msg, attrs...)
	})
}
