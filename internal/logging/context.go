// Package logging carries the request-scoped logger through context so
// services log with the request id the HTTP middleware attached.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger stores logger in ctx for handlers and services downstream.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, the fallback when the
// context carries none, or a discard logger when both are absent. Detached
// side-effect goroutines keep their parent's logger through WithoutCancel.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return discardLogger()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
