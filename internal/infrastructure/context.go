package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// LoggerWithContext returns base tagged with the context's trace ID. A nil
// base means the global logger. Loggers built by NewLogger already inject the
// trace ID per record and are returned unchanged.
func LoggerWithContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = GetLogger()
	}
	if _, ok := base.Handler().(*traceHandler); ok {
		return base
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		return base.With(slog.String("trace_id", traceID))
	}
	return base
}
