package trial

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"lingobar/internal/infrastructure"
)

// logAction logs one manager action with trace correlation
func (m *Manager) logAction(ctx context.Context, level slog.Level, action, result, msg string, attrs ...slog.Attr) {
	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all,
		slog.String("action", action),
		slog.String("result", result),
	)
	if traceID := infrastructure.TraceIDFromContext(ctx); traceID != "" {
		all = append(all, slog.String("otel_trace_id", traceID))
	}
	all = append(all, attrs...)
	m.logger.LogAttrs(ctx, level, msg, all...)
}

// maskLicenseKey keeps the first and last four characters
func maskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// hashLicenseKey returns a short correlation hash of key
func hashLicenseKey(key string) string {
	if key == "" {
		return ""
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)[:16]
}
