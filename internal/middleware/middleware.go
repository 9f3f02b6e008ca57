package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/infrastructure"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID, reusing an inbound X-Request-ID.
// The ID is stored under chi's request ID key so middleware.GetReqID works
// everywhere, and doubles as the trace ID unless a span is active.
// This should be the FIRST middleware in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		ctx = infrastructure.WithTraceID(ctx, requestID)

		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StructuredLogger logs request completion with slog.
// This should come AFTER RequestID.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			infrastructure.LoggerWithContext(ctx, logger).Log(ctx, level, "request completed",
				slog.String("request_id", middleware.GetReqID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// RateLimiter applies a single token bucket to all requests
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a new rate limiter with logging
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler implements rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !rl.limiter.Allow() {
			rl.logger.WarnContext(ctx, "rate limit exceeded",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			retryAfter := 1
			if limit := float64(rl.limiter.Limit()); limit > 0 && limit < 1 {
				retryAfter = int(1/limit + 0.5)
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			problem := apperrors.NewProblemDetails(http.StatusTooManyRequests, apperrors.TypeRateLimit,
				"Too Many Requests", "Rate limit exceeded", r.URL.Path).
				WithExtension("trace_id", middleware.GetReqID(ctx))
			render.Render(w, r, problem)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoopbackOnly rejects requests whose Host header does not name a loopback
// address. The API binds to 127.0.0.1, so any other Host means a browser was
// tricked into calling it through a rebound DNS name.
func LoopbackOnly(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isLoopbackHost(r.Host) {
				logger.WarnContext(r.Context(), "rejected non-loopback host",
					slog.String("host", r.Host),
					slog.String("path", r.URL.Path),
				)
				problem := apperrors.NewProblemDetails(http.StatusForbidden, apperrors.TypeForbidden,
					"Forbidden", "This API only answers on loopback addresses", r.URL.Path).
					WithExtension("trace_id", middleware.GetReqID(r.Context()))
				render.Render(w, r, problem)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
