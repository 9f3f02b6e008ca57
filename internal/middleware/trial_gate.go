package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apperrors "lingobar/internal/errors"
)

// UsageChecker reports whether the app may currently be used.
type UsageChecker interface {
	CanUseApp(ctx context.Context) bool
}

// TrialGate blocks requests with 402 once the trial has expired and no
// license is present. Status is evaluated per request so an activation
// takes effect immediately.
func TrialGate(checker UsageChecker, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if checker.CanUseApp(ctx) {
				next.ServeHTTP(w, r)
				return
			}

			logger.InfoContext(ctx, "request blocked by expired trial",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			problem := apperrors.NewProblemDetails(http.StatusPaymentRequired, apperrors.TypeTrialExpired,
				"Trial Expired", "The trial period has ended. Activate a license to continue", r.URL.Path).
				WithExtension("trace_id", middleware.GetReqID(ctx))
			render.Render(w, r, problem)
		})
	}
}
