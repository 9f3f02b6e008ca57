package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem types following RFC 7807
const (
	TypeValidation     = "/errors/validation"
	TypeNotFound       = "/errors/not-found"
	TypeMethod         = "/errors/method-not-allowed"
	TypeRateLimit      = "/errors/rate-limit"
	TypeInternal       = "/errors/internal"
	TypeServiceDown    = "/errors/service-unavailable"
	TypeTimeout        = "/errors/timeout"
	TypeLicenseInvalid = "/errors/license/rejected"
	TypeTrialExpired   = "/errors/license/trial-expired"
	TypeStorage        = "/errors/storage-unavailable"
	TypeForbidden      = "/errors/forbidden"
)

// ErrorHandler converts errors into problem responses.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := ToProblem(err, r.URL.Path)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", problem.Status),
	)

	render.Render(w, r, problem)
}

// ToProblem maps an error onto problem details. Unknown errors become a
// generic 500 without leaking their message.
func ToProblem(err error, instance string) *ProblemDetails {
	var verr *ValidationError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout,
			"Request Timeout", "The request took too long to process and was cancelled", instance)

	case errors.As(err, &verr):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation,
			"Validation Failed", verr.Message, instance).
			WithExtension("field", verr.Field).
			WithExtension("error_code", verr.Code)

	case errors.Is(err, ErrUnknownProvider):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound,
			"Unknown Provider", err.Error(), instance)

	case errors.Is(err, ErrRateLimited):
		return NewProblemDetails(http.StatusTooManyRequests, TypeRateLimit,
			"Too Many Requests", "Too many activation attempts. Please try again shortly.", instance).
			WithExtension("error_code", "RATE_LIMITED")

	case errors.Is(err, ErrServerRejected), errors.Is(err, ErrMalformedResponse):
		return NewProblemDetails(http.StatusPaymentRequired, TypeLicenseInvalid,
			"License Activation Failed", "The license key could not be activated. Please verify the key and try again.", instance).
			WithExtension("error_code", "ACTIVATION_FAILED")

	case errors.Is(err, ErrNetwork):
		return NewProblemDetails(http.StatusServiceUnavailable, TypeServiceDown,
			"Network Error", "Unable to connect to the license server. Please check your connection.", instance).
			WithExtension("error_code", "NETWORK_ERROR")

	case errors.Is(err, ErrStorageUnavailable):
		return NewProblemDetails(http.StatusServiceUnavailable, TypeStorage,
			"Secure Storage Unavailable", "The credential store could not be accessed.", instance).
			WithExtension("error_code", "STORAGE_UNAVAILABLE")

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
			"Internal Server Error", "An unexpected error occurred while processing your request", instance)
	}
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal,
		"Internal Server Error", "An unexpected error occurred", r.URL.Path).
		WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound,
		"Not Found", "The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusMethodNotAllowed, TypeMethod,
		"Method Not Allowed", fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// Recoverer converts panics in downstream handlers into problem responses.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
