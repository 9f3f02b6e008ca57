package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/services"
	"lingobar/pkg/contracts/domain"
)

// LicenseHandler serves the trial and license endpoints
type LicenseHandler struct {
	service services.LicenseService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints, mounted at /api/license
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	r.Post("/usage", h.RecordUsage)
	r.Post("/activate", h.Activate)
	r.Delete("/", h.Deactivate)
	r.Get("/instance", h.GetInstance)
	return r
}

// GetStatus handles GET /api/license/status
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.GetStatus(r.Context()))
}

// RecordUsage handles POST /api/license/usage
func (h *LicenseHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RecordUsage(r.Context()); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/license/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.LicenseActivationRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license activation requested",
		slog.String("request_id", middleware.GetReqID(ctx)))

	resp, err := h.service.Activate(ctx, req.LicenseKey)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Deactivate handles DELETE /api/license
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context()); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInstance handles GET /api/license/instance
func (h *LicenseHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.InstanceID(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}
