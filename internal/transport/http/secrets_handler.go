package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/services"
	"lingobar/pkg/contracts/domain"
)

// SecretsHandler serves API key management. Key values are write-only.
type SecretsHandler struct {
	service services.SecretsService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
	gate    func(http.Handler) http.Handler
}

// NewSecretsHandler creates a secrets handler. gate wraps the write route;
// pass nil to leave it open.
func NewSecretsHandler(service services.SecretsService, errHandler *apperrors.ErrorHandler, gate func(http.Handler) http.Handler, logger *slog.Logger) *SecretsHandler {
	return &SecretsHandler{
		service: service,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "secrets")),
		gate:    gate,
	}
}

// Routes returns a chi router mounted at /api/secrets
func (h *SecretsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		if h.gate != nil {
			r.Use(h.gate)
		}
		r.Put("/{provider}", h.Put)
	})
	r.Delete("/{provider}", h.Delete)
	return r
}

// List handles GET /api/secrets
func (h *SecretsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Configured(r.Context()))
}

// Put handles PUT /api/secrets/{provider}
func (h *SecretsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req domain.APIKeyRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	if err := h.service.Set(r.Context(), chi.URLParam(r, "provider"), req.Value); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/secrets/{provider}
func (h *SecretsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "provider")); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
