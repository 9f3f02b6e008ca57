package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/keystore"
	"lingobar/internal/middleware"
	"lingobar/internal/secrets"
	"lingobar/internal/services"
	"lingobar/pkg/contracts/domain"
)

type MockSecretsService struct {
	mock.Mock
}

func (m *MockSecretsService) Configured(ctx context.Context) *domain.APIKeysResponse {
	return m.Called(ctx).Get(0).(*domain.APIKeysResponse)
}

func (m *MockSecretsService) Set(ctx context.Context, provider, value string) error {
	return m.Called(ctx, provider, value).Error(0)
}

func (m *MockSecretsService) Delete(ctx context.Context, provider string) error {
	return m.Called(ctx, provider).Error(0)
}

type gateStub bool

func (g gateStub) CanUseApp(context.Context) bool { return bool(g) }

func newSecretsRouter(svc services.SecretsService, usable bool) http.Handler {
	logger := discardLogger()
	gate := middleware.TrialGate(gateStub(usable), logger)
	h := NewSecretsHandler(svc, apperrors.NewErrorHandler(logger, false), gate, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/secrets", h.Routes())
	return r
}

func TestSecretsHandler_List(t *testing.T) {
	svc := new(MockSecretsService)
	svc.On("Configured", mock.Anything).Return(&domain.APIKeysResponse{
		Configured: map[string]bool{"openai": true, "claude": false},
	})

	rec := doJSON(t, newSecretsRouter(svc, true), http.MethodGet, "/api/secrets", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"configured":{"openai":true,"claude":false}}`, rec.Body.String())
}

func TestSecretsHandler_Put(t *testing.T) {
	t.Run("stores key", func(t *testing.T) {
		svc := new(MockSecretsService)
		svc.On("Set", mock.Anything, "openai", "sk-test").Return(nil)

		rec := doJSON(t, newSecretsRouter(svc, true), http.MethodPut, "/api/secrets/openai", `{"value":"sk-test"}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown provider", func(t *testing.T) {
		svc := new(MockSecretsService)
		svc.On("Set", mock.Anything, "gemini", "x").Return(apperrors.ErrUnknownProvider)

		rec := doJSON(t, newSecretsRouter(svc, true), http.MethodPut, "/api/secrets/gemini", `{"value":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty value", func(t *testing.T) {
		svc := new(MockSecretsService)

		rec := doJSON(t, newSecretsRouter(svc, true), http.MethodPut, "/api/secrets/openai", `{"value":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "value", decodeBody(t, rec)["field"])
		svc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blocked after trial", func(t *testing.T) {
		svc := new(MockSecretsService)

		rec := doJSON(t, newSecretsRouter(svc, false), http.MethodPut, "/api/secrets/openai", `{"value":"sk-test"}`)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, apperrors.TypeTrialExpired, decodeBody(t, rec)["type"])
		svc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSecretsHandler_DeleteIgnoresTrialGate(t *testing.T) {
	svc := new(MockSecretsService)
	svc.On("Delete", mock.Anything, "claude").Return(nil)

	rec := doJSON(t, newSecretsRouter(svc, false), http.MethodDelete, "/api/secrets/claude", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestSecretsHandler_RealService(t *testing.T) {
	store := keystore.NewMemoryStore()
	keys := secrets.NewAPIKeys(store, "com.lingobar.app.api-keys")
	svc := services.NewSecretsService(keys, discardLogger())
	router := newSecretsRouter(svc, true)

	rec := doJSON(t, router, http.MethodPut, "/api/secrets/claude", `{"value":"sk-ant-123"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/secrets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-ant-123")
	assert.Equal(t, map[string]interface{}{"openai": false, "claude": true}, decodeBody(t, rec)["configured"])

	store.FailWith(nil, keystore.ErrUnavailable, nil)
	rec = doJSON(t, router, http.MethodPut, "/api/secrets/openai", `{"value":"sk-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
