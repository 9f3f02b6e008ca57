package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/keystore"
	"lingobar/internal/middleware"
	"lingobar/internal/services"
	"lingobar/pkg/contracts/domain"
)

// MockLicenseService implements services.LicenseService for testing
type MockLicenseService struct {
	mock.Mock
}

func (m *MockLicenseService) GetStatus(ctx context.Context) *domain.LicenseStatusResponse {
	args := m.Called(ctx)
	return args.Get(0).(*domain.LicenseStatusResponse)
}

func (m *MockLicenseService) RecordUsage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLicenseService) Activate(ctx context.Context, key string) (*domain.LicenseActivationResponse, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseActivationResponse), args.Error(1)
}

func (m *MockLicenseService) Deactivate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLicenseService) InstanceID(ctx context.Context) (*domain.InstanceResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstanceResponse), args.Error(1)
}

func (m *MockLicenseService) CanUseApp(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

var _ services.LicenseService = (*MockLicenseService)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLicenseRouter(svc services.LicenseService) http.Handler {
	logger := discardLogger()
	h := NewLicenseHandler(svc, apperrors.NewErrorHandler(logger, false), logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/license", h.Routes())
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLicenseHandler_GetStatus(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("GetStatus", mock.Anything).Return(&domain.LicenseStatusResponse{
		State:         "active",
		DaysRemaining: 5,
		CanUseApp:     true,
		TrialLength:   7,
	})

	rec := doJSON(t, newLicenseRouter(svc), http.MethodGet, "/api/license/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, float64(5), body["days_remaining"])
	assert.Equal(t, true, body["can_use_app"])
	svc.AssertExpectations(t)
}

func TestLicenseHandler_RecordUsage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("RecordUsage", mock.Anything).Return(nil)

		rec := doJSON(t, newLicenseRouter(svc), http.MethodPost, "/api/license/usage", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("RecordUsage", mock.Anything).
			Return(fmt.Errorf("record usage: %w", keystore.ErrUnavailable))

		rec := doJSON(t, newLicenseRouter(svc), http.MethodPost, "/api/license/usage", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apperrors.TypeStorage, decodeBody(t, rec)["type"])
	})
}

func TestLicenseHandler_Activate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockLicenseService)
		wantStatus int
		wantType   string
	}{
		{
			name: "success",
			body: `{"license_key":"ABCD-1234"}`,
			setup: func(m *MockLicenseService) {
				m.On("Activate", mock.Anything, "ABCD-1234").
					Return(&domain.LicenseActivationResponse{Success: true, State: "licensed"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "malformed body",
			body:       `[1,2`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "oversized key",
			body:       `{"license_key":"` + strings.Repeat("k", 300) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "whitespace key",
			body: `{"license_key":"   "}`,
			setup: func(m *MockLicenseService) {
				m.On("Activate", mock.Anything, "   ").Return(nil, apperrors.ErrEmptyKey)
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "rejected",
			body: `{"license_key":"BAD"}`,
			setup: func(m *MockLicenseService) {
				m.On("Activate", mock.Anything, "BAD").
					Return(nil, fmt.Errorf("activate: %w", apperrors.ErrServerRejected))
			},
			wantStatus: http.StatusPaymentRequired,
			wantType:   apperrors.TypeLicenseInvalid,
		},
		{
			name: "network",
			body: `{"license_key":"KEY"}`,
			setup: func(m *MockLicenseService) {
				m.On("Activate", mock.Anything, "KEY").Return(nil, apperrors.ErrNetwork)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apperrors.TypeServiceDown,
		},
		{
			name: "rate limited",
			body: `{"license_key":"KEY"}`,
			setup: func(m *MockLicenseService) {
				m.On("Activate", mock.Anything, "KEY").Return(nil, apperrors.ErrRateLimited)
			},
			wantStatus: http.StatusTooManyRequests,
			wantType:   apperrors.TypeRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			rec := doJSON(t, newLicenseRouter(svc), http.MethodPost, "/api/license/activate", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
				assert.NotEmpty(t, body["trace_id"])
			} else {
				assert.Equal(t, true, body["success"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLicenseHandler_ActivateMissingKeyReportsEmptyKey(t *testing.T) {
	svc := new(MockLicenseService)
	rec := doJSON(t, newLicenseRouter(svc), http.MethodPost, "/api/license/activate", `{"license_key":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "empty_key", body["error_code"])
	assert.Equal(t, "license_key", body["field"])
	svc.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
}

func TestLicenseHandler_Deactivate(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Deactivate", mock.Anything).Return(nil)

	rec := doJSON(t, newLicenseRouter(svc), http.MethodDelete, "/api/license", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestLicenseHandler_GetInstance(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("InstanceID", mock.Anything).
			Return(&domain.InstanceResponse{InstanceID: "5f1c7a9e-0000-4000-8000-000000000001"}, nil)

		rec := doJSON(t, newLicenseRouter(svc), http.MethodGet, "/api/license/instance", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5f1c7a9e-0000-4000-8000-000000000001", decodeBody(t, rec)["instance_id"])
	})

	t.Run("unexpected error hides detail", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("InstanceID", mock.Anything).Return(nil, fmt.Errorf("boom: secret detail"))

		rec := doJSON(t, newLicenseRouter(svc), http.MethodGet, "/api/license/instance", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})
}

func TestDecodeAndValidate_BodyTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxBodyBytes+10)
	body := `{"license_key":"` + string(big) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/license/activate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst domain.LicenseActivationRequest
	err := decodeAndValidate(rec, req, &dst)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_json", verr.Code)
}
