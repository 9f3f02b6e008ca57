package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"lingobar/internal/trial"
	"lingobar/pkg/contracts/domain"
)

// TrialManager is the subset of trial.Manager used by the service layer.
type TrialManager interface {
	Status(ctx context.Context) trial.Status
	RecordUsage(ctx context.Context) error
	ActivateLicense(ctx context.Context, key string) error
	RemoveLicense(ctx context.Context) error
	InstanceID(ctx context.Context) (string, error)
	TrialLength() int
}

// LicenseService provides license operations to the HTTP layer.
type LicenseService interface {
	GetStatus(ctx context.Context) *domain.LicenseStatusResponse
	RecordUsage(ctx context.Context) error
	Activate(ctx context.Context, key string) (*domain.LicenseActivationResponse, error)
	Deactivate(ctx context.Context) error
	InstanceID(ctx context.Context) (*domain.InstanceResponse, error)
	CanUseApp(ctx context.Context) bool
}

type licenseService struct {
	manager TrialManager
	logger  *slog.Logger
}

// NewLicenseService creates a license service over manager
func NewLicenseService(manager TrialManager, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &licenseService{
		manager: manager,
		logger:  logger.With(slog.String("service", "license")),
	}
}

func toStatusResponse(s trial.Status, trialLength int) *domain.LicenseStatusResponse {
	return &domain.LicenseStatusResponse{
		State:         string(s.State),
		DaysRemaining: s.DaysRemaining,
		CanUseApp:     s.CanUseApp(),
		Reason:        s.Reason,
		TrialLength:   trialLength,
	}
}

func (s *licenseService) GetStatus(ctx context.Context) *domain.LicenseStatusResponse {
	return toStatusResponse(s.manager.Status(ctx), s.manager.TrialLength())
}

func (s *licenseService) CanUseApp(ctx context.Context) bool {
	return s.manager.Status(ctx).CanUseApp()
}

func (s *licenseService) RecordUsage(ctx context.Context) error {
	return s.manager.RecordUsage(ctx)
}

// Activate activates key and reports the resulting state
func (s *licenseService) Activate(ctx context.Context, key string) (*domain.LicenseActivationResponse, error) {
	start := time.Now()
	traceID := middleware.GetReqID(ctx)

	if err := s.manager.ActivateLicense(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "license activation failed",
			slog.String("trace_id", traceID),
			slog.String("operation", "activate"),
			slog.Duration("latency", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "license activation succeeded",
		slog.String("trace_id", traceID),
		slog.String("operation", "activate"),
		slog.Duration("latency", time.Since(start)),
	)

	return &domain.LicenseActivationResponse{
		Success: true,
		State:   string(s.manager.Status(ctx).State),
		TraceID: traceID,
	}, nil
}

func (s *licenseService) Deactivate(ctx context.Context) error {
	return s.manager.RemoveLicense(ctx)
}

func (s *licenseService) InstanceID(ctx context.Context) (*domain.InstanceResponse, error) {
	id, err := s.manager.InstanceID(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.InstanceResponse{InstanceID: id}, nil
}
