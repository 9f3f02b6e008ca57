package services

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"lingobar/internal/keystore"
	"lingobar/pkg/contracts"
)

// healthProbeKey is never written; reading it exercises the backend.
const healthProbeKey = "health-probe"

// HealthService provides health check functionality
type HealthService struct {
	store     keystore.Store
	namespace string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service that probes store
func NewHealthService(store keystore.Store, namespace string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		namespace: namespace,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	if status.Status == "ready" {
		status.Status = "ok"
	} else {
		status.Status = "degraded"
	}
	return status
}

// ReadinessCheck reports whether secure storage is reachable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	store := hs.checkStore()
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  map[string]ServiceHealth{"keystore": store},
	}
	if store.Status != "ready" {
		status.Status = "not_ready"
		hs.logger.WarnContext(ctx, "keystore not ready", slog.String("message", store.Message))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkStore() ServiceHealth {
	_, err := hs.store.Get(hs.namespace, healthProbeKey)
	if err == nil || errors.Is(err, keystore.ErrNotFound) {
		return ServiceHealth{Status: "ready"}
	}
	return ServiceHealth{Status: "unavailable", Message: err.Error()}
}
