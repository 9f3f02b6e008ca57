package trial

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the license and trial instruments
type Metrics struct {
	ActivationAttempts metric.Int64Counter
	ActivationSuccess  metric.Int64Counter
	ActivationFailures metric.Int64Counter
	ActivationDuration metric.Float64Histogram

	StatusEvaluations metric.Int64Counter
	TamperDetections  metric.Int64Counter
}

// NewMetrics creates the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ActivationAttempts, err = meter.Int64Counter(
		"license_activation_attempts_total",
		metric.WithDescription("Total number of license activation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation attempts counter: %w", err)
	}

	m.ActivationSuccess, err = meter.Int64Counter(
		"license_activation_success_total",
		metric.WithDescription("Total number of successful license activations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation success counter: %w", err)
	}

	m.ActivationFailures, err = meter.Int64Counter(
		"license_activation_failures_total",
		metric.WithDescription("Total number of failed license activations by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation failures counter: %w", err)
	}

	m.ActivationDuration, err = meter.Float64Histogram(
		"license_activation_duration_seconds",
		metric.WithDescription("License activation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation duration histogram: %w", err)
	}

	m.StatusEvaluations, err = meter.Int64Counter(
		"trial_status_evaluations_total",
		metric.WithDescription("Total number of trial status evaluations by resulting state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create status evaluations counter: %w", err)
	}

	m.TamperDetections, err = meter.Int64Counter(
		"trial_tamper_detections_total",
		metric.WithDescription("Total number of status evaluations that found the clock behind the last recorded use"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tamper detections counter: %w", err)
	}

	return m, nil
}

// noopMetrics never fails to build
func noopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("trial"))
	return m
}

func (m *Metrics) recordStatus(ctx context.Context, s Status) {
	m.StatusEvaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(s.State))))
	if s.Reason == ReasonClockTampered {
		m.TamperDetections.Add(ctx, 1)
	}
}

func (m *Metrics) recordActivation(ctx context.Context, start time.Time, reason string, err error) {
	m.ActivationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.ActivationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		return
	}
	m.ActivationSuccess.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", reason)))
}
