package licensing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"lingobar/internal/config"
	apperrors "lingobar/internal/errors"
)

// maxResponseBytes caps how much of a reply body is read
const maxResponseBytes = 1 << 20

// Validator activates a license key for an instance.
type Validator interface {
	Activate(ctx context.Context, licenseKey, instanceName string) (Verdict, error)
}

type activationRequest struct {
	LicenseKey   string `json:"license_key"`
	InstanceName string `json:"instance_name"`
}

// HTTPValidator posts activation requests to a remote endpoint.
type HTTPValidator struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures an HTTPValidator.
type Option func(*HTTPValidator)

// WithHTTPClient replaces the default client. Its Timeout is kept as is.
func WithHTTPClient(c *http.Client) Option {
	return func(v *HTTPValidator) { v.client = c }
}

// WithLimiter replaces the attempt limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(v *HTTPValidator) { v.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *HTTPValidator) { v.logger = l }
}

// NewHTTPValidator builds a validator from the license configuration.
func NewHTTPValidator(cfg config.LicenseConfig, opts ...Option) *HTTPValidator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultActivationTimeout
	}
	v := &HTTPValidator{
		url:     cfg.ActivationURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("component", "license_validator"))
	return v
}

// Activate sends one activation request and classifies the reply.
func (v *HTTPValidator) Activate(ctx context.Context, licenseKey, instanceName string) (Verdict, error) {
	if !v.limiter.Allow() {
		return Verdict{}, apperrors.ErrRateLimited
	}

	body, err := json.Marshal(activationRequest{LicenseKey: licenseKey, InstanceName: instanceName})
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to prepare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.AppName+"-License-Client/"+config.AppVersion)

	start := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.WarnContext(ctx, "Activation request failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return Verdict{}, fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: reading body: %v", apperrors.ErrNetwork, err)
	}

	logAttrs := []any{
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		verdict := Decide(resp.StatusCode, nil)
		v.logger.WarnContext(ctx, "Activation endpoint returned unexpected status", logAttrs...)
		return verdict, fmt.Errorf("%w: status %d", apperrors.ErrServerRejected, resp.StatusCode)
	}

	var parsed ActivationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		v.logger.WarnContext(ctx, "Activation response not parseable", append(logAttrs, slog.String("error", err.Error()))...)
		return Verdict{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
	}

	verdict := Decide(resp.StatusCode, &parsed)
	logAttrs = append(logAttrs, slog.String("verdict", verdict.Reason), slog.Bool("valid", verdict.Valid))
	if !verdict.Valid {
		if parsed.Error != nil {
			logAttrs = append(logAttrs, slog.String("server_error", *parsed.Error))
		}
		v.logger.InfoContext(ctx, "License rejected by activation endpoint", logAttrs...)
		return verdict, fmt.Errorf("%w: %s", apperrors.ErrServerRejected, verdict.Reason)
	}

	v.logger.DebugContext(ctx, "License accepted by activation endpoint", logAttrs...)
	return verdict, nil
}
