package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lingobar/internal/config"
	apperrors "lingobar/internal/errors"
	"lingobar/internal/keystore"
	"lingobar/internal/licensing"
)

// Entry keys within the license namespace
const (
	KeyTrialStart = "trial-start-date"
	KeyLastUsed   = "last-used-date"
	KeyLicense    = "license-key"
	KeyInstanceID = "instance-id"
)

// InstanceIDSource yields a stable hardware identifier.
type InstanceIDSource interface {
	HardwareUUID(ctx context.Context) (string, error)
}

// Manager evaluates and mutates the persisted trial/license state. It holds
// no locks; concurrent activations are not deduplicated.
type Manager struct {
	store       keystore.Store
	validator   licensing.Validator
	ids         InstanceIDSource
	now         func() time.Time
	trialLength int
	namespace   string
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTrialLength sets the trial length in days.
func WithTrialLength(days int) Option {
	return func(m *Manager) { m.trialLength = days }
}

// WithNamespace sets the keystore namespace for all entries.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithActivationTimeout bounds each remote activation.
func WithActivationTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// NewManager builds a Manager. ids may be nil, in which case instance
// identifiers are always random.
func NewManager(store keystore.Store, validator licensing.Validator, ids InstanceIDSource, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		validator:   validator,
		ids:         ids,
		now:         time.Now,
		trialLength: config.DefaultTrialLengthDays,
		namespace:   config.DefaultBundleID + ".license",
		timeout:     config.DefaultActivationTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = noopMetrics()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("lingobar/trial")
	}
	m.logger = m.logger.With(slog.String("component", "trial_manager"))
	return m
}

// TrialLength returns the configured trial length in days.
func (m *Manager) TrialLength() int {
	return m.trialLength
}

// EnsureInitialized starts the trial on first launch by writing both
// timestamps. An existing start date is never touched. A start date that
// cannot be read for reasons other than absence leaves the store alone.
func (m *Manager) EnsureInitialized(ctx context.Context) error {
	_, err := m.store.Get(m.namespace, KeyTrialStart)
	if err == nil {
		return nil
	}
	if !errors.Is(err, keystore.ErrNotFound) {
		return fmt.Errorf("read trial start: %w", err)
	}

	stamp := FormatTimestamp(m.now())
	if err := m.store.Set(m.namespace, KeyTrialStart, stamp); err != nil {
		return fmt.Errorf("write trial start: %w", err)
	}
	if err := m.store.Set(m.namespace, KeyLastUsed, stamp); err != nil {
		return fmt.Errorf("write last used: %w", err)
	}

	m.logAction(ctx, slog.LevelInfo, "trial_init", "success", "Trial started",
		slog.String("start_date", stamp),
		slog.Int("trial_length_days", m.trialLength),
	)
	return nil
}

// Status evaluates the current state. It initializes the trial on first use
// and never fails. A trial start date that cannot be read reports Expired;
// only a start date that is genuinely absent starts a fresh trial.
func (m *Manager) Status(ctx context.Context) Status {
	if err := m.EnsureInitialized(ctx); err != nil {
		m.logAction(ctx, slog.LevelWarn, "trial_init", "failure", "Trial initialization failed",
			slog.String("error", err.Error()))
	}

	now := m.now()
	hasLicense := m.hasLicense(ctx)

	var status Status
	rec, err := m.loadRecord(ctx)
	switch {
	case hasLicense:
		status = ComputeStatus(now, nil, true, m.trialLength)
	case errors.Is(err, errCorruptRecord):
		status = Status{State: StateExpired, Reason: ReasonRecordCorrupt}
	case err != nil:
		status = Status{State: StateExpired, Reason: ReasonStorageUnavailable}
	default:
		status = ComputeStatus(now, rec, false, m.trialLength)
	}

	m.metrics.recordStatus(ctx, status)
	level := slog.LevelDebug
	switch status.Reason {
	case ReasonClockTampered, ReasonRecordCorrupt, ReasonStorageUnavailable:
		level = slog.LevelWarn
	}
	m.logAction(ctx, level, "status", string(status.State), "Trial status evaluated",
		slog.String("reason", status.Reason),
		slog.Int("days_remaining", status.DaysRemaining),
	)
	return status
}

// CanUseApp reports whether the status is Active or Licensed.
func (m *Manager) CanUseApp(ctx context.Context) bool {
	return m.Status(ctx).CanUseApp()
}

// IsLicensed reports whether a license key is stored.
func (m *Manager) IsLicensed(ctx context.Context) bool {
	return m.hasLicense(ctx)
}

// DaysRemaining returns the remaining trial days, 0 unless Active.
func (m *Manager) DaysRemaining(ctx context.Context) int {
	return m.Status(ctx).DaysRemaining
}

// RecordUsage stamps last-used-date with the current time. Call it after
// Status on each launch. The stamp never moves backwards, so a rolled-back
// clock keeps reporting tampering until it passes the last recorded use.
func (m *Manager) RecordUsage(ctx context.Context) error {
	now := m.now()
	raw, err := m.store.Get(m.namespace, KeyLastUsed)
	switch {
	case err == nil:
		if last, perr := ParseTimestamp(raw); perr == nil && now.Before(last) {
			m.logAction(ctx, slog.LevelWarn, "record_usage", "skipped", "Clock is behind the last recorded use",
				slog.String("last_used_date", raw))
			return nil
		}
	case !errors.Is(err, keystore.ErrNotFound):
		m.logAction(ctx, slog.LevelWarn, "record_usage", "failure", "Failed to read last use",
			slog.String("error", err.Error()))
		return fmt.Errorf("record usage: %w", err)
	}

	stamp := FormatTimestamp(now)
	if err := m.store.Set(m.namespace, KeyLastUsed, stamp); err != nil {
		m.logAction(ctx, slog.LevelWarn, "record_usage", "failure", "Failed to record usage",
			slog.String("error", err.Error()))
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// ActivateLicense validates key with the remote endpoint and stores it on
// success. A nil error means the app is now licensed; nothing is written on
// failure.
func (m *Manager) ActivateLicense(ctx context.Context, key string) (err error) {
	ctx, span := m.tracer.Start(ctx, "trial.ActivateLicense")
	defer span.End()

	start := time.Now()
	reason := ""
	m.metrics.ActivationAttempts.Add(ctx, 1)
	defer func() {
		if err != nil {
			reason = apperrors.Reason(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, reason)
		}
		m.metrics.recordActivation(ctx, start, reason, err)
	}()

	key = strings.TrimSpace(key)
	if key == "" {
		m.logAction(ctx, slog.LevelInfo, "activate", "failure", "Empty license key rejected")
		return apperrors.ErrEmptyKey
	}

	keyAttrs := []slog.Attr{
		slog.String("license_key_masked", maskLicenseKey(key)),
		slog.String("license_key_hash", hashLicenseKey(key)),
	}

	instanceID, err := m.InstanceID(ctx)
	if err != nil {
		m.logAction(ctx, slog.LevelWarn, "activate", "failure", "Instance identifier unavailable",
			append(keyAttrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("activate license: %w", err)
	}
	span.SetAttributes(attribute.String("license.instance_id", instanceID))

	vctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	verdict, err := m.validator.Activate(vctx, key, instanceID)
	if err == nil && !verdict.Valid {
		err = fmt.Errorf("%w: %s", apperrors.ErrServerRejected, verdict.Reason)
	}
	if err != nil {
		m.logAction(ctx, slog.LevelWarn, "activate", "failure", "License activation failed",
			append(keyAttrs,
				slog.String("error", err.Error()),
				slog.String("error_reason", apperrors.Reason(err)),
				slog.Duration("duration", time.Since(start)),
			)...)
		return fmt.Errorf("activate license: %w", err)
	}

	if err := m.store.Set(m.namespace, KeyLicense, key); err != nil {
		m.logAction(ctx, slog.LevelError, "activate", "failure", "License accepted but could not be stored",
			append(keyAttrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("store license: %w", err)
	}

	reason = verdict.Reason
	m.logAction(ctx, slog.LevelInfo, "activate", "success", "License activated",
		append(keyAttrs,
			slog.String("verdict", verdict.Reason),
			slog.Duration("duration", time.Since(start)),
		)...)
	return nil
}

// ActivateLicenseAsync runs ActivateLicense on its own goroutine. The
// returned channel yields exactly one result and is then closed.
func (m *Manager) ActivateLicenseAsync(ctx context.Context, key string) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- m.ActivateLicense(ctx, key)
	}()
	return result
}

// RemoveLicense deletes the stored license. Removing an absent license
// succeeds.
func (m *Manager) RemoveLicense(ctx context.Context) error {
	if err := m.store.Delete(m.namespace, KeyLicense); err != nil {
		m.logAction(ctx, slog.LevelWarn, "remove_license", "failure", "Failed to remove license",
			slog.String("error", err.Error()))
		return fmt.Errorf("remove license: %w", err)
	}
	m.logAction(ctx, slog.LevelInfo, "remove_license", "success", "License removed")
	return nil
}

// InstanceID returns the stored instance identifier, creating it on first
// use from the hardware UUID or, failing that, 8 random characters.
// A read failure other than absence is returned and nothing is written.
func (m *Manager) InstanceID(ctx context.Context) (string, error) {
	stored, err := m.store.Get(m.namespace, KeyInstanceID)
	switch {
	case err == nil && stored != "":
		return stored, nil
	case err != nil && !errors.Is(err, keystore.ErrNotFound):
		return "", fmt.Errorf("read instance id: %w", err)
	}

	id, source := "", "hardware"
	if m.ids != nil {
		if hw, err := m.ids.HardwareUUID(ctx); err == nil {
			id = hw
		}
	}
	if id == "" {
		id, source = uuid.NewString()[:8], "random"
	}

	if err := m.store.Set(m.namespace, KeyInstanceID, id); err != nil {
		return "", fmt.Errorf("store instance id: %w", err)
	}
	m.logAction(ctx, slog.LevelInfo, "instance_id", "created", "Instance identifier created",
		slog.String("source", source))
	return id, nil
}

// lookup reads one entry. Read failures are logged and reported as absent.
func (m *Manager) lookup(ctx context.Context, key string) (string, bool) {
	v, err := m.store.Get(m.namespace, key)
	if err == nil {
		return v, true
	}
	if !errors.Is(err, keystore.ErrNotFound) {
		m.logAction(ctx, slog.LevelWarn, "read", "failure", "Secure storage read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return "", false
}

func (m *Manager) hasLicense(ctx context.Context) bool {
	v, ok := m.lookup(ctx, KeyLicense)
	return ok && v != ""
}

var errCorruptRecord = errors.New("trial record corrupt")

// loadRecord returns nil only when no start date is stored. A start date that
// cannot be read or parsed is an error; an unparseable last-used date is
// dropped.
func (m *Manager) loadRecord(ctx context.Context) (*Record, error) {
	raw, err := m.store.Get(m.namespace, KeyTrialStart)
	if errors.Is(err, keystore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logAction(ctx, slog.LevelWarn, "read", "failure", "Secure storage read failed",
			slog.String("key", KeyTrialStart),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("read trial start: %w", err)
	}
	start, err := ParseTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}

	rec := &Record{StartDate: start}
	if raw, ok := m.lookup(ctx, KeyLastUsed); ok {
		if last, err := ParseTimestamp(raw); err == nil {
			rec.LastUsedDate = last
			rec.HasLastUsed = true
		} else {
			m.logAction(ctx, slog.LevelWarn, "read", "corrupt", "Ignoring unparseable last-used date")
		}
	}
	return rec, nil
}
