//go:build debug

package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ResetTrial restarts the trial at the current time and clears the license.
func (m *Manager) ResetTrial(ctx context.Context) error {
	return m.rewriteTimeline(ctx, "debug_reset", m.now())
}

// ExpireTrial moves the start date back by the full trial length and clears
// the license.
func (m *Manager) ExpireTrial(ctx context.Context) error {
	return m.rewriteTimeline(ctx, "debug_expire", m.now().Add(-time.Duration(m.trialLength)*day))
}

// SetDaysRemaining positions the start date so that n days remain. n is
// clamped to [0, trial length]. The license is cleared.
func (m *Manager) SetDaysRemaining(ctx context.Context, n int) error {
	n = min(max(n, 0), m.trialLength)
	elapsed := m.trialLength - n
	return m.rewriteTimeline(ctx, "debug_set_days", m.now().Add(-time.Duration(elapsed)*day))
}

func (m *Manager) rewriteTimeline(ctx context.Context, action string, start time.Time) error {
	now := m.now()
	if err := m.store.Set(m.namespace, KeyTrialStart, FormatTimestamp(start)); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if err := m.store.Set(m.namespace, KeyLastUsed, FormatTimestamp(now)); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if err := m.store.Delete(m.namespace, KeyLicense); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	m.logAction(ctx, slog.LevelWarn, action, "success", "Trial timeline overwritten",
		slog.Time("start_date", start))
	return nil
}
