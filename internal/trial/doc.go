// Package trial implements the trial-period and license state machine.
//
// The persisted state is four entries in one keystore namespace:
//
//	trial-start-date   Unix seconds, written once on first launch
//	last-used-date     Unix seconds, rewritten on every launch
//	license-key        present only after a successful activation
//	instance-id        hardware UUID or random 8-character fallback
//
// State is always derived, never stored. With the license present the app
// is Licensed. Otherwise a clock earlier than last-used-date is treated as
// tampering and the trial is Expired; failing that, the whole days elapsed
// since trial-start-date are compared against the trial length.
//
// A host process drives the Manager like this on each launch:
//
//	mgr := trial.NewManager(store, validator, ids)
//	status := mgr.Status(ctx)
//	if err := mgr.RecordUsage(ctx); err != nil {
//	    logger.Warn("usage not recorded", "error", err)
//	}
//	if !status.CanUseApp() {
//	    // show activation prompt
//	}
//
// ComputeStatus is the pure core and takes the current time explicitly.
package trial
