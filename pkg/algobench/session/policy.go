package session

import (
	"context"
	"time"
)

// Empirical corrective actions of the switch protocol. None of them is
// needed for correctness of the barrier sequencing; each can be tuned or
// disabled on its own.

// SettlePolicy waits for a device that frees memory asynchronously.
// It triggers when free memory after a release is below the baseline.
type SettlePolicy struct {
	// Delay is the pause before each re-measurement.
	Delay time.Duration

	// Retries is the number of re-measurements. Zero disables settling.
	Retries int
}

// Settle re-measures free memory while it is below baseline, at most
// Retries times. It returns the last measurement.
func (p SettlePolicy) Settle(ctx context.Context, baseline, free int, measure func() (int, error)) (int, error) {
	for i := 0; i < p.Retries && free < baseline; i++ {
		if err := sleep(ctx, p.Delay); err != nil {
			return free, err
		}

		var err error
		if free, err = measure(); err != nil {
			return free, err
		}
	}
	return free, nil
}

// LeakPolicy classifies a drop in free memory across a round as a leak.
type LeakPolicy struct {
	// ThresholdMB is the largest drop that is not a leak.
	ThresholdMB int
}

// Leaked reports whether the drop from baseline to free exceeds the
// threshold, and by how much memory fell.
func (p LeakPolicy) Leaked(baseline, free int) (int, bool) {
	drop := baseline - free
	return drop, drop > p.ThresholdMB
}

// ResetPolicy decides whether a worker resets its device after switching.
// The default resets single-device pools on rounds without a leak, which
// guards against slowdowns observed after many switches on one device.
type ResetPolicy struct {
	// SingleDevice enables the reset for single-device pools.
	SingleDevice bool
}

// ShouldReset reports whether the reset fires for a pool of threads workers.
// A leak in the round already forced a reset, so it suppresses this one.
func (p ResetPolicy) ShouldReset(threads int, leaked bool) bool {
	return p.SingleDevice && threads == 1 && !leaked
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
