package platform

import (
	"context"
	"sync"
	"time"
)

// Tier-derived minimum delay between any two outbound platform calls. This is
// the single throttle policy: there is no separate per-provider delay on top
// of it.
var tierIntervals = map[string]time.Duration{
	"free":       75 * time.Second,
	"basic":      12 * time.Second,
	"pro":        2 * time.Second,
	"enterprise": 250 * time.Millisecond,
}

const defaultTierInterval = 75 * time.Second

// IntervalForTier returns the minimum inter-call delay for an API tier.
// Unknown tiers get the most conservative interval.
func IntervalForTier(tier string) time.Duration {
	if d, ok := tierIntervals[tier]; ok {
		return d
	}
	return defaultTierInterval
}

// Throttle is a single-slot gate enforcing a minimum delay between calls.
// One caller holds the slot at a time; the next caller sleeps out the
// remainder of the interval before proceeding.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Wait blocks until the minimum interval since the previous call has elapsed
// or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval > 0 && !t.last.IsZero() {
		wait := t.interval - time.Since(t.last)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	t.last = time.Now()
	return nil
}
