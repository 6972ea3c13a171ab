package scheduler

import "time"

// Plan says how a restored monitor rejoins its cadence.
type Plan struct {
	CatchUp    bool
	FirstDelay time.Duration
}

// RecoveryPlan realigns a monitor with the cadence it had before a restart.
// A zero lastFetch is treated as one interval and one second ago, so such a
// monitor is caught up immediately.
func RecoveryPlan(now, lastFetch time.Time, interval time.Duration) Plan {
	if lastFetch.IsZero() {
		lastFetch = now.Add(-interval - time.Second)
	}
	elapsed := now.Sub(lastFetch)
	if elapsed < 0 {
		return Plan{FirstDelay: interval}
	}

	p := Plan{CatchUp: elapsed >= interval, FirstDelay: interval}
	if rem := elapsed % interval; rem > 0 {
		p.FirstDelay = interval - rem
	}
	return p
}
