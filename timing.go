package gophone

import "time"

// Default timing values.
const (
	// DefaultWatchdogInterval bounds the close operation latency when an
	// unregister transaction hangs. Far below the SIP 32s transaction
	// timeout on purpose.
	DefaultWatchdogInterval = 5 * time.Second
	// DefaultRefreshMargin is subtracted from the registration expiry to
	// schedule the refresh before the binding lapses.
	DefaultRefreshMargin = 10 * time.Second
	// DefaultExpiry substitutes a registration expiry too small to leave
	// room for the refresh margin.
	DefaultExpiry = 60 * time.Second
)

// Timings groups the scheduled intervals of the engine.
// The zero value selects the defaults.
type Timings struct {
	// WatchdogInterval is the close watchdog deadline.
	WatchdogInterval time.Duration
	// RefreshMargin is the headroom before registration expiry.
	RefreshMargin time.Duration
	// DefaultExpiry replaces expiries smaller than the refresh margin.
	DefaultExpiry time.Duration
}

func (t *Timings) watchdog() time.Duration {
	if t == nil || t.WatchdogInterval <= 0 {
		return DefaultWatchdogInterval
	}
	return t.WatchdogInterval
}

func (t *Timings) refreshMargin() time.Duration {
	if t == nil || t.RefreshMargin <= 0 {
		return DefaultRefreshMargin
	}
	return t.RefreshMargin
}

func (t *Timings) defaultExpiry() time.Duration {
	if t == nil || t.DefaultExpiry <= 0 {
		return DefaultExpiry
	}
	return t.DefaultExpiry
}

// refreshDelay computes the delay before a registration refresh for a
// granted expiry in seconds. Expiries without room for the margin fall
// back to the default expiry.
func (t *Timings) refreshDelay(expiry int) time.Duration {
	d := time.Duration(expiry) * time.Second
	if d <= t.refreshMargin() {
		d = t.defaultExpiry()
	}
	return d - t.refreshMargin()
}
