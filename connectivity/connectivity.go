// Package connectivity observes network reachability of the host and
// classifies transitions between network types.
package connectivity

//go:generate errtrace -w .

import (
	"log/slog"

	"github.com/ghettovoice/gophone/log"
)

// Status is the current network attachment of the device.
type Status int

const (
	// StatusNone means no usable network.
	StatusNone Status = iota
	// StatusWiFi means a WiFi network is active.
	StatusWiFi
	// StatusCellular means a cellular data network is active.
	StatusCellular
	// StatusEthernet means a wired network is active.
	StatusEthernet
)

var statusNames = [...]string{"none", "wifi", "cellular", "ethernet"}

func (s Status) String() string {
	if s < StatusNone || s > StatusEthernet {
		return "none"
	}
	return statusNames[s]
}

// Live reports whether the status represents a usable network.
func (s Status) Live() bool { return s > StatusNone && s <= StatusEthernet }

// ChangeKind classifies a transition between two statuses.
type ChangeKind int

const (
	// ChangeNone means the status did not change.
	ChangeNone ChangeKind = iota
	// ChangeOffline means connectivity was lost.
	ChangeOffline
	// ChangeOnline means connectivity appeared after being offline.
	ChangeOnline
	// ChangeHandover means the active network type changed while staying online.
	ChangeHandover
)

var changeKindNames = [...]string{"none", "offline", "online", "handover"}

func (k ChangeKind) String() string {
	if k < ChangeNone || k > ChangeHandover {
		return "none"
	}
	return changeKindNames[k]
}

// Change is a classified connectivity transition.
type Change struct {
	Kind ChangeKind
	// Status is the new status after the transition.
	Status Status
}

// LogValue implements [slog.LogValuer].
func (c Change) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("kind", c.Kind),
		slog.Any("status", c.Status),
	)
}

// Classify compares the previous and the new status and names the transition.
// Equal statuses yield a [ChangeNone] change, an unknown status is treated
// as [StatusNone].
func Classify(prev, next Status) Change {
	if prev < StatusNone || prev > StatusEthernet {
		prev = StatusNone
	}
	if next < StatusNone || next > StatusEthernet {
		next = StatusNone
	}

	switch {
	case prev == next:
		return Change{Kind: ChangeNone, Status: next}
	case !next.Live():
		return Change{Kind: ChangeOffline, Status: StatusNone}
	case !prev.Live():
		return Change{Kind: ChangeOnline, Status: next}
	default:
		return Change{Kind: ChangeHandover, Status: next}
	}
}

// Source delivers raw platform reachability updates to a [Monitor].
type Source interface {
	// Status returns the current raw network status.
	Status() Status
	// Subscribe registers a callback invoked on every platform report.
	// The returned cancel func removes the subscription.
	Subscribe(fn func(Status)) (cancel func())
}

// Monitor owns the engine view of connectivity. It suppresses duplicate
// platform reports and notifies a single registered listener with the
// classified change.
//
// Monitor mutable state is confined to the signaling goroutine: the
// subscription callback must be marshalled there by the caller
// (see MonitorOptions.Post).
type Monitor struct {
	src      Source
	cur      Status
	listener func(Change)
	post     func(func()) error
	cancel   func()
	log      *slog.Logger
}

// MonitorOptions contains options for a [Monitor].
type MonitorOptions struct {
	// Post marshals a raw source callback onto the signaling goroutine.
	// If nil, callbacks run on the source goroutine.
	Post func(func()) error
	// Log is the logger that will be used with the monitor.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *MonitorOptions) postFn() func(func()) error {
	if o == nil || o.Post == nil {
		return func(fn func()) error {
			fn()
			return nil
		}
	}
	return o.Post
}

func (o *MonitorOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// NewMonitor creates a [Monitor] over the given source and starts watching it.
func NewMonitor(src Source, opts *MonitorOptions) *Monitor {
	m := &Monitor{
		src:  src,
		post: opts.postFn(),
		log:  opts.log(),
	}
	if src != nil {
		m.cur = src.Status()
		m.cancel = src.Subscribe(func(next Status) {
			if err := m.post(func() { m.report(next) }); err != nil {
				m.log.Warn("connectivity report dropped", slog.Any("error", err))
			}
		})
	}
	return m
}

// Current returns the last observed status.
func (m *Monitor) Current() Status {
	if m == nil {
		return StatusNone
	}
	return m.cur
}

// HasConnectivity reports whether a usable network is present.
func (m *Monitor) HasConnectivity() bool { return m.Current().Live() }

// OnChange registers the single listener notified on classified changes.
// A later call replaces the previous listener.
func (m *Monitor) OnChange(fn func(Change)) { m.listener = fn }

// Close detaches the monitor from its source.
func (m *Monitor) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Monitor) report(next Status) {
	change := Classify(m.cur, next)
	if change.Kind == ChangeNone {
		return
	}
	m.cur = change.Status

	m.log.Debug("connectivity changed", slog.Any("change", change))

	if m.listener != nil {
		m.listener(change)
	}
}

// LogValue implements [slog.LogValuer].
func (m *Monitor) LogValue() slog.Value {
	if m == nil {
		return slog.Value{}
	}
	return slog.GroupValue(slog.Any("status", m.cur))
}
