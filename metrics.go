package gophone

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghettovoice/gophone/connectivity"
)

// metrics instruments the engine. A nil receiver disables collection,
// every method tolerates it.
type metrics struct {
	jobs         *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callsEnded   *prometheus.CounterVec
	connectivity *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophone",
			Name:      "jobs_total",
			Help:      "Completed signaling jobs by type and outcome.",
		}, []string{"type", "outcome"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophone",
			Name:      "calls_total",
			Help:      "Started calls by direction.",
		}, []string{"direction"}),
		callsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophone",
			Name:      "calls_ended_total",
			Help:      "Ended calls by terminal event kind.",
		}, []string{"kind"}),
		connectivity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophone",
			Name:      "connectivity_changes_total",
			Help:      "Connectivity transitions by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.jobs, m.calls, m.callsEnded, m.connectivity)
	return m
}

func (m *metrics) jobDone(typ JobType, ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.jobs.WithLabelValues(typ.String(), outcome).Inc()
}

func (m *metrics) callStarted(dir CallDirection) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(dir.String()).Inc()
}

func (m *metrics) callEnded(kind CallEventKind) {
	if m == nil {
		return
	}
	m.callsEnded.WithLabelValues(kind.String()).Inc()
}

func (m *metrics) connectivityChange(kind connectivity.ChangeKind) {
	if m == nil {
		return
	}
	m.connectivity.WithLabelValues(kind.String()).Inc()
}
