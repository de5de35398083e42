// Package metrics exposes the panel's run and pool counters as Prometheus
// collectors, fed by lifecycle status events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/scriptdeck/pkg/domain"
)

// Metrics bundles the collectors and their registry.
type Metrics struct {
	Registry *prometheus.Registry

	runsStarted  prometheus.Counter
	runsSettled  *prometheus.CounterVec
	poolTotal    prometheus.Gauge
	poolRunning  prometheus.Gauge
	poolOverflow prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "runs_started_total",
			Help:      "Script runs accepted by the lifecycle.",
		}),
		runsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "runs_settled_total",
			Help:      "Script runs settled, by outcome.",
		}, []string{"outcome"}),
		poolTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scriptdeck",
			Name:      "pool_sessions",
			Help:      "Sessions currently held by the terminal pool.",
		}),
		poolRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scriptdeck",
			Name:      "pool_sessions_running",
			Help:      "Pooled sessions bound to a running script.",
		}),
		poolOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "pool_ceiling_exceeded_total",
			Help:      "Times session creation pushed the pool past its ceiling.",
		}),
	}
	m.Registry.MustRegister(m.runsStarted, m.runsSettled, m.poolTotal, m.poolRunning, m.poolOverflow)
	return m
}

// Observe translates a lifecycle status event into counter updates. Wire it
// as a lifecycle observer.
func (m *Metrics) Observe(ev domain.StatusEvent) {
	switch ev.State {
	case domain.StateRunning:
		m.runsStarted.Inc()
	case domain.StateSuccess:
		m.runsSettled.WithLabelValues("success").Inc()
	case domain.StateFailed:
		m.runsSettled.WithLabelValues("failed").Inc()
	}
}

// SetPool updates the pool gauges from a counts snapshot.
func (m *Metrics) SetPool(c domain.PoolCounts) {
	m.poolTotal.Set(float64(c.Total))
	m.poolRunning.Set(float64(c.Running))
}

// PoolOverflow records a ceiling warning. Wire it as the pool's WarnFunc.
func (m *Metrics) PoolOverflow(total, ceiling int) {
	m.poolOverflow.Inc()
}
