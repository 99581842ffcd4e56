// Package metrics exposes watcher activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the watcher collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	events     *prometheus.CounterVec
	suppressed prometheus.Counter
	ticks      prometheus.Counter
	flips      prometheus.Counter
	targets    prometheus.Gauge
	groups     prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewatch_events_total",
				Help: "Normalized events delivered to the callback",
			},
			[]string{"kind"},
		),
		suppressed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rewatch_events_suppressed_total",
				Help: "Change notifications dropped because content was unchanged",
			},
		),
		ticks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rewatch_reconcile_ticks_total",
				Help: "Reconciliation sweeps run",
			},
		),
		flips: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rewatch_group_flips_total",
				Help: "Directories whose watchability changed between sweeps",
			},
		),
		targets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rewatch_targets",
				Help: "Paths currently watched",
			},
		),
		groups: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rewatch_watch_groups",
				Help: "Directory watch groups currently held",
			},
		),
	}
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *Metrics) Flip() {
	if m == nil {
		return
	}
	m.flips.Inc()
}

// SetSizes records the current registry and group counts.
func (m *Metrics) SetSizes(targets, groups int) {
	if m == nil {
		return
	}
	m.targets.Set(float64(targets))
	m.groups.Set(float64(groups))
}
