// Package metrics exposes zone tracking metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the observer hooks of the transition controller, the
// zone cache and the external region adapter. A nil *Metrics is a no-op.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	Denials          *prometheus.CounterVec
	SideEffectErrors *prometheus.CounterVec
	Tracked          prometheus.Gauge
	CacheLookups     *prometheus.CounterVec
	AuthorityErrors  prometheus.Counter
	Reloads          *prometheus.CounterVec
	ReloadDuration   prometheus.Histogram
	Regions          prometheus.Gauge
	Bindings         prometheus.Gauge
}

// New registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "towergate_transitions_total",
			Help: "Committed region transitions by whether a gated zone was exited or entered",
		}, []string{"exited", "entered"}),
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "towergate_transition_denials_total",
			Help: "Denied transitions by failed check",
		}, []string{"stage"}),
		SideEffectErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "towergate_side_effect_errors_total",
			Help: "Failed transition side effects by hook",
		}, []string{"hook"}),
		Tracked: f.NewGauge(prometheus.GaugeOpts{
			Name: "towergate_entities_tracked",
			Help: "Entities with known region state",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "towergate_zone_cache_lookups_total",
			Help: "Gated zone cache lookups by result",
		}, []string{"result"}),
		AuthorityErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "towergate_authority_errors_total",
			Help: "External region authority failures",
		}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "towergate_reloads_total",
			Help: "Zone definition reloads by result",
		}, []string{"result"}),
		ReloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "towergate_reload_duration_seconds",
			Help:    "Duration of zone definition reloads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Regions: f.NewGauge(prometheus.GaugeOpts{
			Name: "towergate_regions",
			Help: "Regions known to the active backend",
		}),
		Bindings: f.NewGauge(prometheus.GaugeOpts{
			Name: "towergate_zone_bindings",
			Help: "Regions bound to a zone floor",
		}),
	}
}

func (m *Metrics) TransitionCommitted(exited, entered bool) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(strconv.FormatBool(exited), strconv.FormatBool(entered)).Inc()
}

func (m *Metrics) TransitionDenied(stage string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(stage).Inc()
}

func (m *Metrics) SideEffectFailed(hook string) {
	if m == nil {
		return
	}
	m.SideEffectErrors.WithLabelValues(hook).Inc()
}

func (m *Metrics) EntitiesTracked(n int) {
	if m == nil {
		return
	}
	m.Tracked.Set(float64(n))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// AuthorityFailed counts an external authority failure. Matches the
// signature of the adapter's failure callback.
func (m *Metrics) AuthorityFailed(error) {
	if m == nil {
		return
	}
	m.AuthorityErrors.Inc()
}

// ObserveReload records one reload started at start.
func (m *Metrics) ObserveReload(start time.Time, err error, regions, bindings int) {
	if m == nil {
		return
	}
	m.ReloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.Reloads.WithLabelValues("error").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
	m.Regions.Set(float64(regions))
	m.Bindings.Set(float64(bindings))
}
