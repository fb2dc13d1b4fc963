package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/game/zone"
)

var (
	_ transition.Observer = (*Metrics)(nil)
	_ zone.CacheObserver  = (*Metrics)(nil)
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TransitionCommitted(true, false)
	m.TransitionCommitted(true, false)
	m.TransitionDenied(transition.StageExit)
	m.SideEffectFailed("enter")
	m.EntitiesTracked(3)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.AuthorityFailed(errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("true", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Denials.WithLabelValues("exit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectErrors.WithLabelValues("enter")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Tracked))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthorityErrors))
}

func TestMetrics_ObserveReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReload(time.Now(), nil, 12, 4)
	m.ObserveReload(time.Now(), errors.New("bad yaml"), 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Regions), "failed reload keeps the last gauges")
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Bindings))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReloadDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransitionCommitted(false, true)
		m.CacheHit()
		m.AuthorityFailed(nil)
		m.ObserveReload(time.Now(), nil, 1, 1)
	})
}
