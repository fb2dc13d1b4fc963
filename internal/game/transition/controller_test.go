package transition

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

var (
	steve = model.EntityIDFromName("Steve")

	// Floors are stacked 10 blocks apart along X.
	lobby  = model.NewPosition("w", -50, 0, 0)
	floor1 = model.NewPosition("w", 5, 5, 5)
	floor2 = model.NewPosition("w", 15, 5, 5)
	plaza  = model.NewPosition("w", 25, 5, 5)
)

type fixture struct {
	index   *region.Index
	catalog *zone.Catalog
	cache   *zone.Cache
	policy  *mockPolicy
	sink    *recordingSink
	obs     *countingObserver
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	index := region.NewIndex()
	for i, id := range []string{"r1", "r2", "plaza"} {
		lo := int32(i * 10)
		r, err := region.New(id, "w", region.Corner{X: lo}, region.Corner{X: lo + 9, Y: 9, Z: 9})
		require.NoError(t, err)
		index.Register(r)
	}

	catalog := zone.NewCatalog()
	catalog.Load([]zone.GroupDef{{
		ID:       "tower_a",
		MinLevel: 5,
		MaxLevel: 20,
		Floors: []zone.FloorDef{
			{Floor: 1, Region: "r1"},
			{Floor: 2, Region: "r2"},
		},
	}})

	cache, err := zone.NewCache(catalog, 10)
	require.NoError(t, err)

	f := &fixture{
		index:   index,
		catalog: catalog,
		cache:   cache,
		policy:  &mockPolicy{},
		sink:    &recordingSink{entity: steve},
		obs:     newCountingObserver(),
	}
	f.ctrl = NewController(Deps{
		Provider:  region.NewInternal(index),
		Bindings:  catalog,
		Gates:     cache,
		Admission: f.policy,
		Exit:      f.policy,
		Sink:      f.sink,
		Observer:  f.obs,
	})
	f.sink.ctrl = f.ctrl
	return f
}

func (f *fixture) binding(t *testing.T, regionID string) zone.Binding {
	t.Helper()
	b, ok := f.catalog.BindingFor(regionID)
	require.True(t, ok)
	return b
}

func move(from, to model.Position) model.PositionUpdate {
	return model.PositionUpdate{Entity: steve, From: from, To: to, Cause: model.CauseMove}
}

// bindTo puts steve into regionID through an accepted transition and resets
// the recorded side effects.
func (f *fixture) bindTo(t *testing.T, to model.Position) {
	t.Helper()
	v := f.ctrl.OnPositionUpdate(move(lobby, to))
	require.True(t, v.Allowed())
	f.sink.calls = nil
}

func TestController_EntryDeniedBelowLevel(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(false, "Requires level 5-20").Once()

	v := f.ctrl.OnPositionUpdate(move(lobby, floor1))

	assert.Equal(t, Deny, v.Outcome)
	assert.Equal(t, lobby, v.RollbackTo)
	assert.Equal(t, "Requires level 5-20", v.Reason)

	_, tracked := f.ctrl.State(steve)
	assert.False(t, tracked, "denied entry must not create state")
	assert.Empty(t, f.sink.calls)
	assert.Equal(t, 1, f.obs.denied[StageEntry])
	f.policy.AssertExpectations(t)
}

func TestController_AcrossFloorsCommitsOnce(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.policy.On("CanExit", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.policy.On("CanEnter", steve, f.binding(t, "r2")).Return(true, "").Once()

	v := f.ctrl.OnPositionUpdate(move(floor1, floor2))

	require.True(t, v.Allowed())
	require.Equal(t, []string{"exit", "enter"}, f.sink.hooks())
	assert.Equal(t, int32(1), f.sink.calls[0].floor)
	assert.Equal(t, int32(2), f.sink.calls[1].floor)
	for _, c := range f.sink.calls {
		assert.Equal(t, "r1", c.regionAtCall, "no transient unbound state between floors")
	}

	st, ok := f.ctrl.State(steve)
	require.True(t, ok)
	assert.Equal(t, "r2", st.RegionID)
	f.policy.AssertExpectations(t)
}

func TestController_ExitDeniedLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.policy.On("CanExit", steve, f.binding(t, "r1")).Return(false, "Defeat 3 more monsters").Twice()

	first := f.ctrl.OnPositionUpdate(move(floor1, plaza))
	second := f.ctrl.OnPositionUpdate(move(floor1, plaza))

	assert.Equal(t, Deny, first.Outcome)
	assert.Equal(t, floor1, first.RollbackTo)
	assert.Equal(t, first, second, "identical update yields identical verdict")

	st, _ := f.ctrl.State(steve)
	assert.Equal(t, "r1", st.RegionID)
	assert.Empty(t, f.sink.calls)
	f.policy.AssertNumberOfCalls(t, "CanEnter", 1)
	f.policy.AssertExpectations(t)
}

func TestController_EntryDeniedAfterExitAllowedFiresNothing(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.policy.On("CanExit", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.policy.On("CanEnter", steve, f.binding(t, "r2")).Return(false, "too low").Once()

	v := f.ctrl.OnPositionUpdate(move(floor1, floor2))

	assert.Equal(t, Deny, v.Outcome)
	assert.Empty(t, f.sink.calls, "exit side effects must not fire when entry is denied")
	st, _ := f.ctrl.State(steve)
	assert.Equal(t, "r1", st.RegionID)
}

func TestController_FastPathIsSilent(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()

	for i := range 5 {
		to := floor1.WithCoordinates(int32(i), 1, 1)
		v := f.ctrl.OnPositionUpdate(move(lobby, to))
		require.True(t, v.Allowed())
	}

	assert.Equal(t, []string{"enter"}, f.sink.hooks(), "enter fires once for repeated classifications")
	assert.Equal(t, 1, f.obs.committed)
	f.policy.AssertExpectations(t)
}

func TestController_NeutralRegionsNeedNoChecks(t *testing.T) {
	f := newFixture(t)

	v := f.ctrl.OnPositionUpdate(move(lobby, plaza))
	require.True(t, v.Allowed())
	st, _ := f.ctrl.State(steve)
	assert.Equal(t, "plaza", st.RegionID)

	v = f.ctrl.OnPositionUpdate(move(plaza, lobby))
	require.True(t, v.Allowed())
	st, ok := f.ctrl.State(steve)
	require.True(t, ok)
	assert.False(t, st.Bound(), "leaving every region makes the entity unbound")

	f.policy.AssertNotCalled(t, "CanEnter", mock.Anything, mock.Anything)
	f.policy.AssertNotCalled(t, "CanExit", mock.Anything, mock.Anything)
	assert.Empty(t, f.sink.calls)
	assert.Equal(t, 1, f.obs.tracked)
}

func TestController_LeavingGatedToNeutral(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)
	f.policy.On("CanExit", steve, f.binding(t, "r1")).Return(true, "").Once()

	v := f.ctrl.OnPositionUpdate(move(floor1, lobby))

	require.True(t, v.Allowed())
	assert.Equal(t, []string{"exit"}, f.sink.hooks())
	st, _ := f.ctrl.State(steve)
	assert.False(t, st.Bound())
}

func TestController_DisconnectSkipsAuthorization(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.ctrl.OnDisconnect(steve)

	assert.Equal(t, []string{"exit"}, f.sink.hooks())
	_, tracked := f.ctrl.State(steve)
	assert.False(t, tracked)
	assert.Equal(t, 0, f.obs.tracked)
	f.policy.AssertNotCalled(t, "CanExit", mock.Anything, mock.Anything)

	// Unknown entity: nothing happens.
	f.ctrl.OnDisconnect(model.EntityIDFromName("ghost"))
	assert.Len(t, f.sink.calls, 1)
}

func TestController_DeathResetsObjectiveOnlyInGatedZone(t *testing.T) {
	f := newFixture(t)

	f.bindTo(t, plaza)
	f.ctrl.OnDeath(steve)
	assert.Empty(t, f.sink.calls, "death outside gated zones is a no-op")

	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.ctrl.OnDeath(steve)

	assert.Equal(t, []string{"reset"}, f.sink.hooks())
	st, _ := f.ctrl.State(steve)
	assert.Equal(t, "r1", st.RegionID, "membership is unchanged by death")
}

func TestController_SideEffectFailureKeepsVerdict(t *testing.T) {
	f := newFixture(t)
	f.sink.fail = map[string]error{"enter": errors.New("scoreboard offline")}
	f.sink.panics = map[string]bool{}
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()

	v := f.ctrl.OnPositionUpdate(move(lobby, floor1))
	require.True(t, v.Allowed())
	st, _ := f.ctrl.State(steve)
	assert.Equal(t, "r1", st.RegionID)
	assert.Equal(t, 1, f.obs.failed["enter"])

	f.sink.panics["exit"] = true
	f.policy.On("CanExit", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.policy.On("CanEnter", steve, f.binding(t, "r2")).Return(true, "").Once()

	v = f.ctrl.OnPositionUpdate(move(floor1, floor2))
	require.True(t, v.Allowed())
	st, _ = f.ctrl.State(steve)
	assert.Equal(t, "r2", st.RegionID)
	assert.Equal(t, 1, f.obs.failed["exit"])
	assert.Equal(t, []string{"enter", "exit", "enter"}, f.sink.hooks(), "enter still fires after a panicking exit hook")
}

func TestController_PanickingPolicyDenies(t *testing.T) {
	f := newFixture(t)
	f.ctrl.admission = AdmissionFunc(func(model.EntityID, zone.Binding) (bool, string) {
		panic(fmt.Sprintf("nil progression for %s", steve))
	})

	v := f.ctrl.OnPositionUpdate(move(lobby, floor1))

	assert.Equal(t, Deny, v.Outcome)
	assert.Equal(t, reasonCheckFailed, v.Reason)
	_, tracked := f.ctrl.State(steve)
	assert.False(t, tracked)
}

func TestController_ReloadUnbindsRegion(t *testing.T) {
	f := newFixture(t)
	f.policy.On("CanEnter", steve, f.binding(t, "r1")).Return(true, "").Once()
	f.bindTo(t, floor1)

	f.catalog.Load(nil)
	f.cache.Purge()

	v := f.ctrl.OnPositionUpdate(move(floor1, plaza))
	require.True(t, v.Allowed())
	assert.Empty(t, f.sink.calls, "r1 is neutral after reload")
	assert.False(t, f.ctrl.IsGatedZone("r1"))
	f.policy.AssertNotCalled(t, "CanExit", mock.Anything, mock.Anything)
}

func TestController_Classify(t *testing.T) {
	f := newFixture(t)

	id, ok := f.ctrl.Classify(floor2)
	require.True(t, ok)
	assert.Equal(t, "r2", id)
	assert.True(t, f.ctrl.IsGatedZone(id))
	assert.False(t, f.ctrl.IsGatedZone("plaza"))
}
