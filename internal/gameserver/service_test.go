package gameserver

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/towergate/internal/game/progress"
	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/model"
	"github.com/udisondev/towergate/internal/testutil"
)

const zonesYAML = `
regions:
  - {id: lobby,   world: w, min: "-10,0,-10", max: "10,10,10"}
  - {id: floor_1, world: w, min: "100,0,0",   max: "109,9,9"}
  - {id: floor_2, world: w, min: "110,0,0",   max: "119,9,9"}
groups:
  - id: trials
    name: Tower of Trials
    min_level: 5
    max_level: 30
    exit_policy: objective
    floors:
      - {floor: 1, region: floor_1, required_kills: 2}
      - {floor: 2, region: floor_2}
`

var (
	steve  = model.EntityIDFromName("Steve")
	spawn  = model.NewPosition("w", 0, 5, 0)
	floor1 = model.NewPosition("w", 105, 5, 5)
	floor2 = model.NewPosition("w", 115, 5, 5)
)

type memRegions struct {
	mu   sync.Mutex
	defs map[string]region.Definition
}

func newMemRegions() *memRegions {
	return &memRegions{defs: map[string]region.Definition{}}
}

func (m *memRegions) LoadAll(context.Context) ([]region.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]region.Definition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memRegions) Save(_ context.Context, r region.Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs[r.ID()] = region.DefinitionOf(r)
	return nil
}

func (m *memRegions) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.defs[id]
	delete(m.defs, id)
	return ok, nil
}

func startService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.ZonesFile == "" {
		opts.ZonesFile = testutil.WriteZones(t, zonesYAML)
	}
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	_, err = s.Reload(context.Background())
	require.NoError(t, err)

	testutil.Run(t, s.Run)
	return s
}

func handle(t *testing.T, s *Service, from, to model.Position, cause model.Cause) transition.Verdict {
	t.Helper()
	v, err := s.Handle(context.Background(), model.PositionUpdate{Entity: steve, From: from, To: to, Cause: cause})
	require.NoError(t, err)
	return v
}

func TestService_TowerRun(t *testing.T) {
	store := progress.NewMemoryStore()
	s := startService(t, Options{Progress: store})
	ctx := context.Background()

	handle(t, s, spawn, spawn, model.CauseJoin)

	// Fresh entities start at level 1, below the tower range.
	v := handle(t, s, spawn, floor1, model.CauseTeleport)
	assert.False(t, v.Allowed())
	assert.Equal(t, spawn, v.RollbackTo)
	assert.Equal(t, "Requires level 5-30 to enter Tower of Trials", v.Reason)

	require.NoError(t, s.Progress().SetLevel(steve, 10))
	v = handle(t, s, spawn, floor1, model.CauseTeleport)
	require.True(t, v.Allowed())

	v = handle(t, s, floor1, floor2, model.CauseMove)
	assert.False(t, v.Allowed())
	assert.Equal(t, "Defeat 2 more monsters to leave floor 1", v.Reason)

	for range 2 {
		_, err := s.Progress().RecordKill(steve)
		require.NoError(t, err)
	}
	v = handle(t, s, floor1, floor2, model.CauseMove)
	require.True(t, v.Allowed())

	view, err := s.Entity(ctx, steve)
	require.NoError(t, err)
	assert.True(t, view.Tracked)
	assert.Equal(t, "floor_2", view.RegionID)
	require.NotNil(t, view.Binding)
	assert.Equal(t, int32(2), view.Binding.Floor)
	require.NotNil(t, view.Progress)
	assert.Equal(t, int32(2), view.Progress.Floor)

	handle(t, s, floor2, floor2, model.CauseQuit)
	n, err := s.Tracked(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Eventually(t, func() bool {
		rec, found, _ := store.Load(ctx, steve)
		return found && rec.Level == 10 && !rec.Bound()
	}, time.Second, 5*time.Millisecond, "disconnect exits the floor and saves progression")
}

func TestService_BypassIgnoresLevel(t *testing.T) {
	perms := progress.NewStaticPermissions()
	perms.Grant(steve, progress.PermissionBypass)
	s := startService(t, Options{Permissions: perms})

	handle(t, s, spawn, spawn, model.CauseJoin)
	assert.True(t, handle(t, s, spawn, floor1, model.CauseTeleport).Allowed())
	assert.True(t, handle(t, s, floor1, spawn, model.CauseTeleport).Allowed())
}

func TestService_ReloadKeepsEntityState(t *testing.T) {
	path := testutil.WriteZones(t, zonesYAML)
	s := startService(t, Options{ZonesFile: path})
	require.NoError(t, s.Progress().SetLevel(steve, 10))
	require.True(t, handle(t, s, spawn, floor1, model.CauseTeleport).Allowed())
	assert.True(t, s.IsGatedZone("floor_1"))

	// floor_1 is no longer part of the tower.
	require.NoError(t, os.WriteFile(path, []byte(`
regions:
  - {id: floor_1, world: w, min: "100,0,0", max: "109,9,9"}
groups: []
`), 0o600))
	report, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Regions.Loaded)
	assert.False(t, s.IsGatedZone("floor_1"), "cache follows the reloaded catalog")

	view, err := s.Entity(context.Background(), steve)
	require.NoError(t, err)
	assert.Equal(t, "floor_1", view.RegionID)
	assert.Nil(t, view.Binding)

	_, ok := s.Classify(spawn)
	assert.False(t, ok, "lobby was dropped")
}

func TestService_ReloadFailureKeepsTables(t *testing.T) {
	path := testutil.WriteZones(t, zonesYAML)
	s := startService(t, Options{ZonesFile: path})

	require.NoError(t, os.WriteFile(path, []byte("regions: [oops"), 0o600))
	_, err := s.Reload(context.Background())
	assert.Error(t, err)
	assert.Len(t, s.Regions(), 3)
	assert.Len(t, s.Groups(), 1)
}

func TestService_CreateDeleteRegion(t *testing.T) {
	stored := newMemRegions()
	s := startService(t, Options{Regions: stored})
	ctx := context.Background()

	arena, err := region.New("arena", "w", region.Corner{X: 200}, region.Corner{X: 220, Y: 10, Z: 10})
	require.NoError(t, err)
	require.NoError(t, s.CreateRegion(ctx, arena))

	id, ok := s.Classify(model.NewPosition("w", 210, 5, 5))
	require.True(t, ok)
	assert.Equal(t, "arena", id)

	// Stored regions survive reloads.
	_, err = s.Reload(ctx)
	require.NoError(t, err)
	_, ok = s.Region("arena")
	assert.True(t, ok)

	require.NoError(t, s.DeleteRegion(ctx, "arena"))
	_, ok = s.Region("arena")
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteRegion(ctx, "arena"), region.ErrRegionNotFound)
	defs, _ := stored.LoadAll(ctx)
	assert.Empty(t, defs)
}

func TestService_ReloadIsOneStepForUpdates(t *testing.T) {
	gated := func(regionID string) string {
		return `
regions:
  - {id: lobby, world: w, min: "-10,0,-10", max: "10,10,10"}
  - {id: ` + regionID + `, world: w, min: "100,0,0", max: "109,9,9"}
groups:
  - id: elite
    min_level: 50
    max_level: 99
    floors:
      - {floor: 1, region: ` + regionID + `}
`
	}
	path := testutil.WriteZones(t, gated("floor_1"))
	s := startService(t, Options{ZonesFile: path})
	ctx := context.Background()

	stop := make(chan struct{})
	reloaded := make(chan error, 1)
	go func() {
		defer close(reloaded)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := "floor_1"
			if i%2 == 0 {
				id = "gate"
			}
			if err := os.WriteFile(path, []byte(gated(id)), 0o600); err != nil {
				reloaded <- err
				return
			}
			if _, err := s.Reload(ctx); err != nil {
				reloaded <- err
				return
			}
		}
	}()

	// Under every published table the box is a gated floor, so no update
	// may see it as a neutral region.
	for range 300 {
		v := handle(t, s, spawn, floor1, model.CauseMove)
		require.False(t, v.Allowed(), "entered the box with bindings of another reload")
	}
	close(stop)
	require.NoError(t, <-reloaded)
}

func TestService_CreateRegionDuringReload(t *testing.T) {
	stored := newMemRegions()
	s := startService(t, Options{Regions: stored})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			_, err := s.Reload(ctx)
			assert.NoError(t, err)
		}
	}()
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("arena_%d", i)
		x := int32(200 + 20*i)
		r, err := region.New(ids[i], "w", region.Corner{X: x}, region.Corner{X: x + 10, Y: 10, Z: 10})
		require.NoError(t, err)
		require.NoError(t, s.CreateRegion(ctx, r))
	}
	wg.Wait()

	for _, id := range ids {
		_, ok := s.Region(id)
		assert.True(t, ok, "%s saved but missing from the index", id)
	}
}

type staticAuthority struct{ regions []region.Region }

func (a staticAuthority) RegionAt(pos model.Position) (string, bool, error) {
	for _, r := range a.regions {
		if r.Contains(pos) {
			return r.ID(), true, nil
		}
	}
	return "", false, nil
}

func (a staticAuthority) Regions() []region.Region { return a.regions }

func TestService_ExternalBackend(t *testing.T) {
	f1, err := region.New("floor_1", "w", region.Corner{X: 100}, region.Corner{X: 109, Y: 9, Z: 9})
	require.NoError(t, err)

	s := startService(t, Options{
		Resolve: func(context.Context) (region.Authority, error) {
			return staticAuthority{regions: []region.Region{f1}}, nil
		},
	})
	ctx := context.Background()

	assert.Equal(t, region.BackendExternal, s.Backend())
	assert.Len(t, s.Regions(), 1, "file regions are ignored")
	assert.True(t, s.IsGatedZone("floor_1"), "bindings still come from the zones file")

	assert.ErrorIs(t, s.CreateRegion(ctx, f1), region.ErrExternalManaged)
	assert.ErrorIs(t, s.DeleteRegion(ctx, "floor_1"), region.ErrExternalManaged)

	report, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Ignored)
}
