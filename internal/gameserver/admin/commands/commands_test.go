package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/gameserver/admin"
	"github.com/udisondev/towergate/internal/model"
	"github.com/udisondev/towergate/internal/testutil"
)

const zonesYAML = `
regions:
  - {id: lobby, world: w, min: "-10,0,-10", max: "10,10,10"}
  - {id: floor_1, world: w, min: "100,0,0", max: "109,9,9"}
  - {id: bad, world: w, min: "1,2", max: "3,4,5"}
groups:
  - id: trials
    name: Tower of Trials
    min_level: 1
    max_level: 10
    floors: [{floor: 1, region: floor_1}]
`

type operator struct {
	name    string
	level   int32
	pos     model.Position
	replies []string
}

func (o *operator) ID() model.EntityID       { return model.EntityIDFromName(o.name) }
func (o *operator) Name() string             { return o.name }
func (o *operator) AccessLevel() int32       { return o.level }
func (o *operator) Position() model.Position { return o.pos }
func (o *operator) Reply(msg string)         { o.replies = append(o.replies, msg) }

func (o *operator) output() string {
	out := strings.Join(o.replies, "\n")
	o.replies = nil
	return out
}

type env struct {
	handler *admin.Handler
	svc     *gameserver.Service
}

func newEnv(t *testing.T, resolve region.Resolver) *env {
	t.Helper()
	zones := testutil.WriteZones(t, zonesYAML)
	svc, err := gameserver.New(context.Background(), gameserver.Options{ZonesFile: zones, Resolve: resolve})
	require.NoError(t, err)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	h := admin.NewHandler()
	RegisterAll(h, svc, NewSelections())
	return &env{handler: h, svc: svc}
}

func (e *env) run(op *operator, text string) string {
	if strings.HasPrefix(text, "//") {
		e.handler.HandleAdminCommand(context.Background(), op, strings.TrimPrefix(text, "//"))
	} else {
		e.handler.HandleUserCommand(context.Background(), op, strings.TrimPrefix(text, "/"))
	}
	return op.output()
}

func TestRegisterAll(t *testing.T) {
	e := newEnv(t, nil)
	assert.Equal(t, []string{"pos1", "pos2", "region", "rg", "zone"}, e.handler.AdminCommandNames())
	assert.Equal(t, 2, e.handler.UserCommandCount())
}

func TestRegionCreateFromSelection(t *testing.T) {
	e := newEnv(t, nil)
	op := &operator{name: "Builder", level: admin.LevelBuilder, pos: model.NewPosition("w", 220, 10, 10)}

	assert.Contains(t, e.run(op, "//region create arena"), "set both corners")

	assert.Contains(t, e.run(op, "//pos1"), "First corner set to")
	assert.Contains(t, e.run(op, "//pos2 200 0 0"), "Second corner set to")

	out := e.run(op, "//region create arena")
	assert.Contains(t, out, "Region created: arena")
	assert.Contains(t, out, "(2541 blocks)")

	r, ok := e.svc.Region("arena")
	require.True(t, ok)
	assert.Equal(t, region.Corner{X: 200}, r.Min())
	assert.Equal(t, region.Corner{X: 220, Y: 10, Z: 10}, r.Max())

	// The selection is consumed.
	assert.Contains(t, e.run(op, "//region create arena2"), "set both corners")
	assert.Contains(t, e.run(op, "//region create lobby"), "already exists")
}

func TestRegionCreateRejectsWorldMismatch(t *testing.T) {
	e := newEnv(t, nil)
	op := &operator{name: "Builder", level: admin.LevelBuilder, pos: model.NewPosition("w", 0, 0, 0)}

	e.run(op, "//pos1")
	op.pos = model.NewPosition("nether", 5, 5, 5)
	e.run(op, "//pos2")
	assert.Contains(t, e.run(op, "//region create split"), "different worlds")
}

func TestRegionDeleteAndAccess(t *testing.T) {
	e := newEnv(t, nil)
	mod := &operator{name: "Mod", level: admin.LevelModerator}
	builder := &operator{name: "Builder", level: admin.LevelBuilder}

	assert.Contains(t, e.run(mod, "//region delete lobby"), "requires access level 2")
	assert.Contains(t, e.run(builder, "//region delete lobby"), "Region lobby deleted")
	assert.Contains(t, e.run(builder, "//region delete lobby"), `region "lobby" not found`)
	assert.Contains(t, e.run(mod, "//pos1"), "Insufficient access level")
}

func TestRegionListAndInfo(t *testing.T) {
	e := newEnv(t, nil)
	op := &operator{name: "Mod", level: admin.LevelModerator}

	out := e.run(op, "//region list")
	assert.Contains(t, out, "2 regions (internal backend)")
	assert.Contains(t, out, "floor_1[w (100,0,0)-(109,9,9)] [floor 1 of trials]")

	out = e.run(op, "//rg info floor_1")
	assert.Contains(t, out, "volume: 1000 blocks")
	assert.Contains(t, e.run(op, "//region info nope"), "not found")
	assert.Contains(t, e.run(op, "//region"), "usage")
}

func TestZoneReloadAndWhere(t *testing.T) {
	e := newEnv(t, nil)
	mod := &operator{name: "Mod", level: admin.LevelModerator, pos: model.NewPosition("w", 105, 1, 1)}
	root := &operator{name: "Root", level: admin.LevelAdmin}

	assert.Contains(t, e.run(mod, "//zone reload"), "requires access level 100")

	out := e.run(root, "//zone reload")
	assert.Contains(t, out, "Reloaded: 2 regions, 1 groups, 1 floors, 1 skipped")
	assert.Contains(t, out, "skipped:")

	assert.Equal(t, "w(105, 1, 1): region floor_1, floor 1 of Tower of Trials", e.run(mod, "//zone where"))
	assert.Contains(t, e.run(mod, "//zone groups"), "trials (Tower of Trials): levels 1-10, exit always, floors [1]")

	player := &operator{name: "Steve", pos: model.NewPosition("w", 0, 0, 0)}
	assert.Equal(t, "w(0, 0, 0): region lobby", e.run(player, "/where"))
	player.pos = model.NewPosition("w", 500, 0, 0)
	assert.Equal(t, "w(500, 0, 0): not in any region", e.run(player, "/loc"))
}

func TestRegionCreateUnderExternalBackend(t *testing.T) {
	e := newEnv(t, func(context.Context) (region.Authority, error) {
		return fixedAuthority{}, nil
	})
	op := &operator{name: "Builder", level: admin.LevelBuilder, pos: model.NewPosition("w", 1, 1, 1)}
	e.run(op, "//pos1")
	e.run(op, "//pos2")

	assert.Contains(t, e.run(op, "//region create x"), "managed by the external authority")
	assert.Contains(t, e.run(op, "//region list"), "No regions")
}

type fixedAuthority struct{}

func (fixedAuthority) RegionAt(model.Position) (string, bool, error) { return "", false, nil }
func (fixedAuthority) Regions() []region.Region                      { return nil }
