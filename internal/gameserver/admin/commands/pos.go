package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/gameserver/admin"
	"github.com/udisondev/towergate/internal/model"
)

// Pos handles //pos1 and //pos2 [x y z]: sets a selection corner to the
// operator's position or to explicit coordinates in the operator's world.
type Pos struct {
	sel *Selections
}

// NewPos creates the selection corner command.
func NewPos(sel *Selections) *Pos {
	return &Pos{sel: sel}
}

func (c *Pos) Names() []string { return []string{"pos1", "pos2"} }

func (c *Pos) RequiredAccessLevel() int32 { return admin.LevelBuilder }

func (c *Pos) Handle(_ context.Context, actor admin.Actor, args []string) error {
	pos := actor.Position()
	if len(args) > 1 {
		if len(args) != 4 {
			return fmt.Errorf("usage: //%s [<x> <y> <z>]", strings.ToLower(args[0]))
		}
		var err error
		if pos, err = parseXYZ(pos, args[1:]); err != nil {
			return err
		}
	}

	first := strings.EqualFold(args[0], "pos1")
	c.sel.Update(actor.ID(), func(s *region.Selection) {
		if first {
			s.SetFirst(pos)
		} else {
			s.SetSecond(pos)
		}
	})

	corner := "Second"
	if first {
		corner = "First"
	}
	actor.Reply(fmt.Sprintf("%s corner set to %s", corner, pos))
	return nil
}

func parseXYZ(base model.Position, args []string) (model.Position, error) {
	var v [3]int32
	for i, name := range []string{"x", "y", "z"} {
		n, err := strconv.ParseInt(args[i], 10, 32)
		if err != nil {
			return base, fmt.Errorf("invalid %s coordinate %q: %w", name, args[i], err)
		}
		v[i] = int32(n)
	}
	return base.WithCoordinates(v[0], v[1], v[2]), nil
}
