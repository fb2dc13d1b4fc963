package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/gameserver/admin"
)

const regionUsage = "usage: //region create <id> | delete <id> | list | info <id>"

// Region handles //region create|delete|list|info.
type Region struct {
	zones Zones
	sel   *Selections
}

// NewRegion creates the region management command.
func NewRegion(zones Zones, sel *Selections) *Region {
	return &Region{zones: zones, sel: sel}
}

func (c *Region) Names() []string { return []string{"region", "rg"} }

func (c *Region) RequiredAccessLevel() int32 { return admin.LevelModerator }

func (c *Region) Handle(ctx context.Context, actor admin.Actor, args []string) error {
	if len(args) < 2 {
		return errors.New(regionUsage)
	}

	sub := strings.ToLower(args[1])
	switch sub {
	case "list":
		return c.list(actor)
	case "info":
		if len(args) < 3 {
			return errors.New("usage: //region info <id>")
		}
		return c.info(actor, args[2])
	case "create", "delete":
		if len(args) < 3 {
			return fmt.Errorf("usage: //region %s <id>", sub)
		}
		if al := admin.GetAccessLevel(actor.AccessLevel()); al == nil || !al.CanEditRegions {
			return fmt.Errorf("editing regions requires access level %d", admin.LevelBuilder)
		}
		if sub == "create" {
			return c.create(ctx, actor, args[2])
		}
		return c.delete(ctx, actor, args[2])
	default:
		return errors.New(regionUsage)
	}
}

func (c *Region) create(ctx context.Context, actor admin.Actor, id string) error {
	if _, exists := c.zones.Region(id); exists {
		return fmt.Errorf("region %q already exists", id)
	}

	var (
		r   region.Region
		err error
	)
	c.sel.Update(actor.ID(), func(s *region.Selection) { r, err = s.Build(id) })
	if err != nil {
		if errors.Is(err, region.ErrSelectionIncomplete) {
			return errors.New("set both corners with //pos1 and //pos2 first")
		}
		return err
	}

	if err := c.zones.CreateRegion(ctx, r); err != nil {
		if errors.Is(err, region.ErrExternalManaged) {
			return errors.New("regions are managed by the external authority")
		}
		return err
	}
	c.sel.Forget(actor.ID())

	actor.Reply(fmt.Sprintf("Region created: %s (%d blocks)", r, r.Volume()))
	return nil
}

func (c *Region) delete(ctx context.Context, actor admin.Actor, id string) error {
	if err := c.zones.DeleteRegion(ctx, id); err != nil {
		switch {
		case errors.Is(err, region.ErrExternalManaged):
			return errors.New("regions are managed by the external authority")
		case errors.Is(err, region.ErrRegionNotFound):
			return fmt.Errorf("region %q not found", id)
		}
		return err
	}
	actor.Reply(fmt.Sprintf("Region %s deleted", id))
	return nil
}

func (c *Region) list(actor admin.Actor) error {
	regions := c.zones.Regions()
	if len(regions) == 0 {
		actor.Reply("No regions")
		return nil
	}

	slices.SortFunc(regions, func(a, b region.Region) int { return strings.Compare(a.ID(), b.ID()) })
	actor.Reply(fmt.Sprintf("%d regions (%s backend):", len(regions), c.zones.Backend()))
	for _, r := range regions {
		actor.Reply(describeRegion(c.zones, r))
	}
	return nil
}

func (c *Region) info(actor admin.Actor, id string) error {
	r, ok := c.zones.Region(id)
	if !ok {
		return fmt.Errorf("region %q not found", id)
	}
	actor.Reply(describeRegion(c.zones, r))
	actor.Reply(fmt.Sprintf("  volume: %d blocks", r.Volume()))
	return nil
}

func describeRegion(zones Zones, r region.Region) string {
	line := r.String()
	if b, ok := zones.BindingFor(r.ID()); ok {
		line += fmt.Sprintf(" [floor %d of %s]", b.Floor, b.GroupID)
	}
	return line
}
