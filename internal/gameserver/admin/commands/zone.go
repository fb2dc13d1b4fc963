package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/towergate/internal/gameserver/admin"
	"github.com/udisondev/towergate/internal/model"
)

// Zone handles //zone reload|where|groups.
type Zone struct {
	zones Zones
}

// NewZone creates the zone command.
func NewZone(zones Zones) *Zone {
	return &Zone{zones: zones}
}

func (c *Zone) Names() []string { return []string{"zone"} }

func (c *Zone) RequiredAccessLevel() int32 { return admin.LevelModerator }

func (c *Zone) Handle(ctx context.Context, actor admin.Actor, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: //zone reload | where | groups")
	}

	switch strings.ToLower(args[1]) {
	case "reload":
		if al := admin.GetAccessLevel(actor.AccessLevel()); al == nil || !al.CanReload {
			return fmt.Errorf("reload requires access level %d", admin.LevelAdmin)
		}
		report, err := c.zones.Reload(ctx)
		if err != nil {
			return err
		}
		skipped := len(report.Regions.Skipped) + len(report.Zones.Skipped)
		actor.Reply(fmt.Sprintf("Reloaded: %d regions, %d groups, %d floors, %d skipped",
			report.Regions.Loaded, report.Zones.Groups, report.Zones.Bindings, skipped))
		for _, err := range slices.Concat(report.Regions.Skipped, report.Zones.Skipped) {
			actor.Reply("  skipped: " + err.Error())
		}
		return nil
	case "where":
		actor.Reply(describePosition(c.zones, actor.Position()))
		return nil
	case "groups":
		groups := c.zones.Groups()
		if len(groups) == 0 {
			actor.Reply("No zone groups")
			return nil
		}
		for _, g := range groups {
			actor.Reply(fmt.Sprintf("%s (%s): levels %d-%d, exit %s, floors %v",
				g.ID, g.DisplayName(), g.MinLevel, g.MaxLevel, g.Exit, g.Floors))
		}
		return nil
	default:
		return fmt.Errorf("unknown zone subcommand: %s", args[1])
	}
}

// Where handles /where for everyone.
type Where struct {
	zones Zones
}

// NewWhere creates the where user command.
func NewWhere(zones Zones) *Where {
	return &Where{zones: zones}
}

func (c *Where) Names() []string { return []string{"where", "loc"} }

func (c *Where) Handle(_ context.Context, actor admin.Actor, _ string) error {
	actor.Reply(describePosition(c.zones, actor.Position()))
	return nil
}

func describePosition(zones Zones, pos model.Position) string {
	id, ok := zones.Classify(pos)
	if !ok {
		return fmt.Sprintf("%s: not in any region", pos)
	}
	b, gated := zones.BindingFor(id)
	if !gated {
		return fmt.Sprintf("%s: region %s", pos, id)
	}

	name := b.GroupID
	for _, g := range zones.Groups() {
		if g.ID == b.GroupID {
			name = g.DisplayName()
			break
		}
	}
	return fmt.Sprintf("%s: region %s, floor %d of %s", pos, id, b.Floor, name)
}
