// Package interactive provides the towerctl console: it simulates entities
// moving through the zone service and forwards operator commands.
package interactive

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/gameserver/admin"
	"github.com/udisondev/towergate/internal/model"
)

// DefaultWorld is the world of entities that have not joined yet.
const DefaultWorld = "overworld"

// Console dispatches one command line at a time against a zone service.
type Console struct {
	svc      *gameserver.Service
	commands *admin.Handler
	out      io.Writer

	entities map[string]*entity
	current  *entity
}

// New creates a console writing to out. The console starts acting as an
// administrator named "console".
func New(svc *gameserver.Service, commands *admin.Handler, out io.Writer) *Console {
	c := &Console{
		svc:      svc,
		commands: commands,
		out:      out,
		entities: make(map[string]*entity),
	}
	c.current = c.entity("console")
	c.current.access = admin.LevelAdmin
	return c
}

// Run reads commands until EOF, "exit" or ctx is canceled. cancel is called
// when the operator leaves.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.prompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return nil
		}
		if !c.Exec(ctx, line) {
			cancel()
			return nil
		}
		rl.SetPrompt(c.prompt())
	}
}

func (c *Console) prompt() string {
	return c.current.name + "> "
}

// Exec runs one command line. It returns false when the operator asked to
// leave.
func (c *Console) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	switch {
	case strings.HasPrefix(input, "//"):
		c.commands.HandleAdminCommand(ctx, c.current, strings.TrimPrefix(input, "//"))
		return true
	case strings.HasPrefix(input, "/"):
		if !c.commands.HandleUserCommand(ctx, c.current, strings.TrimPrefix(input, "/")) {
			fmt.Fprintf(c.out, "Unknown command: %s\n", input)
		}
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "as":
		err = c.cmdAs(args)
	case "access":
		err = c.cmdAccess(args)
	case "join":
		err = c.cmdJoin(ctx, args)
	case "move", "m":
		err = c.cmdMove(ctx, args)
	case "tp", "teleport":
		err = c.cmdTeleport(ctx, args)
	case "die":
		err = c.send(ctx, model.CauseDeath, c.current.pos)
	case "respawn":
		err = c.cmdRespawn(ctx, args)
	case "leave", "disconnect":
		err = c.send(ctx, model.CauseQuit, c.current.pos)
	case "kill", "k":
		err = c.cmdKill()
	case "level", "lvl":
		err = c.cmdLevel(args)
	case "state", "s":
		err = c.cmdState(ctx)
	case "who":
		c.cmdWho()
	case "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %s\n", err)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Towergate Console Commands:
  Entities:
    as <name>            - Act as entity <name> (created on first use)
    access <level>       - Set access level of the current entity
    who                  - List simulated entities

  Movement:
    join [world] x y z   - Join at a position (default: last position)
    move x y z           - Walk to a position in the current world
    tp <world> x y z     - Teleport
    die                  - Die at the current position
    respawn [world] x y z
    leave                - Disconnect

  Progression:
    level <n>            - Set level
    kill                 - Count one kill towards the floor objective
    state                - Show zone state and progression

  Operator:
    //<command>          - Admin command (//region, //zone, //pos1, //pos2)
    /<command>           - User command (/where)

    help                 - Show this help
    exit                 - Leave the console`)
}

func (c *Console) entity(name string) *entity {
	key := strings.ToLower(name)
	e, ok := c.entities[key]
	if !ok {
		e = &entity{
			id:    model.EntityIDFromName(name),
			name:  name,
			pos:   model.NewPosition(DefaultWorld, 0, 64, 0),
			reply: func(msg string) { fmt.Fprintln(c.out, msg) },
		}
		c.entities[key] = e
	}
	return e
}

func (c *Console) cmdAs(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: as <name>")
	}
	c.current = c.entity(args[0])
	fmt.Fprintf(c.out, "Acting as %s (%s)\n", c.current.name, c.current.id)
	return nil
}

func (c *Console) cmdAccess(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: access <level>")
	}
	level, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid access level %q", args[0])
	}
	c.current.access = int32(level)

	name := "Banned"
	if al := admin.GetAccessLevel(c.current.access); al != nil {
		name = al.Name
	}
	fmt.Fprintf(c.out, "%s access level %d (%s)\n", c.current.name, level, name)
	return nil
}

func (c *Console) cmdJoin(ctx context.Context, args []string) error {
	pos := c.current.pos
	if len(args) > 0 {
		var err error
		if pos, err = parsePosition(pos, args); err != nil {
			return err
		}
	}
	c.current.pos = pos
	return c.send(ctx, model.CauseJoin, pos)
}

func (c *Console) cmdMove(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: move <x> <y> <z>")
	}
	pos, err := parsePosition(c.current.pos, args)
	if err != nil {
		return err
	}
	return c.send(ctx, model.CauseMove, pos)
}

func (c *Console) cmdTeleport(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: tp <world> <x> <y> <z>")
	}
	pos, err := parsePosition(c.current.pos, args)
	if err != nil {
		return err
	}
	return c.send(ctx, model.CauseTeleport, pos)
}

func (c *Console) cmdRespawn(ctx context.Context, args []string) error {
	pos, err := parsePosition(c.current.pos, args)
	if err != nil {
		return err
	}
	return c.send(ctx, model.CauseRespawn, pos)
}

// send submits one position update for the current entity and applies the
// verdict to its simulated position.
func (c *Console) send(ctx context.Context, cause model.Cause, to model.Position) error {
	e := c.current
	if !e.online && cause != model.CauseJoin {
		return fmt.Errorf("%s is offline, use join first", e.name)
	}

	v, err := c.svc.Handle(ctx, model.PositionUpdate{
		Entity: e.id,
		From:   e.pos,
		To:     to,
		Cause:  cause,
	})
	if err != nil {
		return err
	}
	c.apply(e, cause, to, v)
	return nil
}

func (c *Console) apply(e *entity, cause model.Cause, to model.Position, v transition.Verdict) {
	if !v.Allowed() {
		e.pos = v.RollbackTo
		fmt.Fprintf(c.out, "DENIED %s: %s (back to %s)\n", cause, v.Reason, e.pos)
		return
	}

	e.pos = to
	switch cause {
	case model.CauseJoin:
		e.online = true
	case model.CauseQuit:
		e.online = false
	}

	where := "no region"
	if id, ok := c.svc.Classify(to); ok {
		where = "region " + id
		if b, ok := c.svc.BindingFor(id); ok {
			where = fmt.Sprintf("%s (%s floor %d)", where, b.GroupID, b.Floor)
		}
	}
	fmt.Fprintf(c.out, "OK %s -> %s, %s\n", cause, to, where)
}

func (c *Console) cmdKill() error {
	kills, err := c.svc.Progress().RecordKill(c.current.id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s kills on this floor: %d\n", c.current.name, kills)
	return nil
}

func (c *Console) cmdLevel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: level <n>")
	}
	level, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid level %q", args[0])
	}
	if err := c.svc.Progress().SetLevel(c.current.id, int32(level)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s is now level %d\n", c.current.name, level)
	return nil
}

func (c *Console) cmdState(ctx context.Context) error {
	view, err := c.svc.Entity(ctx, c.current.id)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s (%s) at %s\n", c.current.name, view.Entity, c.current.pos)
	switch {
	case !view.Tracked:
		fmt.Fprintln(c.out, "  zone:     untracked")
	case view.RegionID == "":
		fmt.Fprintln(c.out, "  zone:     unbound")
	case view.Binding != nil:
		fmt.Fprintf(c.out, "  zone:     %s (%s floor %d)\n", view.RegionID, view.Binding.GroupID, view.Binding.Floor)
	default:
		fmt.Fprintf(c.out, "  zone:     %s\n", view.RegionID)
	}
	if p := view.Progress; p != nil {
		fmt.Fprintf(c.out, "  level:    %d\n", p.Level)
		if p.Bound() {
			fmt.Fprintf(c.out, "  floor:    %s/%d, kills %d\n", p.Group, p.Floor, p.Kills)
		}
	}
	return nil
}

func (c *Console) cmdWho() {
	names := make([]string, 0, len(c.entities))
	for key := range c.entities {
		names = append(names, key)
	}
	slices.Sort(names)
	for _, key := range names {
		e := c.entities[key]
		status := "offline"
		if e.online {
			status = "online"
		}
		fmt.Fprintf(c.out, "  %-12s %-7s %s\n", e.name, status, e.pos)
	}
}

// parsePosition parses "[world] x y z" relative to base.
func parsePosition(base model.Position, args []string) (model.Position, error) {
	switch len(args) {
	case 3:
	case 4:
		base = base.WithWorld(args[0])
		args = args[1:]
	default:
		return base, fmt.Errorf("expected [world] <x> <y> <z>")
	}

	var v [3]int32
	for i, name := range []string{"x", "y", "z"} {
		n, err := strconv.ParseInt(args[i], 10, 32)
		if err != nil {
			return base, fmt.Errorf("invalid %s coordinate %q", name, args[i])
		}
		v[i] = int32(n)
	}
	return base.WithCoordinates(v[0], v[1], v[2]), nil
}
