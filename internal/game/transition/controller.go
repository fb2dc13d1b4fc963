// Package transition implements the zone transition state machine: it keeps
// the region each entity is in, detects region changes on position updates,
// runs exit/entry checks and commits side effects.
package transition

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// Bindings resolves the zone binding of a region.
type Bindings interface {
	BindingFor(regionID string) (zone.Binding, bool)
}

// Gates answers "is this region a gated zone" (normally a zone.Cache).
type Gates interface {
	IsGatedZone(regionID string) bool
}

// Observer receives transition outcomes (metrics).
type Observer interface {
	TransitionCommitted(exited, entered bool)
	TransitionDenied(stage string)
	SideEffectFailed(hook string)
	EntitiesTracked(n int)
}

// Deny stages reported to Observer.
const (
	StageExit  = "exit"
	StageEntry = "entry"
)

const reasonCheckFailed = "Zone check failed, try again"

// State is the zone state of one entity. An empty RegionID means Unbound.
type State struct {
	RegionID string
}

// Bound reports whether the entity is known to be inside a region.
func (s State) Bound() bool { return s.RegionID != "" }

// Deps wires a Controller.
type Deps struct {
	Provider  region.Provider
	Bindings  Bindings
	Gates     Gates
	Admission AdmissionPolicy
	Exit      ExitPolicy
	Sink      Sink
	Observer  Observer
}

// Controller is the per-entity zone state machine. It is not safe for
// concurrent use: every method must run on the owning goroutine (see
// Dispatcher). Only the controller mutates entity state.
type Controller struct {
	provider  region.Provider
	bindings  Bindings
	gates     Gates
	admission AdmissionPolicy
	exit      ExitPolicy
	sink      Sink
	observer  Observer

	entities map[model.EntityID]State
}

// NewController creates a Controller. Nil policies allow everything and a
// nil sink drops side effects.
func NewController(d Deps) *Controller {
	c := &Controller{
		provider:  d.Provider,
		bindings:  d.Bindings,
		gates:     d.Gates,
		admission: d.Admission,
		exit:      d.Exit,
		sink:      d.Sink,
		observer:  d.Observer,
		entities:  make(map[model.EntityID]State, 128),
	}
	if c.admission == nil {
		c.admission = AllowAll{}
	}
	if c.exit == nil {
		c.exit = AllowAll{}
	}
	if c.sink == nil {
		c.sink = NopSink{}
	}
	return c
}

// Classify returns the region containing pos.
func (c *Controller) Classify(pos model.Position) (string, bool) {
	return c.provider.Classify(pos)
}

// IsGatedZone reports whether regionID is a gated zone.
func (c *Controller) IsGatedZone(regionID string) bool {
	return c.gates.IsGatedZone(regionID)
}

// State returns the tracked state of entity.
func (c *Controller) State(entity model.EntityID) (State, bool) {
	s, ok := c.entities[entity]
	return s, ok
}

// Tracked returns the number of tracked entities.
func (c *Controller) Tracked() int {
	return len(c.entities)
}

// OnPositionUpdate processes one settled position. Exit and entry checks are
// both evaluated before any side effect fires; a denial leaves the entity's
// state untouched.
func (c *Controller) OnPositionUpdate(u model.PositionUpdate) Verdict {
	newID, _ := c.provider.Classify(u.To)
	st, known := c.entities[u.Entity]

	// Быстрый путь: регион не изменился.
	if known && st.RegionID == newID {
		return Accepted()
	}

	oldID := st.RegionID
	oldB, oldGated := c.gatedBinding(oldID)
	newB, newGated := c.gatedBinding(newID)

	if oldGated {
		if ok, reason := c.checkExit(u.Entity, oldB); !ok {
			c.denied(StageExit, u, oldID, newID, reason)
			return Denied(u.From, reason)
		}
	}
	if newGated {
		if ok, reason := c.checkEntry(u.Entity, newB); !ok {
			c.denied(StageEntry, u, oldID, newID, reason)
			return Denied(u.From, reason)
		}
	}

	// Commit: exit and entry effects fire together, then state is updated.
	if oldGated {
		c.fire("exit", u.Entity, func() error { return c.sink.OnExit(u.Entity, oldB) })
	}
	if newGated {
		c.fire("enter", u.Entity, func() error { return c.sink.OnEnter(u.Entity, newB) })
	}
	c.entities[u.Entity] = State{RegionID: newID}

	if c.observer != nil {
		c.observer.TransitionCommitted(oldGated, newGated)
		if !known {
			c.observer.EntitiesTracked(len(c.entities))
		}
	}

	slog.Debug("region transition",
		"entity", u.Entity,
		"cause", u.Cause,
		"from", oldID,
		"to", newID,
		"exitedGated", oldGated,
		"enteredGated", newGated)

	return Accepted()
}

// OnDisconnect forgets entity. If it was inside a gated zone the exit side
// effects fire without any authorization check.
func (c *Controller) OnDisconnect(entity model.EntityID) {
	st, ok := c.entities[entity]
	if !ok {
		return
	}
	delete(c.entities, entity)

	if b, gated := c.gatedBinding(st.RegionID); gated {
		c.fire("exit", entity, func() error { return c.sink.OnExit(entity, b) })
	}
	if c.observer != nil {
		c.observer.EntitiesTracked(len(c.entities))
	}
}

// OnDeath resets in-progress objectives when entity dies inside a gated
// zone. Zone membership does not change.
func (c *Controller) OnDeath(entity model.EntityID) {
	st, ok := c.entities[entity]
	if !ok {
		return
	}
	if _, gated := c.gatedBinding(st.RegionID); gated {
		c.fire("objective_reset", entity, func() error { return c.sink.OnObjectiveReset(entity) })
	}
}

// gatedBinding returns the binding of a gated region. A region the cache
// reports as gated but whose binding vanished in a concurrent reload is
// treated as neutral.
func (c *Controller) gatedBinding(regionID string) (zone.Binding, bool) {
	if regionID == "" || !c.gates.IsGatedZone(regionID) {
		return zone.Binding{}, false
	}
	return c.bindings.BindingFor(regionID)
}

func (c *Controller) checkExit(entity model.EntityID, b zone.Binding) (ok bool, reason string) {
	defer c.recoverCheck(StageExit, entity, b, &ok, &reason)
	return c.exit.CanExit(entity, b)
}

func (c *Controller) checkEntry(entity model.EntityID, b zone.Binding) (ok bool, reason string) {
	defer c.recoverCheck(StageEntry, entity, b, &ok, &reason)
	return c.admission.CanEnter(entity, b)
}

// recoverCheck turns a panicking policy into a denial.
func (c *Controller) recoverCheck(stage string, entity model.EntityID, b zone.Binding, ok *bool, reason *string) {
	if r := recover(); r != nil {
		slog.Error("zone policy panicked",
			"stage", stage,
			"entity", entity,
			"region", b.RegionID,
			"panic", r)
		*ok, *reason = false, reasonCheckFailed
	}
}

func (c *Controller) fire(hook string, entity model.EntityID, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	slog.Error("zone side effect failed", "hook", hook, "entity", entity, "err", err)
	if c.observer != nil {
		c.observer.SideEffectFailed(hook)
	}
}

func (c *Controller) denied(stage string, u model.PositionUpdate, oldID, newID, reason string) {
	if c.observer != nil {
		c.observer.TransitionDenied(stage)
	}
	slog.Debug("region transition denied",
		"stage", stage,
		"entity", u.Entity,
		"cause", u.Cause,
		"from", oldID,
		"to", newID,
		"reason", reason)
}
