package zone

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

type floorKey struct {
	group string
	floor int32
}

// table is one immutable generation of the catalog.
type table struct {
	generation uint64
	bindings   map[string]Binding
	reverse    map[floorKey]string
	groups     map[string]Group
	order      []string
}

func emptyTable(generation uint64) *table {
	return &table{
		generation: generation,
		bindings:   map[string]Binding{},
		reverse:    map[floorKey]string{},
		groups:     map[string]Group{},
	}
}

// LoadReport summarizes a catalog load.
type LoadReport struct {
	Groups   int
	Bindings int
	Skipped  []error
}

// Err joins all skip reasons, or returns nil when nothing was skipped.
func (r LoadReport) Err() error {
	return errors.Join(r.Skipped...)
}

// Catalog maps region ids to zone bindings and back. Lookups read an
// immutable table; Load builds a complete new table and publishes it in one
// atomic store, so readers on any goroutine never see a partial reload.
type Catalog struct {
	mu  sync.Mutex // serializes Load
	cur atomic.Pointer[table]
}

// NewCatalog creates an empty catalog at generation 0.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.cur.Store(emptyTable(0))
	return c
}

func (c *Catalog) snapshot() *table {
	return c.cur.Load()
}

// Generation increases by one on every Load.
func (c *Catalog) Generation() uint64 {
	return c.snapshot().generation
}

// BindingFor returns the binding of a region, or false if it is neutral.
func (c *Catalog) BindingFor(regionID string) (Binding, bool) {
	b, ok := c.snapshot().bindings[regionID]
	return b, ok
}

// RegionFor returns the region backing floor of group.
func (c *Catalog) RegionFor(groupID string, floor int32) (string, bool) {
	id, ok := c.snapshot().reverse[floorKey{group: groupID, floor: floor}]
	return id, ok
}

// Group returns zone group metadata.
func (c *Catalog) Group(id string) (Group, bool) {
	g, ok := c.snapshot().groups[id]
	g.Floors = slices.Clone(g.Floors)
	return g, ok
}

// Groups returns all groups in configuration order.
func (c *Catalog) Groups() []Group {
	t := c.snapshot()
	out := make([]Group, 0, len(t.order))
	for _, id := range t.order {
		g := t.groups[id]
		g.Floors = slices.Clone(g.Floors)
		out = append(out, g)
	}
	return out
}

// Len returns the number of bound regions.
func (c *Catalog) Len() int {
	return len(c.snapshot().bindings)
}

// Staged is a built catalog generation that readers cannot see yet.
type Staged struct {
	t      *table
	Report LoadReport
}

// Stage builds a catalog from defs without publishing it. Invalid groups
// or floors are logged and skipped.
func (c *Catalog) Stage(defs []GroupDef) Staged {
	t, report := build(0, defs)
	return Staged{t: t, Report: report}
}

// Publish makes st the current catalog and returns its generation.
func (c *Catalog) Publish(st Staged) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *st.t
	next.generation = c.snapshot().generation + 1
	c.cur.Store(&next)

	slog.Info("zone catalog loaded",
		"generation", next.generation,
		"groups", st.Report.Groups,
		"bindings", st.Report.Bindings,
		"skipped", len(st.Report.Skipped))
	return next.generation
}

// Load replaces the whole catalog. Invalid groups or floors are logged and
// skipped; the rest is published.
func (c *Catalog) Load(defs []GroupDef) LoadReport {
	st := c.Stage(defs)
	c.Publish(st)
	return st.Report
}

func build(generation uint64, defs []GroupDef) (*table, LoadReport) {
	t := emptyTable(generation)
	var report LoadReport

	skip := func(err error) {
		slog.Warn("skip zone entry", "err", err)
		report.Skipped = append(report.Skipped, err)
	}

	for _, def := range defs {
		g, err := groupOf(def)
		if err != nil {
			skip(err)
			continue
		}
		if _, dup := t.groups[g.ID]; dup {
			skip(fmt.Errorf("group %q: %w", g.ID, ErrDuplicateGroup))
			continue
		}

		for _, fd := range def.Floors {
			switch {
			case fd.Floor < 0:
				skip(fmt.Errorf("group %q floor %d: %w", g.ID, fd.Floor, ErrNegativeFloor))
				continue
			case fd.Region == "":
				skip(fmt.Errorf("group %q floor %d: %w", g.ID, fd.Floor, ErrEmptyRegion))
				continue
			}

			if prev, dup := t.bindings[fd.Region]; dup {
				skip(fmt.Errorf("region %q (group %q floor %d, already %q floor %d): %w",
					fd.Region, g.ID, fd.Floor, prev.GroupID, prev.Floor, ErrDuplicateBinding))
				continue
			}
			key := floorKey{group: g.ID, floor: fd.Floor}
			if _, dup := t.reverse[key]; dup {
				skip(fmt.Errorf("group %q floor %d: %w", g.ID, fd.Floor, ErrDuplicateFloor))
				continue
			}

			t.bindings[fd.Region] = Binding{
				RegionID:      fd.Region,
				GroupID:       g.ID,
				Floor:         fd.Floor,
				RequiredKills: max(fd.RequiredKills, 0),
			}
			t.reverse[key] = fd.Region
			g.Floors = append(g.Floors, fd.Floor)
			report.Bindings++
		}

		slices.Sort(g.Floors)
		t.groups[g.ID] = g
		t.order = append(t.order, g.ID)
		report.Groups++
	}

	return t, report
}

func groupOf(def GroupDef) (Group, error) {
	if def.ID == "" {
		return Group{}, ErrEmptyGroupID
	}
	if def.MinLevel > def.MaxLevel {
		return Group{}, fmt.Errorf("group %q [%d, %d]: %w", def.ID, def.MinLevel, def.MaxLevel, ErrInvalidLevelRange)
	}

	exit := ExitAlways
	switch ExitPolicy(def.ExitPolicy) {
	case "", ExitAlways:
	case ExitObjective:
		exit = ExitObjective
	default:
		return Group{}, fmt.Errorf("group %q policy %q: %w", def.ID, def.ExitPolicy, ErrUnknownExitPolicy)
	}

	return Group{
		ID:       def.ID,
		Name:     def.Name,
		MinLevel: def.MinLevel,
		MaxLevel: def.MaxLevel,
		Exit:     exit,
	}, nil
}
