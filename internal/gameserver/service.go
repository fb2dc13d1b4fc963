// Package gameserver assembles the zone tracking core: region backend, zone
// catalog, transition controller with its dispatcher, and progression.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/towergate/internal/config"
	"github.com/udisondev/towergate/internal/game/progress"
	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/metrics"
	"github.com/udisondev/towergate/internal/model"
	"github.com/udisondev/towergate/internal/notify"
)

// RegionStore persists regions created at runtime (normally
// db.RegionRepository).
type RegionStore interface {
	LoadAll(ctx context.Context) ([]region.Definition, error)
	Save(ctx context.Context, r region.Region) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Options configures a Service.
type Options struct {
	ZonesFile string
	CacheSize int
	Workers   int64
	QueueSize int

	// Resolve probes the external region authority. Nil selects the
	// internal index.
	Resolve region.Resolver

	Regions     RegionStore    // optional
	Progress    progress.Store // optional, in-memory by default
	Permissions progress.Permissions

	// Sinks receive side effects after progression (log, event publisher).
	Sinks   []transition.Sink
	Metrics *metrics.Metrics
}

// ReloadReport summarizes one Reload.
type ReloadReport struct {
	Regions region.LoadReport
	Zones   zone.LoadReport
	// Ignored is the number of file and stored regions not applied because
	// the external backend owns the region table.
	Ignored int
}

// Err joins every skipped entry.
func (r ReloadReport) Err() error {
	return errors.Join(r.Regions.Err(), r.Zones.Err())
}

// Service owns the zone tracking core.
type Service struct {
	facade     *region.Facade
	catalog    *zone.Catalog
	cache      *zone.Cache
	progress   *progress.Service
	dispatcher *transition.Dispatcher

	regions   RegionStore
	zonesFile string
	metrics   *metrics.Metrics

	reloadMu sync.Mutex
}

// New builds a Service and selects the region backend. Call Reload to load
// definitions and Run to start processing.
func New(ctx context.Context, opts Options) (*Service, error) {
	facade := region.Select(ctx, opts.Resolve, region.NewIndex())
	if ext, ok := facade.External(); ok {
		ext.SetFailureFunc(opts.Metrics.AuthorityFailed)
	}

	catalog := zone.NewCatalog()
	cache, err := zone.NewCache(catalog, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating zone cache: %w", err)
	}
	cache.SetObserver(opts.Metrics)

	prog := progress.NewService(catalog, progress.Options{
		Store:       opts.Progress,
		Permissions: opts.Permissions,
	})

	sink := make(notify.Fanout, 0, len(opts.Sinks)+1)
	sink = append(sink, prog)
	sink = append(sink, opts.Sinks...)

	ctrl := transition.NewController(transition.Deps{
		Provider:  facade,
		Bindings:  catalog,
		Gates:     cache,
		Admission: prog,
		Exit:      prog,
		Sink:      sink,
		Observer:  opts.Metrics,
	})
	d := transition.NewDispatcher(ctrl, transition.DispatcherOptions{
		QueueSize: opts.QueueSize,
		Workers:   opts.Workers,
		Session:   prog,
	})
	prog.SetScheduler(d)

	return &Service{
		facade:     facade,
		catalog:    catalog,
		cache:      cache,
		progress:   prog,
		dispatcher: d,
		regions:    opts.Regions,
		zonesFile:  opts.ZonesFile,
		metrics:    opts.Metrics,
	}, nil
}

// Run processes position updates until ctx is canceled (blocks).
func (s *Service) Run(ctx context.Context) error {
	return s.dispatcher.Run(ctx)
}

// Dispatcher returns the transition dispatcher.
func (s *Service) Dispatcher() *transition.Dispatcher { return s.dispatcher }

// Progress returns the progression service.
func (s *Service) Progress() *progress.Service { return s.progress }

// Backend returns the selected region backend.
func (s *Service) Backend() region.Backend { return s.facade.Backend() }

// Handle submits one position update and waits for its verdict.
func (s *Service) Handle(ctx context.Context, u model.PositionUpdate) (transition.Verdict, error) {
	return s.dispatcher.Handle(ctx, u)
}

// Classify returns the region containing pos.
func (s *Service) Classify(pos model.Position) (string, bool) {
	return s.facade.Classify(pos)
}

// IsGatedZone reports whether regionID is a gated zone.
func (s *Service) IsGatedZone(regionID string) bool {
	return s.cache.IsGatedZone(regionID)
}

// BindingFor returns the zone binding of regionID.
func (s *Service) BindingFor(regionID string) (zone.Binding, bool) {
	return s.catalog.BindingFor(regionID)
}

// RegionFor returns the region backing floor of group.
func (s *Service) RegionFor(group string, floor int32) (string, bool) {
	return s.catalog.RegionFor(group, floor)
}

// Regions returns the regions of the selected backend.
func (s *Service) Regions() []region.Region { return s.facade.Regions() }

// Region looks up one region.
func (s *Service) Region(id string) (region.Region, bool) { return s.facade.Region(id) }

// Groups returns every zone group.
func (s *Service) Groups() []zone.Group { return s.catalog.Groups() }

// Reload re-reads the zones file and stored regions and replaces the region
// index and zone catalog in one step of the dispatcher. Entity state is kept. On error nothing
// is replaced.
func (s *Service) Reload(ctx context.Context) (ReloadReport, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	report, err := s.reload(ctx)
	s.metrics.ObserveReload(start, err, len(s.facade.Regions()), report.Zones.Bindings)
	if err != nil {
		return report, err
	}

	slog.Info("zones reloaded",
		"backend", s.facade.Backend(),
		"regions", report.Regions.Loaded,
		"groups", report.Zones.Groups,
		"bindings", report.Zones.Bindings,
		"skipped", len(report.Regions.Skipped)+len(report.Zones.Skipped),
		"generation", s.catalog.Generation(),
		"duration", time.Since(start))
	return report, nil
}

func (s *Service) reload(ctx context.Context) (ReloadReport, error) {
	var report ReloadReport

	zones, err := config.LoadZones(s.zonesFile)
	if err != nil {
		return report, fmt.Errorf("loading zones: %w", err)
	}

	defs := zones.Regions
	if s.regions != nil {
		stored, err := s.regions.LoadAll(ctx)
		if err != nil {
			return report, fmt.Errorf("loading stored regions: %w", err)
		}
		// Stored regions come last so they win on id collisions.
		defs = append(defs, stored...)
	}

	index, internal := s.facade.Index()
	var regions []region.Region
	if internal {
		regions, report.Regions = region.FromDefinitions(defs)
	} else if len(defs) > 0 {
		report.Ignored = len(defs)
		slog.Warn("region definitions ignored, external authority owns regions", "count", len(defs))
	}
	staged := s.catalog.Stage(zones.Groups)
	report.Zones = staged.Report

	// Regions and bindings change between two updates, never during one.
	err = s.dispatcher.Exclusive(ctx, func() {
		if internal {
			index.Replace(regions)
		}
		s.catalog.Publish(staged)
		s.cache.Purge()
	})
	if err != nil {
		return report, fmt.Errorf("publishing zones: %w", err)
	}
	return report, nil
}

// CreateRegion persists r and registers it in the internal index.
func (s *Service) CreateRegion(ctx context.Context, r region.Region) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.facade.Backend() != region.BackendInternal {
		return fmt.Errorf("create region %q: %w", r.ID(), region.ErrExternalManaged)
	}
	if s.regions != nil {
		if err := s.regions.Save(ctx, r); err != nil {
			return fmt.Errorf("create region %q: %w", r.ID(), err)
		}
	}
	if err := s.facade.Register(r); err != nil {
		return fmt.Errorf("create region %q: %w", r.ID(), err)
	}
	slog.Info("region created", "region", r.ID(), "world", r.World(), "min", r.Min(), "max", r.Max())
	return nil
}

// DeleteRegion removes a region from the internal index and the store.
func (s *Service) DeleteRegion(ctx context.Context, id string) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.facade.Backend() != region.BackendInternal {
		return fmt.Errorf("delete region %q: %w", id, region.ErrExternalManaged)
	}
	if _, ok := s.facade.Region(id); !ok {
		return fmt.Errorf("delete region %q: %w", id, region.ErrRegionNotFound)
	}
	if s.regions != nil {
		if _, err := s.regions.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete region %q: %w", id, err)
		}
	}
	if err := s.facade.Remove(id); err != nil {
		return err
	}
	slog.Info("region deleted", "region", id)
	return nil
}

// EntityView is a snapshot of one entity's zone state and progression.
type EntityView struct {
	Entity   model.EntityID
	Tracked  bool
	RegionID string
	Binding  *zone.Binding
	Progress *progress.Record
}

// Entity returns the current state of entity, read on the owning goroutine.
func (s *Service) Entity(ctx context.Context, entity model.EntityID) (EntityView, error) {
	view := EntityView{Entity: entity}
	err := s.dispatcher.Do(ctx, func() {
		st, ok := s.dispatcher.Controller().State(entity)
		view.Tracked, view.RegionID = ok, st.RegionID
	})
	if err != nil {
		return view, err
	}

	if b, ok := s.catalog.BindingFor(view.RegionID); ok {
		view.Binding = &b
	}
	if rec, ok := s.progress.Record(entity); ok {
		view.Progress = &rec
	}
	return view, nil
}

// Tracked returns the number of entities with known region state.
func (s *Service) Tracked(ctx context.Context) (int, error) {
	var n int
	err := s.dispatcher.Do(ctx, func() { n = s.dispatcher.Controller().Tracked() })
	return n, err
}
