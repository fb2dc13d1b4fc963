package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// Groups resolves zone groups (normally a zone.Catalog).
type Groups interface {
	Group(id string) (zone.Group, bool)
}

// Scheduler runs blocking jobs off the owning goroutine (normally a
// transition.Dispatcher).
type Scheduler interface {
	Go(job func(ctx context.Context) (func(), error))
}

// Options configures a Service.
type Options struct {
	Store       Store // default: MemoryStore
	Permissions Permissions
	// Scheduler runs persistence. Without one Save runs inline.
	Scheduler Scheduler
}

// Service holds progression of online entities. It implements the
// admission and exit policies, the progress side effects and the join
// preload session of the transition layer.
type Service struct {
	groups Groups
	store  Store
	perms  Permissions
	sched  Scheduler

	mu      sync.Mutex
	records map[model.EntityID]Record
	revs    map[model.EntityID]uint64
	// loaded holds entities whose stored record was read. Only their
	// records are saved, so an entity that never joined cannot overwrite
	// its stored progression with defaults.
	loaded map[model.EntityID]bool
	// unsaved holds records of released entities until their save lands.
	// A rejoin reads them instead of the store.
	unsaved map[model.EntityID]revision

	// saveMu serializes saves so a stale snapshot never overwrites a newer one.
	saveMu sync.Mutex
	saved  map[model.EntityID]uint64
}

type revision struct {
	rec Record
	rev uint64
}

// NewService creates a progression Service.
func NewService(groups Groups, opts Options) *Service {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	return &Service{
		groups:  groups,
		store:   opts.Store,
		perms:   opts.Permissions,
		sched:   opts.Scheduler,
		records: make(map[model.EntityID]Record, 128),
		revs:    make(map[model.EntityID]uint64, 128),
		loaded:  make(map[model.EntityID]bool, 128),
		unsaved: make(map[model.EntityID]revision),
		saved:   make(map[model.EntityID]uint64, 128),
	}
}

// SetScheduler sets the persistence scheduler. Call before the service is
// used concurrently.
func (s *Service) SetScheduler(sched Scheduler) {
	s.sched = sched
}

// Record returns the in-memory record of entity.
func (s *Service) Record(entity model.EntityID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entity]
	return rec, ok
}

// Online returns the number of entities with loaded progression.
func (s *Service) Online() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetLevel sets the level of entity.
func (s *Service) SetLevel(entity model.EntityID, level int32) error {
	if level < 0 {
		return fmt.Errorf("set level %d: %w", level, ErrInvalidLevel)
	}
	s.update(entity, func(r *Record) { r.Level = level })
	return nil
}

// RecordKill counts one kill towards the objective of the entity's floor
// and returns the new counter.
func (s *Service) RecordKill(entity model.EntityID) (int32, error) {
	s.mu.Lock()
	rec, ok := s.records[entity]
	if !ok || !rec.Bound() {
		s.mu.Unlock()
		return 0, fmt.Errorf("record kill for %s: %w", entity, ErrNotInZone)
	}
	rec.Kills++
	s.records[entity] = rec
	rev := s.bump(entity)
	loaded := s.loaded[entity]
	s.mu.Unlock()

	if loaded {
		s.persist(rec, rev)
	}
	return rec.Kills, nil
}

func (s *Service) bypass(entity model.EntityID) bool {
	return s.perms != nil && s.perms.HasPermission(entity, PermissionBypass)
}

// CanEnter admits entity when its level is inside the group's range.
// Entities whose progression is still loading count as level 0.
func (s *Service) CanEnter(entity model.EntityID, b zone.Binding) (bool, string) {
	g, ok := s.groups.Group(b.GroupID)
	if !ok || s.bypass(entity) {
		return true, ""
	}

	var level int32
	if rec, loaded := s.Record(entity); loaded {
		level = rec.Level
	}
	if g.AdmitsLevel(level) {
		return true, ""
	}
	return false, fmt.Sprintf("Requires level %d-%d to enter %s", g.MinLevel, g.MaxLevel, g.DisplayName())
}

// CanExit lets entity leave a floor of an objective group only after the
// floor's kill objective is met.
func (s *Service) CanExit(entity model.EntityID, b zone.Binding) (bool, string) {
	g, ok := s.groups.Group(b.GroupID)
	if !ok || g.Exit != zone.ExitObjective || b.RequiredKills <= 0 || s.bypass(entity) {
		return true, ""
	}

	var kills int32
	if rec, loaded := s.Record(entity); loaded && rec.OnFloor(b.GroupID, b.Floor) {
		kills = rec.Kills
	}
	if kills >= b.RequiredKills {
		return true, ""
	}
	return false, fmt.Sprintf("Defeat %d more monsters to leave floor %d", b.RequiredKills-kills, b.Floor)
}

// OnEnter binds entity to the entered floor and restarts its objective.
func (s *Service) OnEnter(entity model.EntityID, b zone.Binding) error {
	s.update(entity, func(r *Record) {
		r.Group, r.Floor, r.Kills = b.GroupID, b.Floor, 0
	})
	return nil
}

// OnExit clears the floor binding if entity is still bound to b.
func (s *Service) OnExit(entity model.EntityID, b zone.Binding) error {
	s.update(entity, func(r *Record) {
		if r.OnFloor(b.GroupID, b.Floor) {
			r.Group, r.Floor, r.Kills = "", 0, 0
		}
	})
	return nil
}

// OnObjectiveReset clears the kill counter.
func (s *Service) OnObjectiveReset(entity model.EntityID) error {
	s.update(entity, func(r *Record) { r.Kills = 0 })
	return nil
}

// Preload loads the stored progression of a joining entity. A record of a
// recently released entity whose save is still pending is used instead of
// the store. The returned func installs the record unless the entity
// already has an in-memory one, which is kept and saved.
func (s *Service) Preload(ctx context.Context, entity model.EntityID) (func(), error) {
	s.mu.Lock()
	u, pending := s.unsaved[entity]
	s.mu.Unlock()

	rec := u.rec
	if !pending {
		stored, found, err := s.store.Load(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("load progress of %s: %w", entity, err)
		}
		rec = stored
		if !found {
			rec = Record{Entity: entity, Level: DefaultLevel}
		}
	}

	return func() { s.install(entity, rec) }, nil
}

func (s *Service) install(entity model.EntityID, rec Record) {
	s.mu.Lock()
	s.loaded[entity] = true
	cur, ok := s.records[entity]
	if !ok {
		// Release may have run after the store was read.
		if u, pending := s.unsaved[entity]; pending {
			rec = u.rec
		}
		s.records[entity] = rec
		s.mu.Unlock()
		return
	}
	rev := s.bump(entity)
	s.mu.Unlock()

	// Changed before the load finished.
	s.persist(cur, rev)
}

// Release saves and forgets the progression of a disconnected entity.
func (s *Service) Release(entity model.EntityID) {
	s.mu.Lock()
	rec, ok := s.records[entity]
	rev := s.revs[entity]
	loaded := s.loaded[entity]
	delete(s.records, entity)
	delete(s.loaded, entity)
	if ok && loaded {
		s.unsaved[entity] = revision{rec: rec, rev: rev}
	}
	s.mu.Unlock()

	if ok && loaded {
		s.persist(rec, rev)
	}
}

// update applies fn to entity's record, creating a default one if needed,
// and persists the result once the entity is loaded.
func (s *Service) update(entity model.EntityID, fn func(*Record)) {
	s.mu.Lock()
	rec, ok := s.records[entity]
	if !ok {
		rec = Record{Entity: entity, Level: DefaultLevel}
	}
	fn(&rec)
	s.records[entity] = rec
	rev := s.bump(entity)
	loaded := s.loaded[entity]
	s.mu.Unlock()

	if loaded {
		s.persist(rec, rev)
	}
}

// bump returns the next revision of entity's record. Revisions survive
// Release so saves of a rejoined entity stay ordered. Caller holds s.mu.
func (s *Service) bump(entity model.EntityID) uint64 {
	s.revs[entity]++
	return s.revs[entity]
}

// flushed forgets the unsaved record of entity once a save of revision
// saved or newer landed. Caller holds s.saveMu.
func (s *Service) flushed(entity model.EntityID, saved uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.unsaved[entity]; ok && u.rev <= saved {
		delete(s.unsaved, entity)
	}
}

func (s *Service) persist(rec Record, rev uint64) {
	save := func(ctx context.Context) (func(), error) {
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if rev > s.saved[rec.Entity] {
			if err := s.store.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("save progress of %s: %w", rec.Entity, err)
			}
			s.saved[rec.Entity] = rev
		}
		s.flushed(rec.Entity, s.saved[rec.Entity])
		return nil, nil
	}

	if s.sched == nil {
		if _, err := save(context.Background()); err != nil {
			slog.Error("progress not saved", "entity", rec.Entity, "err", err)
		}
		return
	}
	s.sched.Go(save)
}
