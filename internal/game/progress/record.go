// Package progress tracks entity progression inside zone groups: level,
// the floor the entity is bound to and the kill objective counter. It
// supplies the admission and exit policies and the progress part of the
// transition side effects.
package progress

import (
	"context"
	"sync"

	"github.com/udisondev/towergate/internal/model"
)

// DefaultLevel is assigned to entities without stored progression.
const DefaultLevel int32 = 1

// Record is the progression of one entity. An empty Group means the entity
// is not bound to any floor.
type Record struct {
	Entity model.EntityID
	Level  int32
	Group  string
	Floor  int32
	Kills  int32
}

// Bound reports whether the record is bound to a floor.
func (r Record) Bound() bool { return r.Group != "" }

// OnFloor reports whether the record is bound to floor of group.
func (r Record) OnFloor(group string, floor int32) bool {
	return r.Group == group && r.Floor == floor
}

// Store persists progression records.
type Store interface {
	// Load returns the stored record. found is false when the entity has
	// no stored progression yet.
	Load(ctx context.Context, entity model.EntityID) (rec Record, found bool, err error)
	Save(ctx context.Context, rec Record) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[model.EntityID]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[model.EntityID]Record)}
}

func (s *MemoryStore) Load(_ context.Context, entity model.EntityID) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[entity]
	return rec, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.records[rec.Entity] = rec
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
