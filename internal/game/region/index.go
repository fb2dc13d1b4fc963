package region

import (
	"sync"
	"sync/atomic"

	"github.com/udisondev/towergate/internal/model"
)

// Index is the internal region backend: an ordered table of cuboids loaded
// from configuration and scanned linearly. The first region containing a
// point wins; order is registration order.
//
// Readers never lock: the table is an immutable slice published through an
// atomic pointer. Writers serialize on mu and publish a fresh copy.
type Index struct {
	mu      sync.Mutex
	regions atomic.Pointer[[]Region]
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	x := &Index{}
	empty := []Region{}
	x.regions.Store(&empty)
	return x
}

func (x *Index) load() []Region {
	return *x.regions.Load()
}

// Classify returns the id of the first region containing pos.
func (x *Index) Classify(pos model.Position) (string, bool) {
	for _, r := range x.load() {
		if r.Contains(pos) {
			return r.id, true
		}
	}
	return "", false
}

// Register adds r, replacing any region with the same id in place.
func (x *Index) Register(r Region) {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.load()
	next := make([]Region, 0, len(cur)+1)
	replaced := false
	for _, existing := range cur {
		if existing.id == r.id {
			next = append(next, r)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, r)
	}

	x.regions.Store(&next)
}

// Remove deletes the region with the given id. Returns false if absent.
func (x *Index) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.load()
	next := make([]Region, 0, len(cur))
	for _, existing := range cur {
		if existing.id != id {
			next = append(next, existing)
		}
	}
	if len(next) == len(cur) {
		return false
	}

	x.regions.Store(&next)
	return true
}

// Replace swaps the whole table. Duplicate ids collapse onto the slot of the
// first occurrence with the value of the last one.
func (x *Index) Replace(regions []Region) {
	next := make([]Region, 0, len(regions))
	slot := make(map[string]int, len(regions))
	for _, r := range regions {
		if i, ok := slot[r.id]; ok {
			next[i] = r
			continue
		}
		slot[r.id] = len(next)
		next = append(next, r)
	}

	x.mu.Lock()
	x.regions.Store(&next)
	x.mu.Unlock()
}

// Get returns the region with the given id.
func (x *Index) Get(id string) (Region, bool) {
	for _, r := range x.load() {
		if r.id == id {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns a copy of the table in classification order.
func (x *Index) Regions() []Region {
	cur := x.load()
	out := make([]Region, len(cur))
	copy(out, cur)
	return out
}

// Len returns the number of registered regions.
func (x *Index) Len() int {
	return len(x.load())
}
