package region

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/towergate/internal/model"
)

// Authority is the contract of a third-party region system that owns the
// authoritative region table. Implementations must not block: lookups are
// expected to hit a locally held snapshot.
type Authority interface {
	// RegionAt returns the id of the region containing pos.
	RegionAt(pos model.Position) (id string, ok bool, err error)
	// Regions returns the current authoritative table.
	Regions() []Region
}

// maxFailureSignatures bounds the dedup set so a misbehaving authority
// producing unique messages cannot grow it without limit.
const maxFailureSignatures = 256

// ExternalAdapter is the external region backend. It shields callers from
// every authority failure: errors and panics degrade to "no region" for that
// call. Each distinct failure message is logged once.
type ExternalAdapter struct {
	authority Authority

	mu        sync.Mutex
	seen      map[string]struct{}
	onFailure func(err error)
}

// NewExternalAdapter wraps an authority. A nil authority yields an adapter
// that permanently reports no region.
func NewExternalAdapter(authority Authority) *ExternalAdapter {
	return &ExternalAdapter{
		authority: authority,
		seen:      make(map[string]struct{}),
	}
}

// SetFailureFunc installs a callback invoked on every classification failure,
// deduplicated or not. Used for metrics.
func (e *ExternalAdapter) SetFailureFunc(fn func(err error)) {
	e.mu.Lock()
	e.onFailure = fn
	e.mu.Unlock()
}

// Available reports whether an authority is attached.
func (e *ExternalAdapter) Available() bool {
	return e.authority != nil
}

// Classify asks the authority for the region containing pos.
func (e *ExternalAdapter) Classify(pos model.Position) (id string, ok bool) {
	if e.authority == nil {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("authority panic: %v", r))
			id, ok = "", false
		}
	}()

	id, ok, err := e.authority.RegionAt(pos)
	if err != nil {
		e.fail(err)
		return "", false
	}
	return id, ok
}

// Regions returns the authority's table, or nil when it is unavailable or
// fails.
func (e *ExternalAdapter) Regions() (out []Region) {
	if e.authority == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("authority panic: %v", r))
			out = nil
		}
	}()
	return e.authority.Regions()
}

func (e *ExternalAdapter) fail(err error) {
	sig := err.Error()

	e.mu.Lock()
	_, dup := e.seen[sig]
	fresh := !dup && len(e.seen) < maxFailureSignatures
	if fresh {
		e.seen[sig] = struct{}{}
	}
	fn := e.onFailure
	e.mu.Unlock()

	if fresh {
		slog.Warn("external region lookup failed", "err", err)
	}
	if fn != nil {
		fn(err)
	}
}
