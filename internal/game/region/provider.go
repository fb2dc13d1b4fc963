package region

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/towergate/internal/model"
)

// Provider maps a position to the id of the region containing it.
// When regions overlap the first match wins; callers must not assume a
// unique owner.
type Provider interface {
	Classify(pos model.Position) (id string, ok bool)
}

// Backend names the region source selected at startup.
type Backend string

const (
	BackendInternal Backend = "internal"
	BackendExternal Backend = "external"
)

// Resolver attempts to construct the external authority. Any error (or a nil
// authority) means the authority is not present.
type Resolver func(ctx context.Context) (Authority, error)

// Facade is the process-wide Provider. Exactly one backend is selected by
// Select and the choice never changes afterwards.
type Facade struct {
	backend  Backend
	index    *Index
	external *ExternalAdapter
}

// Select probes the external authority once. If it resolves, it is used
// exclusively; otherwise the internal index is used exclusively.
func Select(ctx context.Context, resolve Resolver, index *Index) *Facade {
	if resolve != nil {
		authority, err := probe(ctx, resolve)
		if err == nil {
			slog.Info("region backend selected", "backend", BackendExternal)
			return &Facade{backend: BackendExternal, external: NewExternalAdapter(authority)}
		}
		slog.Warn("external region authority unavailable, using internal index", "err", err)
	}

	if index == nil {
		index = NewIndex()
	}
	slog.Info("region backend selected", "backend", BackendInternal, "regions", index.Len())
	return &Facade{backend: BackendInternal, index: index}
}

// NewInternal returns a Facade bound to the given index without probing.
func NewInternal(index *Index) *Facade {
	return &Facade{backend: BackendInternal, index: index}
}

// NewExternal returns a Facade bound to the given authority without probing.
func NewExternal(authority Authority) *Facade {
	return &Facade{backend: BackendExternal, external: NewExternalAdapter(authority)}
}

func probe(ctx context.Context, resolve Resolver) (authority Authority, err error) {
	defer func() {
		if r := recover(); r != nil {
			authority, err = nil, fmt.Errorf("%w: resolver panic: %v", ErrAuthorityUnavailable, r)
		}
	}()

	authority, err = resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthorityUnavailable, err)
	}
	if authority == nil {
		return nil, ErrAuthorityUnavailable
	}
	return authority, nil
}

// Backend returns the selected backend.
func (f *Facade) Backend() Backend { return f.backend }

// Classify delegates to the selected backend.
func (f *Facade) Classify(pos model.Position) (string, bool) {
	switch f.backend {
	case BackendExternal:
		return f.external.Classify(pos)
	default:
		return f.index.Classify(pos)
	}
}

// Index returns the internal index, or false when the external backend is
// selected.
func (f *Facade) Index() (*Index, bool) {
	if f.backend != BackendInternal {
		return nil, false
	}
	return f.index, true
}

// External returns the external adapter, or false when the internal backend
// is selected.
func (f *Facade) External() (*ExternalAdapter, bool) {
	if f.backend != BackendExternal {
		return nil, false
	}
	return f.external, true
}

// Regions returns the regions known to the selected backend.
func (f *Facade) Regions() []Region {
	if f.backend == BackendExternal {
		return f.external.Regions()
	}
	return f.index.Regions()
}

// Region looks up a region by id in the selected backend.
func (f *Facade) Region(id string) (Region, bool) {
	if f.backend == BackendInternal {
		return f.index.Get(id)
	}
	for _, r := range f.external.Regions() {
		if r.id == id {
			return r, true
		}
	}
	return Region{}, false
}

// Register adds a region to the internal index. Refused under the external
// backend.
func (f *Facade) Register(r Region) error {
	if f.backend != BackendInternal {
		return ErrExternalManaged
	}
	f.index.Register(r)
	return nil
}

// Remove deletes a region from the internal index. Refused under the
// external backend.
func (f *Facade) Remove(id string) error {
	if f.backend != BackendInternal {
		return ErrExternalManaged
	}
	if !f.index.Remove(id) {
		return fmt.Errorf("remove %q: %w", id, ErrRegionNotFound)
	}
	return nil
}
