package commands

import (
	"context"
	"sync"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/model"
)

// Zones is the zone service used by the commands (normally
// *gameserver.Service).
type Zones interface {
	Backend() region.Backend
	Classify(pos model.Position) (string, bool)
	BindingFor(regionID string) (zone.Binding, bool)
	Region(id string) (region.Region, bool)
	Regions() []region.Region
	Groups() []zone.Group
	CreateRegion(ctx context.Context, r region.Region) error
	DeleteRegion(ctx context.Context, id string) error
	Reload(ctx context.Context) (gameserver.ReloadReport, error)
}

// Selections keeps the selection tool state of every operator.
type Selections struct {
	mu   sync.Mutex
	byID map[model.EntityID]*region.Selection
}

// NewSelections creates an empty selection store.
func NewSelections() *Selections {
	return &Selections{byID: make(map[model.EntityID]*region.Selection)}
}

// Update runs fn on the selection of actor, creating it if needed.
func (s *Selections) Update(actor model.EntityID, fn func(sel *region.Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.byID[actor]
	if !ok {
		sel = &region.Selection{}
		s.byID[actor] = sel
	}
	fn(sel)
}

// Forget drops the selection of actor.
func (s *Selections) Forget(actor model.EntityID) {
	s.mu.Lock()
	delete(s.byID, actor)
	s.mu.Unlock()
}
