package progress

import (
	"sync"

	"github.com/udisondev/towergate/internal/model"
)

// PermissionBypass lets an entity ignore level ranges and exit objectives.
const PermissionBypass = "towergate.bypass"

// Permissions answers capability checks. Implementations must be fast.
type Permissions interface {
	HasPermission(entity model.EntityID, perm string) bool
}

// StaticPermissions is an in-memory Permissions set.
type StaticPermissions struct {
	mu    sync.RWMutex
	perms map[model.EntityID]map[string]struct{}
}

// NewStaticPermissions creates an empty permission set.
func NewStaticPermissions() *StaticPermissions {
	return &StaticPermissions{perms: make(map[model.EntityID]map[string]struct{})}
}

// Grant gives perm to entity.
func (p *StaticPermissions) Grant(entity model.EntityID, perm string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.perms[entity]
	if !ok {
		set = make(map[string]struct{}, 1)
		p.perms[entity] = set
	}
	set[perm] = struct{}{}
}

// Revoke removes perm from entity.
func (p *StaticPermissions) Revoke(entity model.EntityID, perm string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.perms[entity], perm)
	if len(p.perms[entity]) == 0 {
		delete(p.perms, entity)
	}
}

func (p *StaticPermissions) HasPermission(entity model.EntityID, perm string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.perms[entity][perm]
	return ok
}
