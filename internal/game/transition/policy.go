package transition

import (
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// AdmissionPolicy decides whether an entity may enter a gated zone.
// It must be synchronous and fast.
type AdmissionPolicy interface {
	CanEnter(entity model.EntityID, b zone.Binding) (allowed bool, reason string)
}

// ExitPolicy decides whether an entity may leave a gated zone.
// It must be synchronous and fast.
type ExitPolicy interface {
	CanExit(entity model.EntityID, b zone.Binding) (allowed bool, reason string)
}

// Sink receives committed transition side effects (state binding, overlays,
// notifications). Errors and panics are logged and never change a verdict.
type Sink interface {
	OnEnter(entity model.EntityID, b zone.Binding) error
	OnExit(entity model.EntityID, b zone.Binding) error
	OnObjectiveReset(entity model.EntityID) error
}

// AdmissionFunc adapts a function to AdmissionPolicy.
type AdmissionFunc func(entity model.EntityID, b zone.Binding) (bool, string)

func (f AdmissionFunc) CanEnter(entity model.EntityID, b zone.Binding) (bool, string) {
	return f(entity, b)
}

// ExitFunc adapts a function to ExitPolicy.
type ExitFunc func(entity model.EntityID, b zone.Binding) (bool, string)

func (f ExitFunc) CanExit(entity model.EntityID, b zone.Binding) (bool, string) {
	return f(entity, b)
}

// AllowAll admits and releases every entity.
type AllowAll struct{}

func (AllowAll) CanEnter(model.EntityID, zone.Binding) (bool, string) { return true, "" }
func (AllowAll) CanExit(model.EntityID, zone.Binding) (bool, string)  { return true, "" }

// NopSink ignores every side effect.
type NopSink struct{}

func (NopSink) OnEnter(model.EntityID, zone.Binding) error { return nil }
func (NopSink) OnExit(model.EntityID, zone.Binding) error  { return nil }
func (NopSink) OnObjectiveReset(model.EntityID) error      { return nil }
