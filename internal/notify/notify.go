// Package notify delivers committed zone transitions to the outside world:
// logs, and JSON events published on a Redis channel.
package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// Fanout calls every sink in order. A failing or panicking sink does not
// stop the others; their errors are joined.
type Fanout []transition.Sink

func (f Fanout) OnEnter(entity model.EntityID, b zone.Binding) error {
	return f.each("enter", func(s transition.Sink) error { return s.OnEnter(entity, b) })
}

func (f Fanout) OnExit(entity model.EntityID, b zone.Binding) error {
	return f.each("exit", func(s transition.Sink) error { return s.OnExit(entity, b) })
}

func (f Fanout) OnObjectiveReset(entity model.EntityID) error {
	return f.each("objective_reset", func(s transition.Sink) error { return s.OnObjectiveReset(entity) })
}

func (f Fanout) each(hook string, call func(transition.Sink) error) error {
	var errs []error
	for i, s := range f {
		if err := safeCall(s, call); err != nil {
			errs = append(errs, fmt.Errorf("%s sink %d: %w", hook, i, err))
		}
	}
	return errors.Join(errs...)
}

func safeCall(s transition.Sink, call func(transition.Sink) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return call(s)
}

// LogSink logs every transition side effect.
type LogSink struct {
	Logger *slog.Logger // default: slog.Default()
}

func (l LogSink) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LogSink) OnEnter(entity model.EntityID, b zone.Binding) error {
	l.logger().Info("entered zone floor", "entity", entity, "group", b.GroupID, "floor", b.Floor, "region", b.RegionID)
	return nil
}

func (l LogSink) OnExit(entity model.EntityID, b zone.Binding) error {
	l.logger().Info("left zone floor", "entity", entity, "group", b.GroupID, "floor", b.Floor, "region", b.RegionID)
	return nil
}

func (l LogSink) OnObjectiveReset(entity model.EntityID) error {
	l.logger().Info("zone objective reset", "entity", entity)
	return nil
}
