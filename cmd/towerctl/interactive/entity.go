package interactive

import "github.com/udisondev/towergate/internal/model"

// entity is one simulated client. It is also the admin.Actor of commands
// typed while acting as it.
type entity struct {
	id     model.EntityID
	name   string
	access int32
	pos    model.Position
	online bool
	reply  func(string)
}

func (e *entity) ID() model.EntityID       { return e.id }
func (e *entity) Name() string             { return e.name }
func (e *entity) AccessLevel() int32       { return e.access }
func (e *entity) Position() model.Position { return e.pos }
func (e *entity) Reply(msg string)         { e.reply(msg) }
