package model

import "fmt"

// Position представляет точку в именованном мире.
// Value type, передаётся по значению (immutable).
type Position struct {
	World string
	X     int32
	Y     int32
	Z     int32
}

// NewPosition creates a Position in the given world.
func NewPosition(world string, x, y, z int32) Position {
	return Position{World: world, X: x, Y: y, Z: z}
}

// WithCoordinates возвращает новый Position с обновлёнными координатами (immutable pattern).
func (p Position) WithCoordinates(x, y, z int32) Position {
	p.X = x
	p.Y = y
	p.Z = z
	return p
}

// WithWorld returns a copy of p moved to another world at the same coordinates.
func (p Position) WithWorld(world string) Position {
	p.World = world
	return p
}

// DistanceSquared возвращает квадрат расстояния до другой точки (без sqrt).
// Points in different worlds are not comparable; ok is false for them.
func (p Position) DistanceSquared(other Position) (dist int64, ok bool) {
	if p.World != other.World {
		return 0, false
	}
	dx := int64(p.X) - int64(other.X)
	dy := int64(p.Y) - int64(other.Y)
	dz := int64(p.Z) - int64(other.Z)
	return dx*dx + dy*dy + dz*dz, true
}

func (p Position) String() string {
	return fmt.Sprintf("%s(%d, %d, %d)", p.World, p.X, p.Y, p.Z)
}
