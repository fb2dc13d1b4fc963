// Package region implements axis-aligned cuboid regions and the providers
// that classify a world position to the region containing it.
package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/towergate/internal/model"
)

// Corner is one integer block coordinate triple.
type Corner struct {
	X, Y, Z int32
}

func (c Corner) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// CornerOf returns the block coordinates of a position.
func CornerOf(p model.Position) Corner {
	return Corner{X: p.X, Y: p.Y, Z: p.Z}
}

// ParseCorner parses a comma-separated "x,y,z" triple. Whitespace around
// components is ignored.
func ParseCorner(s string) (Corner, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Corner{}, fmt.Errorf("%w: %q: want x,y,z", ErrMalformedCorner, s)
	}

	var v [3]int32
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return Corner{}, fmt.Errorf("%w: %q: %w", ErrMalformedCorner, s, err)
		}
		v[i] = int32(n)
	}

	return Corner{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Region is an immutable cuboid in a single world. Bounds are inclusive on
// every axis, so both corner blocks are inside.
type Region struct {
	id    string
	world string
	min   Corner
	max   Corner
}

// New creates a Region from two arbitrary corners. The corners are
// normalized so that min <= max on each axis.
func New(id, world string, a, b Corner) (Region, error) {
	if strings.TrimSpace(id) == "" {
		return Region{}, ErrEmptyID
	}
	if world == "" {
		return Region{}, fmt.Errorf("region %q: %w", id, ErrEmptyWorld)
	}

	return Region{
		id:    id,
		world: world,
		min:   Corner{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		max:   Corner{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}, nil
}

// ID returns the region identifier.
func (r Region) ID() string { return r.id }

// World returns the world the region belongs to.
func (r Region) World() string { return r.world }

// Min returns the lowest corner.
func (r Region) Min() Corner { return r.min }

// Max returns the highest corner.
func (r Region) Max() Corner { return r.max }

// Contains reports whether p lies inside the region: same world and every
// coordinate within [min, max].
func (r Region) Contains(p model.Position) bool {
	if p.World != r.world {
		return false
	}
	return p.X >= r.min.X && p.X <= r.max.X &&
		p.Y >= r.min.Y && p.Y <= r.max.Y &&
		p.Z >= r.min.Z && p.Z <= r.max.Z
}

// Volume returns the number of blocks inside the region.
func (r Region) Volume() int64 {
	return (int64(r.max.X) - int64(r.min.X) + 1) *
		(int64(r.max.Y) - int64(r.min.Y) + 1) *
		(int64(r.max.Z) - int64(r.min.Z) + 1)
}

func (r Region) String() string {
	return fmt.Sprintf("%s[%s (%s)-(%s)]", r.id, r.world, r.min, r.max)
}
