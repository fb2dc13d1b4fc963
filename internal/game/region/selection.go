package region

import (
	"fmt"

	"github.com/udisondev/towergate/internal/model"
)

// Selection holds the two corners picked with the admin selection tool.
type Selection struct {
	first  *model.Position
	second *model.Position
}

// SetFirst records the first corner.
func (s *Selection) SetFirst(p model.Position) { s.first = &p }

// SetSecond records the second corner.
func (s *Selection) SetSecond(p model.Position) { s.second = &p }

// First returns the first corner, if set.
func (s *Selection) First() (model.Position, bool) {
	if s.first == nil {
		return model.Position{}, false
	}
	return *s.first, true
}

// Second returns the second corner, if set.
func (s *Selection) Second() (model.Position, bool) {
	if s.second == nil {
		return model.Position{}, false
	}
	return *s.second, true
}

// Clear forgets both corners.
func (s *Selection) Clear() {
	s.first, s.second = nil, nil
}

// Build creates a region spanning both corners.
func (s *Selection) Build(id string) (Region, error) {
	if s.first == nil || s.second == nil {
		return Region{}, ErrSelectionIncomplete
	}
	if s.first.World != s.second.World {
		return Region{}, fmt.Errorf("%w: %s and %s", ErrWorldMismatch, s.first.World, s.second.World)
	}
	return New(id, s.first.World, CornerOf(*s.first), CornerOf(*s.second))
}
