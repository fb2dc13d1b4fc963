package model

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityID identifies a tracked entity (player). Stable across sessions.
type EntityID = uuid.UUID

// NoEntity is the zero EntityID.
var NoEntity = uuid.Nil

// EntityIDFromName derives a deterministic id from a display name.
// Used by offline/simulated sources that have no account service.
func EntityIDFromName(name string) EntityID {
	return uuid.NewMD5(uuid.Nil, []byte("OfflinePlayer:"+name))
}

// ParseEntityID parses the canonical textual form of an EntityID.
func ParseEntityID(s string) (EntityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing entity id %q: %w", s, err)
	}
	return id, nil
}
