package model

import (
	"fmt"
	"strings"
)

// Cause describes why a position update was emitted by the host.
type Cause uint8

const (
	CauseMove Cause = iota
	CauseTeleport
	CauseJoin
	CauseQuit
	CauseDeath
	CauseRespawn
)

var causeNames = [...]string{
	CauseMove:     "move",
	CauseTeleport: "teleport",
	CauseJoin:     "join",
	CauseQuit:     "quit",
	CauseDeath:    "death",
	CauseRespawn:  "respawn",
}

func (c Cause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return fmt.Sprintf("Cause(%d)", uint8(c))
}

// ParseCause converts a textual cause ("move", "teleport", ...) to a Cause.
func ParseCause(s string) (Cause, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range causeNames {
		if name == s {
			return Cause(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cause %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cause) UnmarshalText(text []byte) error {
	parsed, err := ParseCause(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PositionUpdate is a single event from the position source.
// From is the last settled position and doubles as the rollback target;
// for join/respawn the source supplies a safe spawn point.
type PositionUpdate struct {
	Entity EntityID
	From   Position
	To     Position
	Cause  Cause
}
