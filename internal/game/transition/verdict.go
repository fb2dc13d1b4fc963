package transition

import (
	"fmt"

	"github.com/udisondev/towergate/internal/model"
)

// Outcome is the controller's decision for one position update.
type Outcome uint8

const (
	Accept Outcome = iota
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Verdict is returned for every position update. On Deny the caller must
// roll the entity back to RollbackTo (or veto the move) and surface Reason.
type Verdict struct {
	Outcome    Outcome
	RollbackTo model.Position
	Reason     string
}

// Accepted returns an Accept verdict.
func Accepted() Verdict {
	return Verdict{Outcome: Accept}
}

// Denied returns a Deny verdict rolling back to pos.
func Denied(pos model.Position, reason string) Verdict {
	return Verdict{Outcome: Deny, RollbackTo: pos, Reason: reason}
}

// Allowed reports whether the update was accepted.
func (v Verdict) Allowed() bool {
	return v.Outcome == Accept
}
