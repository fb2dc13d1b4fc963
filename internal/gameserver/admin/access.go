// Package admin dispatches operator commands typed into the zone console.
package admin

// AccessLevel defines an operator access level with its permissions.
// Level 0 = player, 1+ = staff, 100+ = full admin.
type AccessLevel struct {
	Level               int32
	Name                string
	CanUseAdminCommands bool
	CanEditRegions      bool
	CanReload           bool
}

var defaultAccessLevels = map[int32]*AccessLevel{
	0:   {Level: 0, Name: "Player"},
	1:   {Level: 1, Name: "Moderator", CanUseAdminCommands: true},
	2:   {Level: 2, Name: "Builder", CanUseAdminCommands: true, CanEditRegions: true},
	100: {Level: 100, Name: "Administrator", CanUseAdminCommands: true, CanEditRegions: true, CanReload: true},
}

// Access levels required by the built-in commands.
const (
	LevelModerator int32 = 1
	LevelBuilder   int32 = 2
	LevelAdmin     int32 = 100
)

// GetAccessLevel returns AccessLevel for the given level value.
// Unknown levels inherit from the highest known level below them.
// Negative levels (banned) return nil.
func GetAccessLevel(level int32) *AccessLevel {
	if level < 0 {
		return nil
	}
	if al, ok := defaultAccessLevels[level]; ok {
		return al
	}

	var best *AccessLevel
	for _, al := range defaultAccessLevels {
		if al.Level <= level && (best == nil || al.Level > best.Level) {
			best = al
		}
	}
	return best
}
