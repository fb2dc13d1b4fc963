// Package zone maps regions to gated zones: zone groups (towers) made of
// ordered floors, each floor backed by one region.
package zone

// ExitPolicy decides whether leaving a floor of a group can be denied.
type ExitPolicy string

const (
	// ExitAlways never denies leaving a floor.
	ExitAlways ExitPolicy = "always"
	// ExitObjective denies leaving a floor until its kill objective is met.
	ExitObjective ExitPolicy = "objective"
)

// Group is a named progression track with an admission level range.
type Group struct {
	ID       string
	Name     string
	MinLevel int32
	MaxLevel int32
	Exit     ExitPolicy
	// Floors lists floor indices in ascending order.
	Floors []int32
}

// AdmitsLevel reports whether level lies in [MinLevel, MaxLevel].
func (g Group) AdmitsLevel(level int32) bool {
	return level >= g.MinLevel && level <= g.MaxLevel
}

// DisplayName returns Name, or ID when no name is configured.
func (g Group) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// Binding classifies a region as a floor of a zone group. A region with no
// binding is neutral.
type Binding struct {
	RegionID      string
	GroupID       string
	Floor         int32
	RequiredKills int32
}

// GroupDef is a zone group entry as written in the zones file.
type GroupDef struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	MinLevel   int32      `yaml:"min_level"`
	MaxLevel   int32      `yaml:"max_level"`
	ExitPolicy string     `yaml:"exit_policy"` // "always" (default) or "objective"
	Floors     []FloorDef `yaml:"floors"`
}

// FloorDef binds one region to a floor index of its group.
type FloorDef struct {
	Floor         int32  `yaml:"floor"`
	Region        string `yaml:"region"`
	RequiredKills int32  `yaml:"required_kills"`
}
