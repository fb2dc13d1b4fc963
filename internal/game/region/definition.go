package region

import (
	"errors"
	"fmt"
	"log/slog"
)

// Definition is a region entry as written in the zones file.
type Definition struct {
	ID    string `yaml:"id"`
	World string `yaml:"world"`
	Min   string `yaml:"min"` // "x,y,z"
	Max   string `yaml:"max"` // "x,y,z"
}

// LoadReport summarizes a configuration pass. Skipped entries are
// configuration errors; the pass itself still succeeds.
type LoadReport struct {
	Loaded  int
	Skipped []error
}

// Err joins all skip reasons, or returns nil when nothing was skipped.
func (r LoadReport) Err() error {
	return errors.Join(r.Skipped...)
}

// Build converts one definition into a Region.
func (d Definition) Build() (Region, error) {
	a, err := ParseCorner(d.Min)
	if err != nil {
		return Region{}, fmt.Errorf("region %q min: %w", d.ID, err)
	}
	b, err := ParseCorner(d.Max)
	if err != nil {
		return Region{}, fmt.Errorf("region %q max: %w", d.ID, err)
	}
	return New(d.ID, d.World, a, b)
}

// FromDefinitions builds every valid definition, in order. Malformed entries
// are logged and skipped.
func FromDefinitions(defs []Definition) ([]Region, LoadReport) {
	var (
		regions = make([]Region, 0, len(defs))
		report  LoadReport
	)

	for _, d := range defs {
		r, err := d.Build()
		if err != nil {
			slog.Warn("skip region", "id", d.ID, "err", err)
			report.Skipped = append(report.Skipped, err)
			continue
		}
		regions = append(regions, r)
		report.Loaded++
	}

	return regions, report
}

// DefinitionOf converts a Region back into its file form.
func DefinitionOf(r Region) Definition {
	return Definition{
		ID:    r.id,
		World: r.world,
		Min:   r.min.String(),
		Max:   r.max.String(),
	}
}
