package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/zone"
)

// ErrNoZonesFile is returned when the zones file does not exist.
var ErrNoZonesFile = errors.New("zones file not found")

// Zones is the zone definitions file.
type Zones struct {
	Regions []region.Definition `yaml:"regions"`
	Groups  []zone.GroupDef     `yaml:"groups"`
}

// LoadZones reads zone definitions from a YAML file. Entry validation is left
// to the region and zone loaders so one bad entry does not reject the file.
func LoadZones(path string) (Zones, error) {
	var z Zones

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return z, fmt.Errorf("%s: %w", path, ErrNoZonesFile)
		}
		return z, fmt.Errorf("reading zones %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &z); err != nil {
		return z, fmt.Errorf("parsing zones %s: %w", path, err)
	}
	return z, nil
}
