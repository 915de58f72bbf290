package catalog

import "fmt"

// SpawnConfig defines how many instances of one monster template an area
// supports and where new instances appear.
type SpawnConfig struct {
	// Template is the monster template ID to spawn.
	Template string `yaml:"template"`
	// MaxInstances is the per-template population cap for this area.
	MaxInstances int `yaml:"max_instances"`
	// X, Y is the spawn anchor point within the area.
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	// Script is an optional Lua spawn script name; when set, scripted spawn
	// events are scheduled for this config instead of the anchor point.
	Script string `yaml:"script"`
}

// Area defines one zone of the world: its player capacity and monster
// spawn configuration.
type Area struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	// MaxPlayers caps concurrent players in the area; 0 = engine default.
	MaxPlayers int           `yaml:"max_players"`
	Spawns     []SpawnConfig `yaml:"spawns"`
}

// Validate checks area template invariants.
//
// Postcondition: Returns nil iff id/name are non-empty, capacity is
// non-negative, and each spawn config names a template with a positive cap.
func (a *Area) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("area: id must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("area %q: name must not be empty", a.ID)
	}
	if a.MaxPlayers < 0 {
		return fmt.Errorf("area %q: max_players must be >= 0, got %d", a.ID, a.MaxPlayers)
	}
	for i, sc := range a.Spawns {
		if sc.Template == "" {
			return fmt.Errorf("area %q: spawn[%d] must name a template", a.ID, i)
		}
		if sc.MaxInstances < 1 {
			return fmt.Errorf("area %q: spawn[%d] max_instances must be >= 1, got %d", a.ID, i, sc.MaxInstances)
		}
	}
	return nil
}
