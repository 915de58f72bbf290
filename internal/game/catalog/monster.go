package catalog

import (
	"fmt"

	"github.com/cory-johannsen/realmd/internal/game/stats"
)

// GoldDrop defines the range of gold a monster drops on death.
type GoldDrop struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// ItemDrop defines one item entry in a monster's drop table.
type ItemDrop struct {
	ItemID string `yaml:"item"`
	// Chance is the independent drop probability in percent (0–100].
	Chance float64 `yaml:"chance"`
	MinQty int     `yaml:"min_qty"`
	MaxQty int     `yaml:"max_qty"`
}

// DropTable defines the rewards a monster yields when defeated.
type DropTable struct {
	// Experience is the base experience granted before level scaling.
	Experience int        `yaml:"experience"`
	Gold       GoldDrop   `yaml:"gold"`
	Items      []ItemDrop `yaml:"items"`
}

// Validate checks drop table invariants.
//
// Postcondition: Returns nil iff experience and gold bounds are non-negative
// with min <= max, and each item entry has a non-empty id, a chance in
// (0, 100], and 1 <= min_qty <= max_qty.
func (dt *DropTable) Validate() error {
	if dt.Experience < 0 {
		return fmt.Errorf("drop table: experience must be >= 0, got %d", dt.Experience)
	}
	if dt.Gold.Min < 0 {
		return fmt.Errorf("drop table: gold min must be >= 0, got %d", dt.Gold.Min)
	}
	if dt.Gold.Min > dt.Gold.Max {
		return fmt.Errorf("drop table: gold min (%d) must be <= max (%d)", dt.Gold.Min, dt.Gold.Max)
	}
	for i, item := range dt.Items {
		if item.ItemID == "" {
			return fmt.Errorf("drop table: item[%d] must have a non-empty item id", i)
		}
		if item.Chance <= 0 || item.Chance > 100 {
			return fmt.Errorf("drop table: item[%d] chance must be in (0, 100], got %f", i, item.Chance)
		}
		if item.MinQty < 1 {
			return fmt.Errorf("drop table: item[%d] min_qty must be >= 1, got %d", i, item.MinQty)
		}
		if item.MinQty > item.MaxQty {
			return fmt.Errorf("drop table: item[%d] min_qty (%d) must be <= max_qty (%d)", i, item.MinQty, item.MaxQty)
		}
	}
	return nil
}

// Monster defines a reusable monster archetype loaded from YAML.
type Monster struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Level       int        `yaml:"level"`
	Base        stats.Base `yaml:"stats"`
	// Aggressive monsters hunt players that enter their detection range.
	Aggressive bool `yaml:"aggressive"`
	// DetectionRange is the radius (world units) within which an aggressive
	// monster notices players.
	DetectionRange float64 `yaml:"detection_range"`
	Drops          DropTable `yaml:"drops"`
}

// Validate checks monster template invariants.
//
// Postcondition: Returns nil iff id/name are non-empty, level >= 1, base
// stats are non-negative, detection range is non-negative, and the drop
// table validates.
func (m *Monster) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("monster: id must not be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("monster %q: name must not be empty", m.ID)
	}
	if m.Level < 1 {
		return fmt.Errorf("monster %q: level must be >= 1", m.ID)
	}
	if err := m.Base.Validate(); err != nil {
		return fmt.Errorf("monster %q: %w", m.ID, err)
	}
	if m.DetectionRange < 0 {
		return fmt.Errorf("monster %q: detection_range must be >= 0", m.ID)
	}
	if err := m.Drops.Validate(); err != nil {
		return fmt.Errorf("monster %q: %w", m.ID, err)
	}
	return nil
}
