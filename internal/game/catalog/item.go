package catalog

import "fmt"

// ItemKind classifies item templates; only consumables are usable in battle.
type ItemKind string

const (
	ItemConsumable ItemKind = "consumable"
	ItemEquipment  ItemKind = "equipment"
	ItemMaterial   ItemKind = "material"
)

// ConsumableEffectType classifies what a consumable does when used.
type ConsumableEffectType string

const (
	ConsumableHeal   ConsumableEffectType = "heal"
	ConsumableMana   ConsumableEffectType = "mana"
	ConsumableBuff   ConsumableEffectType = "buff"
	ConsumableDebuff ConsumableEffectType = "debuff"
)

// ConsumableEffect is the single effect a consumable item applies.
type ConsumableEffect struct {
	// Type is heal, mana, buff, or debuff.
	Type ConsumableEffectType `yaml:"type"`
	// Value is the HP/MP restored, or the percent adjustment for buffs.
	Value int `yaml:"value"`
	// Duration is the number of turns a buff/debuff lasts.
	Duration int `yaml:"duration"`
	// Stat names the derived value a buff/debuff adjusts.
	Stat string `yaml:"stat"`
}

// Item is a reusable item template.
type Item struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Kind        ItemKind          `yaml:"kind"`
	Effect      *ConsumableEffect `yaml:"effect"`
}

// Validate checks item template invariants.
//
// Postcondition: Returns nil iff id/name are non-empty, the kind is known,
// and consumables carry exactly one valid effect.
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item: id must not be empty")
	}
	if it.Name == "" {
		return fmt.Errorf("item %q: name must not be empty", it.ID)
	}
	switch it.Kind {
	case ItemConsumable, ItemEquipment, ItemMaterial:
	default:
		return fmt.Errorf("item %q: unknown kind %q", it.ID, it.Kind)
	}
	if it.Kind == ItemConsumable {
		if it.Effect == nil {
			return fmt.Errorf("item %q: consumable must have an effect", it.ID)
		}
		switch it.Effect.Type {
		case ConsumableHeal, ConsumableMana, ConsumableBuff, ConsumableDebuff:
		default:
			return fmt.Errorf("item %q: unknown effect type %q", it.ID, it.Effect.Type)
		}
		if it.Effect.Value < 0 {
			return fmt.Errorf("item %q: effect value must be >= 0, got %d", it.ID, it.Effect.Value)
		}
		if (it.Effect.Type == ConsumableBuff || it.Effect.Type == ConsumableDebuff) && it.Effect.Duration < 1 {
			return fmt.Errorf("item %q: %s effect duration must be >= 1", it.ID, it.Effect.Type)
		}
	}
	return nil
}
