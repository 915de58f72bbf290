// Package catalog provides the read-only game-data store: skill, item,
// monster, and area templates loaded from YAML. Templates are immutable
// once loaded.
package catalog

import "fmt"

// EffectType classifies what a skill effect does to its target.
type EffectType string

const (
	EffectDamage EffectType = "damage"
	EffectHeal   EffectType = "heal"
	EffectBuff   EffectType = "buff"
	EffectDebuff EffectType = "debuff"
)

// valid reports whether t is a known effect type.
func (t EffectType) valid() bool {
	switch t {
	case EffectDamage, EffectHeal, EffectBuff, EffectDebuff:
		return true
	default:
		return false
	}
}

// SkillEffect is one component of a skill, applied in declared order.
type SkillEffect struct {
	// Type is the effect category: damage, heal, buff, or debuff.
	Type EffectType `yaml:"type"`
	// BaseValue is the flat magnitude before stat scaling.
	BaseValue int `yaml:"base_value"`
	// ScalingStat names the caster base stat the effect scales with
	// (strength, dexterity, intelligence, vitality, luck). Empty = no scaling.
	ScalingStat string `yaml:"scaling_stat"`
	// ScalingRatio multiplies the scaling stat's value.
	ScalingRatio float64 `yaml:"scaling_ratio"`
	// ManaCost is this effect's share of the skill's total mana cost.
	ManaCost int `yaml:"mana_cost"`
	// Chance is the independent success probability in percent; 0 means the
	// effect always applies.
	Chance float64 `yaml:"chance"`
	// Duration is the number of turns a buff/debuff lasts.
	Duration int `yaml:"duration"`
	// Stat names the derived value a buff/debuff adjusts
	// (attack, defense, accuracy, evasion).
	Stat string `yaml:"stat"`
}

// Skill is a reusable skill template.
type Skill struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Effects     []SkillEffect `yaml:"effects"`
}

// Offensive reports whether the skill carries any damage or debuff effect
// and therefore requires an explicit target.
func (s *Skill) Offensive() bool {
	for _, e := range s.Effects {
		if e.Type == EffectDamage || e.Type == EffectDebuff {
			return true
		}
	}
	return false
}

// ManaCost returns the summed mana cost of all effects.
func (s *Skill) ManaCost() int {
	total := 0
	for _, e := range s.Effects {
		total += e.ManaCost
	}
	return total
}

// Validate checks skill template invariants.
//
// Postcondition: Returns nil iff the id and name are non-empty, at least one
// effect exists, and each effect has a valid type, non-negative cost, and a
// chance within [0, 100].
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if len(s.Effects) == 0 {
		return fmt.Errorf("skill %q: must have at least one effect", s.ID)
	}
	for i, e := range s.Effects {
		if !e.Type.valid() {
			return fmt.Errorf("skill %q: effect[%d] has unknown type %q", s.ID, i, e.Type)
		}
		if e.ManaCost < 0 {
			return fmt.Errorf("skill %q: effect[%d] mana_cost must be >= 0, got %d", s.ID, i, e.ManaCost)
		}
		if e.Chance < 0 || e.Chance > 100 {
			return fmt.Errorf("skill %q: effect[%d] chance must be in [0, 100], got %f", s.ID, i, e.Chance)
		}
		if (e.Type == EffectBuff || e.Type == EffectDebuff) && e.Duration < 1 {
			return fmt.Errorf("skill %q: effect[%d] %s duration must be >= 1", s.ID, i, e.Type)
		}
	}
	return nil
}
