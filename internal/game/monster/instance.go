// Package monster provides live monster instances spawned from catalog
// templates and the registry that tracks them per zone.
package monster

import (
	"math"
	"time"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

// Status is the monster instance lifecycle state.
//
// State machine: idle → hunting (player detected) → fighting (battle
// starts) → dead (HP reaches 0). Hunting and fighting return to idle when
// the battle ends without death or the target disappears.
type Status int

const (
	StatusIdle Status = iota
	StatusHunting
	StatusFighting
	StatusDead
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusHunting:
		return "hunting"
	case StatusFighting:
		return "fighting"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Instance is a live monster occupying a zone.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's id.
	TemplateID string
	// Name is copied from the template for display.
	Name string
	// Level is copied from the template.
	Level int
	// Base is the template's stat block.
	Base stats.Base
	// Aggressive and DetectionRange are copied from the template.
	Aggressive     bool
	DetectionRange float64

	ZoneID string
	X, Y   float64

	CurrentHP int
	CurrentMP int

	// SpawnedAt is when this instance was created.
	SpawnedAt time.Time
	// LastAIAt is the last time AI evaluated this instance; evaluation is
	// rate-limited to roughly once per tick period.
	LastAIAt time.Time
	// DiedAt is set when the instance dies; cleanup waits a grace window.
	DiedAt time.Time
	// TargetPlayerID is the hunted player's id; empty when not hunting.
	TargetPlayerID string

	Status Status

	derived stats.Derived
}

// NewInstance creates a live instance from a template at the given position.
//
// Precondition: id must be non-empty; tmpl must be non-nil.
// Postcondition: vitals are full; Status is StatusIdle.
func NewInstance(id string, tmpl *catalog.Monster, zoneID string, x, y float64, now time.Time) *Instance {
	inst := &Instance{
		ID:             id,
		TemplateID:     tmpl.ID,
		Name:           tmpl.Name,
		Level:          tmpl.Level,
		Base:           tmpl.Base,
		Aggressive:     tmpl.Aggressive,
		DetectionRange: tmpl.DetectionRange,
		ZoneID:         zoneID,
		X:              x,
		Y:              y,
		SpawnedAt:      now,
		Status:         StatusIdle,
	}
	inst.derived = stats.Derive(inst.Base, inst.Level)
	inst.CurrentHP = inst.derived.MaxHP
	inst.CurrentMP = inst.derived.MaxMP
	return inst
}

// DistanceTo returns the Euclidean distance from the instance to (x, y).
func (i *Instance) DistanceTo(x, y float64) float64 {
	dx := i.X - x
	dy := i.Y - y
	return math.Sqrt(dx*dx + dy*dy)
}

// IsDead reports whether the instance has zero hit points.
func (i *Instance) IsDead() bool { return i.CurrentHP <= 0 }

// HealthDescription returns a visible health state string for presentation
// layers.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	if i.CurrentHP <= 0 {
		return "dead"
	}
	pct := float64(i.CurrentHP) / float64(i.derived.MaxHP)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.75:
		return "lightly wounded"
	case pct >= 0.40:
		return "wounded"
	case pct >= 0.15:
		return "heavily wounded"
	default:
		return "near death"
	}
}

// CombatID implements stats.Combatant.
func (i *Instance) CombatID() string { return i.ID }

// DisplayName implements stats.Combatant.
func (i *Instance) DisplayName() string { return i.Name }

// CombatKind implements stats.Combatant.
func (i *Instance) CombatKind() stats.Kind { return stats.KindMonster }

// CombatLevel implements stats.Combatant.
func (i *Instance) CombatLevel() int { return i.Level }

// BaseStats implements stats.Combatant.
func (i *Instance) BaseStats() stats.Base { return i.Base }

// DerivedStats implements stats.Combatant.
func (i *Instance) DerivedStats() stats.Derived { return i.derived }

// HP implements stats.Combatant.
func (i *Instance) HP() (int, int) { return i.CurrentHP, i.derived.MaxHP }

// MP implements stats.Combatant.
func (i *Instance) MP() (int, int) { return i.CurrentMP, i.derived.MaxMP }

// ApplyDamage subtracts up to amount HP, clamping at 0.
//
// Postcondition: Returns the HP actually removed; CurrentHP >= 0.
func (i *Instance) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > i.CurrentHP {
		amount = i.CurrentHP
	}
	i.CurrentHP -= amount
	return amount
}

// ApplyHealing adds up to amount HP, clamping at max.
//
// Postcondition: Returns the HP actually restored; CurrentHP <= MaxHP.
func (i *Instance) ApplyHealing(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := i.derived.MaxHP - i.CurrentHP
	if amount > room {
		amount = room
	}
	i.CurrentHP += amount
	return amount
}

// SpendMana deducts amount MP if available.
func (i *Instance) SpendMana(amount int) bool {
	if amount < 0 || amount > i.CurrentMP {
		return false
	}
	i.CurrentMP -= amount
	return true
}

// RestoreMana adds up to amount MP, clamping at max.
func (i *Instance) RestoreMana(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := i.derived.MaxMP - i.CurrentMP
	if amount > room {
		amount = room
	}
	i.CurrentMP += amount
	return amount
}
