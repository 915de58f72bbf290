// Package player defines the player domain model and the persistence port
// the engine depends on. The storage implementation lives elsewhere; this
// package carries no I/O.
package player

import (
	"time"

	"github.com/cory-johannsen/realmd/internal/game/stats"
)

// Player is a persistent player record. Progression fields are mutated only
// by the progression engine; location and vitals by the world simulator.
//
// Invariant: Level >= 1; Experience >= 0; ExperienceToNext >= 0;
// StatPoints >= 0; SkillPoints >= 0; CurrentHP in [0, derived MaxHP];
// CurrentMP in [0, derived MaxMP].
type Player struct {
	ID   string
	Name string

	Level            int
	Experience       int64
	ExperienceToNext int64
	StatPoints       int
	SkillPoints      int
	Gold             int64

	Base    stats.Base
	derived stats.Derived

	CurrentHP int
	CurrentMP int

	ZoneID string
	X, Y   float64

	Online          bool
	PlaytimeSeconds int64

	// Inventory maps item id to quantity. Persisted by the player store;
	// combat item use goes through the store so the save is authoritative.
	Inventory map[string]int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a level-1 player with baseline stats (10 in each attribute),
// full vitals, and the starting experience requirement.
//
// Precondition: id and name must be non-empty.
func New(id, name, zoneID string) *Player {
	p := &Player{
		ID:               id,
		Name:             name,
		Level:            1,
		ExperienceToNext: 100,
		Base:             stats.Base{Strength: 10, Dexterity: 10, Intelligence: 10, Vitality: 10, Luck: 10},
		ZoneID:           zoneID,
		Inventory:        make(map[string]int),
	}
	p.Recompute()
	p.CurrentHP = p.derived.MaxHP
	p.CurrentMP = p.derived.MaxMP
	return p
}

// Recompute re-derives combat stats from base attributes and level, then
// clamps current vitals into the new [0, max] ranges.
//
// Postcondition: DerivedStats reflects Base and Level; CurrentHP/CurrentMP
// remain within bounds.
func (p *Player) Recompute() {
	p.derived = stats.Derive(p.Base, p.Level)
	if p.CurrentHP > p.derived.MaxHP {
		p.CurrentHP = p.derived.MaxHP
	}
	if p.CurrentHP < 0 {
		p.CurrentHP = 0
	}
	if p.CurrentMP > p.derived.MaxMP {
		p.CurrentMP = p.derived.MaxMP
	}
	if p.CurrentMP < 0 {
		p.CurrentMP = 0
	}
}

// CombatID implements stats.Combatant.
func (p *Player) CombatID() string { return p.ID }

// DisplayName implements stats.Combatant.
func (p *Player) DisplayName() string { return p.Name }

// CombatKind implements stats.Combatant.
func (p *Player) CombatKind() stats.Kind { return stats.KindPlayer }

// CombatLevel implements stats.Combatant.
func (p *Player) CombatLevel() int { return p.Level }

// BaseStats implements stats.Combatant.
func (p *Player) BaseStats() stats.Base { return p.Base }

// DerivedStats implements stats.Combatant.
func (p *Player) DerivedStats() stats.Derived { return p.derived }

// HP implements stats.Combatant.
func (p *Player) HP() (int, int) { return p.CurrentHP, p.derived.MaxHP }

// MP implements stats.Combatant.
func (p *Player) MP() (int, int) { return p.CurrentMP, p.derived.MaxMP }

// ApplyDamage subtracts up to amount HP, clamping at 0.
//
// Precondition: amount >= 0.
// Postcondition: Returns the HP actually removed; CurrentHP >= 0.
func (p *Player) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > p.CurrentHP {
		amount = p.CurrentHP
	}
	p.CurrentHP -= amount
	return amount
}

// ApplyHealing adds up to amount HP, clamping at max.
//
// Precondition: amount >= 0.
// Postcondition: Returns the HP actually restored; CurrentHP <= MaxHP.
func (p *Player) ApplyHealing(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := p.derived.MaxHP - p.CurrentHP
	if amount > room {
		amount = room
	}
	p.CurrentHP += amount
	return amount
}

// SpendMana deducts amount MP if available.
//
// Postcondition: Returns false and leaves CurrentMP unchanged when
// insufficient.
func (p *Player) SpendMana(amount int) bool {
	if amount < 0 || amount > p.CurrentMP {
		return false
	}
	p.CurrentMP -= amount
	return true
}

// RestoreMana adds up to amount MP, clamping at max.
//
// Postcondition: Returns the MP actually restored; CurrentMP <= MaxMP.
func (p *Player) RestoreMana(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := p.derived.MaxMP - p.CurrentMP
	if amount > room {
		amount = room
	}
	p.CurrentMP += amount
	return amount
}
