package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realmd/internal/game/combat"
	"github.com/cory-johannsen/realmd/internal/game/effect"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

// stubCombatant pins derived stats directly so formula tests can use exact
// numbers without reverse-engineering the derivation.
type stubCombatant struct {
	id      string
	kind    stats.Kind
	level   int
	base    stats.Base
	derived stats.Derived
	hp      int
	mp      int
}

func newStub(id string, kind stats.Kind, level int, derived stats.Derived) *stubCombatant {
	return &stubCombatant{
		id:      id,
		kind:    kind,
		level:   level,
		base:    stats.Base{Strength: 10, Dexterity: 10, Intelligence: 10, Vitality: 10, Luck: 10},
		derived: derived,
		hp:      derived.MaxHP,
		mp:      derived.MaxMP,
	}
}

func (s *stubCombatant) CombatID() string           { return s.id }
func (s *stubCombatant) DisplayName() string        { return s.id }
func (s *stubCombatant) CombatKind() stats.Kind     { return s.kind }
func (s *stubCombatant) CombatLevel() int           { return s.level }
func (s *stubCombatant) BaseStats() stats.Base      { return s.base }
func (s *stubCombatant) DerivedStats() stats.Derived { return s.derived }
func (s *stubCombatant) HP() (int, int)             { return s.hp, s.derived.MaxHP }
func (s *stubCombatant) MP() (int, int)             { return s.mp, s.derived.MaxMP }

func (s *stubCombatant) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > s.hp {
		amount = s.hp
	}
	s.hp -= amount
	return amount
}

func (s *stubCombatant) ApplyHealing(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := s.derived.MaxHP - s.hp
	if amount > room {
		amount = room
	}
	s.hp += amount
	return amount
}

func (s *stubCombatant) SpendMana(amount int) bool {
	if amount < 0 || amount > s.mp {
		return false
	}
	s.mp -= amount
	return true
}

func (s *stubCombatant) RestoreMana(amount int) int {
	if amount < 0 {
		amount = 0
	}
	room := s.derived.MaxMP - s.mp
	if amount > room {
		amount = room
	}
	s.mp += amount
	return amount
}

func defaultDerived() stats.Derived {
	return stats.Derived{
		MaxHP: 100, MaxMP: 50, Attack: 20, Defense: 10,
		Accuracy: 70, Evasion: 15, CritChance: 6, CritDamage: 1.5,
	}
}

func TestNewBattle_Validation(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())

	_, err := combat.NewBattle("", time.Now(), a, b)
	assert.Error(t, err)

	_, err = combat.NewBattle("forest", time.Now(), a)
	assert.Error(t, err)

	battle, err := combat.NewBattle("forest", time.Now(), a, b)
	require.NoError(t, err)
	assert.NotEmpty(t, battle.ID)
	assert.Equal(t, combat.StatusActive, battle.Status)
	assert.Equal(t, []string{"hero", "wolf"}, battle.TurnOrder)
	assert.Equal(t, "hero", battle.CurrentActorID())
}

func TestBattle_AdvanceTurn_Cycles(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	battle, err := combat.NewBattle("forest", time.Now(), a, b)
	require.NoError(t, err)

	battle.AdvanceTurn()
	assert.Equal(t, "wolf", battle.CurrentActorID())
	assert.Equal(t, 1, battle.Turn)

	battle.AdvanceTurn()
	assert.Equal(t, "hero", battle.CurrentActorID())
	assert.Equal(t, 2, battle.Turn)
}

func TestBattle_CurrentActor_SkipsDead(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	c := newStub("bear", stats.KindMonster, 1, defaultDerived())
	battle, err := combat.NewBattle("forest", time.Now(), a, b, c)
	require.NoError(t, err)

	b.ApplyDamage(b.derived.MaxHP)
	battle.AdvanceTurn()
	assert.Equal(t, "bear", battle.CurrentActorID())
}

func TestBattle_AdvanceTurn_TicksIncomingActor(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	battle, err := combat.NewBattle("forest", time.Now(), a, b)
	require.NoError(t, err)

	require.NoError(t, battle.Effects.Apply("hero", effect.DefendID, effect.ModDefense, 1.5, 1))

	// The wolf's turn begins; the hero's buff is untouched.
	battle.AdvanceTurn()
	assert.InDelta(t, 1.5, battle.Effects.Multiplier("hero", effect.ModDefense), 1e-9)

	// The hero's next turn begins; the one-turn buff expires.
	battle.AdvanceTurn()
	assert.InDelta(t, 1.0, battle.Effects.Multiplier("hero", effect.ModDefense), 1e-9)
}

func TestBattle_End_Idempotent(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	battle, err := combat.NewBattle("forest", time.Now(), a, b)
	require.NoError(t, err)

	first := time.Now()
	battle.End(combat.ReasonVictory, "hero", first)
	battle.End(combat.ReasonDraw, "", first.Add(time.Minute))

	assert.Equal(t, combat.StatusEnded, battle.Status)
	assert.Equal(t, combat.ReasonVictory, battle.Reason)
	assert.Equal(t, "hero", battle.WinnerID)
	assert.Equal(t, first, battle.EndedAt)
}

func TestBattle_Expired(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	start := time.Now()
	battle, err := combat.NewBattle("forest", start, a, b)
	require.NoError(t, err)

	assert.False(t, battle.Expired(start.Add(29*time.Minute)))
	assert.True(t, battle.Expired(start.Add(31*time.Minute)))
}

func TestBattle_FirstMonster(t *testing.T) {
	a := newStub("hero", stats.KindPlayer, 1, defaultDerived())
	b := newStub("wolf", stats.KindMonster, 1, defaultDerived())
	battle, err := combat.NewBattle("forest", time.Now(), a, b)
	require.NoError(t, err)

	m, ok := battle.FirstMonster()
	require.True(t, ok)
	assert.Equal(t, "wolf", m.ID())
}
