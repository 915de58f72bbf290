package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/realmd/internal/game/effect"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

// Timeout is the maximum battle duration; battles older than this end with
// ReasonTimeout.
const Timeout = 30 * time.Minute

// Status is the battle lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusEnded
)

// EndReason records why a battle ended.
type EndReason string

const (
	ReasonVictory    EndReason = "victory"
	ReasonDraw       EndReason = "draw"
	ReasonTimeout    EndReason = "timeout"
	ReasonFled       EndReason = "fled"
	ReasonPlayerLeft EndReason = "player_left"
)

// Participant is one combatant's seat in a battle. Vitals live on the
// Combatant itself; the participant adds battle-local position.
type Participant struct {
	Combatant stats.Combatant
	X, Y      float64
}

// ID returns the participant's combatant id.
func (p *Participant) ID() string { return p.Combatant.CombatID() }

// Alive reports whether the participant has positive HP.
func (p *Participant) Alive() bool { return stats.IsAlive(p.Combatant) }

// Battle is one active or recently-ended encounter.
//
// Invariant: a combatant id appears in at most one active battle at a time
// (enforced by the world simulator's registries, not here).
type Battle struct {
	// ID uniquely identifies this battle.
	ID string
	// ZoneID is the zone the battle takes place in.
	ZoneID string
	// Participants holds all seats in join order.
	Participants []*Participant
	// TurnOrder is the fixed sequence of combatant ids.
	TurnOrder []string
	// Turn counts completed turns, starting at 0.
	Turn int
	// StartedAt is the battle creation time.
	StartedAt time.Time

	Status   Status
	Reason   EndReason
	WinnerID string
	// EndedAt is set when the battle ends; cleanup waits a grace window.
	EndedAt time.Time

	// Effects is the timed-modifier ledger for all participants.
	Effects *effect.Ledger

	turnIndex int
}

// NewBattle creates an active battle in zoneID with the given combatants.
// Turn order is the order the combatants are given in.
//
// Precondition: zoneID must be non-empty; at least 2 combatants.
func NewBattle(zoneID string, now time.Time, combatants ...stats.Combatant) (*Battle, error) {
	if zoneID == "" {
		return nil, fmt.Errorf("combat.NewBattle: zoneID must not be empty")
	}
	if len(combatants) < 2 {
		return nil, fmt.Errorf("combat.NewBattle: need at least 2 combatants, got %d", len(combatants))
	}
	b := &Battle{
		ID:        uuid.New().String(),
		ZoneID:    zoneID,
		StartedAt: now,
		Status:    StatusActive,
		Effects:   effect.NewLedger(),
	}
	for _, c := range combatants {
		b.Participants = append(b.Participants, &Participant{Combatant: c})
		b.TurnOrder = append(b.TurnOrder, c.CombatID())
	}
	return b, nil
}

// Participant returns the seat for the given combatant id.
//
// Postcondition: Returns (participant, true) if found, or (nil, false).
func (b *Battle) Participant(id string) (*Participant, bool) {
	for _, p := range b.Participants {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// HasParticipant reports whether id holds a seat in this battle.
func (b *Battle) HasParticipant(id string) bool {
	_, ok := b.Participant(id)
	return ok
}

// CurrentActorID returns the id of the combatant whose turn it is,
// skipping dead combatants.
//
// Postcondition: Returns a living combatant's id, or "" if none are alive.
func (b *Battle) CurrentActorID() string {
	for range b.TurnOrder {
		id := b.TurnOrder[b.turnIndex]
		if p, ok := b.Participant(id); ok && p.Alive() {
			return id
		}
		b.turnIndex = (b.turnIndex + 1) % len(b.TurnOrder)
	}
	return ""
}

// AdvanceTurn moves to the next combatant in turn order. The incoming
// actor's timed effects tick down, so a one-turn defend buff applied on a
// combatant's turn lasts through the opponent's turn and expires when the
// defender acts again.
//
// Postcondition: Turn is incremented; expired modifiers for the new current
// actor are removed.
func (b *Battle) AdvanceTurn() {
	b.turnIndex = (b.turnIndex + 1) % len(b.TurnOrder)
	b.Turn++
	if id := b.CurrentActorID(); id != "" {
		b.Effects.Tick(id)
	}
}

// AliveParticipants returns all seats whose combatant has positive HP.
//
// Postcondition: Every returned participant satisfies Alive().
func (b *Battle) AliveParticipants() []*Participant {
	var alive []*Participant
	for _, p := range b.Participants {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// FirstMonster returns the first monster-kind participant, alive or dead.
//
// Postcondition: Returns (participant, true) if found, or (nil, false).
func (b *Battle) FirstMonster() (*Participant, bool) {
	for _, p := range b.Participants {
		if p.Combatant.CombatKind() == stats.KindMonster {
			return p, true
		}
	}
	return nil, false
}

// End marks the battle ended with the given reason and winner.
//
// Postcondition: Status is StatusEnded; EndedAt equals now. Ending an
// already-ended battle is a no-op.
func (b *Battle) End(reason EndReason, winnerID string, now time.Time) {
	if b.Status == StatusEnded {
		return
	}
	b.Status = StatusEnded
	b.Reason = reason
	b.WinnerID = winnerID
	b.EndedAt = now
}

// Expired reports whether the battle has outlived Timeout.
func (b *Battle) Expired(now time.Time) bool {
	return now.Sub(b.StartedAt) > Timeout
}
