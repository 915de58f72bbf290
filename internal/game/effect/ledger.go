// Package effect tracks timed stat modifiers applied to combatants during a
// battle: defend buffs, skill buffs, and debuffs. Modifiers expire as battle
// turns advance.
package effect

import "fmt"

// ModKind identifies which derived value a modifier adjusts.
type ModKind string

const (
	ModAttack  ModKind = "attack"
	ModDefense ModKind = "defense"
	ModAccuracy ModKind = "accuracy"
	ModEvasion  ModKind = "evasion"
)

// DefendID is the ledger id used by the defend action's one-turn buff.
const DefendID = "defend"

// Active tracks one applied modifier on a combatant.
type Active struct {
	// ID identifies the modifier source (skill effect id or DefendID).
	ID string
	// Kind is the derived value being adjusted.
	Kind ModKind
	// Multiplier scales the affected value (1.5 = +50%, 0.8 = -20%).
	Multiplier float64
	// TurnsRemaining counts down at each turn tick; the modifier is removed
	// when it reaches zero. -1 means the modifier lasts the whole battle.
	TurnsRemaining int
}

// Ledger tracks active modifiers for all combatants in one battle, keyed by
// combatant id. It is not safe for concurrent use; the battle's owning
// goroutine must serialise access.
type Ledger struct {
	active map[string][]*Active
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{active: make(map[string][]*Active)}
}

// Apply adds a modifier for the combatant. Re-applying a modifier with the
// same id replaces it, keeping the longer remaining duration.
//
// Precondition: combatantID and id must be non-empty; multiplier > 0.
// Postcondition: the modifier is present for combatantID.
func (l *Ledger) Apply(combatantID, id string, kind ModKind, multiplier float64, turns int) error {
	if combatantID == "" || id == "" {
		return fmt.Errorf("effect: combatant id and modifier id must not be empty")
	}
	if multiplier <= 0 {
		return fmt.Errorf("effect: multiplier must be > 0, got %f", multiplier)
	}
	for _, a := range l.active[combatantID] {
		if a.ID == id {
			a.Kind = kind
			a.Multiplier = multiplier
			if turns == -1 || (a.TurnsRemaining != -1 && turns > a.TurnsRemaining) {
				a.TurnsRemaining = turns
			}
			return nil
		}
	}
	l.active[combatantID] = append(l.active[combatantID], &Active{
		ID:             id,
		Kind:           kind,
		Multiplier:     multiplier,
		TurnsRemaining: turns,
	})
	return nil
}

// Multiplier returns the combined multiplier of all active modifiers of the
// given kind on the combatant. No modifiers yields 1.0.
func (l *Ledger) Multiplier(combatantID string, kind ModKind) float64 {
	m := 1.0
	for _, a := range l.active[combatantID] {
		if a.Kind == kind {
			m *= a.Multiplier
		}
	}
	return m
}

// Has reports whether the combatant has an active modifier with id.
func (l *Ledger) Has(combatantID, id string) bool {
	for _, a := range l.active[combatantID] {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ActiveFor returns a snapshot of the combatant's active modifiers.
//
// Postcondition: Returns a new slice; the pointed-to entries are shared and
// must not be mutated by the caller.
func (l *Ledger) ActiveFor(combatantID string) []*Active {
	out := make([]*Active, len(l.active[combatantID]))
	copy(out, l.active[combatantID])
	return out
}

// Tick advances one battle turn for the combatant: every finite modifier's
// TurnsRemaining is decremented and expired entries are removed.
//
// Postcondition: Returns the ids of expired modifiers; for each returned id,
// Has(combatantID, id) is false.
func (l *Ledger) Tick(combatantID string) []string {
	var expired []string
	var kept []*Active
	for _, a := range l.active[combatantID] {
		if a.TurnsRemaining == -1 {
			kept = append(kept, a)
			continue
		}
		a.TurnsRemaining--
		if a.TurnsRemaining <= 0 {
			expired = append(expired, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		delete(l.active, combatantID)
	} else {
		l.active[combatantID] = kept
	}
	return expired
}

// Clear removes all modifiers for the combatant.
//
// Postcondition: ActiveFor(combatantID) is empty.
func (l *Ledger) Clear(combatantID string) {
	delete(l.active, combatantID)
}
