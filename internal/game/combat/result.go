// Package combat implements the turn-based combat resolver: attack, skill,
// item, defend, and flee resolution against combatant stat snapshots, plus
// battle-end detection and reward generation.
package combat

// FailureKind classifies why an action did not succeed. Expected failures
// (validation, resource, state) are normal recoverable outcomes; system
// failures are unexpected internal errors converted to a safe result at the
// operation boundary.
type FailureKind int

const (
	// FailureNone means the action resolved (it may still have missed).
	FailureNone FailureKind = iota
	// FailureValidation covers missing or invalid actor, target, skill, or
	// item references.
	FailureValidation
	// FailureResource covers insufficient mana, gold, points, or inventory.
	FailureResource
	// FailureState covers already-in-battle, capacity-full, and similar
	// wrong-state conditions.
	FailureState
	// FailureSystem covers unexpected internal errors.
	FailureSystem
)

// String returns a human-readable failure label.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureResource:
		return "resource"
	case FailureState:
		return "state"
	case FailureSystem:
		return "system"
	default:
		return "unknown"
	}
}

// AppliedEffect describes one sub-effect of a resolved action, in the order
// it was applied.
type AppliedEffect struct {
	// Type is the effect category (damage, heal, buff, debuff, defend).
	Type string
	// TargetID is the combatant the effect landed on.
	TargetID string
	// Amount is the HP/MP delta for damage/heal/mana effects.
	Amount int
	// Stat and Duration describe buff/debuff modifiers.
	Stat     string
	Duration int
	// Missed is true when the effect's independent chance roll failed.
	Missed bool
}

// ActionResult is the structured outcome of one combat action. No resolver
// operation panics across its boundary; every path yields a result.
type ActionResult struct {
	Success     bool
	Failure     FailureKind
	Message     string
	Damage      int
	Healing     int
	CriticalHit bool
	Missed      bool
	Effects     []AppliedEffect
}

// failure builds an unsuccessful result.
func failure(kind FailureKind, message string) ActionResult {
	return ActionResult{Success: false, Failure: kind, Message: message}
}

// RewardItem is one merged item stack in a battle's reward bundle.
type RewardItem struct {
	ItemID   string
	Quantity int
}

// Rewards aggregates the spoils of a won battle.
type Rewards struct {
	Experience int64
	Gold       int64
	Items      []RewardItem
}
