// Package stats defines the combatant stat model: the five base attributes,
// the derived combat values computed from them, and the Combatant interface
// shared by players and monster instances.
package stats

import "fmt"

// Kind distinguishes player combatants from monster combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindMonster
)

// String returns a human-readable kind label.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	default:
		return "unknown"
	}
}

// StatNames lists the five base attribute keys in canonical order.
var StatNames = []string{"strength", "dexterity", "intelligence", "vitality", "luck"}

// Base holds the five core attributes every combatant carries.
type Base struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Intelligence int `yaml:"intelligence"`
	Vitality     int `yaml:"vitality"`
	Luck         int `yaml:"luck"`
}

// Get returns the value of the named attribute.
//
// Postcondition: Returns (value, true) for a known name, or (0, false).
func (b Base) Get(name string) (int, bool) {
	switch name {
	case "strength":
		return b.Strength, true
	case "dexterity":
		return b.Dexterity, true
	case "intelligence":
		return b.Intelligence, true
	case "vitality":
		return b.Vitality, true
	case "luck":
		return b.Luck, true
	default:
		return 0, false
	}
}

// Set assigns the named attribute.
//
// Postcondition: Returns an error for unknown names; the receiver is
// unchanged on error.
func (b *Base) Set(name string, value int) error {
	switch name {
	case "strength":
		b.Strength = value
	case "dexterity":
		b.Dexterity = value
	case "intelligence":
		b.Intelligence = value
	case "vitality":
		b.Vitality = value
	case "luck":
		b.Luck = value
	default:
		return fmt.Errorf("unknown stat %q", name)
	}
	return nil
}

// Validate checks that no attribute is negative.
func (b Base) Validate() error {
	for _, name := range StatNames {
		v, _ := b.Get(name)
		if v < 0 {
			return fmt.Errorf("stat %q must be >= 0, got %d", name, v)
		}
	}
	return nil
}

// Derived holds the combat values computed from base attributes and level.
//
// Invariant: no field is ever negative; CritChance is in [0, 50];
// CritDamage is >= 1.
type Derived struct {
	MaxHP      int
	MaxMP      int
	Attack     int
	Defense    int
	Accuracy   float64
	Evasion    float64
	CritChance float64
	CritDamage float64
}

// Derive computes the full derived stat block for a combatant at the given
// level. The formulas are fixed; callers must re-derive after any base stat
// or level change.
//
// Precondition: level >= 1; base must have passed Validate.
// Postcondition: All returned values satisfy the Derived invariants.
func Derive(base Base, level int) Derived {
	crit := 5 + float64(base.Luck)*0.1
	if crit < 0 {
		crit = 0
	}
	if crit > 50 {
		crit = 50
	}
	return Derived{
		MaxHP:      50 + base.Vitality*10 + level*5,
		MaxMP:      20 + base.Intelligence*8 + level*3,
		Attack:     base.Strength*2 + level,
		Defense:    base.Vitality + level,
		Accuracy:   50 + float64(base.Dexterity)*2,
		Evasion:    float64(base.Dexterity) + float64(base.Luck)*0.5,
		CritChance: crit,
		CritDamage: 1.5,
	}
}

// Combatant is the capability interface every battle participant exposes.
// It replaces structural probing of player-vs-monster records with a shared
// contract: the resolver only ever sees this interface.
type Combatant interface {
	// CombatID returns the entity's unique id.
	CombatID() string
	// DisplayName returns the entity's display name.
	DisplayName() string
	// CombatKind reports whether this is a player or a monster.
	CombatKind() Kind
	// CombatLevel returns the entity's level (>= 1).
	CombatLevel() int
	// BaseStats returns the entity's base attributes.
	BaseStats() Base
	// DerivedStats returns the entity's derived combat values.
	DerivedStats() Derived
	// HP returns (current, max) hit points. 0 <= current <= max.
	HP() (int, int)
	// MP returns (current, max) mana points. 0 <= current <= max.
	MP() (int, int)
	// ApplyDamage subtracts up to amount HP, clamping at 0, and returns the
	// HP actually removed.
	ApplyDamage(amount int) int
	// ApplyHealing adds up to amount HP, clamping at max, and returns the
	// HP actually restored.
	ApplyHealing(amount int) int
	// SpendMana deducts amount MP if available and reports success.
	SpendMana(amount int) bool
	// RestoreMana adds up to amount MP, clamping at max, and returns the
	// MP actually restored.
	RestoreMana(amount int) int
}

// IsAlive reports whether c has positive hit points.
func IsAlive(c Combatant) bool {
	hp, _ := c.HP()
	return hp > 0
}
