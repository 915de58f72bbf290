package combat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/effect"
	"github.com/cory-johannsen/realmd/internal/game/player"
	"github.com/cory-johannsen/realmd/internal/game/rng"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

const (
	minHitChance  = 10.0
	maxHitChance  = 95.0
	minFleeChance = 10.0
	maxFleeChance = 90.0
	// damageVariance is the uniform spread applied to physical damage.
	damageVariance = 0.2
)

// Resolver executes individual combat actions against a battle. All public
// operations return an ActionResult and never panic across their boundary;
// unexpected internal errors surface as FailureSystem results.
type Resolver struct {
	data    catalog.Store
	players player.Store
	src     rng.Source
	logger  *zap.Logger
	clock   func() time.Time
}

// NewResolver creates a Resolver backed by the given catalog, player store,
// and randomness source.
//
// Precondition: all arguments must be non-nil.
func NewResolver(data catalog.Store, players player.Store, src rng.Source, logger *zap.Logger) *Resolver {
	return &Resolver{
		data:    data,
		players: players,
		src:     src,
		logger:  logger,
		clock:   time.Now,
	}
}

// SetClock overrides the resolver's time source.
func (r *Resolver) SetClock(clock func() time.Time) { r.clock = clock }

// recoverResult converts a panic into a system-failure result at the
// operation boundary so one bad action cannot take down the simulation.
func (r *Resolver) recoverResult(op string, result *ActionResult) {
	if rec := recover(); rec != nil {
		r.logger.Error("combat action panicked",
			zap.String("operation", op),
			zap.Any("panic", rec))
		*result = failure(FailureSystem, "internal error resolving action")
	}
}

// validateTurn checks the shared preconditions of a turn-consuming action.
// A nil result means the action may proceed.
func (r *Resolver) validateTurn(b *Battle, actorID string) *ActionResult {
	if b == nil {
		res := failure(FailureValidation, "no battle")
		return &res
	}
	if b.Status != StatusActive {
		res := failure(FailureState, "battle has already ended")
		return &res
	}
	actor, ok := b.Participant(actorID)
	if !ok {
		res := failure(FailureValidation, fmt.Sprintf("combatant %q is not in this battle", actorID))
		return &res
	}
	if !actor.Alive() {
		res := failure(FailureState, "dead combatants cannot act")
		return &res
	}
	if b.CurrentActorID() != actorID {
		res := failure(FailureState, "it is not your turn")
		return &res
	}
	return nil
}

// effectiveAttack returns the actor's attack stat after timed modifiers.
func (b *Battle) effectiveAttack(c stats.Combatant) float64 {
	return float64(c.DerivedStats().Attack) * b.Effects.Multiplier(c.CombatID(), effect.ModAttack)
}

// effectiveDefense returns the actor's defense stat after timed modifiers,
// including the one-turn defend buff.
func (b *Battle) effectiveDefense(c stats.Combatant) float64 {
	return float64(c.DerivedStats().Defense) * b.Effects.Multiplier(c.CombatID(), effect.ModDefense)
}

func (b *Battle) effectiveAccuracy(c stats.Combatant) float64 {
	return c.DerivedStats().Accuracy * b.Effects.Multiplier(c.CombatID(), effect.ModAccuracy)
}

func (b *Battle) effectiveEvasion(c stats.Combatant) float64 {
	return c.DerivedStats().Evasion * b.Effects.Multiplier(c.CombatID(), effect.ModEvasion)
}

// HitChance computes the percent chance for attacker to land a basic attack
// on target, including active accuracy and evasion modifiers.
//
// Postcondition: Returns a value in [10, 95].
func HitChance(b *Battle, attacker, target stats.Combatant) float64 {
	chance := 90.0 + (b.effectiveAccuracy(attacker)-b.effectiveEvasion(target))*0.5
	return clampFloat(chance, minHitChance, maxHitChance)
}

// FleeChance computes the percent chance for c to escape the battle. The
// level difference against the first monster in the battle shifts the odds.
//
// Postcondition: Returns a value in [10, 90].
func FleeChance(b *Battle, c stats.Combatant) float64 {
	chance := 50.0 + (b.effectiveEvasion(c)-50.0)*0.5
	if m, ok := b.FirstMonster(); ok {
		chance += float64(c.CombatLevel()-m.Combatant.CombatLevel()) * 5.0
	}
	return clampFloat(chance, minFleeChance, maxFleeChance)
}

// BaseDamage computes pre-variance physical damage for attacker against
// target.
//
// Postcondition: Returns at least 1.
func BaseDamage(b *Battle, attacker, target stats.Combatant) int {
	dmg := int(b.effectiveAttack(attacker) - b.effectiveDefense(target)*0.5)
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// Attack resolves a basic physical attack from actorID against targetID.
// The turn advances on any resolved attack, hit or miss. Validation and
// state failures do not consume the turn.
//
// Postcondition: On a hit, target HP is reduced by at least 1.
func (r *Resolver) Attack(b *Battle, actorID, targetID string) (result ActionResult) {
	defer r.recoverResult("attack", &result)

	if res := r.validateTurn(b, actorID); res != nil {
		return *res
	}
	target, ok := b.Participant(targetID)
	if !ok {
		return failure(FailureValidation, fmt.Sprintf("target %q is not in this battle", targetID))
	}
	if !target.Alive() {
		return failure(FailureState, "target is already dead")
	}
	actor, _ := b.Participant(actorID)

	if !rng.Chance(r.src, HitChance(b, actor.Combatant, target.Combatant)) {
		b.AdvanceTurn()
		return ActionResult{
			Success: true,
			Missed:  true,
			Message: fmt.Sprintf("%s attacks %s but misses", actor.Combatant.DisplayName(), target.Combatant.DisplayName()),
		}
	}

	dmg := rng.Variance(r.src, BaseDamage(b, actor.Combatant, target.Combatant), damageVariance)
	crit := rng.Chance(r.src, actor.Combatant.DerivedStats().CritChance)
	if crit {
		dmg = int(float64(dmg) * actor.Combatant.DerivedStats().CritDamage)
	}
	applied := target.Combatant.ApplyDamage(dmg)

	b.AdvanceTurn()
	return ActionResult{
		Success:     true,
		Damage:      applied,
		CriticalHit: crit,
		Message:     fmt.Sprintf("%s hits %s for %d damage", actor.Combatant.DisplayName(), target.Combatant.DisplayName(), applied),
		Effects: []AppliedEffect{
			{Type: "damage", TargetID: targetID, Amount: applied},
		},
	}
}

// UseSkill resolves a skill cast by actorID. A nil target id directs heal
// and buff effects at the caster; damage and debuff skills require an
// explicit target. Each effect rolls its own chance independently, and the
// whole skill's mana cost is paid up front.
func (r *Resolver) UseSkill(b *Battle, actorID, targetID, skillID string) (result ActionResult) {
	defer r.recoverResult("use_skill", &result)

	if res := r.validateTurn(b, actorID); res != nil {
		return *res
	}
	skill, ok := r.data.GetSkill(skillID)
	if !ok {
		return failure(FailureValidation, fmt.Sprintf("unknown skill %q", skillID))
	}
	actor, _ := b.Participant(actorID)

	if targetID == "" {
		if skill.Offensive() {
			return failure(FailureValidation, "skill requires a target")
		}
		targetID = actorID
	}
	target, ok := b.Participant(targetID)
	if !ok {
		return failure(FailureValidation, fmt.Sprintf("target %q is not in this battle", targetID))
	}
	if !target.Alive() {
		return failure(FailureState, "target is already dead")
	}

	if !actor.Combatant.SpendMana(skill.ManaCost()) {
		return failure(FailureResource, "not enough mana")
	}

	result = ActionResult{Success: true}
	for _, eff := range skill.Effects {
		if eff.Chance > 0 && !rng.Chance(r.src, eff.Chance) {
			result.Effects = append(result.Effects, AppliedEffect{
				Type: string(eff.Type), TargetID: targetID, Missed: true,
			})
			continue
		}
		magnitude := eff.BaseValue
		if scaling, ok := actor.Combatant.BaseStats().Get(eff.ScalingStat); ok {
			magnitude += int(float64(scaling) * eff.ScalingRatio)
		}

		switch eff.Type {
		case catalog.EffectDamage:
			dmg := magnitude - int(b.effectiveDefense(target.Combatant)*0.5)
			if dmg < 1 {
				dmg = 1
			}
			if rng.Chance(r.src, actor.Combatant.DerivedStats().CritChance) {
				dmg = int(float64(dmg) * actor.Combatant.DerivedStats().CritDamage)
				result.CriticalHit = true
			}
			applied := target.Combatant.ApplyDamage(dmg)
			result.Damage += applied
			result.Effects = append(result.Effects, AppliedEffect{
				Type: "damage", TargetID: targetID, Amount: applied,
			})
		case catalog.EffectHeal:
			applied := target.Combatant.ApplyHealing(magnitude)
			result.Healing += applied
			result.Effects = append(result.Effects, AppliedEffect{
				Type: "heal", TargetID: targetID, Amount: applied,
			})
		case catalog.EffectBuff, catalog.EffectDebuff:
			kind, ok := modKindFor(eff.Stat)
			if !ok {
				continue
			}
			mult := 1.0 + float64(magnitude)/100.0
			if eff.Type == catalog.EffectDebuff {
				mult = 1.0 - float64(magnitude)/100.0
				if mult < 0.1 {
					mult = 0.1
				}
			}
			if err := b.Effects.Apply(target.Combatant.CombatID(), skill.ID+":"+eff.Stat, kind, mult, eff.Duration); err != nil {
				continue
			}
			result.Effects = append(result.Effects, AppliedEffect{
				Type: string(eff.Type), TargetID: targetID, Amount: magnitude,
				Stat: eff.Stat, Duration: eff.Duration,
			})
		}
	}
	result.Message = fmt.Sprintf("%s uses %s", actor.Combatant.DisplayName(), skill.Name)

	b.AdvanceTurn()
	return result
}

// UseItem resolves a consumable used by actorID on themselves. Only players
// carry inventories; the item is removed before its effect applies, and a
// missing item yields a resource failure.
func (r *Resolver) UseItem(ctx context.Context, b *Battle, actorID, itemID string) (result ActionResult) {
	defer r.recoverResult("use_item", &result)

	if res := r.validateTurn(b, actorID); res != nil {
		return *res
	}
	actor, _ := b.Participant(actorID)
	if actor.Combatant.CombatKind() != stats.KindPlayer {
		return failure(FailureValidation, "only players can use items")
	}
	item, ok := r.data.GetItem(itemID)
	if !ok {
		return failure(FailureValidation, fmt.Sprintf("unknown item %q", itemID))
	}
	if item.Kind != catalog.ItemConsumable {
		return failure(FailureValidation, fmt.Sprintf("%s is not consumable", item.Name))
	}
	if err := r.players.RemoveItem(ctx, actorID, itemID, 1); err != nil {
		return failure(FailureResource, fmt.Sprintf("no %s in inventory", item.Name))
	}

	result = ActionResult{Success: true, Message: fmt.Sprintf("%s uses %s", actor.Combatant.DisplayName(), item.Name)}
	eff := item.Effect
	switch eff.Type {
	case catalog.ConsumableHeal:
		applied := actor.Combatant.ApplyHealing(eff.Value)
		result.Healing = applied
		result.Effects = append(result.Effects, AppliedEffect{Type: "heal", TargetID: actorID, Amount: applied})
	case catalog.ConsumableMana:
		applied := actor.Combatant.RestoreMana(eff.Value)
		result.Effects = append(result.Effects, AppliedEffect{Type: "mana", TargetID: actorID, Amount: applied})
	case catalog.ConsumableBuff, catalog.ConsumableDebuff:
		kind, ok := modKindFor(eff.Stat)
		if !ok {
			break
		}
		mult := 1.0 + float64(eff.Value)/100.0
		if eff.Type == catalog.ConsumableDebuff {
			mult = 1.0 - float64(eff.Value)/100.0
			if mult < 0.1 {
				mult = 0.1
			}
		}
		if err := b.Effects.Apply(actorID, item.ID+":"+eff.Stat, kind, mult, eff.Duration); err != nil {
			break
		}
		result.Effects = append(result.Effects, AppliedEffect{
			Type: string(eff.Type), TargetID: actorID, Amount: eff.Value,
			Stat: eff.Stat, Duration: eff.Duration,
		})
	}

	b.AdvanceTurn()
	return result
}

// Defend grants the actor a one-turn 50% defense bonus that lasts until the
// start of their next turn.
func (r *Resolver) Defend(b *Battle, actorID string) (result ActionResult) {
	defer r.recoverResult("defend", &result)

	if res := r.validateTurn(b, actorID); res != nil {
		return *res
	}
	actor, _ := b.Participant(actorID)

	if err := b.Effects.Apply(actorID, effect.DefendID, effect.ModDefense, 1.5, 1); err != nil {
		return failure(FailureSystem, "could not register defensive stance")
	}

	b.AdvanceTurn()
	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s takes a defensive stance", actor.Combatant.DisplayName()),
		Effects: []AppliedEffect{
			{Type: "defend", TargetID: actorID, Stat: "defense", Duration: 1},
		},
	}
}

// Flee attempts to escape the battle. Only players may flee. On success the
// battle ends with no winner; on failure the turn is lost.
func (r *Resolver) Flee(b *Battle, actorID string) (result ActionResult) {
	defer r.recoverResult("flee", &result)

	if res := r.validateTurn(b, actorID); res != nil {
		return *res
	}
	actor, _ := b.Participant(actorID)
	if actor.Combatant.CombatKind() != stats.KindPlayer {
		return failure(FailureValidation, "monsters do not flee")
	}

	if rng.Chance(r.src, FleeChance(b, actor.Combatant)) {
		b.End(ReasonFled, "", r.clock())
		return ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s flees from battle", actor.Combatant.DisplayName()),
		}
	}

	b.AdvanceTurn()
	return ActionResult{
		Success: true,
		Missed:  true,
		Message: fmt.Sprintf("%s fails to escape", actor.Combatant.DisplayName()),
	}
}

// BattleEnd describes the outcome of an end-of-battle check.
type BattleEnd struct {
	Ended    bool
	Reason   EndReason
	WinnerID string
}

// CheckBattleEnd evaluates whether the battle is over and, if so, marks it
// ended. A battle ends in a draw when nobody is left standing, in victory
// when every survivor is on the same side, or in a timeout after 30 minutes.
//
// Postcondition: If the returned Ended is true, b.Status is StatusEnded.
func (r *Resolver) CheckBattleEnd(b *Battle, now time.Time) BattleEnd {
	if b.Status == StatusEnded {
		return BattleEnd{Ended: true, Reason: b.Reason, WinnerID: b.WinnerID}
	}

	alive := b.AliveParticipants()
	if len(alive) == 0 {
		b.End(ReasonDraw, "", now)
		return BattleEnd{Ended: true, Reason: ReasonDraw}
	}

	kind := alive[0].Combatant.CombatKind()
	uniform := true
	for _, p := range alive[1:] {
		if p.Combatant.CombatKind() != kind {
			uniform = false
			break
		}
	}
	if uniform {
		winnerID := alive[0].ID()
		b.End(ReasonVictory, winnerID, now)
		return BattleEnd{Ended: true, Reason: ReasonVictory, WinnerID: winnerID}
	}

	if b.Expired(now) {
		b.End(ReasonTimeout, "", now)
		return BattleEnd{Ended: true, Reason: ReasonTimeout}
	}
	return BattleEnd{}
}

// modKindFor maps a stat name to its modifier kind.
func modKindFor(stat string) (effect.ModKind, bool) {
	switch stat {
	case "attack":
		return effect.ModAttack, true
	case "defense":
		return effect.ModDefense, true
	case "accuracy":
		return effect.ModAccuracy, true
	case "evasion":
		return effect.ModEvasion, true
	default:
		return "", false
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
