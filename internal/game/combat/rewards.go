package combat

import (
	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/rng"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

const (
	// levelGapThreshold is the level difference beyond which experience
	// rewards are scaled up or down.
	levelGapThreshold = 5
	overLevelFactor   = 0.1
	underLevelFactor  = 1.5
)

// CalculateBattleRewards rolls the reward bundle for a won battle. Each
// defeated monster contributes level-scaled experience, a gold roll within
// its drop range, and independent item drop rolls. Item stacks with the same
// id are merged, preserving first-seen order.
//
// Postcondition: Experience is at least 1 per defeated monster with a
// positive base experience; every item quantity is within its declared
// bounds.
func CalculateBattleRewards(winner stats.Combatant, defeated []*catalog.Monster, src rng.Source) Rewards {
	var rewards Rewards
	itemIndex := make(map[string]int)

	for _, m := range defeated {
		if m == nil {
			continue
		}
		exp := float64(m.Drops.Experience)
		gap := winner.CombatLevel() - m.Level
		switch {
		case gap > levelGapThreshold:
			exp *= overLevelFactor
		case gap < -levelGapThreshold:
			exp *= underLevelFactor
		}
		granted := int64(exp)
		if granted < 1 && m.Drops.Experience > 0 {
			granted = 1
		}
		rewards.Experience += granted

		if m.Drops.Gold.Max > 0 {
			rewards.Gold += int64(rng.Between(src, m.Drops.Gold.Min, m.Drops.Gold.Max))
		}

		for _, drop := range m.Drops.Items {
			if !rng.Chance(src, drop.Chance) {
				continue
			}
			qty := rng.Between(src, drop.MinQty, drop.MaxQty)
			if idx, ok := itemIndex[drop.ItemID]; ok {
				rewards.Items[idx].Quantity += qty
				continue
			}
			itemIndex[drop.ItemID] = len(rewards.Items)
			rewards.Items = append(rewards.Items, RewardItem{ItemID: drop.ItemID, Quantity: qty})
		}
	}
	return rewards
}
