package progression

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/game/player"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

const (
	statPointsPerLevel  = 5
	skillPointsPerLevel = 1
	// statCapPerLevel bounds each base stat at level * statCapPerLevel.
	statCapPerLevel = 10
	baselineStat    = 10
	partyBonus      = 1.2
	// milestoneItemID is granted every 100th level.
	milestoneItemID = "milestone_cache"
)

var (
	ErrInsufficientPoints = errors.New("not enough stat points")
	ErrInsufficientGold   = errors.New("not enough gold")
	ErrStatCapExceeded    = errors.New("stat would exceed its level cap")
)

// DefaultSourceMultipliers scales experience by how it was earned. Unknown
// sources use 1.0.
var DefaultSourceMultipliers = map[string]float64{
	"combat":      1.0,
	"quest":       1.25,
	"exploration": 1.1,
}

// LevelReward describes what one gained level paid out.
type LevelReward struct {
	Level       int
	StatPoints  int
	SkillPoints int
	Gold        int64
	ItemID      string
}

// ExperienceResult summarises one AddExperience call.
type ExperienceResult struct {
	PlayerID     string
	Granted      int64
	LevelsGained int
	NewLevel     int
	Rewards      []LevelReward
}

// Engine mutates player progression records. It is the only writer of
// level, experience, and point fields.
//
// Invariant: a player's level never decreases.
type Engine struct {
	players player.Store
	logger  *zap.Logger
	sources map[string]float64
}

// NewEngine creates a progression Engine over the given player store.
//
// Precondition: players and logger must be non-nil.
func NewEngine(players player.Store, logger *zap.Logger) *Engine {
	return &Engine{
		players: players,
		logger:  logger,
		sources: DefaultSourceMultipliers,
	}
}

// AddExperience grants baseAmount experience from source, scaled by the
// source multiplier, the caller's multiplier, and the level-bracket bonus,
// then resolves any resulting level-ups and persists the player.
//
// Precondition: baseAmount > 0; multiplier > 0.
// Postcondition: the player's level is unchanged or higher; experience
// remains below the next requirement unless the level ceiling was hit.
func (e *Engine) AddExperience(ctx context.Context, playerID string, baseAmount int64, source string, multiplier float64) (*ExperienceResult, error) {
	if baseAmount <= 0 {
		return nil, fmt.Errorf("progression: base amount must be > 0, got %d", baseAmount)
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("progression: multiplier must be > 0, got %f", multiplier)
	}
	p, err := e.players.Load(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("progression: load player %q: %w", playerID, err)
	}

	srcMult, ok := e.sources[source]
	if !ok {
		srcMult = 1.0
	}
	granted := int64(float64(baseAmount) * srcMult * multiplier * bracketBonus(p.Level))
	if granted < 1 {
		granted = 1
	}

	result := &ExperienceResult{PlayerID: playerID, Granted: granted}
	p.Experience += granted

	for p.Experience >= p.ExperienceToNext && p.Level < MaxLevel {
		p.Experience -= p.ExperienceToNext
		p.Level++
		p.ExperienceToNext = RequiredExperience(p.Level)

		reward := rewardForLevel(p.Level)
		p.StatPoints += reward.StatPoints
		p.SkillPoints += reward.SkillPoints
		p.Gold += reward.Gold
		if reward.ItemID != "" {
			if err := e.players.AddItem(ctx, playerID, reward.ItemID, 1); err != nil {
				return nil, fmt.Errorf("progression: grant milestone item to %q: %w", playerID, err)
			}
		}
		result.LevelsGained++
		result.Rewards = append(result.Rewards, reward)
	}
	result.NewLevel = p.Level

	p.Recompute()
	if err := e.players.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("progression: save player %q: %w", playerID, err)
	}

	if result.LevelsGained > 0 {
		e.logger.Info("player leveled up",
			zap.String("player_id", playerID),
			zap.Int("new_level", p.Level),
			zap.Int("levels_gained", result.LevelsGained),
			zap.Int64("experience_granted", granted))
	}
	return result, nil
}

// rewardForLevel computes the payout for reaching level. Every 10th level
// adds bonus gold, every 50th an extra skill point and a larger gold bonus,
// every 100th an extra 5 stat points and a milestone item.
func rewardForLevel(level int) LevelReward {
	reward := LevelReward{
		Level:       level,
		StatPoints:  statPointsPerLevel,
		SkillPoints: skillPointsPerLevel,
	}
	if level%10 == 0 {
		reward.Gold += int64(level) * 10
	}
	if level%50 == 0 {
		reward.SkillPoints++
		reward.Gold += int64(level) * 50
	}
	if level%100 == 0 {
		reward.StatPoints += 5
		reward.ItemID = milestoneItemID
	}
	return reward
}

// AllocateStatPoints applies the requested stat increments atomically. The
// whole allocation is rejected, leaving the player untouched, when it
// exceeds available points or would push any stat past level * 10.
func (e *Engine) AllocateStatPoints(ctx context.Context, playerID string, allocation map[string]int) error {
	p, err := e.players.Load(ctx, playerID)
	if err != nil {
		return fmt.Errorf("progression: load player %q: %w", playerID, err)
	}

	total := 0
	limit := p.Level * statCapPerLevel
	for name, inc := range allocation {
		if inc < 0 {
			return fmt.Errorf("progression: allocation for %q must be >= 0, got %d", name, inc)
		}
		current, ok := p.Base.Get(name)
		if !ok {
			return fmt.Errorf("progression: unknown stat %q", name)
		}
		if current+inc > limit {
			return fmt.Errorf("progression: %s would reach %d, cap is %d: %w", name, current+inc, limit, ErrStatCapExceeded)
		}
		total += inc
	}
	if total == 0 {
		return nil
	}
	if total > p.StatPoints {
		return fmt.Errorf("progression: allocation needs %d points, %d available: %w", total, p.StatPoints, ErrInsufficientPoints)
	}

	for name, inc := range allocation {
		current, _ := p.Base.Get(name)
		if err := p.Base.Set(name, current+inc); err != nil {
			return fmt.Errorf("progression: %w", err)
		}
	}
	p.StatPoints -= total
	p.Recompute()

	if err := e.players.Save(ctx, p); err != nil {
		return fmt.Errorf("progression: save player %q: %w", playerID, err)
	}
	return nil
}

// ResetStats refunds every point invested above the level-1 baseline,
// returns all five stats to the baseline, and charges goldCost.
func (e *Engine) ResetStats(ctx context.Context, playerID string, goldCost int64) error {
	p, err := e.players.Load(ctx, playerID)
	if err != nil {
		return fmt.Errorf("progression: load player %q: %w", playerID, err)
	}
	if p.Gold < goldCost {
		return fmt.Errorf("progression: reset costs %d gold, %d available: %w", goldCost, p.Gold, ErrInsufficientGold)
	}

	refunded := 0
	for _, name := range stats.StatNames {
		current, _ := p.Base.Get(name)
		if current > baselineStat {
			refunded += current - baselineStat
		}
		if err := p.Base.Set(name, baselineStat); err != nil {
			return fmt.Errorf("progression: %w", err)
		}
	}
	p.StatPoints += refunded
	p.Gold -= goldCost
	p.Recompute()

	if err := e.players.Save(ctx, p); err != nil {
		return fmt.Errorf("progression: save player %q: %w", playerID, err)
	}
	e.logger.Info("player stats reset",
		zap.String("player_id", playerID),
		zap.Int("points_refunded", refunded),
		zap.Int64("gold_cost", goldCost))
	return nil
}

// PartyMember is one share recipient in a party experience split.
type PartyMember struct {
	ID           string
	Level        int
	Contribution float64
}

// PartyShare splits totalExp across members by contribution, tilted toward
// lower-level members by a factor clamped to [0.5, 1.5] relative to the
// party's average level, then boosted by a flat party bonus.
//
// Postcondition: Returns one non-negative share per member, in input order.
// A party with zero total contribution splits evenly.
func PartyShare(totalExp int64, members []PartyMember) []int64 {
	if len(members) == 0 {
		return nil
	}

	var totalContribution, totalLevel float64
	for _, m := range members {
		if m.Contribution > 0 {
			totalContribution += m.Contribution
		}
		totalLevel += float64(m.Level)
	}
	avgLevel := totalLevel / float64(len(members))

	shares := make([]int64, len(members))
	for i, m := range members {
		weight := 1.0 / float64(len(members))
		if totalContribution > 0 {
			weight = 0
			if m.Contribution > 0 {
				weight = m.Contribution / totalContribution
			}
		}

		factor := 1.0 + (avgLevel-float64(m.Level))*0.05
		if factor < 0.5 {
			factor = 0.5
		}
		if factor > 1.5 {
			factor = 1.5
		}

		share := int64(float64(totalExp) * weight * factor * partyBonus)
		if share < 0 {
			share = 0
		}
		shares[i] = share
	}
	return shares
}
