// Package progression implements experience gain, level-up cascades, stat
// allocation, and party experience sharing on top of the player store.
package progression

import "math"

const (
	// MaxLevel is the practical level ceiling; experience past it is kept but
	// grants no further levels.
	MaxLevel = 1000
	// growthRate is the per-level multiplier of the experience curve.
	growthRate = 1.2
	baseRequirement = 100
)

// RequiredExperience returns the experience needed to advance from level to
// level+1. Levels 1 and 2 both require the base amount; the requirement
// grows geometrically afterwards.
//
// Precondition: level >= 1.
// Postcondition: Returns a positive, non-decreasing value.
func RequiredExperience(level int) int64 {
	exp := level - 2
	if exp < 0 {
		exp = 0
	}
	return int64(math.Floor(baseRequirement * math.Pow(growthRate, float64(exp))))
}

// TotalExperience returns the cumulative experience consumed to reach level
// from level 1.
//
// Postcondition: TotalExperience(1) == 0; the function is strictly
// increasing for level in [2, MaxLevel].
func TotalExperience(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += RequiredExperience(l)
	}
	return total
}

// MaxLevelForExperience returns the highest level reachable with total
// cumulative experience.
//
// Invariant: MaxLevelForExperience(TotalExperience(l)) == l for every l in
// [1, MaxLevel]; the two functions are exact inverses under integer floor.
func MaxLevelForExperience(total int64) int {
	if total < 0 {
		return 1
	}
	level := 1
	var spent int64
	for level < MaxLevel {
		need := RequiredExperience(level)
		if spent+need > total {
			break
		}
		spent += need
		level++
	}
	return level
}

// bracketBonus returns the compounding experience multiplier for high-level
// characters.
func bracketBonus(level int) float64 {
	bonus := 1.0
	if level >= 100 {
		bonus *= 1.1
	}
	if level >= 500 {
		bonus *= 1.1
	}
	if level >= 1000 {
		bonus *= 1.1
	}
	return bonus
}
