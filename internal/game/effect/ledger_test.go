package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realmd/internal/game/effect"
)

func TestLedger_ApplyAndMultiplier(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("p1", effect.DefendID, effect.ModDefense, 1.5, 1))

	assert.Equal(t, 1.5, l.Multiplier("p1", effect.ModDefense))
	assert.Equal(t, 1.0, l.Multiplier("p1", effect.ModAttack))
	assert.Equal(t, 1.0, l.Multiplier("p2", effect.ModDefense))
	assert.True(t, l.Has("p1", effect.DefendID))
}

func TestLedger_Apply_Invalid(t *testing.T) {
	l := effect.NewLedger()
	assert.Error(t, l.Apply("", "x", effect.ModAttack, 1.2, 1))
	assert.Error(t, l.Apply("p1", "", effect.ModAttack, 1.2, 1))
	assert.Error(t, l.Apply("p1", "x", effect.ModAttack, 0, 1))
}

func TestLedger_Reapply_ExtendsDuration(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("p1", "war_cry", effect.ModAttack, 1.2, 1))
	require.NoError(t, l.Apply("p1", "war_cry", effect.ModAttack, 1.3, 3))

	// Replaced, not stacked.
	assert.Equal(t, 1.3, l.Multiplier("p1", effect.ModAttack))
	assert.Empty(t, l.Tick("p1"))
	assert.Empty(t, l.Tick("p1"))
	expired := l.Tick("p1")
	assert.Equal(t, []string{"war_cry"}, expired)
}

func TestLedger_Tick_ExpiresDefend(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("p1", effect.DefendID, effect.ModDefense, 1.5, 1))

	expired := l.Tick("p1")
	assert.Equal(t, []string{effect.DefendID}, expired)
	assert.False(t, l.Has("p1", effect.DefendID))
	assert.Equal(t, 1.0, l.Multiplier("p1", effect.ModDefense))
}

func TestLedger_Tick_PermanentSurvives(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("m1", "curse", effect.ModDefense, 0.8, -1))

	for i := 0; i < 10; i++ {
		assert.Empty(t, l.Tick("m1"))
	}
	assert.Equal(t, 0.8, l.Multiplier("m1", effect.ModDefense))
}

func TestLedger_CombinedMultipliers(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("p1", "blessing", effect.ModDefense, 1.2, 3))
	require.NoError(t, l.Apply("p1", effect.DefendID, effect.ModDefense, 1.5, 1))

	assert.InDelta(t, 1.8, l.Multiplier("p1", effect.ModDefense), 1e-9)
}

func TestLedger_Clear(t *testing.T) {
	l := effect.NewLedger()
	require.NoError(t, l.Apply("p1", "x", effect.ModEvasion, 1.1, 2))
	l.Clear("p1")
	assert.Empty(t, l.ActiveFor("p1"))
	assert.Equal(t, 1.0, l.Multiplier("p1", effect.ModEvasion))
}

func TestLedger_Property_TickEventuallyExpiresFinite(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		turns := rapid.IntRange(1, 20).Draw(rt, "turns")
		l := effect.NewLedger()
		require.NoError(rt, l.Apply("c", "mod", effect.ModAttack, 1.1, turns))

		var expired []string
		for i := 0; i < turns; i++ {
			expired = l.Tick("c")
		}
		assert.Equal(rt, []string{"mod"}, expired)
		assert.False(rt, l.Has("c", "mod"))
	})
}
