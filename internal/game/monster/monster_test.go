package monster_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/monster"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

func wolfTemplate() *catalog.Monster {
	return &catalog.Monster{
		ID:             "wolf",
		Name:           "Gray Wolf",
		Level:          3,
		Base:           stats.Base{Strength: 8, Dexterity: 7, Intelligence: 2, Vitality: 6, Luck: 3},
		Aggressive:     true,
		DetectionRange: 10,
		Drops:          catalog.DropTable{Experience: 15, Gold: catalog.GoldDrop{Min: 2, Max: 6}},
	}
}

func TestNewInstance_FullVitals(t *testing.T) {
	now := time.Now()
	inst := monster.NewInstance("wolf-1", wolfTemplate(), "forest", 5, 5, now)

	hp, maxHP := inst.HP()
	assert.Equal(t, maxHP, hp)
	mp, maxMP := inst.MP()
	assert.Equal(t, maxMP, mp)
	assert.Equal(t, monster.StatusIdle, inst.Status)
	assert.Equal(t, stats.KindMonster, inst.CombatKind())
	assert.Equal(t, now, inst.SpawnedAt)
	assert.False(t, inst.IsDead())
}

func TestInstance_DistanceTo(t *testing.T) {
	inst := monster.NewInstance("wolf-1", wolfTemplate(), "forest", 0, 0, time.Now())
	assert.InDelta(t, 5.0, inst.DistanceTo(3, 4), 1e-9)
	assert.InDelta(t, 0.0, inst.DistanceTo(0, 0), 1e-9)
}

func TestInstance_ApplyDamage_Floors(t *testing.T) {
	inst := monster.NewInstance("wolf-1", wolfTemplate(), "forest", 0, 0, time.Now())
	_, maxHP := inst.HP()

	applied := inst.ApplyDamage(maxHP + 100)
	assert.Equal(t, maxHP, applied)
	assert.True(t, inst.IsDead())
	assert.Equal(t, "dead", inst.HealthDescription())
}

func TestInstance_HealthDescription_Bands(t *testing.T) {
	inst := monster.NewInstance("wolf-1", wolfTemplate(), "forest", 0, 0, time.Now())
	assert.Equal(t, "unharmed", inst.HealthDescription())
	inst.ApplyDamage(1)
	assert.NotEqual(t, "unharmed", inst.HealthDescription())
}

func TestManager_SpawnAndGet(t *testing.T) {
	mgr := monster.NewManager()
	inst, err := mgr.Spawn(wolfTemplate(), "forest", 1, 2, time.Now())
	require.NoError(t, err)
	require.NotNil(t, inst)

	got, ok := mgr.Get(inst.ID)
	assert.True(t, ok)
	assert.Equal(t, inst, got)
	assert.Equal(t, 1, mgr.Count())

	_, err = mgr.Spawn(nil, "forest", 0, 0, time.Now())
	assert.Error(t, err)
	_, err = mgr.Spawn(wolfTemplate(), "", 0, 0, time.Now())
	assert.Error(t, err)
}

func TestManager_UniqueIDs(t *testing.T) {
	mgr := monster.NewManager()
	a, err := mgr.Spawn(wolfTemplate(), "forest", 0, 0, time.Now())
	require.NoError(t, err)
	b, err := mgr.Spawn(wolfTemplate(), "forest", 0, 0, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_Remove(t *testing.T) {
	mgr := monster.NewManager()
	inst, err := mgr.Spawn(wolfTemplate(), "forest", 0, 0, time.Now())
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(inst.ID))
	_, ok := mgr.Get(inst.ID)
	assert.False(t, ok)
	assert.Empty(t, mgr.InZone("forest"))

	assert.Error(t, mgr.Remove(inst.ID))
}

func TestManager_CountInZone_ExcludesDead(t *testing.T) {
	mgr := monster.NewManager()
	a, err := mgr.Spawn(wolfTemplate(), "forest", 0, 0, time.Now())
	require.NoError(t, err)
	_, err = mgr.Spawn(wolfTemplate(), "forest", 1, 1, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, mgr.CountInZone("forest", "wolf"))
	assert.Equal(t, 0, mgr.CountInZone("forest", "bear"))
	assert.Equal(t, 0, mgr.CountInZone("plains", "wolf"))

	a.Status = monster.StatusDead
	assert.Equal(t, 1, mgr.CountInZone("forest", "wolf"))
}

func TestManager_InZone(t *testing.T) {
	mgr := monster.NewManager()
	_, err := mgr.Spawn(wolfTemplate(), "forest", 0, 0, time.Now())
	require.NoError(t, err)
	_, err = mgr.Spawn(wolfTemplate(), "plains", 0, 0, time.Now())
	require.NoError(t, err)

	assert.Len(t, mgr.InZone("forest"), 1)
	assert.Len(t, mgr.InZone("plains"), 1)
	assert.Empty(t, mgr.InZone("desert"))
	assert.Len(t, mgr.All(), 2)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", monster.StatusIdle.String())
	assert.Equal(t, "hunting", monster.StatusHunting.String())
	assert.Equal(t, "fighting", monster.StatusFighting.String())
	assert.Equal(t, "dead", monster.StatusDead.String())
}

func TestInstance_Property_VitalsInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		inst := monster.NewInstance("w", wolfTemplate(), "z", 0, 0, time.Now())
		ops := rapid.IntRange(1, 20).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(rt, "dmg") {
				inst.ApplyDamage(rapid.IntRange(0, 200).Draw(rt, "amount"))
			} else {
				inst.ApplyHealing(rapid.IntRange(0, 200).Draw(rt, "amount"))
			}
			hp, maxHP := inst.HP()
			assert.GreaterOrEqual(rt, hp, 0)
			assert.LessOrEqual(rt, hp, maxHP)
		}
	})
}
