package world_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/combat"
	"github.com/cory-johannsen/realmd/internal/game/monster"
	"github.com/cory-johannsen/realmd/internal/game/player"
	"github.com/cory-johannsen/realmd/internal/game/progression"
	"github.com/cory-johannsen/realmd/internal/game/stats"
	"github.com/cory-johannsen/realmd/internal/game/world"
)

type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.99
	}
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *scriptedSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	if v >= n {
		v = n - 1
	}
	return v
}

type memStore struct {
	players map[string]*player.Player
	items   map[string]map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		players: make(map[string]*player.Player),
		items:   make(map[string]map[string]int),
	}
}

func (s *memStore) Load(_ context.Context, id string) (*player.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, player.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Save(_ context.Context, p *player.Player) error {
	s.players[p.ID] = p
	return nil
}

func (s *memStore) AddItem(_ context.Context, id, itemID string, qty int) error {
	if s.items[id] == nil {
		s.items[id] = make(map[string]int)
	}
	s.items[id][itemID] += qty
	return nil
}

func (s *memStore) RemoveItem(_ context.Context, id, itemID string, qty int) error {
	if s.items[id][itemID] < qty {
		return fmt.Errorf("insufficient quantity")
	}
	s.items[id][itemID] -= qty
	return nil
}

func (s *memStore) UpdateLocation(context.Context, string, string, float64, float64) error {
	return nil
}

func (s *memStore) UpdateOnlineStatus(context.Context, string, bool) error { return nil }

func (s *memStore) AddPlaytime(context.Context, string, int64) error { return nil }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func worldCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.NewCatalog()
	require.NoError(t, c.AddMonster(&catalog.Monster{
		ID:             "wolf",
		Name:           "Gray Wolf",
		Level:          1,
		Base:           stats.Base{Strength: 8, Dexterity: 7, Intelligence: 2, Vitality: 5, Luck: 3},
		Aggressive:     true,
		DetectionRange: 10,
		Drops: catalog.DropTable{
			Experience: 15,
			Gold:       catalog.GoldDrop{Min: 5, Max: 5},
			Items:      []catalog.ItemDrop{{ItemID: "pelt", Chance: 100, MinQty: 1, MaxQty: 1}},
		},
	}))
	require.NoError(t, c.AddArea(&catalog.Area{
		ID:   "forest",
		Name: "Dark Forest",
		Spawns: []catalog.SpawnConfig{
			{Template: "wolf", MaxInstances: 2, X: 0, Y: 0},
		},
	}))
	require.NoError(t, c.AddArea(&catalog.Area{
		ID:         "hut",
		Name:       "Cramped Hut",
		MaxPlayers: 1,
	}))
	return c
}

type testWorld struct {
	sim   *world.Simulator
	store *memStore
	clock *fakeClock
	src   *scriptedSource
}

func newTestWorld(t *testing.T, opts world.Options) *testWorld {
	t.Helper()
	store := newMemStore()
	src := &scriptedSource{}
	data := worldCatalog(t)
	logger := zap.NewNop()
	resolver := combat.NewResolver(data, store, src, logger)
	progress := progression.NewEngine(store, logger)

	if opts.SpawnChance == 0 {
		opts.SpawnChance = 0.000001
	}
	sim := world.NewSimulator(opts, data, store, resolver, progress, nil, src, logger)

	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	sim.SetClock(clock.Now)
	resolver.SetClock(clock.Now)
	return &testWorld{sim: sim, store: store, clock: clock, src: src}
}

func (w *testWorld) addPlayer(t *testing.T, id, zoneID string) *player.Player {
	t.Helper()
	p := player.New(id, id, zoneID)
	require.NoError(t, w.store.Save(context.Background(), p))
	return p
}

func TestPlayerJoin_And_Leave(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")

	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))
	assert.Error(t, w.sim.PlayerJoin(context.Background(), "hero"))
	assert.Len(t, w.sim.PlayersInArea("forest"), 1)

	require.NoError(t, w.sim.PlayerLeave(context.Background(), "hero"))
	assert.Empty(t, w.sim.PlayersInArea("forest"))
	assert.ErrorIs(t, w.sim.PlayerLeave(context.Background(), "hero"), world.ErrNotJoined)
}

func TestPlayerJoin_UnknownPlayer(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	assert.ErrorIs(t, w.sim.PlayerJoin(context.Background(), "ghost"), player.ErrNotFound)
}

func TestPlayerJoin_ZoneCapacity(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "first", "hut")
	w.addPlayer(t, "second", "hut")

	require.NoError(t, w.sim.PlayerJoin(context.Background(), "first"))
	assert.ErrorIs(t, w.sim.PlayerJoin(context.Background(), "second"), world.ErrZoneFull)
}

func TestPlayerMove(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	p := w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	require.NoError(t, w.sim.PlayerMove(context.Background(), "hero", "forest", 3, 4))
	assert.Equal(t, 3.0, p.X)
	assert.Equal(t, 4.0, p.Y)

	assert.ErrorIs(t, w.sim.PlayerMove(context.Background(), "hero", "void", 0, 0), world.ErrUnknownZone)
}

func TestPlayerMove_RejectedInBattle(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	_, err = w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, w.sim.PlayerMove(context.Background(), "hero", "forest", 9, 9), world.ErrInBattle)
}

func TestSpawnMonster_CapEnforced(t *testing.T) {
	w := newTestWorld(t, world.Options{})

	_, err := w.sim.SpawnMonster("wolf", "forest", 0, 0)
	require.NoError(t, err)
	_, err = w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	_, err = w.sim.SpawnMonster("wolf", "forest", 2, 2)
	assert.ErrorIs(t, err, world.ErrSpawnCapReached)

	_, err = w.sim.SpawnMonster("dragon", "forest", 0, 0)
	assert.Error(t, err)
	_, err = w.sim.SpawnMonster("wolf", "void", 0, 0)
	assert.ErrorIs(t, err, world.ErrUnknownZone)
}

func TestStartBattle_MonsterInOneBattleOnly(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	w.addPlayer(t, "rival", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "rival"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)

	b, err := w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero", inst.ID}, b.TurnOrder)
	assert.Equal(t, monster.StatusFighting, inst.Status)

	_, err = w.sim.StartBattle("rival", inst.ID)
	assert.ErrorIs(t, err, world.ErrInBattle)

	inst2, err := w.sim.SpawnMonster("wolf", "forest", 2, 2)
	require.NoError(t, err)
	_, err = w.sim.StartBattle("hero", inst2.ID)
	assert.ErrorIs(t, err, world.ErrInBattle)
}

func TestAct_VictoryGrantsRewards(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	p := w.addPlayer(t, "hero", "forest")
	p.Base.Strength = 500
	p.Recompute()
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	b, err := w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)

	// hit roll, midpoint variance, failed crit roll; drop rolls are fixed
	w.src.floats = []float64{0.0, 0.5, 0.99}

	res := w.sim.Act(context.Background(), "hero", "attack", inst.ID, "")
	require.True(t, res.Success)
	assert.True(t, inst.IsDead())
	assert.Equal(t, monster.StatusDead, inst.Status)
	assert.Equal(t, combat.StatusEnded, b.Status)
	assert.Equal(t, combat.ReasonVictory, b.Reason)
	assert.Equal(t, "hero", b.WinnerID)

	assert.Equal(t, int64(15), p.Experience)
	assert.Equal(t, int64(5), p.Gold)
	assert.Equal(t, 1, w.store.items["hero"]["pelt"])

	_, inBattle := w.sim.BattleFor("hero")
	assert.False(t, inBattle)
}

func TestAct_RequiresBattle(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	res := w.sim.Act(context.Background(), "hero", "attack", "wolf-1", "")
	assert.False(t, res.Success)
	assert.Equal(t, combat.FailureState, res.Failure)
}

func TestPlayerLeave_EndsBattle(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	b, err := w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)

	require.NoError(t, w.sim.PlayerLeave(context.Background(), "hero"))
	assert.Equal(t, combat.StatusEnded, b.Status)
	assert.Equal(t, combat.ReasonPlayerLeft, b.Reason)
	assert.Equal(t, monster.StatusIdle, inst.Status)
	assert.Empty(t, inst.TargetPlayerID)
}

func TestTick_MonsterAI_HuntsAndEngages(t *testing.T) {
	w := newTestWorld(t, world.Options{AIInterval: time.Second})
	p := w.addPlayer(t, "hero", "forest")
	p.X, p.Y = 0.5, 0
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 0, 0)
	require.NoError(t, err)

	w.sim.Tick(context.Background())
	assert.Equal(t, monster.StatusHunting, inst.Status)
	assert.Equal(t, "hero", inst.TargetPlayerID)

	w.clock.Advance(time.Second)
	w.sim.Tick(context.Background())
	assert.Equal(t, monster.StatusFighting, inst.Status)

	b, ok := w.sim.BattleFor("hero")
	require.True(t, ok)
	assert.Equal(t, []string{"hero", inst.ID}, b.TurnOrder)
}

func TestTick_MonsterAI_IgnoresOutOfRange(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	p := w.addPlayer(t, "hero", "forest")
	p.X, p.Y = 50, 50
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 0, 0)
	require.NoError(t, err)

	w.sim.Tick(context.Background())
	assert.Equal(t, monster.StatusIdle, inst.Status)
}

func TestScheduleEvent_SpawnFiresOnDueTick(t *testing.T) {
	w := newTestWorld(t, world.Options{})

	ev := w.sim.ScheduleEvent(world.EventSpawn, "forest", map[string]any{
		"template": "wolf",
		"x":        2.0,
		"y":        3.0,
	}, w.clock.Now().Add(time.Minute))
	require.NotNil(t, ev)
	assert.Equal(t, 1, w.sim.GameState().PendingEvents)

	w.sim.Tick(context.Background())
	assert.Empty(t, w.sim.MonstersInArea("forest"))

	w.clock.Advance(2 * time.Minute)
	w.sim.Tick(context.Background())
	require.Len(t, w.sim.MonstersInArea("forest"), 1)
	assert.Equal(t, 0, w.sim.GameState().PendingEvents)
	assert.True(t, ev.Processed)
}

func TestTick_PeriodicSpawning(t *testing.T) {
	w := newTestWorld(t, world.Options{
		SpawnInterval: 30 * time.Second,
		SpawnChance:   100,
	})

	w.sim.Tick(context.Background())
	assert.Len(t, w.sim.MonstersInArea("forest"), 1)

	// Within the interval nothing spawns.
	w.clock.Advance(time.Second)
	w.sim.Tick(context.Background())
	assert.Len(t, w.sim.MonstersInArea("forest"), 1)

	w.clock.Advance(30 * time.Second)
	w.sim.Tick(context.Background())
	assert.Len(t, w.sim.MonstersInArea("forest"), 2)

	// The per-template cap stops further spawning.
	w.clock.Advance(30 * time.Second)
	w.sim.Tick(context.Background())
	assert.Len(t, w.sim.MonstersInArea("forest"), 2)
}

func TestTick_CleanupAfterGraceWindows(t *testing.T) {
	w := newTestWorld(t, world.Options{
		MonsterGrace: time.Minute,
		BattleGrace:  30 * time.Second,
	})
	p := w.addPlayer(t, "hero", "forest")
	p.Base.Strength = 500
	p.Recompute()
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	b, err := w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)

	w.src.floats = []float64{0.0, 0.5, 0.99}
	res := w.sim.Act(context.Background(), "hero", "attack", inst.ID, "")
	require.True(t, res.Success)
	require.Equal(t, monster.StatusDead, inst.Status)

	// Inside the grace windows both records survive.
	w.clock.Advance(10 * time.Second)
	w.sim.Tick(context.Background())
	assert.Len(t, w.sim.MonstersInArea("forest"), 1)
	_, ok := w.sim.Battle(b.ID)
	assert.True(t, ok)

	w.clock.Advance(2 * time.Minute)
	w.sim.Tick(context.Background())
	assert.Empty(t, w.sim.MonstersInArea("forest"))
	_, ok = w.sim.Battle(b.ID)
	assert.False(t, ok)
}

func TestTick_BattleTimeout(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))

	inst, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)
	b, err := w.sim.StartBattle("hero", inst.ID)
	require.NoError(t, err)

	w.clock.Advance(31 * time.Minute)
	w.sim.Tick(context.Background())

	assert.Equal(t, combat.StatusEnded, b.Status)
	assert.Equal(t, combat.ReasonTimeout, b.Reason)
	assert.Equal(t, monster.StatusIdle, inst.Status)
}

func TestStartStop_Idempotent(t *testing.T) {
	w := newTestWorld(t, world.Options{TickPeriod: 10 * time.Millisecond})

	w.sim.Start(context.Background())
	w.sim.Start(context.Background())
	w.sim.Stop()
	w.sim.Stop()
}

func TestGameState_Snapshot(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	w.addPlayer(t, "hero", "forest")
	require.NoError(t, w.sim.PlayerJoin(context.Background(), "hero"))
	_, err := w.sim.SpawnMonster("wolf", "forest", 1, 1)
	require.NoError(t, err)

	snap := w.sim.GameState()
	assert.Equal(t, 1, snap.Players)
	assert.Equal(t, 1, snap.Monsters)
	assert.Equal(t, 0, snap.ActiveBattles)
	assert.Equal(t, w.clock.Now(), snap.CapturedAt)
}

func TestPopulateInitial_FillsToCap(t *testing.T) {
	w := newTestWorld(t, world.Options{})

	w.sim.PopulateInitial()
	assert.Len(t, w.sim.MonstersInArea("forest"), 2)

	// running again does not overfill
	w.sim.PopulateInitial()
	assert.Len(t, w.sim.MonstersInArea("forest"), 2)
}

func TestTick_RegensIdleMonsters(t *testing.T) {
	w := newTestWorld(t, world.Options{})
	inst, err := w.sim.SpawnMonster("wolf", "forest", 0, 0)
	require.NoError(t, err)

	_, maxHP := inst.HP()
	inst.ApplyDamage(10)

	w.sim.Tick(context.Background())
	hp, _ := inst.HP()
	assert.Equal(t, maxHP-9, hp)

	// regen never overshoots max
	inst.ApplyHealing(maxHP)
	w.sim.Tick(context.Background())
	hp, _ = inst.HP()
	assert.Equal(t, maxHP, hp)
}
