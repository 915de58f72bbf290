// Package world implements the authoritative world simulator: the single
// goroutine that owns the player, monster, battle, and event registries and
// advances them on a fixed tick.
package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/combat"
	"github.com/cory-johannsen/realmd/internal/game/monster"
	"github.com/cory-johannsen/realmd/internal/game/player"
	"github.com/cory-johannsen/realmd/internal/game/progression"
	"github.com/cory-johannsen/realmd/internal/game/rng"
	"github.com/cory-johannsen/realmd/internal/game/stats"
)

var (
	ErrZoneFull        = errors.New("zone is at capacity")
	ErrUnknownZone     = errors.New("zone does not exist")
	ErrInBattle        = errors.New("entity is in an active battle")
	ErrSpawnCapReached = errors.New("spawn cap reached for template in zone")
	ErrNotJoined       = errors.New("player is not in the world")
)

// SpawnDirective is one monster placement produced by a spawn script.
type SpawnDirective struct {
	TemplateID string
	X, Y       float64
	Count      int
}

// ScriptRunner evaluates named spawn scripts. Implementations live outside
// this package; a nil runner disables scripted spawning.
type ScriptRunner interface {
	SpawnPlan(script, zoneID string) ([]SpawnDirective, error)
}

// Options carries the simulator's timing and capacity tunables. Zero values
// take sensible defaults.
type Options struct {
	// TickPeriod is the simulation cycle length.
	TickPeriod time.Duration
	// SpawnInterval is how often the probabilistic spawn phase runs.
	SpawnInterval time.Duration
	// SpawnChance is the percent chance each under-cap spawn entry fires
	// per spawn check.
	SpawnChance float64
	// AIInterval rate-limits per-monster AI evaluation.
	AIInterval time.Duration
	// MonsterGrace is how long dead monsters linger before removal.
	MonsterGrace time.Duration
	// BattleGrace is how long ended battles linger before removal.
	BattleGrace time.Duration
	// EventAudit is how long processed events are retained.
	EventAudit time.Duration
	// DefaultZoneCap caps players per zone when the area does not set one.
	DefaultZoneCap int
	// MeleeRange is the distance at which a hunting monster engages.
	MeleeRange float64
	// PlaytimeFlush is how much accumulated playtime triggers a store write.
	PlaytimeFlush time.Duration
}

func (o *Options) withDefaults() {
	if o.TickPeriod <= 0 {
		o.TickPeriod = time.Second
	}
	if o.SpawnInterval <= 0 {
		o.SpawnInterval = 30 * time.Second
	}
	if o.SpawnChance <= 0 {
		o.SpawnChance = 25
	}
	if o.AIInterval <= 0 {
		o.AIInterval = o.TickPeriod
	}
	if o.MonsterGrace <= 0 {
		o.MonsterGrace = 5 * time.Minute
	}
	if o.BattleGrace <= 0 {
		o.BattleGrace = 30 * time.Second
	}
	if o.EventAudit <= 0 {
		o.EventAudit = 5 * time.Minute
	}
	if o.DefaultZoneCap <= 0 {
		o.DefaultZoneCap = 100
	}
	if o.MeleeRange <= 0 {
		o.MeleeRange = 1.5
	}
	if o.PlaytimeFlush <= 0 {
		o.PlaytimeFlush = time.Minute
	}
}

// Snapshot is a point-in-time summary of the simulation.
type Snapshot struct {
	Players       int
	Monsters      int
	ActiveBattles int
	PendingEvents int
	CapturedAt    time.Time
}

// Simulator owns the live world registries. All reads and writes are
// serialised through one goroutine; external calls are delivered over a
// command channel while the simulator runs and execute inline otherwise.
//
// Invariant: a combatant id appears in at most one active battle.
type Simulator struct {
	opts     Options
	data     catalog.Store
	players  player.Store
	resolver *combat.Resolver
	progress *progression.Engine
	scripts  ScriptRunner
	src      rng.Source
	logger   *zap.Logger
	clock    func() time.Time

	activePlayers  map[string]*player.Player
	monsters       *monster.Manager
	battles        map[string]*combat.Battle
	battleByEntity map[string]string
	events         []*Event

	lastSpawnCheck time.Time
	playtimeAccum  map[string]time.Duration

	commands chan func()
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu      sync.Mutex
	running bool
}

// NewSimulator wires a simulator over its collaborators. scripts may be nil.
//
// Precondition: data, players, resolver, progress, src, and logger must be
// non-nil.
func NewSimulator(opts Options, data catalog.Store, players player.Store, resolver *combat.Resolver, progress *progression.Engine, scripts ScriptRunner, src rng.Source, logger *zap.Logger) *Simulator {
	opts.withDefaults()
	return &Simulator{
		opts:           opts,
		data:           data,
		players:        players,
		resolver:       resolver,
		progress:       progress,
		scripts:        scripts,
		src:            src,
		logger:         logger,
		clock:          time.Now,
		activePlayers:  make(map[string]*player.Player),
		monsters:       monster.NewManager(),
		battles:        make(map[string]*combat.Battle),
		battleByEntity: make(map[string]string),
		playtimeAccum:  make(map[string]time.Duration),
		commands:       make(chan func()),
	}
}

// SetClock overrides the simulator's time source.
func (s *Simulator) SetClock(clock func() time.Time) { s.clock = clock }

// Start launches the tick goroutine. Starting an already-running simulator
// logs a warning and returns without error.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("world simulator already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	s.logger.Info("world simulator started",
		zap.Duration("tick_period", s.opts.TickPeriod))
}

// Stop halts the tick goroutine and waits for it to exit. Stopping a stopped
// simulator is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info("world simulator stopped")
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.opts.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			cmd()
		case <-ticker.C:
			s.tick(ctx, s.clock())
		}
	}
}

// dispatch executes fn on the owning goroutine. When the simulator is not
// running, fn executes inline on the caller.
func (s *Simulator) dispatch(fn func()) {
	s.mu.Lock()
	running := s.running
	stopCh := s.stopCh
	s.mu.Unlock()

	if !running {
		fn()
		return
	}
	done := make(chan struct{})
	select {
	case s.commands <- func() { fn(); close(done) }:
		<-done
	case <-stopCh:
		fn()
	}
}

// Tick runs one full simulation cycle immediately.
func (s *Simulator) Tick(ctx context.Context) {
	s.dispatch(func() { s.tick(ctx, s.clock()) })
}

// tick advances the world one cycle: events, monster AI, battles, player
// bookkeeping, spawning, and cleanup. A panic in one phase is contained and
// must not abort the remaining phases or future ticks.
func (s *Simulator) tick(ctx context.Context, now time.Time) {
	s.runPhase("events", func() { s.processEvents(now) })
	s.runPhase("monster_ai", func() { s.runMonsterAI(now) })
	s.runPhase("battles", func() { s.updateBattles(ctx, now) })
	s.runPhase("players", func() {
		s.updatePlayers(ctx)
		s.regenMonsters()
	})
	s.runPhase("spawning", func() { s.spawnCheck(now) })
	s.runPhase("cleanup", func() { s.cleanup(now) })
}

func (s *Simulator) runPhase(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("tick phase panicked",
				zap.String("phase", name),
				zap.Any("panic", rec))
		}
	}()
	fn()
}

// PlayerJoin loads a player, enforces zone capacity, marks them online, and
// registers them in the world.
func (s *Simulator) PlayerJoin(ctx context.Context, playerID string) (err error) {
	s.dispatch(func() {
		if _, ok := s.activePlayers[playerID]; ok {
			err = fmt.Errorf("world: player %q is already in the world", playerID)
			return
		}
		var p *player.Player
		p, err = s.players.Load(ctx, playerID)
		if err != nil {
			err = fmt.Errorf("world: load player %q: %w", playerID, err)
			return
		}
		if capErr := s.checkZoneCapacity(p.ZoneID); capErr != nil {
			err = capErr
			return
		}
		if statusErr := s.players.UpdateOnlineStatus(ctx, playerID, true); statusErr != nil {
			err = fmt.Errorf("world: mark %q online: %w", playerID, statusErr)
			return
		}
		p.Online = true
		s.activePlayers[playerID] = p
		s.logger.Info("player joined world",
			zap.String("player_id", playerID),
			zap.String("zone_id", p.ZoneID))
	})
	return err
}

func (s *Simulator) checkZoneCapacity(zoneID string) error {
	area, ok := s.data.GetArea(zoneID)
	if !ok {
		return fmt.Errorf("world: %w: %q", ErrUnknownZone, zoneID)
	}
	capacity := area.MaxPlayers
	if capacity <= 0 {
		capacity = s.opts.DefaultZoneCap
	}
	count := 0
	for _, p := range s.activePlayers {
		if p.ZoneID == zoneID {
			count++
		}
	}
	if count >= capacity {
		return fmt.Errorf("world: %w: %q holds %d players", ErrZoneFull, zoneID, count)
	}
	return nil
}

// PlayerLeave ends any battle the player is in, marks them offline, and
// deregisters them.
func (s *Simulator) PlayerLeave(ctx context.Context, playerID string) (err error) {
	s.dispatch(func() {
		if _, ok := s.activePlayers[playerID]; !ok {
			err = fmt.Errorf("world: %w: %q", ErrNotJoined, playerID)
			return
		}
		if battleID, ok := s.battleByEntity[playerID]; ok {
			if b, ok := s.battles[battleID]; ok && b.Status == combat.StatusActive {
				s.endBattle(ctx, b, combat.ReasonPlayerLeft, "")
			}
		}
		if statusErr := s.players.UpdateOnlineStatus(ctx, playerID, false); statusErr != nil {
			s.logger.Error("failed to mark player offline",
				zap.String("player_id", playerID),
				zap.Error(statusErr))
		}
		s.flushPlaytime(ctx, playerID)
		delete(s.activePlayers, playerID)
		s.logger.Info("player left world", zap.String("player_id", playerID))
	})
	return err
}

// PlayerMove relocates a player. Rejected while the player is in an active
// battle or when the target zone does not exist.
func (s *Simulator) PlayerMove(ctx context.Context, playerID, zoneID string, x, y float64) (err error) {
	s.dispatch(func() {
		p, ok := s.activePlayers[playerID]
		if !ok {
			err = fmt.Errorf("world: %w: %q", ErrNotJoined, playerID)
			return
		}
		if _, inBattle := s.battleByEntity[playerID]; inBattle {
			err = fmt.Errorf("world: %w: cannot move during battle", ErrInBattle)
			return
		}
		if _, exists := s.data.GetArea(zoneID); !exists {
			err = fmt.Errorf("world: %w: %q", ErrUnknownZone, zoneID)
			return
		}
		if zoneID != p.ZoneID {
			if capErr := s.checkZoneCapacity(zoneID); capErr != nil {
				err = capErr
				return
			}
		}
		p.ZoneID = zoneID
		p.X = x
		p.Y = y
		if saveErr := s.players.UpdateLocation(ctx, playerID, zoneID, x, y); saveErr != nil {
			err = fmt.Errorf("world: persist location for %q: %w", playerID, saveErr)
		}
	})
	return err
}

// SpawnMonster places a monster of templateID in zoneID at (x, y), bounded
// by the zone's per-template spawn cap.
func (s *Simulator) SpawnMonster(templateID, zoneID string, x, y float64) (inst *monster.Instance, err error) {
	s.dispatch(func() {
		inst, err = s.spawnMonster(templateID, zoneID, x, y)
	})
	return inst, err
}

func (s *Simulator) spawnMonster(templateID, zoneID string, x, y float64) (*monster.Instance, error) {
	tmpl, ok := s.data.GetMonster(templateID)
	if !ok {
		return nil, fmt.Errorf("world: unknown monster template %q", templateID)
	}
	area, ok := s.data.GetArea(zoneID)
	if !ok {
		return nil, fmt.Errorf("world: %w: %q", ErrUnknownZone, zoneID)
	}
	for _, spawn := range area.Spawns {
		if spawn.Template != templateID {
			continue
		}
		if s.monsters.CountInZone(zoneID, templateID) >= spawn.MaxInstances {
			return nil, fmt.Errorf("world: %w: %q in %q", ErrSpawnCapReached, templateID, zoneID)
		}
		break
	}
	inst, err := s.monsters.Spawn(tmpl, zoneID, x, y, s.clock())
	if err != nil {
		return nil, fmt.Errorf("world: spawn %q: %w", templateID, err)
	}
	s.logger.Debug("monster spawned",
		zap.String("instance_id", inst.ID),
		zap.String("template_id", templateID),
		zap.String("zone_id", zoneID))
	return inst, nil
}

// StartBattle engages a player with a monster instance. Rejected when either
// party already participates in an active battle.
func (s *Simulator) StartBattle(playerID, monsterID string) (b *combat.Battle, err error) {
	s.dispatch(func() {
		b, err = s.startBattle(playerID, monsterID)
	})
	return b, err
}

func (s *Simulator) startBattle(playerID, monsterID string) (*combat.Battle, error) {
	p, ok := s.activePlayers[playerID]
	if !ok {
		return nil, fmt.Errorf("world: %w: %q", ErrNotJoined, playerID)
	}
	inst, ok := s.monsters.Get(monsterID)
	if !ok {
		return nil, fmt.Errorf("world: unknown monster instance %q", monsterID)
	}
	if inst.Status == monster.StatusDead {
		return nil, fmt.Errorf("world: monster %q is dead", monsterID)
	}
	if _, busy := s.battleByEntity[playerID]; busy {
		return nil, fmt.Errorf("world: %w: player %q", ErrInBattle, playerID)
	}
	if _, busy := s.battleByEntity[monsterID]; busy {
		return nil, fmt.Errorf("world: %w: monster %q", ErrInBattle, monsterID)
	}

	b, err := combat.NewBattle(inst.ZoneID, s.clock(), p, inst)
	if err != nil {
		return nil, fmt.Errorf("world: create battle: %w", err)
	}
	s.battles[b.ID] = b
	s.battleByEntity[playerID] = b.ID
	s.battleByEntity[monsterID] = b.ID
	inst.Status = monster.StatusFighting
	s.logger.Info("battle started",
		zap.String("battle_id", b.ID),
		zap.String("player_id", playerID),
		zap.String("monster_id", monsterID))
	return b, nil
}

// Battle returns an active or recently-ended battle by id.
func (s *Simulator) Battle(battleID string) (b *combat.Battle, ok bool) {
	s.dispatch(func() { b, ok = s.battles[battleID] })
	return b, ok
}

// BattleFor returns the battle the given entity currently participates in.
func (s *Simulator) BattleFor(entityID string) (b *combat.Battle, ok bool) {
	s.dispatch(func() {
		battleID, found := s.battleByEntity[entityID]
		if !found {
			return
		}
		b, ok = s.battles[battleID]
	})
	return b, ok
}

// Act resolves one player combat action inside the simulation context.
// action is one of "attack", "skill", "item", "defend", "flee"; ref names
// the skill or item where applicable.
func (s *Simulator) Act(ctx context.Context, playerID, action, targetID, ref string) (result combat.ActionResult) {
	s.dispatch(func() {
		battleID, ok := s.battleByEntity[playerID]
		if !ok {
			result = combat.ActionResult{Failure: combat.FailureState, Message: "not in a battle"}
			return
		}
		b := s.battles[battleID]
		switch action {
		case "attack":
			result = s.resolver.Attack(b, playerID, targetID)
		case "skill":
			result = s.resolver.UseSkill(b, playerID, targetID, ref)
		case "item":
			result = s.resolver.UseItem(ctx, b, playerID, ref)
		case "defend":
			result = s.resolver.Defend(b, playerID)
		case "flee":
			result = s.resolver.Flee(b, playerID)
		default:
			result = combat.ActionResult{Failure: combat.FailureValidation, Message: fmt.Sprintf("unknown action %q", action)}
			return
		}
		if result.Success {
			if b.Status != combat.StatusActive {
				s.finalizeBattle(ctx, b)
			} else if end := s.resolver.CheckBattleEnd(b, s.clock()); end.Ended {
				s.finalizeBattle(ctx, b)
			}
		}
	})
	return result
}

// ScheduleEvent queues a world event for the first tick at or after
// triggerTime.
func (s *Simulator) ScheduleEvent(eventType EventType, zoneID string, payload map[string]any, triggerTime time.Time) (ev *Event) {
	s.dispatch(func() {
		ev = newEvent(eventType, zoneID, payload, triggerTime)
		s.events = append(s.events, ev)
	})
	return ev
}

// GameState returns a summary snapshot of the simulation.
func (s *Simulator) GameState() (snap Snapshot) {
	s.dispatch(func() {
		pending := 0
		for _, ev := range s.events {
			if !ev.Processed {
				pending++
			}
		}
		active := 0
		for _, b := range s.battles {
			if b.Status == combat.StatusActive {
				active++
			}
		}
		snap = Snapshot{
			Players:       len(s.activePlayers),
			Monsters:      s.monsters.Count(),
			ActiveBattles: active,
			PendingEvents: pending,
			CapturedAt:    s.clock(),
		}
	})
	return snap
}

// PlayersInArea returns the active players in zoneID.
func (s *Simulator) PlayersInArea(zoneID string) (out []*player.Player) {
	s.dispatch(func() {
		for _, p := range s.activePlayers {
			if p.ZoneID == zoneID {
				out = append(out, p)
			}
		}
	})
	return out
}

// MonstersInArea returns the live monster instances in zoneID.
func (s *Simulator) MonstersInArea(zoneID string) (out []*monster.Instance) {
	s.dispatch(func() { out = s.monsters.InZone(zoneID) })
	return out
}

// processEvents fires due events and evicts processed ones past the audit
// window.
func (s *Simulator) processEvents(now time.Time) {
	for _, ev := range s.events {
		if ev.Processed || ev.TriggerTime.After(now) {
			continue
		}
		s.handleEvent(ev)
		ev.Processed = true
		ev.ProcessedAt = now
	}

	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.Processed && now.Sub(ev.ProcessedAt) > s.opts.EventAudit {
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
}

func (s *Simulator) handleEvent(ev *Event) {
	switch ev.Type {
	case EventSpawn:
		_, err := s.spawnMonster(ev.payloadString("template"), ev.ZoneID, ev.payloadFloat("x"), ev.payloadFloat("y"))
		if err != nil {
			s.logger.Warn("spawn event failed",
				zap.String("event_id", ev.ID),
				zap.Error(err))
		}
	case EventScript:
		s.runSpawnScript(ev.payloadString("script"), ev.ZoneID)
	case EventAnnouncement:
		s.logger.Info("world announcement",
			zap.String("zone_id", ev.ZoneID),
			zap.String("message", ev.payloadString("message")))
	default:
		s.logger.Warn("unknown event type",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)))
	}
}

func (s *Simulator) runSpawnScript(script, zoneID string) {
	if s.scripts == nil || script == "" {
		return
	}
	directives, err := s.scripts.SpawnPlan(script, zoneID)
	if err != nil {
		s.logger.Warn("spawn script failed",
			zap.String("script", script),
			zap.String("zone_id", zoneID),
			zap.Error(err))
		return
	}
	for _, d := range directives {
		count := d.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if _, err := s.spawnMonster(d.TemplateID, zoneID, d.X, d.Y); err != nil {
				s.logger.Debug("scripted spawn skipped", zap.Error(err))
				break
			}
		}
	}
}

// runMonsterAI evaluates idle and hunting monsters and lets fighting
// monsters take their battle turn. Evaluation is rate-limited per monster.
func (s *Simulator) runMonsterAI(now time.Time) {
	for _, inst := range s.monsters.All() {
		if inst.Status == monster.StatusDead {
			continue
		}
		if now.Sub(inst.LastAIAt) < s.opts.AIInterval {
			continue
		}
		inst.LastAIAt = now

		switch inst.Status {
		case monster.StatusIdle:
			s.aiScan(inst)
		case monster.StatusHunting:
			s.aiHunt(inst)
		case monster.StatusFighting:
			s.aiFight(inst)
		}
	}
}

// aiScan transitions an aggressive idle monster to hunting when a player is
// inside its detection range, targeting the nearest one.
func (s *Simulator) aiScan(inst *monster.Instance) {
	if !inst.Aggressive {
		return
	}
	var nearest *player.Player
	nearestDist := inst.DetectionRange
	for _, p := range s.activePlayers {
		if p.ZoneID != inst.ZoneID {
			continue
		}
		dist := inst.DistanceTo(p.X, p.Y)
		if dist <= nearestDist {
			nearest = p
			nearestDist = dist
		}
	}
	if nearest == nil {
		return
	}
	inst.Status = monster.StatusHunting
	inst.TargetPlayerID = nearest.ID
	s.logger.Debug("monster hunting",
		zap.String("instance_id", inst.ID),
		zap.String("target_id", nearest.ID))
}

// aiHunt closes on the target and engages at melee range. The target
// disappearing or leaving the zone resets the monster to idle.
func (s *Simulator) aiHunt(inst *monster.Instance) {
	target, ok := s.activePlayers[inst.TargetPlayerID]
	if !ok || target.ZoneID != inst.ZoneID {
		inst.Status = monster.StatusIdle
		inst.TargetPlayerID = ""
		return
	}
	if _, busy := s.battleByEntity[target.ID]; busy {
		inst.Status = monster.StatusIdle
		inst.TargetPlayerID = ""
		return
	}
	if inst.DistanceTo(target.X, target.Y) > s.opts.MeleeRange {
		return
	}
	if _, err := s.startBattle(target.ID, inst.ID); err != nil {
		s.logger.Debug("hunt engagement failed",
			zap.String("instance_id", inst.ID),
			zap.Error(err))
		inst.Status = monster.StatusIdle
		inst.TargetPlayerID = ""
	}
}

// aiFight takes the monster's battle turn when it is the current actor,
// attacking the first living player participant.
func (s *Simulator) aiFight(inst *monster.Instance) {
	battleID, ok := s.battleByEntity[inst.ID]
	if !ok {
		inst.Status = monster.StatusIdle
		return
	}
	b := s.battles[battleID]
	if b == nil || b.Status != combat.StatusActive {
		return
	}
	if b.CurrentActorID() != inst.ID {
		return
	}
	var target *combat.Participant
	for _, p := range b.AliveParticipants() {
		if p.Combatant.CombatKind() == stats.KindPlayer {
			target = p
			break
		}
	}
	if target == nil {
		return
	}
	result := s.resolver.Attack(b, inst.ID, target.ID())
	if !result.Success {
		s.logger.Debug("monster attack failed",
			zap.String("instance_id", inst.ID),
			zap.String("message", result.Message))
	}
}

// updateBattles detects ended battles and finalises them.
func (s *Simulator) updateBattles(ctx context.Context, now time.Time) {
	for _, b := range s.battles {
		if b.Status != combat.StatusActive {
			continue
		}
		end := s.resolver.CheckBattleEnd(b, now)
		if !end.Ended {
			continue
		}
		s.finalizeBattle(ctx, b)
	}
}

// finalizeBattle settles a battle that has reached an end state: rewards on
// player victory, monster status transitions, and registry unlinking.
func (s *Simulator) finalizeBattle(ctx context.Context, b *combat.Battle) {
	if b.Status == combat.StatusActive {
		s.resolver.CheckBattleEnd(b, s.clock())
	}
	if b.Status == combat.StatusActive {
		return
	}

	if b.Reason == combat.ReasonVictory && b.WinnerID != "" {
		if winner, ok := s.activePlayers[b.WinnerID]; ok {
			s.grantVictoryRewards(ctx, winner, b)
		}
	}
	s.settleMonsters(b)
	for _, p := range b.Participants {
		if s.battleByEntity[p.ID()] == b.ID {
			delete(s.battleByEntity, p.ID())
		}
	}
	s.logger.Info("battle ended",
		zap.String("battle_id", b.ID),
		zap.String("reason", string(b.Reason)),
		zap.String("winner_id", b.WinnerID))
}

// endBattle forcibly ends an active battle with the given reason.
func (s *Simulator) endBattle(ctx context.Context, b *combat.Battle, reason combat.EndReason, winnerID string) {
	b.End(reason, winnerID, s.clock())
	s.finalizeBattle(ctx, b)
}

// settleMonsters moves each monster participant to dead or back to idle.
func (s *Simulator) settleMonsters(b *combat.Battle) {
	for _, part := range b.Participants {
		if part.Combatant.CombatKind() != stats.KindMonster {
			continue
		}
		inst, ok := s.monsters.Get(part.ID())
		if !ok {
			continue
		}
		if inst.IsDead() {
			inst.Status = monster.StatusDead
			inst.DiedAt = s.clock()
		} else {
			inst.Status = monster.StatusIdle
			inst.TargetPlayerID = ""
		}
	}
}

// grantVictoryRewards rolls and applies battle spoils for a player winner,
// then refreshes the in-memory record from the store so progression fields
// stay authoritative.
func (s *Simulator) grantVictoryRewards(ctx context.Context, winner *player.Player, b *combat.Battle) {
	var defeated []*catalog.Monster
	for _, part := range b.Participants {
		if part.Combatant.CombatKind() != stats.KindMonster || part.Alive() {
			continue
		}
		inst, ok := s.monsters.Get(part.ID())
		if !ok {
			continue
		}
		if tmpl, ok := s.data.GetMonster(inst.TemplateID); ok {
			defeated = append(defeated, tmpl)
		}
	}
	if len(defeated) == 0 {
		return
	}

	rewards := combat.CalculateBattleRewards(winner, defeated, s.src)

	winner.Gold += rewards.Gold
	if err := s.players.Save(ctx, winner); err != nil {
		s.logger.Error("failed to persist battle gold",
			zap.String("player_id", winner.ID),
			zap.Error(err))
	}
	for _, item := range rewards.Items {
		if err := s.players.AddItem(ctx, winner.ID, item.ItemID, item.Quantity); err != nil {
			s.logger.Error("failed to grant battle item",
				zap.String("player_id", winner.ID),
				zap.String("item_id", item.ItemID),
				zap.Error(err))
		}
	}
	if rewards.Experience > 0 {
		if _, err := s.progress.AddExperience(ctx, winner.ID, rewards.Experience, "combat", 1.0); err != nil {
			s.logger.Error("failed to grant battle experience",
				zap.String("player_id", winner.ID),
				zap.Error(err))
		}
	}

	if fresh, err := s.players.Load(ctx, winner.ID); err == nil {
		winner.Level = fresh.Level
		winner.Experience = fresh.Experience
		winner.ExperienceToNext = fresh.ExperienceToNext
		winner.StatPoints = fresh.StatPoints
		winner.SkillPoints = fresh.SkillPoints
		winner.Gold = fresh.Gold
		winner.Recompute()
	}

	s.logger.Info("battle rewards granted",
		zap.String("player_id", winner.ID),
		zap.Int64("experience", rewards.Experience),
		zap.Int64("gold", rewards.Gold),
		zap.Int("item_stacks", len(rewards.Items)))
}

// updatePlayers accumulates playtime and flushes it periodically.
func (s *Simulator) updatePlayers(ctx context.Context) {
	for id := range s.activePlayers {
		s.playtimeAccum[id] += s.opts.TickPeriod
		if s.playtimeAccum[id] >= s.opts.PlaytimeFlush {
			s.flushPlaytime(ctx, id)
		}
	}
}

func (s *Simulator) flushPlaytime(ctx context.Context, playerID string) {
	accum := s.playtimeAccum[playerID]
	seconds := int64(accum / time.Second)
	if seconds <= 0 {
		return
	}
	if err := s.players.AddPlaytime(ctx, playerID, seconds); err != nil {
		s.logger.Error("failed to persist playtime",
			zap.String("player_id", playerID),
			zap.Error(err))
		return
	}
	if p, ok := s.activePlayers[playerID]; ok {
		p.PlaytimeSeconds += seconds
	}
	s.playtimeAccum[playerID] = accum - time.Duration(seconds)*time.Second
}

// regenMonsters restores a sliver of HP per tick to monsters that are out
// of combat.
func (s *Simulator) regenMonsters() {
	for _, inst := range s.monsters.All() {
		if inst.Status == monster.StatusFighting || inst.Status == monster.StatusDead {
			continue
		}
		hp, maxHP := inst.HP()
		if hp >= maxHP {
			continue
		}
		amount := maxHP / 100
		if amount < 1 {
			amount = 1
		}
		inst.ApplyHealing(amount)
	}
}

// PopulateInitial fills every area's configured spawns up to their caps.
// Scripted spawn configs run their spawn plan once. Meant to run before the
// tick loop starts so the world is not empty when the first player joins.
func (s *Simulator) PopulateInitial() {
	s.dispatch(func() {
		for _, area := range s.data.AllAreas() {
			for _, spawn := range area.Spawns {
				if spawn.Script != "" {
					s.runSpawnScript(spawn.Script, area.ID)
					continue
				}
				for s.monsters.CountInZone(area.ID, spawn.Template) < spawn.MaxInstances {
					if _, err := s.spawnMonster(spawn.Template, area.ID, spawn.X, spawn.Y); err != nil {
						s.logger.Warn("initial spawn failed",
							zap.String("zone_id", area.ID),
							zap.String("template_id", spawn.Template),
							zap.Error(err))
						break
					}
				}
			}
		}
	})
}

// spawnCheck probabilistically tops up each area's configured spawns.
func (s *Simulator) spawnCheck(now time.Time) {
	if now.Sub(s.lastSpawnCheck) < s.opts.SpawnInterval {
		return
	}
	s.lastSpawnCheck = now

	for _, area := range s.data.AllAreas() {
		for _, spawn := range area.Spawns {
			if s.monsters.CountInZone(area.ID, spawn.Template) >= spawn.MaxInstances {
				continue
			}
			if !rng.Chance(s.src, s.opts.SpawnChance) {
				continue
			}
			if spawn.Script != "" {
				s.runSpawnScript(spawn.Script, area.ID)
				continue
			}
			if _, err := s.spawnMonster(spawn.Template, area.ID, spawn.X, spawn.Y); err != nil {
				s.logger.Debug("periodic spawn skipped", zap.Error(err))
			}
		}
	}
}

// cleanup evicts dead monsters and ended battles past their grace windows.
func (s *Simulator) cleanup(now time.Time) {
	for _, inst := range s.monsters.All() {
		if inst.Status != monster.StatusDead {
			continue
		}
		if now.Sub(inst.DiedAt) > s.opts.MonsterGrace {
			if err := s.monsters.Remove(inst.ID); err != nil {
				s.logger.Error("failed to remove dead monster",
					zap.String("instance_id", inst.ID),
					zap.Error(err))
			}
		}
	}
	for id, b := range s.battles {
		if b.Status == combat.StatusEnded && now.Sub(b.EndedAt) > s.opts.BattleGrace {
			delete(s.battles, id)
		}
	}
}
