// Package main provides the world server binary that loads game content,
// connects to PostgreSQL, and runs the world simulation loop.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/config"
	"github.com/cory-johannsen/realmd/internal/game/catalog"
	"github.com/cory-johannsen/realmd/internal/game/combat"
	"github.com/cory-johannsen/realmd/internal/game/progression"
	"github.com/cory-johannsen/realmd/internal/game/rng"
	"github.com/cory-johannsen/realmd/internal/game/world"
	"github.com/cory-johannsen/realmd/internal/observability"
	"github.com/cory-johannsen/realmd/internal/scripting"
	"github.com/cory-johannsen/realmd/internal/server"
	"github.com/cory-johannsen/realmd/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting world server")

	// Load the content catalog.
	contentStart := time.Now()
	data := catalog.NewCatalog()
	if err := data.LoadDir(cfg.Content.Dir); err != nil {
		logger.Fatal("loading content", zap.String("dir", cfg.Content.Dir), zap.Error(err))
	}
	if err := data.Verify(); err != nil {
		logger.Fatal("verifying content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("areas", len(data.AllAreas())),
		zap.Int("skills", len(data.AllSkills())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Load spawn scripts.
	scripts := scripting.NewEngine(logger, cfg.Content.ScriptInstructionLimit)
	if err := scripts.LoadDir(cfg.Content.ScriptDir); err != nil {
		logger.Fatal("loading spawn scripts", zap.String("dir", cfg.Content.ScriptDir), zap.Error(err))
	}

	// Connect to PostgreSQL for player persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	players := postgres.NewPlayerRepository(pool.DB())

	// Build the engines.
	src := rng.NewCryptoSource()
	resolver := combat.NewResolver(data, players, src, logger)
	progress := progression.NewEngine(players, logger)

	sim := world.NewSimulator(world.Options{
		TickPeriod:     cfg.World.TickPeriod,
		SpawnInterval:  cfg.World.SpawnInterval,
		SpawnChance:    cfg.World.SpawnChance,
		AIInterval:     cfg.World.AIInterval,
		MonsterGrace:   cfg.World.MonsterGrace,
		BattleGrace:    cfg.World.BattleGrace,
		EventAudit:     cfg.World.EventAudit,
		DefaultZoneCap: cfg.World.DefaultZoneCap,
		MeleeRange:     cfg.World.MeleeRange,
	}, data, players, resolver, progress, scripts, src, logger)

	// Wire lifecycle.
	lifecycle := server.NewLifecycle(logger)

	simDone := make(chan struct{})
	lifecycle.Add("simulator", &server.FuncService{
		StartFn: func() error {
			sim.PopulateInitial()
			sim.Start(ctx)
			<-simDone
			return nil
		},
		StopFn: func() {
			sim.Stop()
			close(simDone)
		},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	logger.Info("world server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
