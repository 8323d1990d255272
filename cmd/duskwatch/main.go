package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/duskwatch/server/internal/config"
	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/data"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/metrics"
	"github.com/duskwatch/server/internal/persist"
	"github.com/duskwatch/server/internal/scripting"
	"github.com/duskwatch/server/internal/system"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             duskwatch  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       day/night encounter simulation      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("DUSKWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to server.toml")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	for _, w := range cfg.Warnings() {
		log.Warn("config", zap.String("warning", w))
	}

	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Static data
	printSection("Data")
	archetypes, err := data.LoadArchetypeTable(cfg.World.Archetypes)
	if err != nil {
		return fmt.Errorf("archetypes: %w", err)
	}
	printStat("Archetypes", archetypes.Count())

	waves, err := loadWaveTables(cfg.Encounter.WaveTables, log)
	if err != nil {
		return fmt.Errorf("wave tables: %w", err)
	}
	printStat("Phase wave tables", waves.Count())
	for _, id := range waves.Archetypes() {
		if archetypes.Get(id) == nil {
			log.Warn("wave archetype not in archetype list, default footprint used", zap.String("archetype", id))
		}
	}
	fmt.Println()

	// 4. Telemetry sink
	printSection("Telemetry")
	var sink system.TelemetrySink = system.NewLogSink(log.Named("telemetry"))
	var repo *persist.TelemetryRepo
	if cfg.Telemetry.Enabled {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Telemetry, log)
		if err != nil {
			cancel()
			return fmt.Errorf("telemetry database: %w", err)
		}
		defer db.Close()
		if _, err := db.Migrate(dbCtx); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		cancel()
		repo = persist.NewTelemetryRepo(db)
		sink = repo
		printOK("PostgreSQL telemetry sink ready")
	} else {
		printOK("Telemetry to debug log")
	}
	fmt.Println()

	// 5. World
	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	ws := world.NewState(ecsWorld, archetypes, cfg.World.HashCellSize)
	ws.AddGround(geom.Box(geom.Vec2{}, cfg.World.GroundHalfExtent))
	ws.SetPlayer(geom.Vec2{X: cfg.World.PatrolRadius})

	camera := world.NewCamera(cfg.Camera.OrthoSize, cfg.Camera.Aspect, cfg.Camera.SmoothTime)
	if p, ok := ws.PlayerPosition(); ok {
		camera.SnapTo(p)
	}
	wallet := world.NewWallet(cfg.Funding.StartingBalance)
	grid := world.NewBuildGrid(cfg.Build.CellSize, ws, cfg.Build.ProbeHeight, cfg.Build.ProbeLength)

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// 6. Systems, registered in tick order within each phase
	clock := system.NewPhaseClock(system.ClockConfig{
		DayDuration:     cfg.Clock.DayDuration,
		NightDuration:   cfg.Clock.NightDuration,
		BloodMoonPeriod: cfg.Clock.BloodMoonPeriod,
	}, bus, log.Named("clock"))

	resolver := system.NewSpawnResolver(system.SpawnConfig{
		MinDistance:     cfg.Spawn.MinDistance,
		MaxDistance:     cfg.Spawn.MaxDistance,
		AttemptBudget:   cfg.Spawn.AttemptBudget,
		ProbeHalfExtent: cfg.Spawn.ProbeHalfExtent,
	}, rng)
	spawner := system.NewOffscreenSpawner(resolver, ws, camera, ws, bus, log.Named("spawn"))
	scheduler := system.NewEncounterScheduler(waves, spawner, bus, log.Named("encounter"))
	defer scheduler.Close()

	build := system.NewBuildController(system.BuildConfig{
		MaxBuildDistance:   cfg.Build.MaxBuildDistance,
		StructureCost:      cfg.Build.StructureCost,
		StructureArchetype: cfg.Build.StructureArchetype,
		PlacementEffect:    cfg.Build.PlacementEffect,
		PreviewCooldown:    cfg.Build.PreviewCooldown,
	}, grid, wallet, ws, ws, bus, log.Named("build"))

	income := system.NewIncomeSystem(wallet, cfg.Funding.IncomePerDay, bus, log.Named("income"))
	defer income.Close()

	telemetry := system.NewTelemetrySystem(sink, bus, log, cfg.Telemetry.BatchSize, cfg.Telemetry.FlushInterval)
	telemetry.SampleFrames(ws, wallet, cfg.Telemetry.SampleInterval)
	defer closeTelemetry(telemetry, repo, log)

	var sampler *metrics.Sampler
	if cfg.Metrics.Enabled {
		m := metrics.New()
		m.Bind(bus)
		defer m.Close()
		m.Gauge("wallet_balance", "Current funding balance.", func() float64 { return float64(wallet.Balance()) })
		sampler = m.NewSampler()
		sampler.Track("live_entities", "Live entities in the world.", func() float64 { return float64(ecsWorld.Live()) })
		sampler.Track("live_run", "1 while an encounter run is active.", func() float64 {
			if _, ok := scheduler.Live(); ok {
				return 1
			}
			return 0
		})
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.BindAddress, log); err != nil {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewPatrolSystem(ws, geom.Vec2{}, cfg.World.PatrolRadius, cfg.World.MoveSpeed))
	if cfg.Loop.Autopilot {
		runner.Register(system.NewAutopilotSystem(build, ws, cfg.Build.CellSize, 15*time.Second))
	}
	runner.Register(system.NewCameraSystem(camera, ws))
	runner.Register(clock)
	runner.Register(scheduler)
	runner.Register(build)
	runner.Register(system.NewLifetimeSystem(ws, log.Named("lifetime")))
	runner.Register(telemetry)
	if sampler != nil {
		runner.Register(sampler)
	}
	runner.Register(system.NewCleanupSystem(ecsWorld))

	clock.Start()

	// 7. Game loop
	printSection("Ready")
	printReady(fmt.Sprintf("Game loop running (tick: %s)", cfg.Loop.TickRate))
	if cfg.Loop.MaxTicks > 0 {
		printReady(fmt.Sprintf("Stopping after %d ticks", cfg.Loop.MaxTicks))
	}
	fmt.Println()

	var tick <-chan time.Time
	if cfg.Loop.Realtime {
		ticker := time.NewTicker(cfg.Loop.TickRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				log.Info("shutdown signal received")
				return shutdown(log, clock, ecsWorld, wallet)
			}
		} else if ctx.Err() != nil {
			return shutdown(log, clock, ecsWorld, wallet)
		}

		runner.Tick(cfg.Loop.TickRate)
		if cfg.Loop.MaxTicks > 0 && runner.Ticks() >= cfg.Loop.MaxTicks {
			log.Info("tick limit reached", zap.Uint64("ticks", runner.Ticks()))
			return shutdown(log, clock, ecsWorld, wallet)
		}
	}
}

func shutdown(log *zap.Logger, clock *system.PhaseClock, w *ecs.World, wallet *world.Wallet) error {
	log.Info("stopped",
		zap.Int("day", clock.Day()),
		zap.Stringer("phase", clock.Current()),
		zap.Duration("phase_elapsed", clock.Elapsed()),
		zap.Int("entities", w.Live()),
		zap.Int("balance", wallet.Balance()))
	return nil
}

// closeTelemetry drains the writer and, with a database sink, reports how
// many rows the session stored.
func closeTelemetry(t *system.TelemetrySystem, repo *persist.TelemetryRepo, log *zap.Logger) {
	t.Close()
	if repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := repo.CountSession(ctx, t.Session())
	if err != nil {
		log.Warn("telemetry row count failed", zap.Error(err))
		return
	}
	log.Info("telemetry session stored", zap.Stringer("session", t.Session()), zap.Int("rows", n))
}

// loadWaveTables picks the loader from the file extension.
func loadWaveTables(path string, log *zap.Logger) (*data.WaveTables, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return scripting.LoadWaveTables(path, log)
	case ".yaml", ".yml":
		return data.LoadWaveTables(path)
	default:
		return nil, fmt.Errorf("unsupported wave table format %q", path)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
