package system

import (
	"time"

	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/data"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
)

// Spawner creates one enemy of the given archetype somewhere sensible.
// Returning false means no position was found; the request is skipped.
type Spawner interface {
	Spawn(archetype string) bool
}

// RunInfo is a snapshot of the live scheduler run.
type RunInfo struct {
	ID           uint64
	Phase        world.Phase
	Wave         int
	Spawned      int // spawns issued in the current wave
	Remaining    time.Duration
	BetweenWaves bool
}

// schedulerRun executes one phase table. It is a plain state machine advanced
// by Update; superseding a run is just dropping the pointer.
type schedulerRun struct {
	id           uint64
	phase        world.Phase
	table        *data.PhaseWaveTable
	wave         int
	spawned      int
	remaining    time.Duration
	betweenWaves bool
	fresh        bool // created this tick, starts counting next tick
}

// EncounterScheduler runs the wave table of each phase the clock enters.
// Exactly one run is live at a time; every PhaseChanged or BloodMoonStarted
// notification replaces it. Phase 2 (Update), after the PhaseClock.
type EncounterScheduler struct {
	tables  *data.WaveTables
	spawner Spawner
	bus     *event.Bus
	log     *zap.Logger
	subs    event.Group

	run    *schedulerRun
	nextID uint64
}

func NewEncounterScheduler(tables *data.WaveTables, spawner Spawner, bus *event.Bus, log *zap.Logger) *EncounterScheduler {
	s := &EncounterScheduler{
		tables:  tables,
		spawner: spawner,
		bus:     bus,
		log:     log,
	}
	if spawner == nil {
		log.Error("encounter scheduler has no spawner, scheduling disabled")
		return s
	}
	s.subs.Add(event.Subscribe(bus, func(ev event.PhaseChanged) {
		s.begin(ev.Phase)
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.BloodMoonStarted) {
		s.begin(world.PhaseBloodMoon)
	}))
	return s
}

func (s *EncounterScheduler) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Close drops the bus subscriptions and abandons the live run.
func (s *EncounterScheduler) Close() {
	s.subs.Close()
	s.run = nil
}

// Live returns the current run, if any.
func (s *EncounterScheduler) Live() (RunInfo, bool) {
	r := s.run
	if r == nil {
		return RunInfo{}, false
	}
	return RunInfo{
		ID:           r.id,
		Phase:        r.phase,
		Wave:         r.wave,
		Spawned:      r.spawned,
		Remaining:    r.remaining,
		BetweenWaves: r.betweenWaves,
	}, true
}

func (s *EncounterScheduler) begin(phase world.Phase) {
	if prev := s.run; prev != nil {
		s.log.Debug("run superseded",
			zap.Uint64("run", prev.id),
			zap.Stringer("phase", prev.phase),
			zap.Int("wave", prev.wave),
			zap.Int("spawned", prev.spawned))
	}
	s.run = nil
	s.nextID++

	table := s.tables.Get(phase)
	if table == nil || len(table.Waves) == 0 {
		s.log.Debug("no waves for phase, idle", zap.Stringer("phase", phase))
		return
	}

	r := &schedulerRun{
		id:        s.nextID,
		phase:     phase,
		table:     table,
		remaining: table.Waves[0].SpawnInterval,
		fresh:     true,
	}
	s.run = r
	s.log.Info("encounter run started",
		zap.Uint64("run", r.id),
		zap.Stringer("phase", phase),
		zap.Int("waves", len(table.Waves)),
		zap.Int("spawns", table.TotalSpawns()),
		zap.Duration("length", table.Duration()))
	s.waveStarted(r)
}

func (s *EncounterScheduler) Update(dt time.Duration) {
	r := s.run
	if r == nil {
		return
	}
	if r.fresh {
		r.fresh = false
		return
	}
	r.remaining -= dt
	for s.run == r && r.remaining <= 0 {
		s.step(r)
	}
	if s.run != nil && s.run != r {
		// replaced during this update; this tick is already spent
		s.run.fresh = false
	}
}

// step performs the action r is waiting on and schedules the next wait.
func (s *EncounterScheduler) step(r *schedulerRun) {
	if r.betweenWaves {
		r.betweenWaves = false
		r.wave++
		r.spawned = 0
		r.remaining += r.table.Waves[r.wave].SpawnInterval
		s.waveStarted(r)
		return
	}

	w := r.table.Waves[r.wave]
	s.spawner.Spawn(w.Archetype)
	if s.run != r {
		// a handler reacting to the spawn replaced this run
		return
	}
	r.spawned++
	if r.spawned < w.Count {
		r.remaining += w.SpawnInterval
		return
	}

	if r.wave+1 < len(r.table.Waves) {
		r.betweenWaves = true
		r.remaining += r.table.TimeBetweenWaves
		return
	}

	s.run = nil
	s.log.Info("encounter run completed", zap.Uint64("run", r.id), zap.Stringer("phase", r.phase))
	event.Emit(s.bus, event.RunCompleted{RunID: r.id, Phase: r.phase})
}

func (s *EncounterScheduler) waveStarted(r *schedulerRun) {
	w := r.table.Waves[r.wave]
	s.log.Debug("wave started",
		zap.Uint64("run", r.id),
		zap.Int("wave", r.wave+1),
		zap.String("archetype", w.Archetype),
		zap.Int("count", w.Count))
	event.Emit(s.bus, event.WaveStarted{
		RunID:     r.id,
		Phase:     r.phase,
		Wave:      r.wave,
		Archetype: w.Archetype,
		Count:     w.Count,
	})
}
