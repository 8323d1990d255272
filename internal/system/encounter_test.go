package system

import (
	"testing"
	"time"

	"github.com/duskwatch/server/internal/core/event"
	"github.com/duskwatch/server/internal/data"
	"github.com/duskwatch/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type spawnCall struct {
	archetype string
	tick      int
}

// fakeSpawner records requests; onSpawn may react synchronously.
type fakeSpawner struct {
	calls   []spawnCall
	tick    int
	result  bool
	onSpawn func(n int)
}

func (f *fakeSpawner) Spawn(archetype string) bool {
	f.calls = append(f.calls, spawnCall{archetype: archetype, tick: f.tick})
	if f.onSpawn != nil {
		f.onSpawn(len(f.calls))
	}
	return f.result
}

func (f *fakeSpawner) archetypes() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.archetype
	}
	return out
}

func testWaveTables(t *testing.T) *data.WaveTables {
	t.Helper()
	tables, err := data.NewWaveTables([]data.PhaseWaveTable{
		{
			Phase:            world.PhaseNight,
			TimeBetweenWaves: 5 * time.Second,
			Waves: []data.WaveDefinition{
				{Archetype: "zombie", Count: 3, SpawnInterval: 2 * time.Second},
				{Archetype: "runner", Count: 2, SpawnInterval: time.Second},
			},
		},
		{
			Phase: world.PhaseBloodMoon,
			Waves: []data.WaveDefinition{
				{Archetype: "brute", Count: 4, SpawnInterval: time.Second},
			},
		},
		{
			Phase: world.PhaseDay,
			Waves: []data.WaveDefinition{
				{Archetype: "crow", Count: 2, SpawnInterval: 3 * time.Second},
			},
		},
	})
	require.NoError(t, err)
	return tables
}

func newTestScheduler(t *testing.T, sp Spawner) (*EncounterScheduler, *event.Bus) {
	bus := event.NewBus()
	return NewEncounterScheduler(testWaveTables(t), sp, bus, zap.NewNop()), bus
}

// enter emits a phase change and runs the scheduler for the same tick, which
// is not charged to the new run.
func enter(s *EncounterScheduler, bus *event.Bus, phase world.Phase) {
	event.Emit(bus, event.PhaseChanged{Phase: phase, Day: 1})
	s.Update(time.Second)
}

func TestEncounterWaitThenSpawnPacing(t *testing.T) {
	sp := &fakeSpawner{result: true}
	s, bus := newTestScheduler(t, sp)
	var waves []int
	completed := 0
	event.Subscribe(bus, func(ev event.WaveStarted) { waves = append(waves, ev.Wave) })
	event.Subscribe(bus, func(ev event.RunCompleted) { completed++ })

	enter(s, bus, world.PhaseNight)
	require.Empty(t, sp.calls)

	for k := 1; k <= 30; k++ {
		sp.tick = k
		s.Update(time.Second)
	}

	assert.Equal(t, []spawnCall{
		{"zombie", 2}, {"zombie", 4}, {"zombie", 6},
		{"runner", 12}, {"runner", 13},
	}, sp.calls)
	assert.Equal(t, []int{0, 1}, waves)
	assert.Equal(t, 1, completed)
	_, live := s.Live()
	assert.False(t, live)
}

func TestEncounterCarriesOverLargeSteps(t *testing.T) {
	sp := &fakeSpawner{result: true}
	s, bus := newTestScheduler(t, sp)
	enter(s, bus, world.PhaseNight)

	s.Update(5 * time.Second)
	assert.Len(t, sp.calls, 2)

	info, ok := s.Live()
	require.True(t, ok)
	assert.Equal(t, time.Second, info.Remaining)
	assert.Equal(t, 2, info.Spawned)

	// finishes the wave, waits 5s, then both runners
	s.Update(time.Second + 5*time.Second + 2*time.Second)
	assert.Equal(t, []string{"zombie", "zombie", "zombie", "runner", "runner"}, sp.archetypes())
}

func TestEncounterSupersedeDiscardsPreviousRun(t *testing.T) {
	sp := &fakeSpawner{result: true}
	s, bus := newTestScheduler(t, sp)

	enter(s, bus, world.PhaseNight)
	for k := 1; k <= 3; k++ {
		s.Update(time.Second)
	}
	require.Equal(t, []string{"zombie"}, sp.archetypes())
	first, _ := s.Live()

	event.Emit(bus, event.PhaseChanged{Phase: world.PhaseNight, Day: 7})
	event.Emit(bus, event.BloodMoonStarted{Day: 7})
	s.Update(time.Second)
	for k := 1; k <= 20; k++ {
		s.Update(time.Second)
	}

	assert.Equal(t, []string{"zombie", "brute", "brute", "brute", "brute"}, sp.archetypes())
	info, ok := s.Live()
	assert.False(t, ok)
	assert.Zero(t, info.ID)
	assert.Equal(t, uint64(1), first.ID)
}

func TestEncounterSupersedeFromInsideSpawn(t *testing.T) {
	sp := &fakeSpawner{result: true}
	s, bus := newTestScheduler(t, sp)
	sp.onSpawn = func(n int) {
		if n == 1 {
			event.Emit(bus, event.PhaseChanged{Phase: world.PhaseDay, Day: 2})
		}
	}
	enter(s, bus, world.PhaseNight)

	// enough time for the whole night table, but the run is replaced after
	// its first spawn
	s.Update(time.Minute)
	assert.Equal(t, []string{"zombie"}, sp.archetypes())

	info, ok := s.Live()
	require.True(t, ok)
	assert.Equal(t, world.PhaseDay, info.Phase)
	assert.Equal(t, 3*time.Second, info.Remaining, "new run does not inherit the tick")

	s.Update(3 * time.Second)
	assert.Equal(t, []string{"zombie", "crow"}, sp.archetypes())
}

func TestEncounterSkippedSpawnsDoNotStallRun(t *testing.T) {
	sp := &fakeSpawner{result: false}
	s, bus := newTestScheduler(t, sp)
	enter(s, bus, world.PhaseBloodMoon)

	for k := 0; k < 4; k++ {
		s.Update(time.Second)
	}
	assert.Len(t, sp.calls, 4)
	_, ok := s.Live()
	assert.False(t, ok)
}

func TestEncounterIdleWithoutTable(t *testing.T) {
	sp := &fakeSpawner{result: true}
	bus := event.NewBus()
	tables, err := data.NewWaveTables([]data.PhaseWaveTable{{
		Phase: world.PhaseNight,
		Waves: []data.WaveDefinition{{Archetype: "zombie", Count: 1, SpawnInterval: time.Second}},
	}})
	require.NoError(t, err)
	s := NewEncounterScheduler(tables, sp, bus, zap.NewNop())

	enter(s, bus, world.PhaseNight)
	enter(s, bus, world.PhaseDay)
	s.Update(time.Hour)

	assert.Empty(t, sp.calls)
	_, ok := s.Live()
	assert.False(t, ok)
}

func TestEncounterWithoutSpawnerIsInert(t *testing.T) {
	bus := event.NewBus()
	s := NewEncounterScheduler(testWaveTables(t), nil, bus, zap.NewNop())

	assert.Zero(t, event.HandlerCount[event.PhaseChanged](bus))
	enter(s, bus, world.PhaseNight)
	s.Update(time.Hour)
	_, ok := s.Live()
	assert.False(t, ok)
}

func TestEncounterCloseUnsubscribes(t *testing.T) {
	sp := &fakeSpawner{result: true}
	s, bus := newTestScheduler(t, sp)
	enter(s, bus, world.PhaseNight)

	s.Close()
	assert.Zero(t, event.HandlerCount[event.PhaseChanged](bus))
	assert.Zero(t, event.HandlerCount[event.BloodMoonStarted](bus))

	enter(s, bus, world.PhaseNight)
	s.Update(time.Hour)
	assert.Empty(t, sp.calls)
}

func TestEncounterClosedByEarlierHandlerStartsNoRun(t *testing.T) {
	sp := &fakeSpawner{result: true}
	bus := event.NewBus()
	var s *EncounterScheduler
	event.Subscribe(bus, func(ev event.PhaseChanged) {
		if ev.Phase == world.PhaseNight {
			s.Close()
		}
	})
	s = NewEncounterScheduler(testWaveTables(t), sp, bus, zap.NewNop())

	enter(s, bus, world.PhaseNight)
	_, ok := s.Live()
	assert.False(t, ok)
	s.Update(time.Hour)
	assert.Empty(t, sp.calls)
}

func TestEncounterFollowsClock(t *testing.T) {
	sp := &fakeSpawner{result: true}
	bus := event.NewBus()
	clock := NewPhaseClock(ClockConfig{DayDuration: 10 * time.Second, NightDuration: 20 * time.Second, BloodMoonPeriod: 2}, bus, zap.NewNop())
	s := NewEncounterScheduler(testWaveTables(t), sp, bus, zap.NewNop())
	clock.Start()

	phases := map[string]world.Phase{"crow": world.PhaseDay, "zombie": world.PhaseNight, "runner": world.PhaseNight, "brute": world.PhaseBloodMoon}
	for k := 1; k <= 60; k++ {
		clock.Update(time.Second)
		sp.tick = k
		before := len(sp.calls)
		s.Update(time.Second)
		for _, c := range sp.calls[before:] {
			assert.Equal(t, phases[c.archetype], clock.Current(), "tick %d %s", k, c.archetype)
		}
	}
	assert.Contains(t, sp.archetypes(), "brute")
}
