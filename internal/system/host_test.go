package system

import (
	"testing"
	"time"

	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIncomeCreditsFromSecondDay(t *testing.T) {
	bus := event.NewBus()
	wallet := world.NewWallet(0)
	inc := NewIncomeSystem(wallet, 25, bus, zap.NewNop())

	event.Emit(bus, event.DayChanged{Day: 1})
	assert.Zero(t, wallet.Balance())
	event.Emit(bus, event.DayChanged{Day: 2})
	event.Emit(bus, event.DayChanged{Day: 3})
	assert.Equal(t, 50, wallet.Balance())

	inc.Close()
	event.Emit(bus, event.DayChanged{Day: 4})
	assert.Equal(t, 50, wallet.Balance())
}

func TestPatrolMovesPlayerOnCircle(t *testing.T) {
	ws := world.NewState(ecs.NewWorld(), nil, 4)
	ws.SetPlayer(geom.V(5, 0))
	patrol := NewPatrolSystem(ws, geom.Vec2{}, 5, 5)

	for i := 0; i < 10; i++ {
		patrol.Update(100 * time.Millisecond)
		p, ok := ws.PlayerPosition()
		require.True(t, ok)
		assert.InDelta(t, 5, p.Length(), 1e-9)
	}
	p, _ := ws.PlayerPosition()
	// one radian of arc after 5 units of travel on a radius 5 circle
	assert.InDelta(t, geom.FromAngle(1).Scale(5).X, p.X, 1e-9)
}

func TestCameraSystemFollowsPlayer(t *testing.T) {
	ws := world.NewState(ecs.NewWorld(), nil, 4)
	ws.SetPlayer(geom.V(10, 0))
	cam := world.NewCamera(5, 1, 100*time.Millisecond)
	sys := NewCameraSystem(cam, ws)

	sys.Update(16 * time.Millisecond)
	first := cam.Position().X
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 10.0)

	for i := 0; i < 200; i++ {
		sys.Update(16 * time.Millisecond)
	}
	assert.InDelta(t, 10, cam.Position().X, 1e-3)
	assert.True(t, cam.ViewVolume().Contains(geom.V(10, 0)))
}

func TestAutopilotPlacesStructures(t *testing.T) {
	f := newBuildFixture(t, 100)
	auto := NewAutopilotSystem(f.ctl, f.ws, 1, time.Second)

	auto.Update(500 * time.Millisecond)
	assert.Empty(t, f.placed)
	auto.Update(500 * time.Millisecond)
	require.Len(t, f.placed, 1)
	assert.Equal(t, geom.V(2, 0), f.placed[0].Pos)
	assert.False(t, f.ctl.IsInBuildMode())

	for i := 0; i < 3; i++ {
		auto.Update(time.Second)
	}
	require.Len(t, f.placed, 4)
	assert.Equal(t, geom.V(0, 2), f.placed[1].Pos)
	assert.Equal(t, geom.V(-2, 0), f.placed[2].Pos)
	assert.Equal(t, geom.V(0, -2), f.placed[3].Pos)
	assert.Equal(t, 60, f.wallet.Balance())
}

func TestRunnerTickOrder(t *testing.T) {
	bus := event.NewBus()
	ws := world.NewState(ecs.NewWorld(), nil, 4)
	ws.SetPlayer(geom.Vec2{})
	sp := &fakeSpawner{result: true}

	clock := NewPhaseClock(ClockConfig{DayDuration: time.Second, NightDuration: 10 * time.Second, BloodMoonPeriod: 7}, bus, zap.NewNop())
	tables := testWaveTables(t)
	sched := NewEncounterScheduler(tables, sp, bus, zap.NewNop())

	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(ws.ECS()))
	runner.Register(clock)
	runner.Register(sched)
	runner.Register(NewPatrolSystem(ws, geom.Vec2{}, 0, 0))
	clock.Start()

	// night starts on tick 10; its first zombie is due two seconds later
	for i := 1; i <= 12; i++ {
		sp.tick = i
		runner.Tick(100 * time.Millisecond)
	}
	assert.Equal(t, uint64(12), runner.Ticks())
	assert.Equal(t, world.PhaseNight, clock.Current())
	assert.Empty(t, sp.calls)

	for i := 13; i <= 30; i++ {
		sp.tick = i
		runner.Tick(100 * time.Millisecond)
	}
	require.NotEmpty(t, sp.calls)
	assert.Equal(t, spawnCall{"zombie", 30}, sp.calls[0])
}
