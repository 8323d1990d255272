package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/core/event"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/persist"
	"github.com/duskwatch/server/internal/world"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]persist.TelemetryEvent
	err     error
}

func (m *memorySink) WriteTelemetry(_ context.Context, events []persist.TelemetryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, events)
	return nil
}

func (m *memorySink) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, b := range m.batches {
		for _, e := range b {
			out = append(out, e.Kind)
		}
	}
	return out
}

func (m *memorySink) all() []persist.TelemetryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persist.TelemetryEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

// blockingSink holds the writer inside WriteTelemetry until release closes.
type blockingSink struct {
	memorySink
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSink() *blockingSink {
	return &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSink) WriteTelemetry(ctx context.Context, events []persist.TelemetryEvent) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.memorySink.WriteTelemetry(ctx, events)
}

func TestTelemetryRecordsClockAndSpawns(t *testing.T) {
	sink := &memorySink{}
	bus := event.NewBus()
	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 100, time.Second)
	require.NotEqual(t, uuid.Nil, tel.Session())

	clock := NewPhaseClock(ClockConfig{DayDuration: time.Second, NightDuration: time.Second, BloodMoonPeriod: 1}, bus, zap.NewNop())
	clock.Start()
	tel.Update(100 * time.Millisecond)
	clock.Advance(time.Second)
	event.Emit(bus, event.EnemySpawned{Archetype: "zombie", Pos: geom.V(3, 4)})
	event.Emit(bus, event.SpawnSkipped{Archetype: "runner", Attempts: 30})
	assert.Equal(t, 6, tel.Buffered())

	tel.Update(time.Second)
	assert.Zero(t, tel.Buffered())
	tel.Close()

	require.Len(t, sink.batches, 1)
	assert.Equal(t, []string{"day", "phase", "phase", "blood_moon", "spawn", "spawn_skipped"}, sink.kinds())
	batch := sink.batches[0]
	assert.Equal(t, uint64(0), batch[0].Tick)
	assert.Equal(t, uint64(1), batch[2].Tick)
	assert.Equal(t, "blood_moon", batch[4].Phase)
	assert.Equal(t, 3.0, batch[4].X)
	assert.Equal(t, 4.0, batch[4].Y)
	for _, e := range batch {
		assert.Equal(t, tel.Session(), e.Session)
		assert.Equal(t, 1, e.Day)
	}
	assert.Equal(t, 6, tel.Written())
	assert.Zero(t, tel.Dropped())
}

func TestTelemetryFlushesOnBatchSize(t *testing.T) {
	sink := &memorySink{}
	bus := event.NewBus()
	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 3, time.Hour)

	for i := 0; i < 4; i++ {
		event.Emit(bus, event.PlacementRejected{Cell: world.Cell{I: i}, Verdict: world.VerdictOccupied})
	}
	tel.Update(time.Millisecond)
	assert.Zero(t, tel.Buffered())
	tel.Close()

	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 4)
	assert.Equal(t, "occupied", sink.batches[0][0].Detail)
}

func TestTelemetryDropsFailedBatch(t *testing.T) {
	sink := &memorySink{err: errors.New("connection refused")}
	bus := event.NewBus()
	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 10, time.Second)

	event.Emit(bus, event.StructurePlaced{Archetype: "wall", Cell: world.Cell{I: 1, J: 2}})
	tel.Flush()
	tel.Close()

	assert.Zero(t, tel.Buffered())
	assert.Zero(t, tel.Written())
	assert.Equal(t, 1, tel.Dropped())
}

func TestTelemetryCloseFlushesAndUnsubscribes(t *testing.T) {
	sink := &memorySink{}
	bus := event.NewBus()
	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 10, time.Hour)

	event.Emit(bus, event.StructurePlaced{Archetype: "wall", Cell: world.Cell{I: 1, J: 2}})
	tel.Close()
	tel.Close()
	event.Emit(bus, event.StructurePlaced{Archetype: "wall"})
	tel.Flush()

	assert.Equal(t, []string{"placed"}, sink.kinds())
	assert.Equal(t, "(1,2)", sink.batches[0][0].Detail)
	assert.Zero(t, event.HandlerCount[event.StructurePlaced](bus))
}

func TestTelemetrySlowSinkNeverBlocksTick(t *testing.T) {
	sink := newBlockingSink()
	bus := event.NewBus()
	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 1, 0)

	place := func(i int) {
		event.Emit(bus, event.StructurePlaced{Archetype: "wall", Cell: world.Cell{I: i}})
		tel.Update(time.Millisecond)
	}

	place(0)
	<-sink.entered // writer is now stuck on the first batch

	for i := 1; i <= telemetryQueueDepth; i++ {
		place(i)
	}
	place(99)
	assert.Equal(t, 1, tel.Dropped())
	assert.Zero(t, tel.Written())

	close(sink.release)
	tel.Close()
	assert.Equal(t, telemetryQueueDepth+1, tel.Written())
	assert.Len(t, sink.kinds(), telemetryQueueDepth+1)
}

type fixedBalance int

func (b fixedBalance) Balance() int { return int(b) }

func TestTelemetrySnapshots(t *testing.T) {
	sink := &memorySink{}
	bus := event.NewBus()
	ws := world.NewState(ecs.NewWorld(), nil, 4)
	ws.SetPlayer(geom.V(2, -1))
	ws.Instantiate("zombie", geom.V(20, 0))
	ws.Instantiate("zombie", geom.V(-20, 0))
	ws.Spawn("wall", geom.V(1, 0), world.Footprint{Half: 0.5, Tag: world.TagStructure})

	tel := NewTelemetrySystem(sink, bus, zap.NewNop(), 100, 0)
	tel.SampleFrames(ws, fixedBalance(35), time.Second)

	for i := 0; i < 25; i++ {
		tel.Update(100 * time.Millisecond)
	}
	tel.Close()

	events := sink.all()
	require.Len(t, events, 2)
	first := events[0]
	assert.Equal(t, "snapshot", first.Kind)
	assert.Equal(t, uint64(9), first.Tick)
	assert.Equal(t, 2.0, first.X)
	assert.Equal(t, -1.0, first.Y)
	assert.Equal(t, 2, first.Enemies)
	assert.Equal(t, 1, first.Structures)
	assert.Equal(t, 35, first.Coins)
	assert.Empty(t, first.Detail)
	assert.Equal(t, uint64(19), events[1].Tick)
}

func TestTelemetrySnapshotWithoutPlayer(t *testing.T) {
	sink := &memorySink{}
	ws := world.NewState(ecs.NewWorld(), nil, 4)
	tel := NewTelemetrySystem(sink, event.NewBus(), zap.NewNop(), 100, 0)
	tel.SampleFrames(ws, nil, time.Second)

	tel.Update(time.Second)
	tel.Close()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "no_player", events[0].Detail)
	assert.Zero(t, events[0].Coins)
}

func TestLogSinkAcceptsEverything(t *testing.T) {
	s := NewLogSink(zap.NewNop())
	assert.NoError(t, s.WriteTelemetry(context.Background(), []persist.TelemetryEvent{{Kind: "day"}}))
}
