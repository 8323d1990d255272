package system

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/persist"
	"github.com/duskwatch/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// telemetryQueueDepth is how many batches may wait for the writer before
// new batches are dropped.
const telemetryQueueDepth = 8

// TelemetrySink receives batches of recorded events. Called from the writer
// goroutine only.
type TelemetrySink interface {
	WriteTelemetry(ctx context.Context, events []persist.TelemetryEvent) error
}

// LogSink writes telemetry to the logger at debug level. Used when no
// database is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) WriteTelemetry(_ context.Context, events []persist.TelemetryEvent) error {
	for _, e := range events {
		s.log.Debug("telemetry",
			zap.Uint64("tick", e.Tick),
			zap.String("kind", e.Kind),
			zap.Int("day", e.Day),
			zap.String("phase", e.Phase),
			zap.String("archetype", e.Archetype),
			zap.Float64("x", e.X),
			zap.Float64("y", e.Y),
			zap.Int("enemies", e.Enemies),
			zap.Int("structures", e.Structures),
			zap.Int("coins", e.Coins),
			zap.String("detail", e.Detail))
	}
	return nil
}

// FrameSource is the world state captured in snapshot rows.
type FrameSource interface {
	PlayerPosition() (geom.Vec2, bool)
	Count(tag world.Tag) int
}

// BalanceSource reports the current funding balance.
type BalanceSource interface {
	Balance() int
}

// TelemetrySystem records gameplay events from the bus, plus a periodic world
// snapshot, and hands them to a sink in batches. Phase 4 (Persist).
//
// Batches are written by a single background goroutine fed through a bounded
// queue; the tick never waits on the sink. When the queue is full the batch
// is dropped and counted.
type TelemetrySystem struct {
	sink      TelemetrySink
	log       *zap.Logger
	session   uuid.UUID
	subs      event.Group
	batchSize int
	interval  time.Duration

	queue   chan []persist.TelemetryEvent
	done    chan struct{}
	closed  bool
	written atomic.Int64
	dropped atomic.Int64

	buf   []persist.TelemetryEvent
	tick  uint64
	since time.Duration // time since last flush
	day   int
	phase string
	now   func() time.Time

	frames      FrameSource
	balance     BalanceSource
	sampleEvery time.Duration
	sinceSample time.Duration
}

func NewTelemetrySystem(sink TelemetrySink, bus *event.Bus, log *zap.Logger, batchSize int, interval time.Duration) *TelemetrySystem {
	if batchSize <= 0 {
		batchSize = 256
	}
	s := &TelemetrySystem{
		sink:      sink,
		log:       log,
		session:   uuid.New(),
		batchSize: batchSize,
		interval:  interval,
		queue:     make(chan []persist.TelemetryEvent, telemetryQueueDepth),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	s.subs.Add(event.Subscribe(bus, func(ev event.DayChanged) {
		s.day = ev.Day
		s.record(persist.TelemetryEvent{Kind: "day"})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.PhaseChanged) {
		s.day, s.phase = ev.Day, ev.Phase.String()
		s.record(persist.TelemetryEvent{Kind: "phase"})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.BloodMoonStarted) {
		s.phase = "blood_moon"
		s.record(persist.TelemetryEvent{Kind: "blood_moon"})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.EnemySpawned) {
		s.record(persist.TelemetryEvent{Kind: "spawn", Archetype: ev.Archetype, X: ev.Pos.X, Y: ev.Pos.Y})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.SpawnSkipped) {
		s.record(persist.TelemetryEvent{Kind: "spawn_skipped", Archetype: ev.Archetype})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.StructurePlaced) {
		s.record(persist.TelemetryEvent{Kind: "placed", Archetype: ev.Archetype, X: ev.Pos.X, Y: ev.Pos.Y, Detail: ev.Cell.String()})
	}))
	s.subs.Add(event.Subscribe(bus, func(ev event.PlacementRejected) {
		s.record(persist.TelemetryEvent{Kind: "rejected", X: ev.Pos.X, Y: ev.Pos.Y, Detail: ev.Verdict.String()})
	}))
	go s.writer()
	log.Info("telemetry session", zap.Stringer("session", s.session))
	return s
}

// SampleFrames records a "snapshot" row every `every` of game time with the
// player position, enemy and structure counts and the balance. A zero
// interval or nil frames disables sampling.
func (s *TelemetrySystem) SampleFrames(frames FrameSource, balance BalanceSource, every time.Duration) {
	s.frames, s.balance, s.sampleEvery = frames, balance, every
	s.sinceSample = 0
}

func (s *TelemetrySystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Session returns the id stamped on every event of this run.
func (s *TelemetrySystem) Session() uuid.UUID { return s.session }

// Buffered returns the number of events waiting for a flush.
func (s *TelemetrySystem) Buffered() int { return len(s.buf) }

// Written returns the number of events the sink has accepted.
func (s *TelemetrySystem) Written() int { return int(s.written.Load()) }

// Dropped returns the number of events lost to a full queue or a failed write.
func (s *TelemetrySystem) Dropped() int { return int(s.dropped.Load()) }

func (s *TelemetrySystem) record(e persist.TelemetryEvent) {
	e.Session = s.session
	e.Tick = s.tick
	e.At = s.now()
	e.Day = s.day
	e.Phase = s.phase
	s.buf = append(s.buf, e)
}

func (s *TelemetrySystem) snapshot() {
	e := persist.TelemetryEvent{
		Kind:       "snapshot",
		Enemies:    s.frames.Count(world.TagEnemy),
		Structures: s.frames.Count(world.TagStructure),
	}
	if p, ok := s.frames.PlayerPosition(); ok {
		e.X, e.Y = p.X, p.Y
	} else {
		e.Detail = "no_player"
	}
	if s.balance != nil {
		e.Coins = s.balance.Balance()
	}
	s.record(e)
}

func (s *TelemetrySystem) Update(dt time.Duration) {
	if s.frames != nil && s.sampleEvery > 0 {
		s.sinceSample += dt
		if s.sinceSample >= s.sampleEvery {
			s.sinceSample = 0
			s.snapshot()
		}
	}
	s.tick++
	s.since += dt
	if len(s.buf) >= s.batchSize || (s.interval > 0 && s.since >= s.interval) {
		s.Flush()
	}
}

// Flush hands everything buffered to the writer goroutine without blocking.
func (s *TelemetrySystem) Flush() {
	s.since = 0
	if len(s.buf) == 0 || s.closed {
		return
	}
	batch := s.buf
	s.buf = nil

	select {
	case s.queue <- batch:
	default:
		s.dropped.Add(int64(len(batch)))
		s.log.Warn("telemetry writer behind, batch dropped", zap.Int("dropped", len(batch)))
	}
}

func (s *TelemetrySystem) writer() {
	defer close(s.done)
	for batch := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.sink.WriteTelemetry(ctx, batch)
		cancel()
		if err != nil {
			s.dropped.Add(int64(len(batch)))
			s.log.Error("telemetry flush failed", zap.Int("dropped", len(batch)), zap.Error(err))
			continue
		}
		s.written.Add(int64(len(batch)))
	}
}

// Close flushes, waits for the writer to drain the queue and drops the bus
// subscriptions. Safe to call more than once.
func (s *TelemetrySystem) Close() {
	if s.closed {
		return
	}
	s.subs.Close()
	if len(s.buf) > 0 {
		s.queue <- s.buf
		s.buf = nil
	}
	s.closed = true
	close(s.queue)
	<-s.done
	s.log.Info("telemetry closed",
		zap.Stringer("session", s.session),
		zap.Int("written", s.Written()),
		zap.Int("dropped", s.Dropped()))
}
