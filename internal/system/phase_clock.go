package system

import (
	"time"

	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
)

// ClockConfig holds the day/night cycle settings.
type ClockConfig struct {
	DayDuration     time.Duration
	NightDuration   time.Duration // blood moon nights use this too
	BloodMoonPeriod int
}

// PhaseClock drives the day/night/blood-moon cycle and owns the day counter.
// Phase 2 (Update); register it before the encounter scheduler.
type PhaseClock struct {
	cfg ClockConfig
	bus *event.Bus
	log *zap.Logger

	phase     world.Phase
	day       int
	elapsed   time.Duration
	started   bool
	advancing bool
}

func NewPhaseClock(cfg ClockConfig, bus *event.Bus, log *zap.Logger) *PhaseClock {
	if cfg.BloodMoonPeriod < 1 {
		cfg.BloodMoonPeriod = 1
	}
	return &PhaseClock{
		cfg:   cfg,
		bus:   bus,
		log:   log,
		phase: world.PhaseDay,
		day:   1,
	}
}

func (c *PhaseClock) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (c *PhaseClock) Update(dt time.Duration) { c.Advance(dt) }

// Start publishes the initial state (day 1, Day). Only the first call emits.
func (c *PhaseClock) Start() {
	if c.started {
		return
	}
	c.started = true
	c.log.Info("clock started", zap.Int("day", c.day), zap.Stringer("phase", c.phase))
	event.Emit(c.bus, event.DayChanged{Day: c.day})
	event.Emit(c.bus, event.PhaseChanged{Phase: c.phase, Day: c.day})
}

// Advance integrates dt into the current phase timer and performs at most one
// transition. Calls made from inside a notification handler are ignored.
func (c *PhaseClock) Advance(dt time.Duration) {
	if c.advancing {
		c.log.Warn("re-entrant clock advance ignored", zap.Duration("dt", dt))
		return
	}
	if dt <= 0 {
		return
	}
	c.advancing = true
	defer func() { c.advancing = false }()

	if !c.started {
		c.Start()
	}

	c.elapsed += dt
	if c.elapsed < c.current() {
		return
	}
	c.elapsed = 0

	if c.phase == world.PhaseDay {
		c.enterNight()
	} else {
		c.enterDay()
	}
}

func (c *PhaseClock) enterNight() {
	c.phase = world.PhaseNight
	c.log.Info("night falls", zap.Int("day", c.day))
	event.Emit(c.bus, event.PhaseChanged{Phase: world.PhaseNight, Day: c.day})

	if c.day%c.cfg.BloodMoonPeriod == 0 {
		c.phase = world.PhaseBloodMoon
		c.log.Warn("blood moon rises", zap.Int("day", c.day))
		event.Emit(c.bus, event.BloodMoonStarted{Day: c.day})
	}
}

func (c *PhaseClock) enterDay() {
	c.day++
	c.phase = world.PhaseDay
	c.log.Info("day breaks", zap.Int("day", c.day))
	event.Emit(c.bus, event.DayChanged{Day: c.day})
	event.Emit(c.bus, event.PhaseChanged{Phase: world.PhaseDay, Day: c.day})
}

func (c *PhaseClock) current() time.Duration {
	if c.phase.IsNight() {
		return c.cfg.NightDuration
	}
	return c.cfg.DayDuration
}

// Current returns the active phase.
func (c *PhaseClock) Current() world.Phase { return c.phase }

func (c *PhaseClock) Day() int { return c.day }

func (c *PhaseClock) Elapsed() time.Duration { return c.elapsed }

// Remaining returns the time left in the active phase.
func (c *PhaseClock) Remaining() time.Duration {
	if r := c.current() - c.elapsed; r > 0 {
		return r
	}
	return 0
}
