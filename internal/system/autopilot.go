package system

import (
	"time"

	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/geom"
)

var autopilotOffsets = [4]geom.Vec2{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// AutopilotSystem stands in for player input in a headless run: every
// interval it enters build mode, aims two cells away from the player on a
// rotating side, confirms once and leaves build mode.
// Phase 0 (Input).
type AutopilotSystem struct {
	build    *BuildController
	anchor   Anchor
	cellSize float64
	interval time.Duration
	wait     time.Duration
	turn     int
}

func NewAutopilotSystem(build *BuildController, anchor Anchor, cellSize float64, interval time.Duration) *AutopilotSystem {
	return &AutopilotSystem{
		build:    build,
		anchor:   anchor,
		cellSize: cellSize,
		interval: interval,
		wait:     interval,
	}
}

func (s *AutopilotSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *AutopilotSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.wait -= dt
	if s.wait > 0 {
		return
	}
	s.wait += s.interval

	p, ok := s.anchor.PlayerPosition()
	if !ok {
		return
	}
	off := autopilotOffsets[s.turn%len(autopilotOffsets)]
	s.turn++

	if !s.build.IsInBuildMode() {
		s.build.Toggle()
	}
	s.build.Aim(p.Add(off.Scale(2 * s.cellSize)))
	s.build.ConfirmPlacement()
	s.build.Cancel()
}
