package system

import (
	"math"
	"time"

	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/world"
)

// PatrolSystem walks the player anchor around a circle so the camera, and with
// it the off-screen spawn ring, keeps moving in a headless run.
// Phase 0 (Input).
type PatrolSystem struct {
	world  *world.State
	center geom.Vec2
	radius float64
	speed  float64 // world units per second
	angle  float64
}

func NewPatrolSystem(ws *world.State, center geom.Vec2, radius, speed float64) *PatrolSystem {
	return &PatrolSystem{world: ws, center: center, radius: radius, speed: speed}
}

func (s *PatrolSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *PatrolSystem) Update(dt time.Duration) {
	id := s.world.Player()
	if id == 0 || s.radius <= 0 || s.speed <= 0 {
		return
	}
	s.angle = math.Mod(s.angle+s.speed*dt.Seconds()/s.radius, 2*math.Pi)
	s.world.Move(id, s.center.Add(geom.FromAngle(s.angle).Scale(s.radius)))
}
