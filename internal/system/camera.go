package system

import (
	"time"

	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/world"
)

// CameraSystem keeps the follow camera on the player so the view volume used
// for spawn placement is refreshed every tick.
// Phase 1 (PreUpdate), after the player has moved.
type CameraSystem struct {
	camera *world.Camera
	anchor Anchor
}

func NewCameraSystem(camera *world.Camera, anchor Anchor) *CameraSystem {
	return &CameraSystem{camera: camera, anchor: anchor}
}

func (s *CameraSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *CameraSystem) Update(dt time.Duration) {
	if p, ok := s.anchor.PlayerPosition(); ok {
		s.camera.Follow(p, dt)
	}
}
