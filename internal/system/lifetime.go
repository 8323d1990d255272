package system

import (
	"time"

	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
)

// LifetimeSystem expires transient entities (placement effects and the like).
// Phase 3 (PostUpdate); the CleanupSystem removes them at tick end.
type LifetimeSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewLifetimeSystem(ws *world.State, log *zap.Logger) *LifetimeSystem {
	return &LifetimeSystem{world: ws, log: log}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LifetimeSystem) Update(dt time.Duration) {
	if expired := s.world.TickLifetimes(dt); len(expired) > 0 {
		s.log.Debug("lifetimes expired", zap.Int("count", len(expired)))
	}
}
