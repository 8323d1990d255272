package system

import (
	"math"
	"math/rand"

	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/core/event"
	"github.com/duskwatch/server/internal/geom"
	"go.uber.org/zap"
)

// DefaultSpawnAttempts is the rejection sampling budget per request.
const DefaultSpawnAttempts = 30

// SpawnConfig configures the off-screen ring sampled by SpawnResolver.
type SpawnConfig struct {
	MinDistance     float64 // must exceed the camera bounding radius
	MaxDistance     float64
	AttemptBudget   int
	ProbeHalfExtent float64
}

// SpawnResolver finds points outside the camera view by rejection sampling a
// ring around the player.
type SpawnResolver struct {
	cfg SpawnConfig
	rng *rand.Rand
}

func NewSpawnResolver(cfg SpawnConfig, rng *rand.Rand) *SpawnResolver {
	if cfg.AttemptBudget <= 0 {
		cfg.AttemptBudget = DefaultSpawnAttempts
	}
	if cfg.MaxDistance < cfg.MinDistance {
		cfg.MaxDistance = cfg.MinDistance
	}
	if cfg.ProbeHalfExtent <= 0 {
		cfg.ProbeHalfExtent = 0.05
	}
	return &SpawnResolver{cfg: cfg, rng: rng}
}

// Attempts returns the sampling budget.
func (r *SpawnResolver) Attempts() int { return r.cfg.AttemptBudget }

// Resolve returns a point around player that lies outside view, or false when
// the budget ran out.
func (r *SpawnResolver) Resolve(player geom.Vec2, view geom.Frustum) (geom.Vec2, bool) {
	span := r.cfg.MaxDistance - r.cfg.MinDistance
	for i := 0; i < r.cfg.AttemptBudget; i++ {
		dir := geom.FromAngle(r.rng.Float64() * 2 * math.Pi)
		dist := r.cfg.MinDistance + r.rng.Float64()*span
		p := player.Add(dir.Scale(dist))
		if !view.IntersectsAABB(geom.Box(p, r.cfg.ProbeHalfExtent)) {
			return p, true
		}
	}
	return geom.Vec2{}, false
}

// Anchor provides the player position spawns are placed around.
type Anchor interface {
	PlayerPosition() (geom.Vec2, bool)
}

// ViewSource provides the live camera view volume.
type ViewSource interface {
	ViewVolume() geom.Frustum
}

// Instantiator creates world objects from archetype ids.
type Instantiator interface {
	Instantiate(archetype string, pos geom.Vec2) ecs.EntityID
}

// OffscreenSpawner is the Spawner used by the encounter scheduler: it resolves
// an off-screen point against the view volume as it is at call time and
// instantiates the archetype there.
type OffscreenSpawner struct {
	resolver *SpawnResolver
	anchor   Anchor
	view     ViewSource
	world    Instantiator
	bus      *event.Bus
	log      *zap.Logger
}

func NewOffscreenSpawner(resolver *SpawnResolver, anchor Anchor, view ViewSource, world Instantiator, bus *event.Bus, log *zap.Logger) *OffscreenSpawner {
	return &OffscreenSpawner{
		resolver: resolver,
		anchor:   anchor,
		view:     view,
		world:    world,
		bus:      bus,
		log:      log,
	}
}

func (s *OffscreenSpawner) Spawn(archetype string) bool {
	if s.resolver == nil || s.anchor == nil || s.view == nil || s.world == nil {
		return false
	}
	player, ok := s.anchor.PlayerPosition()
	if !ok {
		s.log.Debug("no player anchor, spawn skipped", zap.String("archetype", archetype))
		return false
	}

	p, ok := s.resolver.Resolve(player, s.view.ViewVolume())
	if !ok {
		s.log.Info("no off-screen position found, spawn skipped",
			zap.String("archetype", archetype),
			zap.Int("attempts", s.resolver.Attempts()))
		event.Emit(s.bus, event.SpawnSkipped{Archetype: archetype, Attempts: s.resolver.Attempts()})
		return false
	}

	id := s.world.Instantiate(archetype, p)
	event.Emit(s.bus, event.EnemySpawned{Entity: id, Archetype: archetype, Pos: p})
	return true
}
