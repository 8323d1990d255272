package world

import (
	"time"

	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/geom"
)

// Tag classifies colliders for spatial queries.
type Tag string

const (
	TagPlayer    Tag = "player"
	TagEnemy     Tag = "enemy"
	TagStructure Tag = "structure"
	TagGround    Tag = "ground"
	TagEffect    Tag = "effect"
)

// Footprint describes how an archetype occupies the world when instantiated.
type Footprint struct {
	Half float64       // collider half extent
	Tag  Tag           // collider tag
	TTL  time.Duration // 0 = permanent
}

// FootprintSource resolves archetype ids to footprints.
type FootprintSource interface {
	Footprint(archetype string) (Footprint, bool)
}

// DefaultFootprint is used for archetypes the source does not know.
var DefaultFootprint = Footprint{Half: 0.5, Tag: TagEnemy}

// Transform is an entity's world position.
type Transform struct {
	Pos geom.Vec2
}

// Collider is a tagged axis-aligned box centred on the Transform.
type Collider struct {
	Half geom.Vec2
	Tag  Tag
}

// Identity records which archetype an entity was created from.
type Identity struct {
	Archetype string
}

// Lifetime counts down to automatic destruction.
type Lifetime struct {
	Remaining time.Duration
}

// State is the headless world the core runs against: entity transforms,
// tagged colliders indexed by a spatial hash, the player anchor and
// transient lifetimes. Single-goroutine access only (game loop).
type State struct {
	ecs        *ecs.World
	footprints FootprintSource
	index      *SpatialHash

	Transforms *ecs.Store[Transform]
	Colliders  *ecs.Store[Collider]
	Identities *ecs.Store[Identity]
	Lifetimes  *ecs.Store[Lifetime]

	player ecs.EntityID
}

// NewState creates a world over w. footprints may be nil; every archetype
// then gets DefaultFootprint.
func NewState(w *ecs.World, footprints FootprintSource, hashCell float64) *State {
	s := &State{
		ecs:        w,
		footprints: footprints,
		index:      NewSpatialHash(hashCell),
		Transforms: ecs.NewStore[Transform](),
		Colliders:  ecs.NewStore[Collider](),
		Identities: ecs.NewStore[Identity](),
		Lifetimes:  ecs.NewStore[Lifetime](),
	}
	w.Register(s.Transforms)
	w.Register(s.Colliders)
	w.Register(s.Identities)
	w.Register(s.Lifetimes)
	w.Register(s.index)
	return s
}

// ECS returns the underlying entity world.
func (s *State) ECS() *ecs.World { return s.ecs }

// Spawn creates an entity with an explicit footprint.
func (s *State) Spawn(archetype string, pos geom.Vec2, fp Footprint) ecs.EntityID {
	id := s.ecs.CreateEntity()
	s.Transforms.Set(id, &Transform{Pos: pos})
	s.Identities.Set(id, &Identity{Archetype: archetype})
	if fp.Half > 0 {
		half := geom.Vec2{X: fp.Half, Y: fp.Half}
		s.Colliders.Set(id, &Collider{Half: half, Tag: fp.Tag})
		s.index.Insert(id, geom.AABB{Center: pos, Half: half})
	}
	if fp.TTL > 0 {
		s.Lifetimes.Set(id, &Lifetime{Remaining: fp.TTL})
	}
	return id
}

// Instantiate creates an entity from an archetype id.
func (s *State) Instantiate(archetype string, pos geom.Vec2) ecs.EntityID {
	fp := DefaultFootprint
	if s.footprints != nil {
		if f, ok := s.footprints.Footprint(archetype); ok {
			fp = f
		}
	}
	return s.Spawn(archetype, pos, fp)
}

// Destroy queues id for removal at the end of the tick.
func (s *State) Destroy(id ecs.EntityID) {
	if id == s.player {
		s.player = 0
	}
	s.ecs.MarkForDestruction(id)
}

// Position returns the entity's transform position.
func (s *State) Position(id ecs.EntityID) (geom.Vec2, bool) {
	t, ok := s.Transforms.Get(id)
	if !ok {
		return geom.Vec2{}, false
	}
	return t.Pos, true
}

// Move sets the entity's position and re-indexes its collider.
func (s *State) Move(id ecs.EntityID, pos geom.Vec2) {
	t, ok := s.Transforms.Get(id)
	if !ok {
		return
	}
	t.Pos = pos
	if c, ok := s.Colliders.Get(id); ok {
		s.index.Move(id, geom.AABB{Center: pos, Half: c.Half})
	}
}

// SetPlayer creates the player anchor at pos, replacing any previous one.
func (s *State) SetPlayer(pos geom.Vec2) ecs.EntityID {
	if s.player != 0 {
		s.ecs.MarkForDestruction(s.player)
	}
	s.player = s.Spawn("player", pos, Footprint{Half: 0.4, Tag: TagPlayer})
	return s.player
}

// Player returns the anchor entity id (0 if none).
func (s *State) Player() ecs.EntityID { return s.player }

// PlayerPosition returns the anchor's position, or false if no live anchor.
func (s *State) PlayerPosition() (geom.Vec2, bool) {
	if s.player == 0 || !s.ecs.Alive(s.player) {
		return geom.Vec2{}, false
	}
	return s.Position(s.player)
}

func (s *State) box(id ecs.EntityID, c *Collider) (geom.AABB, bool) {
	t, ok := s.Transforms.Get(id)
	if !ok {
		return geom.AABB{}, false
	}
	return geom.AABB{Center: t.Pos, Half: c.Half}, true
}

// Overlap reports whether any live collider tagged tag overlaps box.
func (s *State) Overlap(box geom.AABB, tag Tag) bool {
	return s.FirstOverlap(box, tag) != 0
}

// FirstOverlap returns one collider tagged tag overlapping box, or 0.
func (s *State) FirstOverlap(box geom.AABB, tag Tag) ecs.EntityID {
	var hit ecs.EntityID
	s.index.Candidates(box, func(id ecs.EntityID) bool {
		c, ok := s.Colliders.Get(id)
		if !ok || c.Tag != tag {
			return true
		}
		if b, ok := s.box(id, c); ok && b.Overlaps(box) {
			hit = id
			return false
		}
		return true
	})
	return hit
}

// Probe casts a segment from `from` along unit direction dir for length
// units and reports whether it touches a collider tagged tag.
func (s *State) Probe(from, dir geom.Vec2, length float64, tag Tag) bool {
	d := dir.Normalized().Scale(length)
	end := from.Add(d)
	bounds := geom.AABB{
		Center: geom.Lerp(from, end, 0.5),
		Half:   geom.Vec2{X: abs(d.X) / 2, Y: abs(d.Y) / 2},
	}
	found := false
	s.index.Candidates(bounds, func(id ecs.EntityID) bool {
		c, ok := s.Colliders.Get(id)
		if !ok || c.Tag != tag {
			return true
		}
		if b, ok := s.box(id, c); ok && b.IntersectsSegment(from, d) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Count returns the number of live colliders tagged tag.
func (s *State) Count(tag Tag) int {
	n := 0
	s.Colliders.Each(func(_ ecs.EntityID, c *Collider) {
		if c.Tag == tag {
			n++
		}
	})
	return n
}

// TickLifetimes decrements lifetimes by dt and queues expired entities for
// destruction. Returns the expired ids.
func (s *State) TickLifetimes(dt time.Duration) []ecs.EntityID {
	var expired []ecs.EntityID
	s.Lifetimes.Each(func(id ecs.EntityID, l *Lifetime) {
		l.Remaining -= dt
		if l.Remaining <= 0 {
			expired = append(expired, id)
		}
	})
	for _, id := range expired {
		s.Lifetimes.Remove(id)
		s.ecs.MarkForDestruction(id)
	}
	return expired
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
