package world

import (
	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/geom"
)

// Ground slabs are static colliders tagged TagGround. Build placement probes
// for them; nothing else interacts with them.

// AddGround adds a buildable ground slab covering box.
func (s *State) AddGround(box geom.AABB) ecs.EntityID {
	id := s.ecs.CreateEntity()
	s.Transforms.Set(id, &Transform{Pos: box.Center})
	s.Identities.Set(id, &Identity{Archetype: "ground"})
	s.Colliders.Set(id, &Collider{Half: box.Half, Tag: TagGround})
	s.index.Insert(id, box)
	return id
}
