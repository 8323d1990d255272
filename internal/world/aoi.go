package world

import (
	"math"

	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/geom"
)

// SpatialHash buckets collider boxes into square cells so overlap and probe
// queries only look at nearby entities. Boxes spanning more than maxSpan
// cells (ground slabs) are kept in a separate list checked on every query.
// Accessed only from the game loop goroutine, no locks.

const maxSpan = 64

type cellKey struct {
	cx int32
	cy int32
}

type SpatialHash struct {
	size    float64
	cells   map[cellKey]map[ecs.EntityID]struct{}
	members map[ecs.EntityID][]cellKey
	large   map[ecs.EntityID]struct{}
}

func NewSpatialHash(cellSize float64) *SpatialHash {
	if cellSize <= 0 {
		cellSize = 4
	}
	return &SpatialHash{
		size:    cellSize,
		cells:   make(map[cellKey]map[ecs.EntityID]struct{}),
		members: make(map[ecs.EntityID][]cellKey),
		large:   make(map[ecs.EntityID]struct{}),
	}
}

func (h *SpatialHash) coord(v float64) int32 {
	return int32(math.Floor(v / h.size))
}

func (h *SpatialHash) span(box geom.AABB) (x0, y0, x1, y1 int32) {
	mn, mx := box.Min(), box.Max()
	return h.coord(mn.X), h.coord(mn.Y), h.coord(mx.X), h.coord(mx.Y)
}

// Insert indexes id under every cell box touches.
func (h *SpatialHash) Insert(id ecs.EntityID, box geom.AABB) {
	x0, y0, x1, y1 := h.span(box)
	if int64(x1-x0+1)*int64(y1-y0+1) > maxSpan {
		h.large[id] = struct{}{}
		return
	}
	keys := make([]cellKey, 0, (x1-x0+1)*(y1-y0+1))
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			k := cellKey{cx: cx, cy: cy}
			cell := h.cells[k]
			if cell == nil {
				cell = make(map[ecs.EntityID]struct{})
				h.cells[k] = cell
			}
			cell[id] = struct{}{}
			keys = append(keys, k)
		}
	}
	h.members[id] = keys
}

// Remove drops id from the index. Implements ecs.Removable.
func (h *SpatialHash) Remove(id ecs.EntityID) {
	delete(h.large, id)
	for _, k := range h.members[id] {
		if cell := h.cells[k]; cell != nil {
			delete(cell, id)
			if len(cell) == 0 {
				delete(h.cells, k)
			}
		}
	}
	delete(h.members, id)
}

// Move re-indexes id under its new box.
func (h *SpatialHash) Move(id ecs.EntityID, box geom.AABB) {
	h.Remove(id)
	h.Insert(id, box)
}

// Candidates calls fn once for every id whose cells touch box. fn returns
// false to stop early. Caller does the exact overlap test.
func (h *SpatialHash) Candidates(box geom.AABB, fn func(ecs.EntityID) bool) {
	for id := range h.large {
		if !fn(id) {
			return
		}
	}
	x0, y0, x1, y1 := h.span(box)
	var seen map[ecs.EntityID]struct{}
	multi := x1 > x0 || y1 > y0
	if multi {
		seen = make(map[ecs.EntityID]struct{})
	}
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for id := range h.cells[cellKey{cx: cx, cy: cy}] {
				if multi {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
				}
				if !fn(id) {
					return
				}
			}
		}
	}
}

// Len returns the number of indexed ids.
func (h *SpatialHash) Len() int { return len(h.members) + len(h.large) }
