package world

import (
	"fmt"
	"math"

	"github.com/duskwatch/server/internal/geom"
)

// OccupancyFactor shrinks the occupancy probe box so a structure in the
// neighbouring cell never counts as overlapping.
const OccupancyFactor = 0.9

// Cell identifies a lattice cell.
type Cell struct {
	I, J int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.I, c.J) }

// Space is the spatial query surface BuildGrid needs from the world.
type Space interface {
	Overlap(box geom.AABB, tag Tag) bool
	Probe(from, dir geom.Vec2, length float64, tag Tag) bool
}

// BuildGrid snaps points to a square lattice and answers ground and
// occupancy questions with live queries against Space. Nothing is cached:
// occupancy always reflects the colliders present at query time.
type BuildGrid struct {
	size        float64
	space       Space
	probeHeight float64
	probeLength float64
}

// NewBuildGrid returns a grid of the given cell size. Non-positive sizes
// fall back to 1.
func NewBuildGrid(cellSize float64, space Space, probeHeight, probeLength float64) *BuildGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &BuildGrid{
		size:        cellSize,
		space:       space,
		probeHeight: probeHeight,
		probeLength: probeLength,
	}
}

func (g *BuildGrid) CellSize() float64 { return g.size }

// round matches the engine's rounding (ties go to the even neighbour).
func round(v float64) float64 { return math.RoundToEven(v) }

// Snap rounds each coordinate of p to the nearest multiple of the cell size.
func (g *BuildGrid) Snap(p geom.Vec2) geom.Vec2 {
	return geom.Vec2{
		X: round(p.X/g.size) * g.size,
		Y: round(p.Y/g.size) * g.size,
	}
}

// CellOf returns the lattice coordinate of the cell p snaps into.
func (g *BuildGrid) CellOf(p geom.Vec2) Cell {
	return Cell{
		I: int(math.Floor(round(p.X / g.size))),
		J: int(math.Floor(round(p.Y / g.size))),
	}
}

// CellCenter returns the snapped world point of c.
func (g *BuildGrid) CellCenter(c Cell) geom.Vec2 {
	return geom.Vec2{X: float64(c.I) * g.size, Y: float64(c.J) * g.size}
}

// CellBox returns the occupancy probe box for the cell at p.
func (g *BuildGrid) CellBox(p geom.Vec2) geom.AABB {
	return geom.Box(p, g.size*OccupancyFactor/2)
}

// IsOnGround probes downward from above p for a ground collider.
func (g *BuildGrid) IsOnGround(p geom.Vec2) bool {
	if g.space == nil {
		return false
	}
	from := p.Add(geom.Vec2{Y: g.probeHeight})
	return g.space.Probe(from, geom.Vec2{Y: -1}, g.probeLength, TagGround)
}

// IsOccupied reports whether a structure overlaps the cell box at p.
func (g *BuildGrid) IsOccupied(p geom.Vec2) bool {
	if g.space == nil {
		return false
	}
	return g.space.Overlap(g.CellBox(p), TagStructure)
}

// InRange reports whether p is within maxCells cells of from.
func (g *BuildGrid) InRange(from, p geom.Vec2, maxCells float64) bool {
	return from.Distance(p) <= maxCells*g.size
}

// Verdict explains a placement decision.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictInactive
	VerdictNoAnchor
	VerdictTooFar
	VerdictNoGround
	VerdictNoFunds
	VerdictOccupied
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictInactive:
		return "inactive"
	case VerdictNoAnchor:
		return "no_anchor"
	case VerdictTooFar:
		return "too_far"
	case VerdictNoGround:
		return "no_ground"
	case VerdictNoFunds:
		return "no_funds"
	case VerdictOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}
