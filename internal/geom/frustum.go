package geom

import "math"

// Plane is the half-space {p : Normal·p + D >= 0}. The normal points toward
// the inside of the view volume.
type Plane struct {
	Normal Vec2
	D      float64
}

// Distance returns the signed distance of p from the plane (positive inside).
func (pl Plane) Distance(p Vec2) float64 {
	return pl.Normal.Dot(p) + pl.D
}

// Frustum is a convex view volume expressed as inward-facing half-spaces.
type Frustum struct {
	Planes []Plane
}

// OrthoFrustum builds the four side planes of an orthographic camera centred
// at c that sees halfW to the left/right and halfH up/down.
func OrthoFrustum(c Vec2, halfW, halfH float64) Frustum {
	return Frustum{Planes: []Plane{
		{Normal: Vec2{X: 1}, D: -(c.X - halfW)}, // left
		{Normal: Vec2{X: -1}, D: c.X + halfW},   // right
		{Normal: Vec2{Y: 1}, D: -(c.Y - halfH)}, // bottom
		{Normal: Vec2{Y: -1}, D: c.Y + halfH},   // top
	}}
}

// IntersectsAABB reports whether box is inside or straddles the volume.
// A box is rejected only when one plane has the whole box on its outer side,
// the same conservative test engines use for frustum culling.
func (f Frustum) IntersectsAABB(box AABB) bool {
	if len(f.Planes) == 0 {
		return false
	}
	for _, pl := range f.Planes {
		// Projected radius of the box onto the plane normal.
		r := box.Half.X*math.Abs(pl.Normal.X) + box.Half.Y*math.Abs(pl.Normal.Y)
		if pl.Distance(box.Center)+r < 0 {
			return false
		}
	}
	return true
}

// Contains reports whether p is on the inner side of every plane.
func (f Frustum) Contains(p Vec2) bool {
	if len(f.Planes) == 0 {
		return false
	}
	for _, pl := range f.Planes {
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}
