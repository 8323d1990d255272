package world

import (
	"math"
	"time"

	"github.com/duskwatch/server/internal/geom"
)

// Camera is an orthographic follow camera. OrthoSize is the half height of
// the view in world units; the half width is OrthoSize*Aspect.
type Camera struct {
	OrthoSize  float64
	Aspect     float64
	SmoothTime time.Duration
	Offset     geom.Vec2

	pos      geom.Vec2
	velocity geom.Vec2
}

func NewCamera(orthoSize, aspect float64, smoothTime time.Duration) *Camera {
	return &Camera{OrthoSize: orthoSize, Aspect: aspect, SmoothTime: smoothTime}
}

func (c *Camera) Position() geom.Vec2 { return c.pos }

// SnapTo places the camera at p with no residual velocity.
func (c *Camera) SnapTo(p geom.Vec2) {
	c.pos = p.Add(c.Offset)
	c.velocity = geom.Vec2{}
}

// HalfExtents returns the half width and half height of the view.
func (c *Camera) HalfExtents() (float64, float64) {
	return c.OrthoSize * c.Aspect, c.OrthoSize
}

// BoundingRadius is the distance from the view centre to its corners.
func (c *Camera) BoundingRadius() float64 {
	hw, hh := c.HalfExtents()
	return math.Hypot(hw, hh)
}

// ViewVolume returns the current view as inward-facing half-spaces.
func (c *Camera) ViewVolume() geom.Frustum {
	hw, hh := c.HalfExtents()
	return geom.OrthoFrustum(c.pos, hw, hh)
}

// Follow moves the camera toward target+Offset with critically damped
// smoothing (same response curve as Unity's SmoothDamp).
func (c *Camera) Follow(target geom.Vec2, dt time.Duration) {
	goal := target.Add(c.Offset)
	step := dt.Seconds()
	if step <= 0 {
		return
	}
	st := c.SmoothTime.Seconds()
	if st < 0.0001 {
		c.SnapTo(target)
		return
	}
	omega := 2 / st
	x := omega * step
	decay := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)
	change := c.pos.Sub(goal)
	temp := c.velocity.Add(change.Scale(omega)).Scale(step)
	c.velocity = c.velocity.Sub(temp.Scale(omega)).Scale(decay)
	out := goal.Add(change.Add(temp).Scale(decay))
	// No overshoot past the goal.
	if goal.Sub(c.pos).Dot(out.Sub(goal)) > 0 {
		out = goal
		c.velocity = geom.Vec2{}
	}
	c.pos = out
}
