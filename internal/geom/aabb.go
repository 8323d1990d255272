package geom

// AABB is an axis-aligned box described by its centre and half extents.
type AABB struct {
	Center Vec2
	Half   Vec2
}

// Box returns a square AABB of side 2*half centred at c.
func Box(c Vec2, half float64) AABB {
	return AABB{Center: c, Half: Vec2{X: half, Y: half}}
}

func (b AABB) Min() Vec2 { return b.Center.Sub(b.Half) }
func (b AABB) Max() Vec2 { return b.Center.Add(b.Half) }

// Overlaps reports whether two boxes share interior area. Touching edges do
// not count, so neighbouring grid cells never overlap each other.
func (b AABB) Overlaps(o AABB) bool {
	bmin, bmax := b.Min(), b.Max()
	omin, omax := o.Min(), o.Max()
	return bmin.X < omax.X && bmax.X > omin.X &&
		bmin.Y < omax.Y && bmax.Y > omin.Y
}

// Contains reports whether p lies inside or on the border of b.
func (b AABB) Contains(p Vec2) bool {
	mn, mx := b.Min(), b.Max()
	return p.X >= mn.X && p.X <= mx.X && p.Y >= mn.Y && p.Y <= mx.Y
}

// IntersectsSegment reports whether the segment from a to a+d touches b
// (slab test).
func (b AABB) IntersectsSegment(a, d Vec2) bool {
	mn, mx := b.Min(), b.Max()
	tmin, tmax := 0.0, 1.0
	for axis := 0; axis < 2; axis++ {
		var o, dir, lo, hi float64
		if axis == 0 {
			o, dir, lo, hi = a.X, d.X, mn.X, mx.X
		} else {
			o, dir, lo, hi = a.Y, d.Y, mn.Y, mx.Y
		}
		if dir == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t1 := (lo - o) / dir
		t2 := (hi - o) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return false
		}
	}
	return true
}
