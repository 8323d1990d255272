package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAABBOverlapExcludesTouchingEdges(t *testing.T) {
	a := Box(V(0, 0), 0.5)
	assert.True(t, a.Overlaps(Box(V(0.9, 0), 0.5)))
	assert.False(t, a.Overlaps(Box(V(1, 0), 0.5)))
	assert.True(t, a.Contains(V(0.5, -0.5)))
	assert.False(t, a.Contains(V(0.51, 0)))
}

func TestAABBIntersectsSegment(t *testing.T) {
	b := Box(V(0, 0), 1)
	tests := []struct {
		name string
		a, d Vec2
		want bool
	}{
		{"straight down through", V(0, 5), V(0, -10), true},
		{"stops short", V(0, 5), V(0, -3), false},
		{"parallel outside", V(2, 5), V(0, -10), false},
		{"diagonal", V(-3, -3), V(6, 6), true},
		{"starts inside", V(0, 0), V(0, 0.1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.IntersectsSegment(tt.a, tt.d))
		})
	}
}

func TestOrthoFrustum(t *testing.T) {
	f := OrthoFrustum(V(10, 0), 4, 2)

	assert.True(t, f.Contains(V(10, 0)))
	assert.True(t, f.Contains(V(14, 2)))
	assert.False(t, f.Contains(V(14.01, 0)))

	assert.True(t, f.IntersectsAABB(Box(V(10, 0), 0.05)))
	assert.True(t, f.IntersectsAABB(Box(V(14.04, 0), 0.05)), "straddles the right edge")
	assert.False(t, f.IntersectsAABB(Box(V(14.1, 0), 0.05)))
	assert.False(t, f.IntersectsAABB(Box(V(10, -2.2), 0.05)))
	assert.False(t, Frustum{}.IntersectsAABB(Box(V(0, 0), 1)))
}

func TestVec2(t *testing.T) {
	v := FromAngle(math.Pi / 2)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, v.Y, 1e-12)
	assert.Equal(t, 5.0, V(3, 4).Length())
	assert.Equal(t, Vec2{}, Vec2{}.Normalized())
	assert.Equal(t, V(1, 2), Lerp(V(0, 0), V(2, 4), 0.5))
}
