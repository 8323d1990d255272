package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y float64 }
type health struct{ HP int }

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	assert.Equal(t, uint32(1), a.Index())

	require.True(t, p.Destroy(a))
	assert.False(t, p.Destroy(a), "stale id")
	assert.False(t, p.Alive(a))

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.True(t, p.Alive(b))
	assert.False(t, p.Alive(0))
	assert.Equal(t, 1, p.Live())
}

func TestWorldDeferredDestroy(t *testing.T) {
	w := NewWorld()
	pos := NewStore[position]()
	hp := NewStore[health]()
	w.Register(pos)
	w.Register(hp)

	a := w.CreateEntity()
	b := w.CreateEntity()
	pos.Set(a, &position{1, 2})
	hp.Set(a, &health{10})
	pos.Set(b, &position{3, 4})

	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	assert.Equal(t, 1, w.Pending())
	assert.True(t, w.Alive(a), "alive until flushed")

	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.Alive(a))
	_, ok := pos.Get(a)
	assert.False(t, ok)
	_, ok = hp.Get(a)
	assert.False(t, ok)
	_, ok = pos.Get(b)
	assert.True(t, ok)
	assert.Equal(t, 1, w.Live())
	assert.Zero(t, w.Pending())

	w.MarkForDestruction(a)
	assert.Zero(t, w.Pending(), "dead ids are not queued")
}
