package event

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Bus is a synchronous typed event bus. Emit delivers an event to every
// handler subscribed to its type before returning, in subscription order.
// Events emitted from inside a handler are delivered immediately (depth
// first), so the overall delivery order matches emission order per handler.
type Bus struct {
	mu       sync.Mutex // protects handler registration only
	handlers map[reflect.Type][]*handlerEntry
	nextID   uint64
}

type handlerEntry struct {
	id      uint64
	fn      func(any)
	removed atomic.Bool
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]*handlerEntry),
	}
}

// Subscription is returned by Subscribe and removes the handler when
// Unsubscribe is called. Unsubscribe is idempotent.
type Subscription struct {
	bus *Bus
	typ reflect.Type
	id  uint64
}

// Emit delivers event to all handlers registered for type T.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	// Copy so handlers may subscribe/unsubscribe during delivery.
	hs := append([]*handlerEntry(nil), b.handlers[t]...)
	b.mu.Unlock()
	for _, h := range hs {
		// unsubscribed by an earlier handler of this same delivery
		if h.removed.Load() {
			continue
		}
		h.fn(event)
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], &handlerEntry{
		id: b.nextID,
		fn: func(ev any) { fn(ev.(T)) },
	})
	return &Subscription{bus: b, typ: t, id: b.nextID}
}

// Unsubscribe removes the handler. Safe to call more than once and on nil.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[s.typ]
	for i, h := range hs {
		if h.id == s.id {
			h.removed.Store(true)
			b.handlers[s.typ] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// HandlerCount returns the number of live handlers for type T.
func HandlerCount[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[reflect.TypeOf((*T)(nil)).Elem()])
}

// Group collects subscriptions owned by one component so they can be
// released together when the component shuts down.
type Group struct {
	subs []*Subscription
}

// Add records s in the group and returns it.
func (g *Group) Add(s *Subscription) *Subscription {
	g.subs = append(g.subs, s)
	return s
}

// Close unsubscribes everything in the group.
func (g *Group) Close() {
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.subs = nil
}
