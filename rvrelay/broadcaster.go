package rvrelay

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/rivulet"
)

// broadcaster is the multicast primitive shared by all subscriptions of a relay.
//
// Each attached subscriber occupies a slot, tracked in the active set.
// Cancelled slots are cleared and reused by later attachments.
type broadcaster[T any] struct {
	mu       sync.Mutex
	conduits []*conduit[T]
	active   *bitset.BitSet
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{
		active: bitset.New(0),
	}
}

// attach registers s and then delivers its subscription.
func (b *broadcaster[T]) attach(s rivulet.Subscriber[T]) {
	c := &conduit[T]{b: b, downstream: s}

	b.mu.Lock()
	slot, ok := b.active.NextClear(0)
	if !ok || slot >= uint(len(b.conduits)) {
		slot = uint(len(b.conduits))
		b.conduits = append(b.conduits, nil)
	}
	c.slot = slot
	b.conduits[slot] = c
	b.active.Set(slot)
	b.mu.Unlock()

	s.ReceiveSubscription(c)
}

// send offers v to every attached subscriber with outstanding demand,
// in slot order. Subscribers without demand miss v.
//
// The caller must not call send concurrently with itself.
func (b *broadcaster[T]) send(v T) {
	b.mu.Lock()
	targets := make([]*conduit[T], 0, b.active.Count())
	for i, ok := b.active.NextSet(0); ok; i, ok = b.active.NextSet(i + 1) {
		targets = append(targets, b.conduits[i])
	}
	b.mu.Unlock()

	for _, c := range targets {
		c.offer(v)
	}
}

// reset detaches every conduit without notifying their subscribers,
// and releases the slot storage.
func (b *broadcaster[T]) reset() {
	b.mu.Lock()
	conduits := b.conduits
	b.conduits = nil
	b.active.ClearAll()
	b.mu.Unlock()

	for _, c := range conduits {
		if c != nil {
			c.detach()
		}
	}
}

func (b *broadcaster[T]) remove(c *conduit[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// After a reset, the slot may belong to nobody or to a newer conduit.
	if c.slot < uint(len(b.conduits)) && b.conduits[c.slot] == c {
		b.conduits[c.slot] = nil
		b.active.Clear(c.slot)
	}
}

// conduit is the upstream subscription of one relay subscriber's sink.
// It owns that subscriber's demand count.
type conduit[T any] struct {
	b    *broadcaster[T]
	slot uint

	mu         sync.Mutex
	downstream rivulet.Subscriber[T] // Nil once detached.
	demand     rivulet.Demand
}

func (c *conduit[T]) Request(d rivulet.Demand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.downstream != nil {
		c.demand = c.demand.Add(d)
	}
}

func (c *conduit[T]) Cancel() {
	if c.detach() {
		c.b.remove(c)
	}
}

// detach drops the subscriber, reporting whether it was still attached.
func (c *conduit[T]) detach() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.downstream == nil {
		return false
	}
	c.downstream = nil
	c.demand = rivulet.None
	return true
}

// offer delivers v if the subscriber is attached and has demand.
func (c *conduit[T]) offer(v T) {
	c.mu.Lock()
	ds := c.downstream
	if ds == nil || c.demand.IsZero() {
		c.mu.Unlock()
		return
	}
	c.demand = c.demand.Decrement()
	c.mu.Unlock()

	more := ds.ReceiveValue(v)

	c.mu.Lock()
	if c.downstream != nil {
		c.demand = c.demand.Add(more)
	}
	c.mu.Unlock()
}
