package rvlatest

import "sync"

// latestCell holds the most recent secondary value.
// Once set, it is never empty again.
type latestCell[S any] struct {
	mu  sync.RWMutex
	val S
	set bool
}

func (c *latestCell[S]) store(v S) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.val = v
	c.set = true
}

func (c *latestCell[S]) load() (S, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.val, c.set
}
