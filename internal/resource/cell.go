// Package resource implements ResourceCell: an integer counter with a
// waitable, broadcast-and-clear change signal.
package resource

import (
	"context"
	"sync"
)

// Cell holds an integer amount and wakes any current waiters exactly once
// per change, then clears the signal so the next round starts fresh.
// Waiters must re-check their own predicate after waking — a wake only
// guarantees "the value changed since I started waiting", not that any
// particular predicate now holds.
type Cell struct {
	mu     sync.Mutex
	amount int
	notify chan struct{}
}

// New creates a Cell starting at amount.
func New(amount int) *Cell {
	return &Cell{amount: amount, notify: make(chan struct{})}
}

// Get returns the current amount.
func (c *Cell) Get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.amount
}

// Set replaces the amount and wakes all current waiters, then clears the
// signal. The new value is visible to Get before any waiter wakes.
func (c *Cell) Set(amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amount = amount
	c.broadcastLocked()
}

// Add adjusts the amount by delta (which may be negative) and wakes
// waiters. Returns the new amount.
func (c *Cell) Add(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amount += delta
	c.broadcastLocked()
	return c.amount
}

func (c *Cell) broadcastLocked() {
	close(c.notify)
	c.notify = make(chan struct{})
}

// Wait blocks until the next change (or ctx is cancelled), then returns.
// It does not re-check any predicate — callers that need one should use
// WaitUntil, or loop themselves.
func (c *Cell) Wait(ctx context.Context) error {
	c.mu.Lock()
	ch := c.notify
	c.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitUntil blocks until predicate(Get()) is true, re-checking after every
// change notification (including spurious ones).
func (c *Cell) WaitUntil(ctx context.Context, predicate func(int) bool) error {
	for {
		if predicate(c.Get()) {
			return nil
		}
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
}
