// Package idgen is the process-wide id allocator. Design Notes (§9) call
// for a single allocator service owned by the main loop rather than
// scattered package-level counters, so pane/PTY/session ids stay
// collision-free across a session load.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Counter is a monotonically increasing, thread-safe id source with a
// fixed string prefix (e.g. "pane-").
type Counter struct {
	prefix string
	next   atomic.Uint64
}

// NewCounter returns a Counter starting at 1.
func NewCounter(prefix string) *Counter {
	c := &Counter{prefix: prefix}
	c.next.Store(1)
	return c
}

// Next returns the next id in the sequence, formatted "<prefix><n>".
func (c *Counter) Next() string {
	n := c.next.Add(1) - 1
	return fmt.Sprintf("%s%d", c.prefix, n)
}

// Peek returns the numeric suffix that the *next* call to Next would
// use, without consuming it.
func (c *Counter) Peek() uint64 {
	return c.next.Load()
}

// AdvancePast bumps the counter so that Next() never returns an id whose
// numeric suffix is <= n. Used after loading a persisted session so newly
// created panes can't collide with ids already on disk (§4.E "Layout IDs").
func (c *Counter) AdvancePast(n uint64) {
	for {
		cur := c.next.Load()
		if cur > n {
			return
		}
		if c.next.CompareAndSwap(cur, n+1) {
			return
		}
	}
}

// NewOpaqueID returns a random, stable-for-the-life-of-the-process
// identifier (PTY ids, session ids). Session ids additionally get a
// timestamp prefix by the caller (§6) so they sort and are human-skimmable;
// this function only guarantees uniqueness.
func NewOpaqueID() string {
	return uuid.NewString()
}
