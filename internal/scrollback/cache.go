// Package scrollback implements the two-tier LRU cache and live-row cache
// sitting between an emulator.Emulator and its consumers (renderer,
// selection, search), per spec.md §4.D. There is no single teacher file
// for this: thicc's ScrollbackBuffer (internal/terminal/scrollback.go) is
// a plain ring buffer with no LRU eviction or live/packed split, so the
// cache-invalidation policy here is original, built against
// hashicorp/golang-lru/v2 (an enrichment pick — not used anywhere in the
// teacher, but a natural fit for spec.md's "LRU bounded at 1000 entries"
// requirement and a real, widely-used Go library for exactly this job).
package scrollback

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openmux/openmux/internal/cellgrid"
	"github.com/openmux/openmux/internal/emulator"
)

const defaultLRUSize = 1000

// Cache is the per-session scrollback + live-row cache.
type Cache struct {
	mu sync.Mutex

	emu emulator.Emulator

	packed *lru.Cache[int, cellgrid.PackedRow]
	rows   *lru.Cache[int, cellgrid.Row]
	live   []cellgrid.PackedRow

	cursor emulator.Cursor
	modes  emulator.Mode

	lastLen int
	wasAlt  bool

	version uint64

	updateSubs  *subList[emulator.DirtyUpdate]
	versionSubs *subList[uint64]

	cancelUpdates emulator.Cancel
}

// NewCache constructs a Cache bound to emu and subscribes to its updates.
func NewCache(emu emulator.Emulator) *Cache {
	packed, _ := lru.New[int, cellgrid.PackedRow](defaultLRUSize)
	rows, _ := lru.New[int, cellgrid.Row](defaultLRUSize)

	c := &Cache{
		emu:         emu,
		packed:      packed,
		rows:        rows,
		updateSubs:  newSubList[emulator.DirtyUpdate](),
		versionSubs: newSubList[uint64](),
	}
	c.cancelUpdates = emu.SubscribeUpdates(c.onUpdate)
	return c
}

// Close detaches from the emulator's update stream.
func (c *Cache) Close() {
	if c.cancelUpdates != nil {
		c.cancelUpdates()
	}
}

// Version returns the current monotonic version counter. Consumers (e.g.
// selection/search overlays) compare this against a last-seen value to
// decide whether they need to recompute anything.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// ScrollbackLen returns the scrollback length observed by the most
// recent dirty update, i.e. the boundary between scrollback offsets and
// live viewport rows in the pane's absolute line space.
func (c *Cache) ScrollbackLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLen
}

// SubscribeVersion fires whenever the version counter advances.
func (c *Cache) SubscribeVersion(cb func(uint64)) emulator.Cancel {
	return c.versionSubs.add(cb)
}

// SubscribeUpdates re-publishes every dirty update the cache observes,
// after it has been applied to the live cache and invalidation has run.
func (c *Cache) SubscribeUpdates(cb func(emulator.DirtyUpdate)) emulator.Cancel {
	return c.updateSubs.add(cb)
}

// Cursor returns the last cached cursor position.
func (c *Cache) Cursor() emulator.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Modes returns the last cached mode bitset.
func (c *Cache) Modes() emulator.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes
}

// onUpdate applies the invalidation policy of §4.D, updates the live
// cache, bumps the version counter, and fans the update back out.
func (c *Cache) onUpdate(u emulator.DirtyUpdate) {
	c.mu.Lock()

	nowAlt := u.Modes&emulator.ModeAlternateScreen != 0

	switch {
	case nowAlt != c.wasAlt:
		c.clearLocked()
	case u.ScrollbackLen > c.lastLen:
		// grew: offsets already cached remain valid, no eviction
	case u.ScrollbackLen == c.lastLen:
		if u.ScrollbackAtCap {
			c.clearLocked()
		}
		// not at cap: in-place edits, no invalidation
	default:
		// shrank
		c.clearLocked()
	}

	c.lastLen = u.ScrollbackLen
	c.wasAlt = nowAlt
	c.cursor = u.Cursor
	c.modes = u.Modes

	if u.Full {
		c.live = append([]cellgrid.PackedRow(nil), u.Rows...)
	} else {
		for row, packed := range u.Changed {
			for len(c.live) <= row {
				c.live = append(c.live, cellgrid.PackedRow{})
			}
			c.live[row] = packed
		}
	}

	c.version++
	version := c.version
	c.mu.Unlock()

	c.updateSubs.notify(u)
	c.versionSubs.notify(version)
}

// clearLocked empties both LRU caches. Caller holds c.mu.
func (c *Cache) clearLocked() {
	c.packed.Purge()
	c.rows.Purge()
}

// GetLiveRow returns the cached packed row for a viewport row, or false if
// not yet populated.
func (c *Cache) GetLiveRow(viewportRow int) (cellgrid.PackedRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if viewportRow < 0 || viewportRow >= len(c.live) {
		return cellgrid.PackedRow{}, false
	}
	return c.live[viewportRow], true
}

// GetPackedScrollbackLine returns the packed row at absolute scrollback
// offset, fetching and caching it from the emulator on a miss.
func (c *Cache) GetPackedScrollbackLine(offset int) (cellgrid.PackedRow, bool) {
	c.mu.Lock()
	if pr, ok := c.packed.Get(offset); ok {
		c.mu.Unlock()
		return pr, true
	}
	c.mu.Unlock()

	line := c.emu.GetScrollbackLine(offset)
	if line == nil {
		return cellgrid.PackedRow{}, false
	}
	pr := cellgrid.PackCells(line, len(line))

	c.mu.Lock()
	c.packed.Add(offset, pr)
	c.mu.Unlock()
	return pr, true
}

// GetRow returns the decoded row at absolute scrollback offset, fetching
// and caching the packed form first if necessary.
func (c *Cache) GetRow(offset int) (cellgrid.Row, bool) {
	c.mu.Lock()
	if row, ok := c.rows.Get(offset); ok {
		c.mu.Unlock()
		return row, true
	}
	c.mu.Unlock()

	pr, ok := c.GetPackedScrollbackLine(offset)
	if !ok {
		return nil, false
	}
	row := cellgrid.DecodePackedRow(&pr, nil)

	c.mu.Lock()
	c.rows.Add(offset, row)
	c.mu.Unlock()
	return row, true
}

// PrefetchRange fills the packed cache for [start, start+count): each
// offset not already cached is fetched with its own GetScrollbackLine
// call (§4.D "Prefetch"); there is no batched fetch.
func (c *Cache) PrefetchRange(start, count int) {
	if count <= 0 {
		return
	}
	for offset := start; offset < start+count; offset++ {
		if _, ok := c.packed.Peek(offset); ok {
			continue
		}
		line := c.emu.GetScrollbackLine(offset)
		if line == nil {
			continue
		}
		pr := cellgrid.PackCells(line, len(line))
		c.mu.Lock()
		c.packed.Add(offset, pr)
		c.mu.Unlock()
	}
}
