package emulator

import (
	"sync"

	headlessterm "github.com/danielgatis/go-headless-term"
)

// ringScrollback is a circular buffer implementing headlessterm's
// ScrollbackProvider, grounded on the teacher's ScrollbackBuffer
// (terminal/scrollback.go): fixed-capacity ring with an oldest-line
// cursor rather than a growing slice, so retention never allocates past
// its configured cap (§4.D "1000 entries" / the PTY's scrollback_limit).
type ringScrollback struct {
	mu       sync.Mutex
	lines    [][]headlessterm.Cell
	capacity int
	start    int
	count    int
}

func newRingScrollback(capacity int) *ringScrollback {
	if capacity <= 0 {
		capacity = 1
	}
	return &ringScrollback{
		lines:    make([][]headlessterm.Cell, capacity),
		capacity: capacity,
	}
}

func (r *ringScrollback) Push(line []headlessterm.Cell) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]headlessterm.Cell, len(line))
	copy(cp, line)

	if r.count < r.capacity {
		r.lines[(r.start+r.count)%r.capacity] = cp
		r.count++
		return
	}
	r.lines[r.start] = cp
	r.start = (r.start + 1) % r.capacity
}

func (r *ringScrollback) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *ringScrollback) Line(index int) []headlessterm.Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= r.count {
		return nil
	}
	return r.lines[(r.start+index)%r.capacity]
}

func (r *ringScrollback) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.count = 0
}

func (r *ringScrollback) SetMaxLines(max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if max <= 0 || max == r.capacity {
		return
	}

	newLines := make([][]headlessterm.Cell, max)
	n := r.count
	if n > max {
		n = max
	}
	// Keep the most recent n lines.
	for i := 0; i < n; i++ {
		srcIdx := r.start + (r.count - n) + i
		newLines[i] = r.lines[srcIdx%r.capacity]
	}

	r.lines = newLines
	r.capacity = max
	r.start = 0
	r.count = n
}

func (r *ringScrollback) MaxLines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity
}
