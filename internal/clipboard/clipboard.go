// Package clipboard wraps zyedidia/clipper's backend-preference chain
// behind the single Read/Write surface the input router and selection
// pipeline need, matching the way thicc's own (unretrieved) clipboard
// package sits between terminal.Panel and the OS clipboard.
package clipboard

import (
	"sync"

	"github.com/zyedidia/clipper"
)

// Register selects which of the clipboard's multiple registers an
// operation addresses; most callers want RegPrimary.
type Register byte

const (
	RegPrimary   Register = '"'
	RegClipboard Register = '+'
)

var (
	mu      sync.Mutex
	backend clipper.Clipboard
	ready   bool
)

// Methods is the backend preference order tried by Setup, matching the
// platform-detection chain clipper ships with: native X11/Wayland first,
// falling back to the OSC 52 terminal escape and finally an in-memory
// register so paste/copy never hard-fails headless.
var Methods = []string{"x11", "wayland", "osc52", "internal"}

// Setup probes Methods in order and keeps the first that initializes
// successfully. Safe to call more than once; later calls are no-ops once
// a backend is ready.
func Setup() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	cb, err := clipper.GetClipboard(Methods...)
	if err != nil {
		return err
	}
	backend = cb
	ready = true
	return nil
}

// Read returns the current contents of reg, or "" if no backend is ready.
func Read(reg Register) string {
	mu.Lock()
	cb := backend
	mu.Unlock()
	if cb == nil {
		return ""
	}
	text, err := cb.Read(byte(reg))
	if err != nil {
		return ""
	}
	return text
}

// Write stores text into reg. A no-op if no backend is ready.
func Write(text string, reg Register) error {
	mu.Lock()
	cb := backend
	mu.Unlock()
	if cb == nil {
		return nil
	}
	return cb.Write(text, byte(reg))
}
