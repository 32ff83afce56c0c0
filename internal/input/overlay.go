package input

import (
	"sort"
	"sync"

	"github.com/micro-editor/tcell/v2"
)

// OverlayHandler is a modal overlay (confirmation dialog, session
// picker, aggregate view) that wants first refusal on key events (§4.G
// "Overlay priority").
type OverlayHandler interface {
	// Priority orders handlers highest-first; ties break in
	// registration order.
	Priority() int
	// HandleKey returns true if it consumed the event.
	HandleKey(ev *tcell.EventKey) bool
}

type overlayRegistry struct {
	mu       sync.Mutex
	handlers []OverlayHandler
}

func (r *overlayRegistry) register(h OverlayHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].Priority() > r.handlers[j].Priority()
	})
}

func (r *overlayRegistry) unregister(h OverlayHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.handlers {
		if existing == h {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

// dispatch tries every registered handler highest-priority-first,
// stopping at the first that reports handled.
func (r *overlayRegistry) dispatch(ev *tcell.EventKey) bool {
	r.mu.Lock()
	handlers := append([]OverlayHandler(nil), r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		if h.HandleKey(ev) {
			return true
		}
	}
	return false
}
