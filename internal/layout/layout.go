// Package layout implements the per-workspace master-stack pane layout
// engine of spec.md §4.E: geometry for vertical/horizontal/stacked modes,
// pane lifecycle (new/close), focus and geometry-based move, zoom, and
// the two monotonic version counters downstream consumers tie work to.
//
// thicc's internal/layout/manager.go is a fixed 3-panel editor layout
// (file tree + source control + one of three named terminal slots), not
// a generalized tiling engine, so it grounds only idiom here: a
// mutex-guarded manager struct holding percentage ratios and Region
// rectangles, not the master-stack/spatial-tree model itself, which is
// this repo's own generalization of that idiom to spec.md's pane model.
package layout

import (
	"sync"

	"github.com/openmux/openmux/internal/idgen"
)

// Direction is a navigation/move direction.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Mode selects how main and stack are composed.
type Mode int

const (
	Vertical Mode = iota
	Horizontal
	Stacked
)

const (
	defaultMainRatio = 0.5
	defaultMinWidth  = 10
	defaultMinHeight = 5
)

// Rect is a screen-space rectangle in cells.
type Rect struct {
	X, Y, W, H int
}

// Hidden reports whether the rectangle has no visible area.
func (r Rect) Hidden() bool { return r.W <= 0 || r.H <= 0 }

// Pane is one tile in the layout.
type Pane struct {
	Id    string
	PtyId string
	Title string
	Rect  Rect
}

// Workspace is one master-stack layout instance.
type Workspace struct {
	mu sync.Mutex

	ids *idgen.Counter

	mode Mode

	main  *Pane
	stack []*Pane

	activeStackIndex int
	focused          string // pane id

	zoomed bool

	viewport Rect

	mainRatio float64
	minWidth  int
	minHeight int

	layoutVersion         uint64
	layoutGeometryVersion uint64

	tree *spatialTree
}

// NewWorkspace constructs an empty workspace sized to viewport.
func NewWorkspace(ids *idgen.Counter, viewport Rect) *Workspace {
	return &Workspace{
		ids:       ids,
		mode:      Vertical,
		viewport:  viewport,
		mainRatio: defaultMainRatio,
		minWidth:  defaultMinWidth,
		minHeight: defaultMinHeight,
	}
}

// LayoutVersion returns the structural-change counter.
func (w *Workspace) LayoutVersion() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layoutVersion
}

// LayoutGeometryVersion returns the rectangle-change counter.
func (w *Workspace) LayoutGeometryVersion() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layoutGeometryVersion
}

// Panes returns a snapshot of every pane (main first, then stack in
// order), with rectangles reflecting the last recompute.
func (w *Workspace) Panes() []Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Pane, 0, 1+len(w.stack))
	if w.main != nil {
		out = append(out, *w.main)
	}
	for _, p := range w.stack {
		out = append(out, *p)
	}
	return out
}

// Focused returns the currently focused pane id, or "" if there are none.
func (w *Workspace) Focused() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// SetViewport updates the viewport rectangle and recomputes geometry.
func (w *Workspace) SetViewport(viewport Rect) {
	w.mu.Lock()
	w.viewport = viewport
	w.recomputeLocked(true)
	w.mu.Unlock()
}

// NewPane appends a pane to the stack (or installs it as main if this is
// the first pane), focuses it, and bumps layoutVersion.
func (w *Workspace) NewPane(ptyId, title string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.ids.Next()
	p := &Pane{Id: id, PtyId: ptyId, Title: title}

	if w.main == nil {
		w.main = p
	} else {
		w.stack = append(w.stack, p)
		w.activeStackIndex = len(w.stack) - 1
	}
	w.focused = id

	w.bumpVersionLocked()
	w.recomputeLocked(true)
	return id
}

// ClosePane removes a pane, promoting the first stack pane to main if
// main was closed, shifting subsequent stack indices left, and
// transferring focus per §4.E.
func (w *Workspace) ClosePane(paneId string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.main != nil && w.main.Id == paneId {
		if len(w.stack) > 0 {
			w.main = w.stack[0]
			w.stack = w.stack[1:]
			if w.activeStackIndex > 0 {
				w.activeStackIndex--
			}
		} else {
			w.main = nil
		}
		w.focused = w.focusAfterCloseLocked()
		w.bumpVersionLocked()
		w.recomputeLocked(true)
		return
	}

	for i, p := range w.stack {
		if p.Id != paneId {
			continue
		}
		w.stack = append(w.stack[:i], w.stack[i+1:]...)
		if w.activeStackIndex >= len(w.stack) {
			w.activeStackIndex = len(w.stack) - 1
		}
		if w.activeStackIndex < 0 {
			w.activeStackIndex = 0
		}
		w.focused = w.focusAfterCloseLocked()
		w.bumpVersionLocked()
		w.recomputeLocked(true)
		return
	}
}

func (w *Workspace) focusAfterCloseLocked() string {
	if w.main != nil {
		if w.activeStackIndex >= 0 && w.activeStackIndex < len(w.stack) {
			return w.stack[w.activeStackIndex].Id
		}
		return w.main.Id
	}
	return ""
}

// Focus sets the focused pane directly (used by input-driven pane
// switching that isn't expressed as a directional move).
func (w *Workspace) Focus(paneId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.main != nil && w.main.Id == paneId {
		w.focused = paneId
		return
	}
	for i, p := range w.stack {
		if p.Id == paneId {
			w.activeStackIndex = i
			w.focused = paneId
			return
		}
	}
}

// FocusDirection moves focus per §4.E's per-mode navigation rules.
func (w *Workspace) FocusDirection(dir Direction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.main == nil {
		return
	}
	focusedIsMain := w.focused == w.main.Id

	switch w.mode {
	case Vertical, Horizontal:
		toStack := East
		toMain := West
		if w.mode == Horizontal {
			toStack = South
			toMain = North
		}
		switch dir {
		case toStack:
			if focusedIsMain && len(w.stack) > 0 {
				w.focused = w.stack[w.activeStackIndex].Id
			}
		case toMain:
			if !focusedIsMain {
				w.focused = w.main.Id
			}
		default:
			// In horizontal mode the stack runs left to right, so E/W
			// step through it the way S/N do in vertical mode.
			if dir == East {
				dir = South
			} else if dir == West {
				dir = North
			}
			w.navigateStackLocked(dir)
		}
	case Stacked:
		if dir == North || dir == South {
			w.navigateStackLocked(dir)
		} else if dir == West && !focusedIsMain {
			w.focused = w.main.Id
		} else if dir == East && focusedIsMain && len(w.stack) > 0 {
			w.focused = w.stack[w.activeStackIndex].Id
		}
	}
}

// navigateStackLocked moves within the stack by N/S; FocusDirection
// maps horizontal mode's E/W onto S/N before calling it.
func (w *Workspace) navigateStackLocked(dir Direction) {
	if len(w.stack) == 0 {
		return
	}
	// Only applies when focus is already within the stack.
	idx := -1
	for i, p := range w.stack {
		if p.Id == w.focused {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	switch dir {
	case North:
		if idx > 0 {
			w.activeStackIndex = idx - 1
			w.focused = w.stack[idx-1].Id
		}
	case South:
		if idx < len(w.stack)-1 {
			w.activeStackIndex = idx + 1
			w.focused = w.stack[idx+1].Id
		}
	}
}

// SwapMain swaps the focused stack pane with main.
func (w *Workspace) SwapMain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.main == nil {
		return
	}
	for i, p := range w.stack {
		if p.Id == w.focused {
			w.main, w.stack[i] = w.stack[i], w.main
			w.bumpVersionLocked()
			w.recomputeLocked(true)
			return
		}
	}
}

// ToggleZoom flips the zoomed flag and recomputes geometry.
func (w *Workspace) ToggleZoom() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.zoomed = !w.zoomed
	w.bumpVersionLocked()
	w.recomputeLocked(true)
}

// LayoutMode returns the current composition mode.
func (w *Workspace) LayoutMode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Zoomed reports whether the focused pane is currently zoomed to fill
// the viewport.
func (w *Workspace) Zoomed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.zoomed
}

// SetLayoutMode changes composition mode and recomputes geometry.
func (w *Workspace) SetLayoutMode(mode Mode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
	w.bumpVersionLocked()
	w.recomputeLocked(true)
}

// Resize adjusts mainRatio in the axis implied by dir, clamped so both
// sides keep their minima.
func (w *Workspace) Resize(dir Direction, delta float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.mode {
	case Vertical:
		if dir != East && dir != West {
			return
		}
	case Horizontal:
		if dir != North && dir != South {
			return
		}
	default:
		return
	}

	sign := 1.0
	if dir == West || dir == North {
		sign = -1.0
	}
	w.mainRatio += sign * delta
	w.clampRatioLocked()
	w.bumpVersionLocked()
	w.recomputeLocked(true)
}

func (w *Workspace) clampRatioLocked() {
	total := w.viewport.W
	if w.mode == Horizontal {
		total = w.viewport.H
	}
	if total <= 0 {
		return
	}
	minFrac := float64(w.minWidthOrHeightLocked()) / float64(total)
	if w.mainRatio < minFrac {
		w.mainRatio = minFrac
	}
	if w.mainRatio > 1-minFrac {
		w.mainRatio = 1 - minFrac
	}
}

func (w *Workspace) minWidthOrHeightLocked() int {
	if w.mode == Horizontal {
		return w.minHeight
	}
	return w.minWidth
}

func (w *Workspace) bumpVersionLocked() {
	w.layoutVersion++
}
