package layout

// recomputeLocked assigns rectangles to every pane per the current mode,
// ratio, and zoom state (§4.E "Geometry"). Caller holds w.mu.
// bumpGeometry controls whether layoutGeometryVersion advances; callers
// that already know rectangles are unchanged (e.g. a no-op focus change)
// can skip it, though every mutating operation here always passes true.
func (w *Workspace) recomputeLocked(bumpGeometry bool) {
	if w.main == nil {
		w.tree = nil
		if bumpGeometry {
			w.layoutGeometryVersion++
		}
		return
	}

	if w.zoomed {
		w.assignZoomedLocked()
	} else {
		switch w.mode {
		case Vertical:
			w.assignSideBySideLocked(true)
		case Horizontal:
			w.assignSideBySideLocked(false)
		case Stacked:
			w.assignStackedLocked()
		}
	}

	w.tree = buildSpatialTree(w)

	if bumpGeometry {
		w.layoutGeometryVersion++
	}
}

func (w *Workspace) assignZoomedLocked() {
	focused := w.focused
	for _, p := range w.allPanesLocked() {
		if p.Id == focused {
			p.Rect = w.viewport
		} else {
			p.Rect = Rect{}
		}
	}
}

// assignSideBySideLocked lays out vertical (main left / stack right) or
// horizontal (main top / stack bottom) mode, tiling the stack along the
// perpendicular axis with equal shares and remainder to the last pane.
func (w *Workspace) assignSideBySideLocked(vertical bool) {
	vp := w.viewport
	if len(w.stack) == 0 {
		w.main.Rect = vp
		return
	}

	if vertical {
		mainW := clampMin(int(float64(vp.W)*w.mainRatio), w.minWidth)
		stackW := vp.W - mainW
		if stackW < w.minWidth {
			stackW = w.minWidth
			mainW = vp.W - stackW
		}
		w.main.Rect = Rect{X: vp.X, Y: vp.Y, W: mainW, H: vp.H}
		tileVertical(w.stack, Rect{X: vp.X + mainW, Y: vp.Y, W: stackW, H: vp.H}, w.minHeight)
	} else {
		mainH := clampMin(int(float64(vp.H)*w.mainRatio), w.minHeight)
		stackH := vp.H - mainH
		if stackH < w.minHeight {
			stackH = w.minHeight
			mainH = vp.H - stackH
		}
		w.main.Rect = Rect{X: vp.X, Y: vp.Y, W: vp.W, H: mainH}
		tileHorizontal(w.stack, Rect{X: vp.X, Y: vp.Y + mainH, W: vp.W, H: stackH}, w.minWidth)
	}
}

// tileVertical divides area into len(panes) equal-height bands, giving any
// remainder to the last pane.
func tileVertical(panes []*Pane, area Rect, minHeight int) {
	n := len(panes)
	if n == 0 {
		return
	}
	each := clampMin(area.H/n, minHeight)
	y := area.Y
	for i, p := range panes {
		h := each
		if i == n-1 {
			h = area.H - (each * (n - 1))
			if h < minHeight {
				h = minHeight
			}
		}
		p.Rect = Rect{X: area.X, Y: y, W: area.W, H: h}
		y += h
	}
}

func tileHorizontal(panes []*Pane, area Rect, minWidth int) {
	n := len(panes)
	if n == 0 {
		return
	}
	each := clampMin(area.W/n, minWidth)
	x := area.X
	for i, p := range panes {
		wid := each
		if i == n-1 {
			wid = area.W - (each * (n - 1))
			if wid < minWidth {
				wid = minWidth
			}
		}
		p.Rect = Rect{X: x, Y: area.Y, W: wid, H: area.H}
		x += wid
	}
}

// assignStackedLocked gives main the left region; only the active stack
// pane receives a body rectangle on the right, the rest get a hidden
// (zero) rectangle (their "tab header" is a render-layer concern, not a
// geometry one).
func (w *Workspace) assignStackedLocked() {
	vp := w.viewport
	if len(w.stack) == 0 {
		w.main.Rect = vp
		return
	}

	mainW := clampMin(int(float64(vp.W)*w.mainRatio), w.minWidth)
	stackW := vp.W - mainW
	if stackW < w.minWidth {
		stackW = w.minWidth
		mainW = vp.W - stackW
	}

	w.main.Rect = Rect{X: vp.X, Y: vp.Y, W: mainW, H: vp.H}

	for i, p := range w.stack {
		if i == w.activeStackIndex {
			p.Rect = Rect{X: vp.X + mainW, Y: vp.Y, W: stackW, H: vp.H}
		} else {
			p.Rect = Rect{}
		}
	}
}

func (w *Workspace) allPanesLocked() []*Pane {
	out := make([]*Pane, 0, 1+len(w.stack))
	out = append(out, w.main)
	out = append(out, w.stack...)
	return out
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
