package layout

// spatialTree is a thin adjacency view over the current pane rectangles,
// rebuilt every recompute, used by MovePane's within-tree swap attempt
// before it falls back to geometry scoring.
type spatialTree struct {
	panes []*Pane
}

func buildSpatialTree(w *Workspace) *spatialTree {
	return &spatialTree{panes: w.allPanesLocked()}
}

// neighbor returns the immediate neighbor of from along dir, using
// adjacency (shared edge, overlapping perpendicular extent), or nil if
// there is none.
func (t *spatialTree) neighbor(from *Pane, dir Direction) *Pane {
	var best *Pane
	bestDist := -1

	for _, p := range t.panes {
		if p == from || p.Rect.Hidden() || from.Rect.Hidden() {
			continue
		}
		if !adjacent(from.Rect, p.Rect, dir) {
			continue
		}
		dist := primaryDistance(from.Rect, p.Rect, dir)
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = p
		}
	}
	return best
}

// adjacent reports whether b sits immediately along dir from a with
// overlapping perpendicular extent (a shared edge).
func adjacent(a, b Rect, dir Direction) bool {
	switch dir {
	case East:
		return b.X >= a.X+a.W && overlapsY(a, b)
	case West:
		return b.X+b.W <= a.X && overlapsY(a, b)
	case South:
		return b.Y >= a.Y+a.H && overlapsX(a, b)
	case North:
		return b.Y+b.H <= a.Y && overlapsX(a, b)
	}
	return false
}

func overlapsX(a, b Rect) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W
}

func overlapsY(a, b Rect) bool {
	return a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

func primaryDistance(a, b Rect, dir Direction) int {
	switch dir {
	case East:
		return b.X - (a.X + a.W)
	case West:
		return (a.X) - (b.X + b.W)
	case South:
		return b.Y - (a.Y + a.H)
	case North:
		return (a.Y) - (b.Y + b.H)
	}
	return 0
}

// MovePane implements §4.E's two-step move: an immediate-neighbor swap
// within the spatial tree, falling back to the minimum positive geometry
// score (primary distance along dir, midpoint distance on the
// perpendicular axis, and an overlap penalty) over every other pane.
func (w *Workspace) MovePane(dir Direction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.main == nil {
		return
	}
	source := w.paneByIdLocked(w.focused)
	if source == nil {
		return
	}

	var target *Pane
	if w.tree != nil {
		target = w.tree.neighbor(source, dir)
	}
	if target == nil {
		target = w.geometryScoreTargetLocked(source, dir)
	}
	if target == nil {
		return
	}

	movedId := source.Id
	swapIdentities(source, target)

	// The moved identity now lives at target's rectangle; if that's a
	// stack slot, reveal it.
	for i, p := range w.stack {
		if p == target {
			w.activeStackIndex = i
		}
	}

	w.focused = movedId
	w.bumpVersionLocked()
	w.recomputeLocked(true)
}

func (w *Workspace) paneByIdLocked(id string) *Pane {
	if w.main != nil && w.main.Id == id {
		return w.main
	}
	for _, p := range w.stack {
		if p.Id == id {
			return p
		}
	}
	return nil
}

// geometryScoreTargetLocked picks the pane with minimum positive score
// along dir from source, excluding source itself.
func (w *Workspace) geometryScoreTargetLocked(source *Pane, dir Direction) *Pane {
	var best *Pane
	bestScore := -1.0

	for _, p := range w.allPanesLocked() {
		if p == source || p.Rect.Hidden() {
			continue
		}
		score, ok := geometryScore(source.Rect, p.Rect, dir)
		if !ok {
			continue
		}
		if bestScore < 0 || score < bestScore {
			bestScore = score
			best = p
		}
	}
	return best
}

// geometryScore returns (score, true) when b is positioned along dir
// from a, combining primary-axis distance, perpendicular midpoint
// distance, and an overlap penalty that favors panes whose perpendicular
// extent overlaps a's.
func geometryScore(a, b Rect, dir Direction) (float64, bool) {
	var primary float64
	switch dir {
	case East:
		primary = float64(b.X - a.X)
	case West:
		primary = float64(a.X - b.X)
	case South:
		primary = float64(b.Y - a.Y)
	case North:
		primary = float64(a.Y - b.Y)
	}
	if primary <= 0 {
		return 0, false
	}

	var secondary float64
	var overlapPenalty float64
	if dir == East || dir == West {
		aMid := float64(a.Y) + float64(a.H)/2
		bMid := float64(b.Y) + float64(b.H)/2
		secondary = abs(aMid - bMid)
		if !overlapsY(a, b) {
			overlapPenalty = 1000
		}
	} else {
		aMid := float64(a.X) + float64(a.W)/2
		bMid := float64(b.X) + float64(b.W)/2
		secondary = abs(aMid - bMid)
		if !overlapsX(a, b) {
			overlapPenalty = 1000
		}
	}

	return primary + secondary + overlapPenalty, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// swapIdentities exchanges the logical pane (id, ptyId, title) between a
// and b in place, so each keeps its existing Rect slot while the PTY it
// represents moves to the new geometry.
func swapIdentities(a, b *Pane) {
	a.Id, b.Id = b.Id, a.Id
	a.PtyId, b.PtyId = b.PtyId, a.PtyId
	a.Title, b.Title = b.Title, a.Title
}
