// Package selection implements per-pane text selection: anchor/focus
// tracking in absolute (scrollback-relative) coordinates, normalized
// range computation, O(1) cell-membership tests, and clipboard-copy
// extraction (spec.md §4.H "Selection").
//
// Grounded on elleryfamilia-thicc/internal/terminal/panel.go's
// Selection/HasSelection/GetSelection/isSelected (a fixed two-element
// [start,end] array addressed in "lineIndex into scrollback+live buffer"
// space), generalized to an explicit anchor/focus pair, a cached bounds
// fast path, and exclusion of whichever cell the live focus sits on
// (spec.md §4.H: the focus cell is always excluded from the selection,
// regardless of which end of the normalized range it ends up at).
package selection

import (
	"strconv"
	"strings"
	"time"

	"github.com/openmux/openmux/internal/cellgrid"
)

// Loc is an absolute (column, line) coordinate: line 0 is the oldest
// retained scrollback line, lines scrollbackLen..scrollbackLen+rows-1
// are the live viewport, mirroring spec.md §4.C's PTY-session
// absolute-offset convention.
type Loc struct {
	X, Y int
}

func (a Loc) less(b Loc) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// LineSource answers the two questions Selection needs to turn a range
// of absolute lines into text: how many lines are retained in
// scrollback, and the cell row at a given absolute line index.
type LineSource interface {
	ScrollbackLen() int
	Line(absoluteIndex int) (cellgrid.Row, bool)
}

// ToastDuration is how long the "copied N chars" toast stays visible.
const ToastDuration = 2 * time.Second

// Selection is one pane's selection state.
type Selection struct {
	anchor, focus Loc
	selecting     bool

	// bounds caches the normalized [start,end] range (inclusive at both
	// ends) so isCellSelected's common case (a cell clearly outside the
	// selection's line span) never walks the full range logic. The
	// focus cell itself is excluded from membership separately, since it
	// can land at either end depending on drag direction.
	bounds struct {
		start, end Loc
		valid      bool
	}

	toastText    string
	toastExpires time.Time
}

// Start records the anchor in absolute coordinates, converting the
// pane-local (x, screenY) click into absolute line space via the
// current scrollback length and scroll offset (screenY=0 is the top row
// of the viewport as currently scrolled).
func (s *Selection) Start(x, screenY, scrollbackLen, scrollOffset int) {
	absY := scrollbackLen - scrollOffset + screenY
	s.anchor = Loc{X: x, Y: absY}
	s.focus = s.anchor
	s.selecting = true
	s.recompute()
}

// Update moves the focus as the drag proceeds.
func (s *Selection) Update(x, screenY, scrollbackLen, scrollOffset int) {
	if !s.selecting {
		return
	}
	absY := scrollbackLen - scrollOffset + screenY
	s.focus = Loc{X: x, Y: absY}
	s.recompute()
}

func (s *Selection) recompute() {
	start, end := s.anchor, s.focus
	if end.less(start) {
		start, end = end, start
	}
	s.bounds.start = start
	s.bounds.end = end
	s.bounds.valid = true
}

// Active reports whether there is a non-empty selection.
func (s *Selection) Active() bool {
	return s.bounds.valid && s.bounds.start != s.bounds.end
}

// Clear discards the selection.
func (s *Selection) Clear() {
	s.anchor = Loc{}
	s.focus = Loc{}
	s.selecting = false
	s.bounds.valid = false
}

// isCellSelected is O(1): a quick line-range rejection before the
// per-column check on the boundary lines.
func (s *Selection) IsCellSelected(x, absoluteY int) bool {
	if !s.Active() {
		return false
	}
	start, end := s.bounds.start, s.bounds.end
	if absoluteY < start.Y || absoluteY > end.Y {
		return false
	}
	loc := Loc{X: x, Y: absoluteY}
	if loc.less(start) || end.less(loc) {
		return false
	}
	return loc != s.focus
}

// Complete extracts the selected text via src, trimming trailing
// whitespace per line and joining with "\n", writes it to writeClip,
// arms a "copied N chars" toast, and clears the selection. Returns the
// extracted text.
func (s *Selection) Complete(src LineSource, writeClip func(string) error, now time.Time) string {
	if !s.Active() {
		return ""
	}
	text := s.ExtractText(src)
	if writeClip != nil {
		_ = writeClip(text)
	}
	s.toastText = copiedToast(len(text))
	s.toastExpires = now.Add(ToastDuration)
	s.Clear()
	return text
}

func copiedToast(n int) string {
	if n == 1 {
		return "copied 1 char"
	}
	return "copied " + strconv.Itoa(n) + " chars"
}

// Toast returns the current "copied N chars" message and whether it's
// still within its display window as of now.
func (s *Selection) Toast(now time.Time) (string, bool) {
	if s.toastText == "" || now.After(s.toastExpires) {
		return "", false
	}
	return s.toastText, true
}

// ExtractText builds the selected text without touching clipboard or
// toast state, line by line, trimming trailing whitespace per line.
func (s *Selection) ExtractText(src LineSource) string {
	if !s.Active() {
		return ""
	}
	start, end := s.bounds.start, s.bounds.end

	var b strings.Builder
	for y := start.Y; y <= end.Y; y++ {
		row, ok := src.Line(y)
		lineStart := 0
		lineEnd := len(row)
		if y == start.Y {
			lineStart = start.X
		}
		if y == end.Y {
			lineEnd = end.X + 1
		}
		if ok {
			for x := lineStart; x < lineEnd && x < len(row); x++ {
				if (Loc{X: x, Y: y}) == s.focus {
					continue
				}
				r := row[x].Char
				if r == 0 {
					r = ' '
				}
				b.WriteRune(r)
			}
		}
		if y < end.Y {
			b.WriteByte('\n')
		}
	}
	return trimTrailingPerLine(b.String())
}

// trimTrailingPerLine trims trailing spaces/tabs from each line without
// disturbing the newlines separating them.
func trimTrailingPerLine(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}
