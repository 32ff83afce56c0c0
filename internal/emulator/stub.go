package emulator

import (
	"strings"
	"sync"

	"github.com/openmux/openmux/internal/cellgrid"
)

// Stub is a test Emulator that never touches a real VT parser. Lines are
// set directly via SetLine/SetScrollbackLine, letting tests drive
// GetDirtyUpdate/Search against known content without round-tripping
// escape sequences.
type Stub struct {
	mu sync.Mutex

	cols, rows int
	lines      map[int]cellgrid.Row
	scrollback []cellgrid.Row

	cursor Cursor
	modes  Mode
	title  string

	dirty    map[int]bool
	fullNext bool

	updateSubs *subList[DirtyUpdate]
	titleSubs  *subList[string]
	modeSubs   *subList[Mode]
}

// NewStub constructs an empty Stub sized cols x rows.
func NewStub(cols, rows int) *Stub {
	return &Stub{
		cols:       cols,
		rows:       rows,
		lines:      make(map[int]cellgrid.Row),
		dirty:      make(map[int]bool),
		fullNext:   true,
		updateSubs: newSubList[DirtyUpdate](),
		titleSubs:  newSubList[string](),
		modeSubs:   newSubList[Mode](),
	}
}

// SetLine installs a live row and marks it dirty.
func (s *Stub) SetLine(row int, line cellgrid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[row] = line
	s.dirty[row] = true
}

// PushScrollbackLine appends a retained row (oldest first).
func (s *Stub) PushScrollbackLine(line cellgrid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollback = append(s.scrollback, line)
}

// SetTitle sets the title and notifies subscribers, mimicking an OSC 0/1/2.
func (s *Stub) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
	s.titleSubs.notify(title)
}

// SetModes overwrites the mode bitset and notifies subscribers.
func (s *Stub) SetModes(m Mode) {
	s.mu.Lock()
	s.modes = m
	s.mu.Unlock()
	s.modeSubs.notify(m)
}

// SetCursor sets the cursor position/visibility directly.
func (s *Stub) SetCursor(c Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = c
}

func (s *Stub) Write(data []byte) (int, error) { return len(data), nil }

func (s *Stub) Resize(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = cols, rows
	s.fullNext = true
}

func (s *Stub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[int]cellgrid.Row)
	s.scrollback = nil
	s.fullNext = true
}

func (s *Stub) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Stub) IsAlternateScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes&ModeAlternateScreen != 0
}

func (s *Stub) CursorKeyApplicationMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes&ModeCursorKeyApplication != 0
}

func (s *Stub) IsMouseTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes&ModeMouseTracking != 0
}

func (s *Stub) InBandResize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes&ModeInBandResize != 0
}

func (s *Stub) GetLine(row int) cellgrid.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[row]
}

func (s *Stub) GetScrollbackLine(absoluteOffset int) cellgrid.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if absoluteOffset < 0 || absoluteOffset >= len(s.scrollback) {
		return nil
	}
	return s.scrollback[absoluteOffset]
}

func (s *Stub) ScrollbackLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scrollback)
}

func (s *Stub) GetDirtyUpdate() DirtyUpdate {
	s.mu.Lock()
	full := s.fullNext
	s.fullNext = false
	rows := s.dirty
	s.dirty = make(map[int]bool)
	cols, viewRows := s.cols, s.rows
	cursor := s.cursor
	modes := s.modes
	scrollbackLen := len(s.scrollback)
	s.mu.Unlock()

	update := DirtyUpdate{
		Full:          full,
		Cursor:        cursor,
		Modes:         modes,
		ScrollbackLen: scrollbackLen,
	}
	if full {
		update.Rows = make([]cellgrid.PackedRow, viewRows)
		for r := 0; r < viewRows; r++ {
			update.Rows[r] = cellgrid.PackCells(s.GetLine(r), cols)
		}
	} else {
		update.Changed = make(map[int]cellgrid.PackedRow, len(rows))
		for r := range rows {
			update.Changed[r] = cellgrid.PackCells(s.GetLine(r), cols)
		}
	}

	s.updateSubs.notify(update)
	return update
}

func (s *Stub) SubscribeUpdates(cb func(DirtyUpdate)) Cancel { return s.updateSubs.add(cb) }
func (s *Stub) SubscribeTitle(cb func(string)) Cancel        { return s.titleSubs.add(cb) }
func (s *Stub) SubscribeModeChange(cb func(Mode)) Cancel     { return s.modeSubs.add(cb) }

func (s *Stub) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Stub) Close() {}

// Search mirrors vtEmulator.Search's scrollback-first, case-insensitive,
// limit-bounded semantics over the stub's installed lines.
func (s *Stub) Search(query string, limit int) SearchResult {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if query == "" {
		return SearchResult{}
	}
	needle := strings.ToLower(query)

	var result SearchResult
	s.mu.Lock()
	scrollback := append([]cellgrid.Row(nil), s.scrollback...)
	viewRows := s.rows
	lines := make(map[int]cellgrid.Row, len(s.lines))
	for k, v := range s.lines {
		lines[k] = v
	}
	s.mu.Unlock()

	for i, line := range scrollback {
		if !stubSearchLine(line, needle, i, false, 0, &result, limit) {
			return result
		}
	}
	for r := 0; r < viewRows; r++ {
		if !stubSearchLine(lines[r], needle, 0, true, r, &result, limit) {
			return result
		}
	}
	return result
}

func stubSearchLine(line cellgrid.Row, needle string, absLine int, live bool, liveRow int, result *SearchResult, limit int) bool {
	if line == nil {
		return true
	}
	text := rowText(line)
	lower := strings.ToLower(text)

	start := 0
	for {
		idx := strings.Index(lower[start:], needle)
		if idx < 0 {
			break
		}
		col := start + idx
		if len(result.Matches) >= limit {
			result.HasMore = true
			return false
		}
		result.Matches = append(result.Matches, SearchMatch{
			Line: absLine, Live: live, LiveRow: liveRow,
			StartCol: col, EndCol: col + len(needle),
		})
		start = col + 1
		if start >= len(lower) {
			break
		}
	}
	return true
}
