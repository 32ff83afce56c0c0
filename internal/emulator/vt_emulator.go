package emulator

import (
	"strings"
	"sync"

	headlessterm "github.com/danielgatis/go-headless-term"
	"github.com/openmux/openmux/internal/cellgrid"
)

// defaultSearchLimit is the default match cap (§4.B "default 1000").
const defaultSearchLimit = 1000

// vtEmulator is the production Emulator, wrapping a headlessterm.Terminal
// run entirely on the caller's goroutine; it starts no goroutine of its
// own. ptyregistry calls Write from one PTY read goroutine per session
// and Resize from its caller, both under that session's mutex; the other
// methods are called from any goroutine and serialize on e.mu.
type vtEmulator struct {
	mu   sync.Mutex
	term *headlessterm.Terminal
	osc  *oscFilter

	cols, rows int
	title      string

	lastScrollbackLen int
	scrollbackCap     int

	dirtyRows map[int]bool // rows touched since last GetDirtyUpdate
	fullNext  bool         // force a full snapshot on next GetDirtyUpdate

	updateSubs *subList[DirtyUpdate]
	titleSubs  *subList[string]
	modeSubs   *subList[Mode]

	lastModes Mode
}

// New constructs the production Emulator. scrollbackCap bounds retained
// lines (ptyregistry.Create passes its fixed defaultScrollbackLimit).
func New(cols, rows, scrollbackCap int) Emulator {
	e := &vtEmulator{
		cols:          cols,
		rows:          rows,
		scrollbackCap: scrollbackCap,
		dirtyRows:     make(map[int]bool),
		fullNext:      true,
		updateSubs:    newSubList[DirtyUpdate](),
		titleSubs:     newSubList[string](),
		modeSubs:      newSubList[Mode](),
	}
	e.osc = newOSCFilter(func(title string) {
		e.mu.Lock()
		e.title = title
		e.mu.Unlock()
		e.titleSubs.notify(title)
	})

	storage := newRingScrollback(scrollbackCap)
	e.term = headlessterm.New(
		headlessterm.WithSize(rows, cols),
		headlessterm.WithScrollback(storage),
		headlessterm.WithTitle(headlessterm.NoopTitle{}), // our oscFilter owns title events
	)
	return e
}

func (e *vtEmulator) Write(data []byte) (int, error) {
	filtered := e.osc.Feed(data)

	e.mu.Lock()
	wasAlt := e.term.IsAlternateScreen()
	e.mu.Unlock()

	n, err := e.term.Write(filtered)

	e.mu.Lock()
	dirty := e.term.DirtyCells()
	for _, pos := range dirty {
		e.dirtyRows[pos.Row] = true
	}
	nowAlt := e.term.IsAlternateScreen()
	e.mu.Unlock()

	if wasAlt != nowAlt {
		e.fullNext = true
		e.modeSubs.notify(e.currentModes())
	}

	return n, err
}

func (e *vtEmulator) Resize(cols, rows int) {
	e.mu.Lock()
	e.cols, e.rows = cols, rows
	e.term.Resize(rows, cols)
	e.fullNext = true
	e.mu.Unlock()
}

func (e *vtEmulator) Reset() {
	e.mu.Lock()
	e.term.ClearScrollback()
	e.fullNext = true
	e.mu.Unlock()
}

func (e *vtEmulator) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	row, col := e.term.CursorPos()
	return Cursor{Row: row, Col: col, Visible: e.term.CursorVisible()}
}

func (e *vtEmulator) IsAlternateScreen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.IsAlternateScreen()
}

func (e *vtEmulator) CursorKeyApplicationMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.HasMode(headlessterm.ModeCursorKeys)
}

func (e *vtEmulator) IsMouseTracking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.HasMode(headlessterm.ModeReportMouseClicks) ||
		e.term.HasMode(headlessterm.ModeReportCellMouseMotion) ||
		e.term.HasMode(headlessterm.ModeReportAllMouseMotion)
}

func (e *vtEmulator) InBandResize() bool {
	// headlessterm has no DEC private mode 2048 equivalent; no reference
	// implementation in the retrieval pack supports it either.
	return false
}

func (e *vtEmulator) currentModes() Mode {
	var m Mode
	if e.term.IsAlternateScreen() {
		m |= ModeAlternateScreen
	}
	if e.term.HasMode(headlessterm.ModeReportMouseClicks) ||
		e.term.HasMode(headlessterm.ModeReportCellMouseMotion) ||
		e.term.HasMode(headlessterm.ModeReportAllMouseMotion) {
		m |= ModeMouseTracking
	}
	if e.term.HasMode(headlessterm.ModeCursorKeys) {
		m |= ModeCursorKeyApplication
	}
	if e.term.HasMode(headlessterm.ModeBracketedPaste) {
		m |= ModeBracketedPaste
	}
	return m
}

func toCellgridRow(src []headlessterm.Cell) cellgrid.Row {
	row := make(cellgrid.Row, len(src))
	for i, c := range src {
		row[i] = toCellgridCell(c)
	}
	return row
}

func toCellgridCell(c headlessterm.Cell) cellgrid.Cell {
	var fg, bg cellgrid.RGB
	if c.Fg != nil {
		r, g, b, _ := c.Fg.RGBA()
		fg = cellgrid.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
	}
	if c.Bg != nil {
		r, g, b, _ := c.Bg.RGBA()
		bg = cellgrid.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
	}

	width := uint8(1)
	ch := c.Char
	if c.IsWideSpacer() {
		width = 0
		ch = 0
	} else if c.IsWide() {
		width = 2
	}

	var attrs cellgrid.Attr
	if c.HasFlag(headlessterm.CellFlagBold) {
		attrs |= cellgrid.AttrBold
	}
	if c.HasFlag(headlessterm.CellFlagItalic) {
		attrs |= cellgrid.AttrItalic
	}
	if c.HasFlag(headlessterm.CellFlagUnderline) || c.HasFlag(headlessterm.CellFlagDoubleUnderline) ||
		c.HasFlag(headlessterm.CellFlagCurlyUnderline) || c.HasFlag(headlessterm.CellFlagDottedUnderline) ||
		c.HasFlag(headlessterm.CellFlagDashedUnderline) {
		attrs |= cellgrid.AttrUnderline
	}
	if c.HasFlag(headlessterm.CellFlagStrike) {
		attrs |= cellgrid.AttrStrike
	}
	if c.HasFlag(headlessterm.CellFlagReverse) {
		attrs |= cellgrid.AttrInverse
	}
	if c.HasFlag(headlessterm.CellFlagBlinkSlow) || c.HasFlag(headlessterm.CellFlagBlinkFast) {
		attrs |= cellgrid.AttrBlink
	}
	if c.HasFlag(headlessterm.CellFlagDim) {
		attrs |= cellgrid.AttrDim
	}
	if c.HasFlag(headlessterm.CellFlagHidden) {
		attrs |= cellgrid.AttrInvisible
	}

	var hyperlink uint32
	if c.Hyperlink != nil {
		hyperlink = hashHyperlinkID(c.Hyperlink.ID)
	}

	if ch == 0 && width != 0 {
		ch = ' '
	}

	return cellgrid.Cell{Char: ch, Fg: fg, Bg: bg, Attrs: attrs, Width: width, Hyperlink: hyperlink}
}

// hashHyperlinkID folds a string hyperlink id into the packed row's
// uint32 slot. Collisions only degrade renderer hyperlink grouping, never
// correctness of the surrounding cell data.
func hashHyperlinkID(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}

func (e *vtEmulator) GetLine(row int) cellgrid.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	if row < 0 || row >= e.rows {
		return nil
	}
	cells := make([]headlessterm.Cell, e.cols)
	for col := 0; col < e.cols; col++ {
		if c := e.term.Cell(row, col); c != nil {
			cells[col] = *c
		}
	}
	return toCellgridRow(cells)
}

func (e *vtEmulator) GetScrollbackLine(absoluteOffset int) cellgrid.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	line := e.term.ScrollbackLine(absoluteOffset)
	if line == nil {
		return nil
	}
	return toCellgridRow(line)
}

func (e *vtEmulator) ScrollbackLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.ScrollbackLen()
}

func (e *vtEmulator) GetDirtyUpdate() DirtyUpdate {
	e.mu.Lock()
	full := e.fullNext
	rows := e.dirtyRows
	e.dirtyRows = make(map[int]bool)
	e.fullNext = false
	cols, viewRows := e.cols, e.rows
	scrollbackLen := e.term.ScrollbackLen()
	cap := e.scrollbackCap
	cursorRow, cursorCol := e.term.CursorPos()
	cursorVisible := e.term.CursorVisible()
	modes := e.currentModes()
	e.term.ClearDirty()
	e.mu.Unlock()

	update := DirtyUpdate{
		Full:            full,
		Cursor:          Cursor{Row: cursorRow, Col: cursorCol, Visible: cursorVisible},
		Modes:           modes,
		ScrollbackLen:   scrollbackLen,
		ScrollbackAtCap: scrollbackLen >= cap,
	}

	if full {
		update.Rows = make([]cellgrid.PackedRow, viewRows)
		for r := 0; r < viewRows; r++ {
			update.Rows[r] = cellgrid.PackCells(e.GetLine(r), cols)
		}
	} else {
		update.Changed = make(map[int]cellgrid.PackedRow, len(rows))
		for r := range rows {
			if r < 0 || r >= viewRows {
				continue
			}
			update.Changed[r] = cellgrid.PackCells(e.GetLine(r), cols)
		}
	}

	e.updateSubs.notify(update)
	return update
}

func (e *vtEmulator) SubscribeUpdates(cb func(DirtyUpdate)) Cancel { return e.updateSubs.add(cb) }
func (e *vtEmulator) SubscribeTitle(cb func(string)) Cancel        { return e.titleSubs.add(cb) }
func (e *vtEmulator) SubscribeModeChange(cb func(Mode)) Cancel     { return e.modeSubs.add(cb) }

func (e *vtEmulator) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

func (e *vtEmulator) Close() {}

// Search implements §4.B: scrollback-first, then live rows, case
// insensitive substring, capped at limit (default 1000).
func (e *vtEmulator) Search(query string, limit int) SearchResult {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if query == "" {
		return SearchResult{}
	}
	needle := strings.ToLower(query)

	var result SearchResult

	scrollbackLen := e.ScrollbackLen()
	for i := 0; i < scrollbackLen; i++ {
		line := e.GetScrollbackLine(i)
		if !e.searchLine(line, needle, i, false, 0, &result, limit) {
			return result
		}
	}

	e.mu.Lock()
	viewRows := e.rows
	e.mu.Unlock()
	for r := 0; r < viewRows; r++ {
		line := e.GetLine(r)
		if !e.searchLine(line, needle, 0, true, r, &result, limit) {
			return result
		}
	}

	return result
}

// searchLine appends matches found in line to result and returns false
// once the limit has been reached (signalling the caller to stop).
func (e *vtEmulator) searchLine(line cellgrid.Row, needle string, absLine int, live bool, liveRow int, result *SearchResult, limit int) bool {
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
			Line:     absLine,
			Live:     live,
			LiveRow:  liveRow,
			StartCol: col,
			EndCol:   col + len(needle),
		})
		start = col + 1
		if start >= len(lower) {
			break
		}
	}
	return true
}

func rowText(row cellgrid.Row) string {
	var b strings.Builder
	for _, c := range row {
		if c.IsSpacer() {
			continue
		}
		if c.Char == 0 {
			b.WriteRune(' ')
		} else {
			b.WriteRune(c.Char)
		}
	}
	return b.String()
}
