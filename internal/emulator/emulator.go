// Package emulator abstracts VT parsing behind the capability set of
// spec.md §4.B. There is one production implementation backed by
// github.com/danielgatis/go-headless-term, written to by ptyregistry's
// per-session PTY read goroutine, and a Stub used by tests that don't
// need real VT behavior.
package emulator

import "github.com/openmux/openmux/internal/cellgrid"

// Mode is a bitset of the emulator modes the port needs to track.
type Mode uint8

const (
	ModeAlternateScreen Mode = 1 << iota
	ModeMouseTracking
	ModeCursorKeyApplication
	ModeInBandResize
	ModeBracketedPaste
)

// Cursor is the on-screen cursor position and visibility.
type Cursor struct {
	Row, Col int
	Visible  bool
}

// DirtyUpdate is either a full grid snapshot or a set of changed rows
// (§3 "Dirty update").
type DirtyUpdate struct {
	Full bool

	// Full update.
	Rows []cellgrid.PackedRow // len == viewport rows, only when Full

	// Incremental update.
	Changed map[int]cellgrid.PackedRow // row index -> packed row

	Cursor          Cursor
	Modes           Mode
	ScrollbackLen   int
	ScrollbackAtCap bool
}

// SearchMatch is one case-insensitive substring hit.
type SearchMatch struct {
	// Line is an absolute scrollback offset for Line >= 0, or a live
	// viewport row index carried in LiveRow when Live is true.
	Line     int
	Live     bool
	LiveRow  int
	StartCol int
	EndCol   int
}

// SearchResult is the result of a bounded scrollback-then-live search.
type SearchResult struct {
	Matches []SearchMatch
	HasMore bool
}

// Cancel detaches a subscription. Calling Cancel more than once is safe.
type Cancel func()

// Emulator is the capability set spec.md §4.B requires of a VT backend.
type Emulator interface {
	Write(data []byte) (int, error)
	Resize(cols, rows int)
	Reset()

	Cursor() Cursor
	IsAlternateScreen() bool
	CursorKeyApplicationMode() bool
	IsMouseTracking() bool
	InBandResize() bool

	// GetLine returns a live viewport row, or nil if row is out of range.
	GetLine(row int) cellgrid.Row
	// GetScrollbackLine returns a retained row by absolute offset (0 is
	// oldest), or nil if offset is out of range.
	GetScrollbackLine(absoluteOffset int) cellgrid.Row

	// GetDirtyUpdate drains the dirty accumulator and returns either a
	// full snapshot or an incremental update (§4.B "single handshake").
	GetDirtyUpdate() DirtyUpdate

	ScrollbackLen() int

	SubscribeUpdates(cb func(DirtyUpdate)) Cancel
	SubscribeTitle(cb func(string)) Cancel
	SubscribeModeChange(cb func(Mode)) Cancel

	Search(query string, limit int) SearchResult

	Title() string

	Close()
}
