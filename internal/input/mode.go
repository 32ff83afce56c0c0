// Package input implements the modal keyboard state machine and mouse
// pipeline of spec.md §4.G: mode transitions (normal/prefix/move/search/
// confirm), canonical key-combo binding resolution, overlay-priority
// dispatch, and passthrough encoding to the focused PTY. Grounded on
// elleryfamilia-thicc/internal/terminal/input.go's event-handling shape
// (HandleEvent's type switch, keyToBytes's escape-sequence table), scaled
// up from a single fixed quick-command mode to the full five-state
// machine and its overlay-priority layer.
package input

import (
	"strconv"
	"time"
)

// Mode is one state of the router's keyboard state machine.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModePrefix  Mode = "prefix"
	ModeMove    Mode = "move"
	ModeSearch  Mode = "search"
	ModeConfirm Mode = "confirm"
)

// Action is a bindable action identifier (§6 "Action identifiers").
type Action string

const (
	ActionPaneNew    Action = "pane.new"
	ActionPaneClose  Action = "pane.close"
	ActionPaneZoom   Action = "pane.zoom"
	ActionFocusNorth Action = "pane.focus.north"
	ActionFocusSouth Action = "pane.focus.south"
	ActionFocusEast  Action = "pane.focus.east"
	ActionFocusWest  Action = "pane.focus.west"
	ActionMoveNorth  Action = "pane.move.north"
	ActionMoveSouth  Action = "pane.move.south"
	ActionMoveEast   Action = "pane.move.east"
	ActionMoveWest   Action = "pane.move.west"

	ActionLayoutVertical   Action = "layout.mode.vertical"
	ActionLayoutHorizontal Action = "layout.mode.horizontal"
	ActionLayoutStacked    Action = "layout.mode.stacked"
	ActionLayoutCyclePrev  Action = "layout.cycle.prev"
	ActionLayoutCycleNext  Action = "layout.cycle.next"

	ActionSessionPickerToggle Action = "session.picker.toggle"
	ActionAggregateToggle     Action = "aggregate.toggle"

	ActionSearchOpen    Action = "search.open"
	ActionSearchNext    Action = "search.next"
	ActionSearchPrev    Action = "search.prev"
	ActionSearchConfirm Action = "search.confirm"
	ActionSearchCancel  Action = "search.cancel"
	ActionSearchDelete  Action = "search.delete"

	ActionClipboardPaste Action = "clipboard.paste"
	ActionConsoleToggle  Action = "console.toggle"
	ActionAppQuit        Action = "app.quit"
	ActionHintsToggle    Action = "hints.toggle"
	ActionModeMove       Action = "mode.move"
	ActionModeCancel     Action = "mode.cancel"

	// confirm-mode yes/no, not part of the §6 action-identifier list but
	// needed to drive the confirm state machine described in §4.G.
	ActionConfirmYes Action = "confirm.yes"
	ActionConfirmNo  Action = "confirm.no"
)

// WorkspaceSwitch returns the action identifier for workspace.switch.<n>,
// n in 1..9.
func WorkspaceSwitch(n int) Action {
	return Action("workspace.switch." + strconv.Itoa(n))
}

// DefaultPrefixTimeout is the idle window before prefix mode reverts to
// normal (§4.G, §6 "prefix_timeout_ms").
const DefaultPrefixTimeout = 2000 * time.Millisecond
