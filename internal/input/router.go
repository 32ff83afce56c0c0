package input

import (
	"sync"
	"time"

	"github.com/micro-editor/tcell/v2"

	"github.com/openmux/openmux/internal/clipboard"
)

// PaneTarget is the focused pane's view onto the router: enough to
// encode and forward bytes, and to answer the mode questions the mouse
// and arrow-key paths need.
type PaneTarget interface {
	Write(data []byte) error
	CursorKeyApplicationMode() bool
	MouseMode() MouseMode
	// AlternateScreenScrollForwarding reports whether the pane is in the
	// alternate screen with its own scrollback forwarding active, in
	// which case wheel events are forwarded as mouse reports rather than
	// scrolling the local scrollback cache (§4.G "Mouse").
	AlternateScreenScrollForwarding() bool
}

// SelectionTarget is the focused pane's selection state (§4.H).
type SelectionTarget interface {
	Start(x, y int)
	Update(x, y int)
	Complete()
	Clear()
}

// Router is the modal keyboard state machine plus mouse pipeline of
// spec.md §4.G.
type Router struct {
	mu sync.Mutex

	mode          Mode
	bindings      *Bindings
	prefixCombo   string
	prefixTimeout time.Duration
	prefixTimer   *time.Timer

	searchQuery       string
	savedScrollOffset int
	dragging          bool

	overlays overlayRegistry

	target    func() PaneTarget
	selection func() SelectionTarget

	onAction      func(Action) bool
	onSearchInput func(query string)
	onScroll      func(delta int)
	onFocusClick  func(x, y int)
	onRestoreScroll func(offset int)
}

// Config bundles the callbacks and initial settings a Router needs; any
// callback may be nil.
type Config struct {
	Bindings      *Bindings
	PrefixCombo   string // canonical combo, e.g. "ctrl+b"
	PrefixTimeout time.Duration

	Target    func() PaneTarget
	Selection func() SelectionTarget

	OnAction        func(Action) bool
	OnSearchInput   func(query string)
	OnScroll        func(delta int)
	OnFocusClick    func(x, y int)
	OnRestoreScroll func(offset int)
}

// NewRouter constructs a Router in normal mode.
func NewRouter(cfg Config) *Router {
	bindings := cfg.Bindings
	if bindings == nil {
		bindings = DefaultBindings()
	}
	timeout := cfg.PrefixTimeout
	if timeout <= 0 {
		timeout = DefaultPrefixTimeout
	}
	prefix := cfg.PrefixCombo
	if prefix == "" {
		prefix = "ctrl+b"
	}
	return &Router{
		mode:            ModeNormal,
		bindings:        bindings,
		prefixCombo:     ParseCombo(prefix),
		prefixTimeout:   timeout,
		target:          cfg.Target,
		selection:       cfg.Selection,
		onAction:        cfg.OnAction,
		onSearchInput:   cfg.OnSearchInput,
		onScroll:        cfg.OnScroll,
		onFocusClick:    cfg.OnFocusClick,
		onRestoreScroll: cfg.OnRestoreScroll,
	}
}

// Mode returns the router's current state.
func (r *Router) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SearchQuery returns the in-progress search query (ModeSearch only).
func (r *Router) SearchQuery() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.searchQuery
}

// RegisterOverlay adds a modal overlay handler (§4.G "Overlay priority").
func (r *Router) RegisterOverlay(h OverlayHandler) { r.overlays.register(h) }

// UnregisterOverlay removes a previously registered overlay handler.
func (r *Router) UnregisterOverlay(h OverlayHandler) { r.overlays.unregister(h) }

// EnterConfirm transitions into confirm mode, used by callers that need
// a yes/no gate (quit, close-pane) before their action proceeds.
func (r *Router) EnterConfirm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = ModeConfirm
}

// HandleKey is the single keyboard entry point: overlays first, then the
// mode state machine.
func (r *Router) HandleKey(ev *tcell.EventKey) bool {
	if r.overlays.dispatch(ev) {
		return true
	}

	combo := EncodeCombo(ev)

	r.mu.Lock()
	mode := r.mode
	r.mu.Unlock()

	switch mode {
	case ModeNormal:
		return r.handleNormal(ev, combo)
	case ModePrefix:
		return r.handlePrefix(combo)
	case ModeMove:
		return r.handleMove(combo)
	case ModeSearch:
		return r.handleSearch(ev, combo)
	case ModeConfirm:
		return r.handleConfirm(combo)
	}
	return false
}

func (r *Router) handleNormal(ev *tcell.EventKey, combo string) bool {
	if sel := r.selectionTarget(); sel != nil {
		sel.Clear()
	}

	if combo == r.prefixCombo {
		r.armPrefix()
		return true
	}

	if action, ok := r.bindings.Resolve(ModeNormal, combo); ok {
		return r.dispatch(action)
	}

	target := r.targetPane()
	if target == nil {
		return false
	}
	bytes := EncodeKeyForPTY(ev, target.CursorKeyApplicationMode())
	if bytes == nil {
		return false
	}
	return target.Write(bytes) == nil
}

func (r *Router) armPrefix() {
	r.mu.Lock()
	r.mode = ModePrefix
	if r.prefixTimer != nil {
		r.prefixTimer.Stop()
	}
	r.prefixTimer = time.AfterFunc(r.prefixTimeout, r.revertToNormalIfPrefix)
	r.mu.Unlock()
}

func (r *Router) revertToNormalIfPrefix() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModePrefix {
		r.mode = ModeNormal
	}
}

func (r *Router) handlePrefix(combo string) bool {
	r.mu.Lock()
	if r.prefixTimer != nil {
		r.prefixTimer.Stop()
	}
	r.mu.Unlock()

	action, ok := r.bindings.Resolve(ModePrefix, combo)
	if !ok {
		r.setMode(ModeNormal)
		return true
	}

	switch action {
	case ActionModeMove:
		r.setMode(ModeMove)
		return true
	case ActionSearchOpen:
		r.mu.Lock()
		r.mode = ModeSearch
		r.searchQuery = ""
		r.mu.Unlock()
		return true
	}

	handled := r.dispatch(action)
	r.setMode(ModeNormal)
	return handled
}

func (r *Router) handleMove(combo string) bool {
	action, ok := r.bindings.Resolve(ModeMove, combo)
	if !ok {
		return true // swallow unbound keys; move mode never leaks to the PTY
	}
	if action == ActionModeCancel {
		r.setMode(ModeNormal)
		return true
	}
	return r.dispatch(action)
}

func (r *Router) handleSearch(ev *tcell.EventKey, combo string) bool {
	action, ok := r.bindings.Resolve(ModeSearch, combo)
	if ok {
		switch action {
		case ActionSearchCancel:
			r.setMode(ModeNormal)
			r.mu.Lock()
			offset := r.savedScrollOffset
			r.mu.Unlock()
			if r.onRestoreScroll != nil {
				r.onRestoreScroll(offset)
			}
			return true
		case ActionSearchConfirm:
			r.setMode(ModeNormal)
			return r.dispatch(action)
		case ActionSearchDelete:
			r.mu.Lock()
			if n := len(r.searchQuery); n > 0 {
				r.searchQuery = r.searchQuery[:n-1]
			}
			query := r.searchQuery
			r.mu.Unlock()
			if r.onSearchInput != nil {
				r.onSearchInput(query)
			}
			return true
		default:
			return r.dispatch(action)
		}
	}

	if ev.Key() == tcell.KeyRune {
		r.mu.Lock()
		r.searchQuery += string(ev.Rune())
		query := r.searchQuery
		r.mu.Unlock()
		if r.onSearchInput != nil {
			r.onSearchInput(query)
		}
		return true
	}
	return true
}

func (r *Router) handleConfirm(combo string) bool {
	action, ok := r.bindings.Resolve(ModeConfirm, combo)
	if !ok {
		return true
	}
	r.setMode(ModeNormal)
	return r.dispatch(action)
}

// SetSavedScrollOffset records the scroll position to restore if search
// is cancelled (called by the caller when entering search mode, since
// the router itself doesn't track scroll state).
func (r *Router) SetSavedScrollOffset(offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedScrollOffset = offset
}

func (r *Router) setMode(m Mode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

func (r *Router) dispatch(action Action) bool {
	if r.onAction == nil {
		return false
	}
	return r.onAction(action)
}

func (r *Router) targetPane() PaneTarget {
	if r.target == nil {
		return nil
	}
	return r.target()
}

func (r *Router) selectionTarget() SelectionTarget {
	if r.selection == nil {
		return nil
	}
	return r.selection()
}

// HandlePaste implements §4.G's bracketed-paste behavior: the complete
// clipboard contents (not the possibly-fragmented stdin bytes) are read
// and wrapped for the focused PTY.
func (r *Router) HandlePaste() bool {
	target := r.targetPane()
	if target == nil {
		return false
	}
	text := clipboard.Read(clipboard.RegClipboard)
	if text == "" {
		return false
	}
	return target.Write(WrapBracketedPaste(text)) == nil
}

// HandleMouse implements §4.G's mouse pipeline: click-to-focus, mouse
// report encoding when the focused PTY requests tracking, otherwise
// selection drag; wheel scrolls the local scrollback cache unless the
// PTY is in the alternate screen with its own scrollback forwarding.
func (r *Router) HandleMouse(ev *tcell.EventMouse) bool {
	buttons := ev.Buttons()

	if buttons == tcell.WheelUp || buttons == tcell.WheelDown {
		return r.handleWheel(ev, buttons)
	}

	target := r.targetPane()
	if target == nil {
		return false
	}

	mode := target.MouseMode()
	if mode.Tracking {
		if bytes, ok := EncodeMouseEvent(ev, mode); ok {
			return target.Write(bytes) == nil
		}
		return false
	}

	return r.handleSelectionMouse(ev, buttons)
}

func (r *Router) handleWheel(ev *tcell.EventMouse, buttons tcell.ButtonMask) bool {
	target := r.targetPane()
	if target != nil && target.AlternateScreenScrollForwarding() {
		if bytes, ok := EncodeMouseEvent(ev, target.MouseMode()); ok {
			return target.Write(bytes) == nil
		}
	}
	if r.onScroll == nil {
		return false
	}
	delta := 3
	if buttons == tcell.WheelUp {
		delta = -3
	}
	r.onScroll(delta)
	return true
}

func (r *Router) handleSelectionMouse(ev *tcell.EventMouse, buttons tcell.ButtonMask) bool {
	x, y := ev.Position()
	sel := r.selectionTarget()

	switch {
	case buttons&tcell.Button1 != 0:
		r.mu.Lock()
		dragging := r.dragging
		r.dragging = true
		r.mu.Unlock()

		if !dragging {
			if r.onFocusClick != nil {
				r.onFocusClick(x, y)
			}
			if sel != nil {
				sel.Start(x, y)
			}
		} else if sel != nil {
			sel.Update(x, y)
		}
		return true

	case buttons == tcell.ButtonNone:
		r.mu.Lock()
		wasDragging := r.dragging
		r.dragging = false
		r.mu.Unlock()
		if wasDragging && sel != nil {
			sel.Complete()
		}
		return false
	}
	return true
}
