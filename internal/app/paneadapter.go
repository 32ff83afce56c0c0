package app

import (
	"sync"

	"github.com/openmux/openmux/internal/cellgrid"
	"github.com/openmux/openmux/internal/emulator"
	"github.com/openmux/openmux/internal/input"
	"github.com/openmux/openmux/internal/selection"
)

// paneTarget adapts one pane's registry id + live emulator to the
// input.PaneTarget interface the router needs to encode and forward
// keys/mouse reports.
type paneTarget struct {
	app   *App
	ptyId string
	emu   emulator.Emulator
}

func (t *paneTarget) Write(data []byte) error {
	return t.app.registry.Write(t.ptyId, data)
}

func (t *paneTarget) CursorKeyApplicationMode() bool {
	return t.emu.CursorKeyApplicationMode()
}

func (t *paneTarget) MouseMode() input.MouseMode {
	return input.MouseMode{Tracking: t.emu.IsMouseTracking(), SGR: true}
}

// AlternateScreenScrollForwarding reports whether the focused program
// is in the alternate screen: full-screen apps (pagers, editors) handle
// their own wheel scrolling once they've requested mouse tracking or
// the alternate screen, rather than scrolling openmux's local
// scrollback cache (§4.G "Mouse").
func (t *paneTarget) AlternateScreenScrollForwarding() bool {
	return t.emu.IsAlternateScreen()
}

// focusedPaneTarget resolves the active workspace's focused pane to a
// PaneTarget, or nil if there is none (empty workspace, or the focused
// pane has no live PTY).
func (a *App) focusedPaneTarget() input.PaneTarget {
	ws := a.currentWorkspace()
	if ws == nil {
		return nil
	}
	focused := ws.Focused()
	if focused == "" {
		return nil
	}
	for _, p := range ws.Panes() {
		if p.Id == focused && p.PtyId != "" {
			emu, ok := a.registry.Emulator(p.PtyId)
			if !ok {
				return nil
			}
			return &paneTarget{app: a, ptyId: p.PtyId, emu: emu}
		}
	}
	return nil
}

// emulatorLineSource adapts an emulator.Emulator to selection.LineSource,
// bridging the absolute scrollback+live addressing convention spec.md
// §4.C uses: indices below ScrollbackLen() are retained scrollback,
// the rest are live viewport rows.
type emulatorLineSource struct {
	emu emulator.Emulator
}

func (s emulatorLineSource) ScrollbackLen() int { return s.emu.ScrollbackLen() }

func (s emulatorLineSource) Line(absoluteIndex int) (cellgrid.Row, bool) {
	n := s.emu.ScrollbackLen()
	if absoluteIndex < n {
		row := s.emu.GetScrollbackLine(absoluteIndex)
		return row, row != nil
	}
	row := s.emu.GetLine(absoluteIndex - n)
	return row, row != nil
}

// selectionTarget adapts one pane's selection.Selection plus its
// clipboard-copy completion to input.SelectionTarget.
type selectionTarget struct {
	app   *App
	ptyId string
	emu   emulator.Emulator
	sel   *selection.Selection

	mu sync.Mutex
}

func (t *selectionTarget) Start(x, y int) {
	t.sel.Start(x, y, t.emu.ScrollbackLen(), t.app.scrollOffset(t.ptyId))
}

func (t *selectionTarget) Update(x, y int) {
	t.sel.Update(x, y, t.emu.ScrollbackLen(), t.app.scrollOffset(t.ptyId))
}

func (t *selectionTarget) Complete() {
	src := emulatorLineSource{emu: t.emu}
	t.sel.Complete(src, func(text string) error {
		return clipboardWrite(text)
	}, nowFunc())
}

func (t *selectionTarget) Clear() {
	t.sel.Clear()
}

// focusedSelectionTarget resolves the active workspace's focused pane to
// a SelectionTarget, creating its selection.Selection lazily on first
// use (one per pty id, kept for the life of the pty).
func (a *App) focusedSelectionTarget() input.SelectionTarget {
	ws := a.currentWorkspace()
	if ws == nil {
		return nil
	}
	focused := ws.Focused()
	if focused == "" {
		return nil
	}
	for _, p := range ws.Panes() {
		if p.Id == focused && p.PtyId != "" {
			emu, ok := a.registry.Emulator(p.PtyId)
			if !ok {
				return nil
			}
			return &selectionTarget{app: a, ptyId: p.PtyId, emu: emu, sel: a.selectionFor(p.PtyId)}
		}
	}
	return nil
}

func (a *App) selectionFor(ptyId string) *selection.Selection {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selections == nil {
		a.selections = map[string]*selection.Selection{}
	}
	sel, ok := a.selections[ptyId]
	if !ok {
		sel = &selection.Selection{}
		a.selections[ptyId] = sel
	}
	return sel
}

func (a *App) scrollOffset(ptyId string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scrollOffsets[ptyId]
}

func (a *App) setScrollOffset(ptyId string, offset int) {
	if emu, ok := a.registry.Emulator(ptyId); ok {
		if n := emu.ScrollbackLen(); offset > n {
			offset = n
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	a.scrollOffsets[ptyId] = offset
}
