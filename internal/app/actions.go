package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/openmux/openmux/internal/clipboard"
	"github.com/openmux/openmux/internal/input"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/ptyregistry"
)

func nowFunc() time.Time { return time.Now() }

func clipboardWrite(text string) error {
	return clipboard.Write(text, clipboard.RegClipboard)
}

// ensureInitialPane spawns a shell into the active workspace if it's
// still empty, so a freshly created session isn't left with nothing to
// focus.
func (a *App) ensureInitialPane() {
	ws := a.currentWorkspace()
	if ws == nil || len(ws.Panes()) > 0 {
		return
	}
	a.newPane()
}

// newPane spawns a shell PTY rooted at the focused pane's cwd (or the
// process cwd if there is none yet) and adds it to the active workspace.
func (a *App) newPane() {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	cwd := ""
	if focused := ws.Focused(); focused != "" {
		for _, p := range ws.Panes() {
			if p.Id == focused && p.PtyId != "" {
				cwd = a.registry.GetCwd(p.PtyId)
			}
		}
	}
	ptyId, err := a.spawnPane(cwd)
	if err != nil {
		a.logConsole("spawn pane: " + err.Error())
		return
	}
	paneId := ws.NewPane(ptyId, "")
	a.coord.RecordActivePane(paneId, ptyId)
	a.watchPaneExit(ws, paneId, ptyId)
}

// watchPaneExit closes a pane automatically when its shell exits, the
// same "process death closes the pane" behavior a real multiplexer
// gives a shell split.
func (a *App) watchPaneExit(ws *layout.Workspace, paneId, ptyId string) {
	_ = a.registry.OnExit(ptyId, func(ptyregistry.ExitStatus) {
		ws.ClosePane(paneId)
		a.coord.ForgetActivePane(paneId)
		a.mu.Lock()
		delete(a.scrollOffsets, ptyId)
		delete(a.selections, ptyId)
		a.mu.Unlock()
	})
}

func (a *App) closeFocusedPane() {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	focused := ws.Focused()
	if focused == "" {
		return
	}
	var ptyId string
	for _, p := range ws.Panes() {
		if p.Id == focused {
			ptyId = p.PtyId
		}
	}
	ws.ClosePane(focused)
	a.coord.ForgetActivePane(focused)
	if ptyId != "" {
		_ = a.registry.Destroy(ptyId)
	}
}

// dispatch implements input.Config.OnAction: every action identifier
// spec.md §6 lists, minus the ones the router itself already fully
// handles (mode.move, mode.cancel, search.open/cancel/delete).
func (a *App) dispatch(action input.Action) bool {
	ws := a.currentWorkspace()

	switch action {
	case input.ActionPaneNew:
		a.newPane()
		return true
	case input.ActionPaneClose:
		a.closeFocusedPane()
		return true
	case input.ActionPaneZoom:
		if ws != nil {
			ws.ToggleZoom()
		}
		return true
	case input.ActionFocusNorth:
		return a.focusDir(ws, layout.North)
	case input.ActionFocusSouth:
		return a.focusDir(ws, layout.South)
	case input.ActionFocusEast:
		return a.focusDir(ws, layout.East)
	case input.ActionFocusWest:
		return a.focusDir(ws, layout.West)
	case input.ActionMoveNorth:
		if ws != nil {
			ws.MovePane(layout.North)
		}
		return true
	case input.ActionMoveSouth:
		if ws != nil {
			ws.MovePane(layout.South)
		}
		return true
	case input.ActionMoveEast:
		if ws != nil {
			ws.MovePane(layout.East)
		}
		return true
	case input.ActionMoveWest:
		if ws != nil {
			ws.MovePane(layout.West)
		}
		return true
	case input.ActionLayoutVertical:
		if ws != nil {
			ws.SetLayoutMode(layout.Vertical)
		}
		return true
	case input.ActionLayoutHorizontal:
		if ws != nil {
			ws.SetLayoutMode(layout.Horizontal)
		}
		return true
	case input.ActionLayoutStacked:
		if ws != nil {
			ws.SetLayoutMode(layout.Stacked)
		}
		return true
	case input.ActionLayoutCyclePrev:
		return a.cycleLayout(ws, -1)
	case input.ActionLayoutCycleNext:
		return a.cycleLayout(ws, 1)
	case input.ActionSessionPickerToggle:
		a.picker.toggle()
		return true
	case input.ActionAggregateToggle:
		a.aggOv.toggle()
		return true
	case input.ActionSearchNext, input.ActionSearchPrev, input.ActionSearchConfirm:
		a.runSearch(ws, action)
		return true
	case input.ActionClipboardPaste:
		return a.router.HandlePaste()
	case input.ActionConsoleToggle:
		a.console.toggle()
		return true
	case input.ActionAppQuit:
		a.router.EnterConfirm()
		return true
	case input.ActionConfirmYes:
		a.quit()
		return true
	case input.ActionConfirmNo:
		return true
	case input.ActionHintsToggle:
		a.hintsVisible = !a.hintsVisible
		return true
	}

	if n, ok := workspaceSwitchTarget(action); ok {
		a.switchWorkspace(n)
		return true
	}

	return false
}

func workspaceSwitchTarget(action input.Action) (int, bool) {
	const prefix = "workspace.switch."
	s := string(action)
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(prefix):])
	if err != nil || n < 1 || n > 9 {
		return 0, false
	}
	return n, true
}

func (a *App) focusDir(ws *layout.Workspace, dir layout.Direction) bool {
	if ws == nil {
		return false
	}
	ws.FocusDirection(dir)
	return true
}

func (a *App) cycleLayout(ws *layout.Workspace, delta int) bool {
	if ws == nil {
		return false
	}
	modes := []layout.Mode{layout.Vertical, layout.Horizontal, layout.Stacked}
	cur := ws.LayoutMode()
	idx := 0
	for i, m := range modes {
		if m == cur {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(modes)) % len(modes)
	ws.SetLayoutMode(modes[idx])
	return true
}

// switchWorkspace focuses the numbered workspace slot, creating it empty
// (with an initial pane) the first time it's visited.
func (a *App) switchWorkspace(n int) {
	a.mu.Lock()
	slot, ok := a.workspaces[n]
	if !ok {
		w, h := 80, 24
		if a.screen != nil {
			w, h = a.screen.Size()
		}
		slot = a.newEmptyWorkspaceSlotLocked(n, layout.Rect{X: 0, Y: 0, W: w, H: h})
		a.workspaces[n] = slot
	}
	a.activeWs = n
	a.mu.Unlock()

	if len(slot.ws.Panes()) == 0 {
		a.ensureInitialPane()
	}
}

// onSearchInput re-runs the search on every keystroke so matches update
// live as the query is typed (§4.G "search mode").
func (a *App) onSearchInput(query string) {
	ws := a.currentWorkspace()
	a.runSearchQuery(ws, query)
}

func (a *App) runSearch(ws *layout.Workspace, action input.Action) {
	query := a.router.SearchQuery()
	_ = action
	a.runSearchQuery(ws, query)
}

func (a *App) runSearchQuery(ws *layout.Workspace, query string) {
	if ws == nil || query == "" {
		return
	}
	focused := ws.Focused()
	for _, p := range ws.Panes() {
		if p.Id != focused || p.PtyId == "" {
			continue
		}
		emu, ok := a.registry.Emulator(p.PtyId)
		if !ok {
			return
		}
		result := emu.Search(query, 200)
		if len(result.Matches) == 0 {
			return
		}
		m := result.Matches[0]
		if !m.Live {
			a.setScrollOffset(p.PtyId, emu.ScrollbackLen()-m.Line)
		}
	}
}

// onScroll adjusts the focused pane's scrollback offset by delta lines,
// clamped to [0, scrollbackLen] by setScrollOffset.
func (a *App) onScroll(delta int) {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	focused := ws.Focused()
	for _, p := range ws.Panes() {
		if p.Id == focused && p.PtyId != "" {
			a.setScrollOffset(p.PtyId, a.scrollOffset(p.PtyId)+delta)
		}
	}
}

// onFocusClick focuses whichever pane contains screen coordinate (x, y).
func (a *App) onFocusClick(x, y int) {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	for _, p := range ws.Panes() {
		r := p.Rect
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			ws.Focus(p.Id)
			return
		}
	}
}
