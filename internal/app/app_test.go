package app

import (
	"testing"

	"github.com/openmux/openmux/internal/config"
	"github.com/openmux/openmux/internal/idgen"
	"github.com/openmux/openmux/internal/input"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/persistence"
	"github.com/openmux/openmux/internal/ptyregistry"
	"github.com/openmux/openmux/internal/render"
)

// newTestApp builds an App with every subsystem real except the tcell
// screen (nil, since there is no host terminal in a test run): every
// code path this package exercises guards a.screen with a nil check and
// falls back to an 80x24 default, the same shape
// elleryfamilia-thicc/internal/dashboard's tests use for a headless
// dashboard.
func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	registry := ptyregistry.NewRegistry()
	t.Cleanup(registry.DestroyAll)

	cfg := config.DefaultConfig()
	a := &App{
		cfg:           cfg,
		registry:      registry,
		store:         store,
		ids:           idgen.NewCounter("pane-"),
		workspaces:    map[int]*workspaceSlot{},
		scrollOffsets: map[string]int{},
		drawCh:        make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	a.coord = persistence.NewCoordinator(store, registry, a.ids)
	a.renderer = render.NewRenderer(registry, cfg)

	a.router = input.NewRouter(input.Config{
		Bindings:      cfg.Bindings(),
		PrefixCombo:   cfg.UI.PrefixKey,
		PrefixTimeout: cfg.PrefixTimeout(),
		Target:        a.focusedPaneTarget,
		Selection:     a.focusedSelectionTarget,
		OnAction:      a.dispatch,
		OnSearchInput: a.onSearchInput,
		OnScroll:      a.onScroll,
		OnFocusClick:  a.onFocusClick,
	})
	a.picker = newSessionPicker(a)
	a.aggOv = newAggregateOverlay(a)
	a.console = newConsoleOverlay(a)

	if err := a.restoreOrCreateSession(); err != nil {
		t.Fatalf("restoreOrCreateSession: %v", err)
	}
	return a
}

func TestEnsureInitialPaneSpawnsOneShell(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()

	ws := a.currentWorkspace()
	panes := ws.Panes()
	if len(panes) != 1 {
		t.Fatalf("expected 1 pane, got %d", len(panes))
	}
	if panes[0].PtyId == "" {
		t.Fatalf("expected the initial pane to have a live pty")
	}
}

func TestDispatchPaneNewAndClose(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()

	if !a.dispatch(input.ActionPaneNew) {
		t.Fatalf("expected pane.new to be handled")
	}
	ws := a.currentWorkspace()
	if len(ws.Panes()) != 2 {
		t.Fatalf("expected 2 panes after pane.new, got %d", len(ws.Panes()))
	}

	if !a.dispatch(input.ActionPaneClose) {
		t.Fatalf("expected pane.close to be handled")
	}
	if len(ws.Panes()) != 1 {
		t.Fatalf("expected 1 pane after pane.close, got %d", len(ws.Panes()))
	}
}

func TestDispatchLayoutModeSwitchAndCycle(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()
	ws := a.currentWorkspace()

	a.dispatch(input.ActionLayoutHorizontal)
	if ws.LayoutMode() != layout.Horizontal {
		t.Fatalf("expected horizontal mode, got %v", ws.LayoutMode())
	}

	a.dispatch(input.ActionLayoutCycleNext)
	if ws.LayoutMode() != layout.Stacked {
		t.Fatalf("expected stacked mode after cycling next, got %v", ws.LayoutMode())
	}

	a.dispatch(input.ActionLayoutCyclePrev)
	a.dispatch(input.ActionLayoutCyclePrev)
	if ws.LayoutMode() != layout.Vertical {
		t.Fatalf("expected vertical mode after cycling prev twice, got %v", ws.LayoutMode())
	}
}

func TestDispatchWorkspaceSwitchCreatesNewSlot(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()

	if !a.dispatch(input.WorkspaceSwitch(2)) {
		t.Fatalf("expected workspace.switch.2 to be handled")
	}
	a.mu.Lock()
	active := a.activeWs
	_, ok := a.workspaces[2]
	a.mu.Unlock()
	if active != 2 || !ok {
		t.Fatalf("expected workspace 2 to become active, got active=%d ok=%v", active, ok)
	}
	if len(a.currentWorkspace().Panes()) != 1 {
		t.Fatalf("expected a fresh pane spawned in the new workspace")
	}
}

func TestDispatchUnknownActionReturnsFalse(t *testing.T) {
	a := newTestApp(t)
	if a.dispatch(input.Action("not.a.real.action")) {
		t.Fatalf("expected an unrecognized action to be reported unhandled")
	}
}

// TestSaveAndRestoreSessionRoundTrip models spec.md §4.F: serializing the
// live layout to disk and reconstructing it from the saved record must
// preserve pane ptyIds, layout mode, zoom and focus.
func TestSaveAndRestoreSessionRoundTrip(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()
	a.dispatch(input.ActionPaneNew)
	a.dispatch(input.ActionLayoutHorizontal)

	ws := a.currentWorkspace()
	panes := ws.Panes()
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
	var focusedPtyId string
	for _, p := range panes {
		if p.Id == ws.Focused() {
			focusedPtyId = p.PtyId
		}
	}
	ws.ToggleZoom()

	a.saveActiveSession()

	sessionId := a.sessionId
	otherId := newSessionId()
	if _, err := a.store.Create(otherId, ""); err != nil {
		t.Fatalf("create other session: %v", err)
	}
	if err := a.switchToSession(otherId); err != nil {
		t.Fatalf("switch away: %v", err)
	}
	if err := a.switchToSession(sessionId); err != nil {
		t.Fatalf("switch back: %v", err)
	}

	ws = a.currentWorkspace()
	restored := ws.Panes()
	if len(restored) != 2 {
		t.Fatalf("expected 2 panes restored, got %d", len(restored))
	}
	if ws.LayoutMode() != layout.Horizontal {
		t.Fatalf("expected horizontal layout restored, got %v", ws.LayoutMode())
	}
	if !ws.Zoomed() {
		t.Fatalf("expected zoom state restored")
	}
	var restoredFocusedPtyId string
	for _, p := range restored {
		if p.Id == ws.Focused() {
			restoredFocusedPtyId = p.PtyId
		}
	}
	if restoredFocusedPtyId != focusedPtyId {
		t.Fatalf("expected focus on pty %q restored, got pty %q", focusedPtyId, restoredFocusedPtyId)
	}

	ptyIds := map[string]bool{}
	for _, p := range panes {
		ptyIds[p.PtyId] = true
	}
	for _, p := range restored {
		if !ptyIds[p.PtyId] {
			t.Fatalf("restored pane references unexpected pty %q", p.PtyId)
		}
	}
}

// TestDeleteActiveSessionSwitchesToNextSession models spec.md §4.F's
// deletion cascade end to end: deleting the active session must switch
// the app's in-memory state to the next session by lastSwitchedAt order
// without resurrecting the deleted one on disk.
func TestDeleteActiveSessionSwitchesToNextSession(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()
	deletedId := a.sessionId

	otherId := newSessionId()
	if _, err := a.store.Create(otherId, ""); err != nil {
		t.Fatalf("create other session: %v", err)
	}
	if err := a.switchToSession(otherId); err != nil {
		t.Fatalf("switch to other: %v", err)
	}
	a.ensureInitialPane()
	if err := a.switchToSession(deletedId); err != nil {
		t.Fatalf("switch back to deleted-to-be: %v", err)
	}

	if err := a.deleteSession(deletedId); err != nil {
		t.Fatalf("deleteSession: %v", err)
	}

	if a.sessionId != otherId {
		t.Fatalf("expected app to switch to %q after deleting the active session, got %q", otherId, a.sessionId)
	}
	if _, err := a.store.Load(deletedId); err == nil {
		t.Fatalf("expected deleted session's record to be gone")
	}
}

// TestDeleteActiveSessionWithNoneRemainingCreatesFresh models the
// fresh-session fallback: deleting the only session must leave the app
// with a new, empty one rather than no session at all.
func TestDeleteActiveSessionWithNoneRemainingCreatesFresh(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()
	onlyId := a.sessionId

	if err := a.deleteSession(onlyId); err != nil {
		t.Fatalf("deleteSession: %v", err)
	}

	if a.sessionId == "" || a.sessionId == onlyId {
		t.Fatalf("expected a fresh session id, got %q", a.sessionId)
	}
	if len(a.currentWorkspace().Panes()) != 0 {
		t.Fatalf("expected the fresh session to start with no panes")
	}
	if _, err := a.store.Load(onlyId); err == nil {
		t.Fatalf("expected deleted session's record to be gone")
	}
}

// TestDeleteInactiveSessionDoesNotDisturbActive verifies deleting a
// session other than the current one leaves the active session's
// in-memory state untouched.
func TestDeleteInactiveSessionDoesNotDisturbActive(t *testing.T) {
	a := newTestApp(t)
	a.ensureInitialPane()
	activeId := a.sessionId

	otherId := newSessionId()
	if _, err := a.store.Create(otherId, ""); err != nil {
		t.Fatalf("create other session: %v", err)
	}

	if err := a.deleteSession(otherId); err != nil {
		t.Fatalf("deleteSession: %v", err)
	}

	if a.sessionId != activeId {
		t.Fatalf("expected active session to remain %q, got %q", activeId, a.sessionId)
	}
	if len(a.currentWorkspace().Panes()) != 1 {
		t.Fatalf("expected active session's pane to be untouched")
	}
	if _, err := a.store.Load(otherId); err == nil {
		t.Fatalf("expected deleted session's record to be gone")
	}
}
