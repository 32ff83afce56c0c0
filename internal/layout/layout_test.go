package layout

import (
	"testing"

	"github.com/openmux/openmux/internal/idgen"
)

func newTestWorkspace(w, h int) *Workspace {
	return NewWorkspace(idgen.NewCounter("pane-"), Rect{X: 0, Y: 0, W: w, H: h})
}

func findPane(panes []Pane, id string) (Pane, bool) {
	for _, p := range panes {
		if p.Id == id {
			return p, true
		}
	}
	return Pane{}, false
}

func TestNewPaneFlow(t *testing.T) {
	ws := newTestWorkspace(80, 24)

	id1 := ws.NewPane("", "")
	panes := ws.Panes()
	if len(panes) != 1 {
		t.Fatalf("expected 1 pane, got %d", len(panes))
	}
	if panes[0].Rect != (Rect{0, 0, 80, 24}) {
		t.Fatalf("expected main rect {0,0,80,24}, got %+v", panes[0].Rect)
	}
	if ws.Focused() != id1 {
		t.Fatalf("expected pane 1 focused")
	}

	id2 := ws.NewPane("", "")
	panes = ws.Panes()
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
	main, _ := findPane(panes, id1)
	if main.Rect != (Rect{0, 0, 40, 24}) {
		t.Fatalf("expected main rect {0,0,40,24}, got %+v", main.Rect)
	}
	stack0, _ := findPane(panes, id2)
	if stack0.Rect != (Rect{40, 0, 40, 24}) {
		t.Fatalf("expected stack[0] rect {40,0,40,24}, got %+v", stack0.Rect)
	}
	if ws.Focused() != id2 {
		t.Fatalf("expected stack[0] focused")
	}
}

func TestNavigation(t *testing.T) {
	ws := newTestWorkspace(80, 24)
	main := ws.NewPane("", "")
	stack0 := ws.NewPane("", "")

	ws.FocusDirection(West)
	if ws.Focused() != main {
		t.Fatalf("expected focus.west to focus main, got %s", ws.Focused())
	}

	ws.FocusDirection(East)
	if ws.Focused() != stack0 {
		t.Fatalf("expected focus.east to focus stack[0], got %s", ws.Focused())
	}

	ws.FocusDirection(South)
	if ws.Focused() != stack0 {
		t.Fatalf("expected focus.south to be a no-op with one stack pane, got %s", ws.Focused())
	}
}

func TestMovePaneByGeometry(t *testing.T) {
	ws := newTestWorkspace(80, 24)
	mainId := ws.NewPane("main-pty", "")
	ws.NewPane("s0-pty", "")
	s1 := ws.NewPane("s1-pty", "")
	s2 := ws.NewPane("s2-pty", "")

	ws.Focus(s2)
	ws.MovePane(North)

	panes := ws.Panes()
	focused := ws.Focused()
	var focusedPane Pane
	for _, p := range panes {
		if p.Id == focused {
			focusedPane = p
		}
	}
	if focusedPane.PtyId != "s2-pty" {
		t.Fatalf("expected focus to follow the moved pty, got ptyId=%s", focusedPane.PtyId)
	}

	s1AfterMove, _ := findPane(panes, s1)
	if s1AfterMove.PtyId != "s1-pty" {
		t.Fatalf("expected s1's pane id to still carry s1-pty, got %s", s1AfterMove.PtyId)
	}

	mainPane, _ := findPane(panes, mainId)
	if mainPane.PtyId != "main-pty" {
		t.Fatalf("expected main pty unchanged by move.north, got %s", mainPane.PtyId)
	}

	ws.MovePane(West)
	panes = ws.Panes()
	if panes[0].PtyId != "s2-pty" {
		t.Fatalf("expected move.west to bring s2-pty into main, got %s", panes[0].PtyId)
	}
}

func TestClosePanePromotesMain(t *testing.T) {
	ws := newTestWorkspace(80, 24)
	mainId := ws.NewPane("", "")
	s0 := ws.NewPane("", "")

	ws.ClosePane(mainId)
	panes := ws.Panes()
	if len(panes) != 1 {
		t.Fatalf("expected 1 pane after close, got %d", len(panes))
	}
	if panes[0].Id != s0 {
		t.Fatalf("expected stack[0] promoted to main, got %s", panes[0].Id)
	}
	if panes[0].Rect != (Rect{0, 0, 80, 24}) {
		t.Fatalf("expected promoted main to take full viewport, got %+v", panes[0].Rect)
	}
}

func TestToggleZoomHidesOtherPanes(t *testing.T) {
	ws := newTestWorkspace(80, 24)
	mainId := ws.NewPane("", "")
	s0 := ws.NewPane("", "")
	ws.Focus(mainId)

	ws.ToggleZoom()
	panes := ws.Panes()
	main, _ := findPane(panes, mainId)
	other, _ := findPane(panes, s0)
	if main.Rect != (Rect{0, 0, 80, 24}) {
		t.Fatalf("expected zoomed pane to take full viewport, got %+v", main.Rect)
	}
	if !other.Rect.Hidden() {
		t.Fatalf("expected non-focused pane hidden while zoomed, got %+v", other.Rect)
	}
}

func TestLayoutVersionAdvancesOnStructuralChangeOnly(t *testing.T) {
	ws := newTestWorkspace(80, 24)
	before := ws.LayoutVersion()
	ws.NewPane("", "")
	after := ws.LayoutVersion()
	if after <= before {
		t.Fatalf("expected layoutVersion to advance on NewPane")
	}
	ws.SetViewport(Rect{X: 0, Y: 0, W: 100, H: 30})
	if ws.LayoutVersion() != after {
		t.Fatalf("expected layoutVersion unchanged by a viewport-only change")
	}
}
