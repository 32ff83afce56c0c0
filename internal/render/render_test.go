package render

import (
	"testing"
	"time"

	"github.com/micro-editor/tcell/v2"
	"github.com/openmux/openmux/internal/config"
	"github.com/openmux/openmux/internal/idgen"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/ptyregistry"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	sim := tcell.NewSimulationScreen("")
	if err := sim.Init(); err != nil {
		t.Fatalf("sim.Init: %v", err)
	}
	sim.SetSize(w, h)
	return sim
}

func TestDrawBlitsPaneContentAndBorder(t *testing.T) {
	registry := ptyregistry.NewRegistry()
	defer registry.DestroyAll()

	ptyId, err := registry.Create(ptyregistry.CreateOptions{
		Cols: 20, Rows: 10, Shell: []string{"/bin/sh", "-c", "printf hi; sleep 5"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// give the child a moment to write and the readLoop to feed the emulator
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if emu, ok := registry.Emulator(ptyId); ok {
			if line := emu.GetLine(0); len(line) > 0 && line[0].Char == 'h' {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	ids := idgen.NewCounter("pane-")
	ws := layout.NewWorkspace(ids, layout.Rect{X: 0, Y: 0, W: 20, H: 10})
	paneId := ws.NewPane(ptyId, "shell")
	_ = paneId

	screen := newSimScreen(t, 20, 10)
	defer screen.Fini()

	r := NewRenderer(registry, config.DefaultConfig())
	r.Draw(screen, ws)

	ch, _, _, _ := screen.GetContent(1, 1)
	if ch != 'h' {
		t.Fatalf("expected 'h' blitted at (1,1), got %q", ch)
	}

	borderCh, _, _, _ := screen.GetContent(0, 0)
	if borderCh != tcell.RuneULCorner {
		t.Fatalf("expected top-left border corner at (0,0), got %q", borderCh)
	}
}

func TestDrawSkipsPaneWithoutPty(t *testing.T) {
	registry := ptyregistry.NewRegistry()
	defer registry.DestroyAll()

	ids := idgen.NewCounter("pane-")
	ws := layout.NewWorkspace(ids, layout.Rect{X: 0, Y: 0, W: 20, H: 10})
	ws.NewPane("", "")

	screen := newSimScreen(t, 20, 10)
	defer screen.Fini()

	r := NewRenderer(registry, config.DefaultConfig())
	r.Draw(screen, ws) // must not panic on a pane that has no PTY
}

func TestSanitizeTitleStripsKittyGraphicsSequence(t *testing.T) {
	title := "vim\x1b_Gf=100,a=T;AAAA\x1b\\main.go"
	got := SanitizeTitle(title)
	if got != "vimmain.go" {
		t.Fatalf("expected sequence stripped, got %q", got)
	}
}

func TestSanitizeTitlePassesThroughPlainText(t *testing.T) {
	if got := SanitizeTitle("zsh: ~/project"); got != "zsh: ~/project" {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestSanitizeTitleHandlesUnterminatedSequence(t *testing.T) {
	title := "bash\x1b_Gtrailing garbage with no terminator"
	if got := SanitizeTitle(title); got != "bash" {
		t.Fatalf("expected truncation at sequence start, got %q", got)
	}
}
