// Package app wires every other package into the running program: it
// owns the tcell screen, the PTY registry, the layout workspaces, the
// input router, the renderer and the session-persistence coordinator,
// and drives the single-threaded event loop spec.md §2 describes.
//
// Grounded on elleryfamilia-thicc/cmd/thicc/micro.go's main()/DoEvent():
// the PollEvent-in-a-goroutine-feeding-a-channel idiom, the select loop
// over the event channel plus a redraw channel plus a timer channel, and
// exit()'s "finalize whatever can still be finalized, then os.Exit" shape.
// The plugin/dashboard/buffer machinery that idiom also drives has no
// equivalent here: this package's select loop multiplexes PTY-registry
// lifecycle events and an autosave ticker instead.
package app

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/micro-editor/tcell/v2"

	"github.com/openmux/openmux/internal/aggregate"
	"github.com/openmux/openmux/internal/clipboard"
	"github.com/openmux/openmux/internal/config"
	"github.com/openmux/openmux/internal/idgen"
	"github.com/openmux/openmux/internal/input"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/persistence"
	"github.com/openmux/openmux/internal/ptyregistry"
	"github.com/openmux/openmux/internal/remoteshim"
	"github.com/openmux/openmux/internal/render"
	"github.com/openmux/openmux/internal/selection"
)

// ExitCode values match spec.md §6's external interface contract.
const (
	ExitClean         = 0
	ExitNoTerminal    = 1
	ExitConfigFailure = 2
)

// workspaceSlot is one of the (up to) nine numbered workspaces a session
// holds, each with its own layout engine and restore bookkeeping.
type workspaceSlot struct {
	id  int
	ws  *layout.Workspace
	rec *persistence.WorkspaceRecord
}

// App is the running program: every long-lived subsystem plus the
// mutable state (which session, which workspace, which pane is focused)
// the event loop mutates on each iteration.
type App struct {
	cfg *config.Config

	screen   tcell.Screen
	registry *ptyregistry.Registry
	store    *persistence.Store
	coord    *persistence.Coordinator
	renderer *render.Renderer
	router   *input.Router
	ids      *idgen.Counter

	aggView *aggregate.View

	mu          sync.Mutex
	sessionId   string
	sessionName string
	workspaces  map[int]*workspaceSlot
	activeWs    int

	scrollOffsets map[string]int                  // ptyId -> scrollback offset, search/scroll state
	selections    map[string]*selection.Selection // ptyId -> in-progress/last selection

	hintsVisible bool

	picker   *sessionPicker
	aggOv    *aggregateOverlay
	console  *consoleOverlay

	drawCh chan struct{}
	done   chan struct{}
}

// Options configures a Run invocation.
type Options struct {
	ConfigPath string
	// SessionName, when non-empty, starts a remoteshim.Server on the
	// session's socket so a separate `openmux attach` process can pass
	// keystrokes through to the focused pane (see remote.go).
	SessionName string
}

// Run loads configuration, acquires the host terminal, restores the last
// active session (or creates a fresh one), and runs the event loop until
// app.quit or a terminating signal. It returns the process exit code
// spec.md §6 defines; it never calls os.Exit itself so callers (tests,
// cmd/openmux) can observe the code.
func Run(opts Options) int {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		p, err := config.Path()
		if err != nil {
			fmt.Fprintln(os.Stderr, "openmux: resolve config path:", err)
			return ExitConfigFailure
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux: config error, falling back to defaults:", err)
	}

	sessionsDir, err := config.Dir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux: resolve config directory:", err)
		return ExitConfigFailure
	}
	store, err := persistence.NewStore(sessionsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux: open session store:", err)
		return ExitConfigFailure
	}

	a := &App{
		cfg:           cfg,
		registry:      ptyregistry.NewRegistry(),
		store:         store,
		ids:           idgen.NewCounter("pane-"),
		workspaces:    map[int]*workspaceSlot{},
		scrollOffsets: map[string]int{},
		drawCh:        make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	a.coord = persistence.NewCoordinator(store, a.registry, a.ids)
	a.renderer = render.NewRenderer(a.registry, cfg)
	a.aggView = aggregate.NewView(a.registry, store, a.coord)

	if err := clipboard.Setup(); err != nil {
		fmt.Fprintln(os.Stderr, "openmux: clipboard backend unavailable:", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux: no terminal available:", err)
		return ExitNoTerminal
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "openmux: could not initialize the host terminal:", err)
		return ExitNoTerminal
	}
	a.screen = screen
	a.screen.EnableMouse()
	a.screen.Clear()

	defer func() {
		if r := recover(); r != nil {
			a.screen.Fini()
			fmt.Fprintln(os.Stderr, "openmux: unrecovered panic:", r)
			panic(r)
		}
	}()
	defer a.screen.Fini()

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
		a.logConsole("restore session: " + err.Error())
	}
	a.ensureInitialPane()

	if opts.SessionName != "" {
		if srv, err := a.startRemoteShim(opts.SessionName); err != nil {
			a.logConsole("remote attach: " + err.Error())
		} else {
			defer srv.Stop()
		}
	}

	return a.loop()
}

// startRemoteShim opens the attach socket for the active session and
// begins serving remote `openmux attach` clients in the background.
func (a *App) startRemoteShim(sessionName string) (*remoteshim.Server, error) {
	socketPath, err := remoteshim.SocketPath(a.sessionId)
	if err != nil {
		return nil, err
	}
	if err := remoteshim.CleanupStaleSocket(socketPath); err != nil {
		return nil, err
	}
	srv, err := remoteshim.NewServer(socketPath, sessionName, a)
	if err != nil {
		return nil, err
	}
	go srv.Serve()
	return srv, nil
}

// loop runs until a.done is closed, returning the exit code chosen by
// whatever closed it (app.quit confirmation, a terminating signal, or an
// unrecoverable PTY-registry condition).
func (a *App) loop() int {
	w, h := a.screen.Size()
	a.setViewport(w, h)

	events := make(chan tcell.Event)
	go func() {
		for {
			e := a.screen.PollEvent()
			if e == nil {
				return
			}
			events <- e
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	autosave := time.NewTicker(autosaveOrDefault(a.cfg.AutosaveInterval()))
	defer autosave.Stop()

	lastGeomVersion := map[int]uint64{}
	redrawTick := time.NewTicker(50 * time.Millisecond)
	defer redrawTick.Stop()

	exitCode := ExitClean

	for {
		a.draw()

		select {
		case <-a.done:
			a.saveActiveSession()
			return exitCode

		case ev := <-events:
			a.handleEvent(ev)

		case <-autosave.C:
			a.saveActiveSession()

		case <-redrawTick.C:
			// §9's dual autosave trigger: a structural layout change (any
			// mutation that bumps LayoutVersion: new/close, move, swap,
			// zoom, mode or ratio change) also counts as a save-worthy
			// event, not just the interval ticking over; a viewport-only
			// resize does not bump it. Polling LayoutVersion here
			// is cheap and avoids threading a callback through every
			// geometry mutator.
			a.mu.Lock()
			dirty := false
			for id, slot := range a.workspaces {
				v := slot.ws.LayoutVersion()
				if lastGeomVersion[id] != v {
					lastGeomVersion[id] = v
					dirty = true
				}
			}
			a.mu.Unlock()
			if dirty {
				a.saveActiveSession()
			}

		case <-sigCh:
			a.saveActiveSession()
			return exitCode
		}
	}
}

func autosaveOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// quit requests the event loop stop after the current iteration.
func (a *App) quit() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *App) setViewport(w, h int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, slot := range a.workspaces {
		slot.ws.SetViewport(layout.Rect{X: 0, Y: 0, W: w, H: h})
	}
}

func (a *App) draw() {
	a.mu.Lock()
	ws := a.currentWorkspaceLocked()
	a.mu.Unlock()

	a.screen.Clear()
	if ws != nil {
		a.renderer.Draw(a.screen, ws)
	}
	a.drawStatusLine()
	if a.console.visible {
		a.console.render(a.screen)
	}
	if a.picker.visible {
		a.picker.render(a.screen)
	}
	if a.aggOv.visible {
		a.aggOv.render(a.screen)
	}
	a.screen.Show()
}

// drawStatusLine renders a one-line hint for whatever modal state the
// router is in: prefix armed, move mode, an in-progress search query, or
// the quit confirmation, mirroring a real multiplexer's bottom status
// bar (§4.G).
func (a *App) drawStatusLine() {
	var msg string
	switch a.router.Mode() {
	case input.ModePrefix:
		msg = "-- PREFIX --"
	case input.ModeMove:
		msg = "-- MOVE -- (arrow keys to move pane, esc to cancel)"
	case input.ModeSearch:
		msg = "search: " + a.router.SearchQuery()
	case input.ModeConfirm:
		msg = "quit openmux? (y/n)"
	default:
		if a.hintsVisible {
			msg = a.sessionName + " | ctrl+b ? for prefix"
		}
	}
	if msg == "" {
		return
	}
	w, h := a.screen.Size()
	style := a.cfg.Style(config.ThemeStatusBar)
	for x := 0; x < w; x++ {
		a.screen.SetContent(x, h-1, ' ', nil, style)
	}
	drawString(a.screen, 0, h-1, msg, style)
}

func (a *App) handleEvent(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventResize:
		w, h := e.Size()
		a.setViewport(w, h)
	case *tcell.EventKey:
		a.router.HandleKey(e)
	case *tcell.EventMouse:
		a.router.HandleMouse(e)
	case *tcell.EventPaste:
		if e.Start() {
			return
		}
		a.router.HandlePaste()
	case *tcell.EventError:
		a.logConsole("screen error: " + e.Error())
	}
}

func (a *App) currentWorkspaceLocked() *layout.Workspace {
	slot, ok := a.workspaces[a.activeWs]
	if !ok {
		return nil
	}
	return slot.ws
}

func (a *App) currentWorkspace() *layout.Workspace {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentWorkspaceLocked()
}

func (a *App) logConsole(msg string) {
	if a.console != nil {
		a.console.log(msg)
	}
}
