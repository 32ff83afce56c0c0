package app

import (
	"fmt"
	"sync"

	"github.com/micro-editor/tcell/v2"
)

// Overlay priorities: toggling one overlay leaves the others as they
// are, so several can be open at once; the highest-priority open overlay
// gets each key first, and equal priorities go in registration order.
const (
	priorityConfirm = 100
	priorityPicker  = 50
	priorityAggview = 50
	priorityConsole = 10
)

// sessionPicker is the session.picker.toggle overlay (§4.F): a list of
// every on-disk session, navigable with the arrow keys, Enter switches
// to the highlighted one.
type sessionPicker struct {
	app     *App
	visible bool
	items   []string
	ids     []string
	cursor  int
}

func newSessionPicker(a *App) *sessionPicker { return &sessionPicker{app: a} }

func (p *sessionPicker) Priority() int { return priorityPicker }

func (p *sessionPicker) toggle() {
	if p.visible {
		p.hide()
		return
	}
	p.show()
}

func (p *sessionPicker) show() {
	p.refresh()
	p.cursor = 0
	p.visible = true
	p.app.router.RegisterOverlay(p)
}

func (p *sessionPicker) hide() {
	p.visible = false
	p.app.router.UnregisterOverlay(p)
}

func (p *sessionPicker) HandleKey(ev *tcell.EventKey) bool {
	if !p.visible {
		return false
	}
	switch ev.Key() {
	case tcell.KeyEscape:
		p.hide()
		return true
	case tcell.KeyUp:
		if p.cursor > 0 {
			p.cursor--
		}
		return true
	case tcell.KeyDown:
		if p.cursor < len(p.ids)-1 {
			p.cursor++
		}
		return true
	case tcell.KeyEnter:
		if p.cursor >= 0 && p.cursor < len(p.ids) {
			id := p.ids[p.cursor]
			p.hide()
			if err := p.app.switchToSession(id); err != nil {
				p.app.logConsole("switch session: " + err.Error())
			}
		}
		return true
	}
	if ev.Rune() == 'n' {
		id := newSessionId()
		if _, err := p.app.store.Create(id, ""); err == nil {
			p.hide()
			_ = p.app.switchToSession(id)
		}
		return true
	}
	if ev.Rune() == 'd' {
		if p.cursor >= 0 && p.cursor < len(p.ids) {
			id := p.ids[p.cursor]
			if err := p.app.deleteSession(id); err != nil {
				p.app.logConsole("delete session: " + err.Error())
			} else {
				p.refresh()
			}
		}
		return true
	}
	return true
}

// refresh reloads the session list from disk in place, keeping the
// overlay open (used after a delete removes the highlighted entry).
func (p *sessionPicker) refresh() {
	entries, err := p.app.store.List()
	if err != nil {
		p.app.logConsole("session picker: " + err.Error())
		return
	}
	p.items = p.items[:0]
	p.ids = p.ids[:0]
	for _, e := range entries {
		p.items = append(p.items, e.Name)
		p.ids = append(p.ids, e.Id)
	}
	if p.cursor >= len(p.ids) {
		p.cursor = len(p.ids) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *sessionPicker) render(screen tcell.Screen) {
	w, h := screen.Size()
	boxW, boxH := w*2/3, h*2/3
	x0, y0 := (w-boxW)/2, (h-boxH)/2
	style := p.app.cfg.Style("border.focused")
	drawOverlayBox(screen, x0, y0, boxW, boxH, "Sessions (n: new, d: delete, enter: switch, esc: close)", style)

	for i, name := range p.items {
		if i >= boxH-2 {
			break
		}
		line := name
		rowStyle := style
		if i == p.cursor {
			rowStyle = rowStyle.Reverse(true)
		}
		drawString(screen, x0+2, y0+2+i, fmt.Sprintf("%-*s", boxW-4, line), rowStyle)
	}
}

// aggregateOverlay is the aggregate.toggle overlay (§4.H): the cross-
// session PTY listing, filterable and navigable.
type aggregateOverlay struct {
	app     *App
	visible bool
}

func newAggregateOverlay(a *App) *aggregateOverlay { return &aggregateOverlay{app: a} }

func (o *aggregateOverlay) Priority() int { return priorityAggview }

func (o *aggregateOverlay) toggle() {
	if o.visible {
		o.hide()
		return
	}
	o.app.aggView.Refresh()
	o.app.aggView.StartPolling()
	o.visible = true
	o.app.router.RegisterOverlay(o)
}

func (o *aggregateOverlay) hide() {
	o.visible = false
	o.app.aggView.StopPolling()
	o.app.router.UnregisterOverlay(o)
}

func (o *aggregateOverlay) HandleKey(ev *tcell.EventKey) bool {
	if !o.visible {
		return false
	}
	switch ev.Key() {
	case tcell.KeyEscape:
		o.hide()
		return true
	case tcell.KeyUp:
		o.app.aggView.MoveSelection(-1)
		return true
	case tcell.KeyDown:
		o.app.aggView.MoveSelection(1)
		return true
	case tcell.KeyEnter:
		if entry, ok := o.app.aggView.Selected(); ok {
			o.hide()
			o.app.jumpToPane(entry.WorkspaceId, entry.PaneId)
		}
		return true
	}
	return true
}

func (o *aggregateOverlay) render(screen tcell.Screen) {
	w, h := screen.Size()
	boxW, boxH := w*3/4, h*3/4
	x0, y0 := (w-boxW)/2, (h-boxH)/2
	style := o.app.cfg.Style("border.focused")
	drawOverlayBox(screen, x0, y0, boxW, boxH, "All sessions (enter: jump, esc: close)", style)

	entries := o.app.aggView.Visible()
	for i, e := range entries {
		if i >= boxH-2 {
			break
		}
		line := fmt.Sprintf("%-20s %s", e.ForegroundProcess, e.Cwd)
		rowStyle := style
		if sel, ok := o.app.aggView.Selected(); ok && sel.PtyId == e.PtyId {
			rowStyle = rowStyle.Reverse(true)
		}
		drawString(screen, x0+2, y0+2+i, fmt.Sprintf("%-*s", boxW-4, line), rowStyle)
	}
}

// jumpToPane switches to the workspace holding paneId, if it's one of
// the app's own live workspaces (the common "jump to a pane in another
// of my workspaces" case); cross-session jumps first require a
// session.picker-style switch, which this keeps out of scope for now.
func (a *App) jumpToPane(workspaceId int, paneId string) {
	a.mu.Lock()
	slot, ok := a.workspaces[workspaceId]
	a.mu.Unlock()
	if !ok {
		return
	}
	slot.ws.Focus(paneId)
	a.mu.Lock()
	a.activeWs = workspaceId
	a.mu.Unlock()
}

// consoleOverlay is the console.toggle action's target: a small
// scrollback of openmux's own diagnostic messages (spawn failures,
// config errors), not a command shell. spec.md names the action but
// doesn't otherwise specify the console's contents, so this keeps it to
// what the rest of this package already has to log somewhere.
type consoleOverlay struct {
	app     *App
	mu      sync.Mutex
	visible bool
	lines   []string
}

func newConsoleOverlay(a *App) *consoleOverlay { return &consoleOverlay{app: a} }

func (c *consoleOverlay) Priority() int { return priorityConsole }

func (c *consoleOverlay) toggle() {
	c.mu.Lock()
	c.visible = !c.visible
	visible := c.visible
	c.mu.Unlock()
	if visible {
		c.app.router.RegisterOverlay(c)
	} else {
		c.app.router.UnregisterOverlay(c)
	}
}

func (c *consoleOverlay) log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
	if len(c.lines) > 200 {
		c.lines = c.lines[len(c.lines)-200:]
	}
}

func (c *consoleOverlay) HandleKey(ev *tcell.EventKey) bool {
	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if !visible {
		return false
	}
	if ev.Key() == tcell.KeyEscape {
		c.toggle()
		return true
	}
	return true
}

func (c *consoleOverlay) render(screen tcell.Screen) {
	c.mu.Lock()
	lines := append([]string(nil), c.lines...)
	c.mu.Unlock()

	w, h := screen.Size()
	boxH := h / 3
	y0 := h - boxH
	style := c.app.cfg.Style("statusbar")
	drawOverlayBox(screen, 0, y0, w, boxH, "Console (esc: close)", style)

	start := 0
	if len(lines) > boxH-2 {
		start = len(lines) - (boxH - 2)
	}
	for i, line := range lines[start:] {
		drawString(screen, 2, y0+2+i, line, style)
	}
}

func drawOverlayBox(screen tcell.Screen, x, y, w, h int, title string, style tcell.Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
	for col := x; col < x+w; col++ {
		screen.SetContent(col, y, tcell.RuneHLine, nil, style)
		screen.SetContent(col, y+h-1, tcell.RuneHLine, nil, style)
	}
	for row := y; row < y+h; row++ {
		screen.SetContent(x, row, tcell.RuneVLine, nil, style)
		screen.SetContent(x+w-1, row, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(x, y, tcell.RuneULCorner, nil, style)
	screen.SetContent(x+w-1, y, tcell.RuneURCorner, nil, style)
	screen.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, style)
	screen.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, style)
	drawString(screen, x+2, y, " "+title+" ", style)
}

func drawString(screen tcell.Screen, x, y int, s string, style tcell.Style) {
	for i, r := range s {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
