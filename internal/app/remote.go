package app

// HandleInput implements remoteshim.Host: bytes a remote-shim client
// sends are forwarded to the active workspace's focused PTY, exactly as
// if they'd arrived from the local keyboard's passthrough path.
func (a *App) HandleInput(data []byte) {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	focused := ws.Focused()
	for _, p := range ws.Panes() {
		if p.Id == focused && p.PtyId != "" {
			_ = a.registry.Write(p.PtyId, data)
			return
		}
	}
}

// HandleResize implements remoteshim.Host: a remote client's terminal
// resize is applied to the focused pane's PTY. It does not resize the
// local host screen, since the shim serves a secondary passthrough
// terminal rather than mirroring the primary display (see DESIGN.md).
func (a *App) HandleResize(rows, cols int) {
	ws := a.currentWorkspace()
	if ws == nil {
		return
	}
	focused := ws.Focused()
	for _, p := range ws.Panes() {
		if p.Id == focused && p.PtyId != "" {
			_ = a.registry.Resize(p.PtyId, cols, rows)
			return
		}
	}
}
