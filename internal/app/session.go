package app

import (
	"os"
	"time"

	"github.com/openmux/openmux/internal/idgen"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/persistence"
	"github.com/openmux/openmux/internal/ptyregistry"
)

// restoreOrCreateSession loads the index's last-active session (or
// creates a fresh one if there isn't one yet) and reconciles its panes
// against the PTY registry via the coordinator, per spec.md §4.F.
func (a *App) restoreOrCreateSession() error {
	id, err := a.store.GetActiveId()
	if err != nil {
		return err
	}
	if id == "" {
		id = newSessionId()
		if _, err := a.store.Create(id, ""); err != nil {
			return err
		}
	} else if _, err := a.store.Load(id); err != nil {
		// Stale index entry pointing at a missing/corrupt file: start over
		// with a fresh session rather than fail to boot.
		id = newSessionId()
		if _, err := a.store.Create(id, ""); err != nil {
			return err
		}
	}

	return a.switchToSession(id)
}

func newSessionId() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + idgen.NewOpaqueID()[:8]
}

// switchToSession saves the current in-memory layout (if any), then
// asks the coordinator to reconcile the target session's panes and
// rebuilds this app's in-memory workspace set from the result.
func (a *App) switchToSession(id string) error {
	a.saveActiveSession()

	rec, err := a.coord.SwitchTo(id, a.spawnPane)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.sessionId = rec.Id
	a.sessionName = rec.Name
	a.workspaces = map[int]*workspaceSlot{}
	w, h := 80, 24
	if a.screen != nil {
		w, h = a.screen.Size()
	}
	viewport := layout.Rect{X: 0, Y: 0, W: w, H: h}

	if len(rec.Workspaces) == 0 {
		a.workspaces[1] = a.newEmptyWorkspaceSlotLocked(1, viewport)
		a.activeWs = 1
	} else {
		for wsId, wrec := range rec.Workspaces {
			a.workspaces[wsId] = a.rebuildWorkspaceSlotLocked(wsId, wrec, viewport)
		}
		a.activeWs = rec.ActiveWorkspace
		if _, ok := a.workspaces[a.activeWs]; !ok {
			for wsId := range a.workspaces {
				a.activeWs = wsId
				break
			}
		}
	}
	a.mu.Unlock()

	return nil
}

// deleteSession implements spec.md §4.F's delete(id): if id is the
// active session, its live PTYs are torn down before the coordinator
// removes the record, and this app's in-memory state is switched to
// whatever session takes its place (by lastSwitchedAt order), or a
// freshly created empty session if none remain. Deleting an inactive
// session only removes its on-disk record.
func (a *App) deleteSession(id string) error {
	a.mu.Lock()
	wasActive := a.sessionId == id
	if wasActive {
		// Clear sessionId first so the switchToSession below (via its
		// saveActiveSession call) can't resurrect the session we're about
		// to delete by writing its in-memory layout back to disk.
		a.sessionId = ""
	}
	a.mu.Unlock()

	result, err := a.coord.Delete(id)
	if err != nil {
		return err
	}
	if !result.WasActive {
		return nil
	}

	nextId := result.NextId
	if nextId == "" {
		nextId = newSessionId()
		if _, err := a.store.Create(nextId, ""); err != nil {
			return err
		}
	}
	return a.switchToSession(nextId)
}

func (a *App) newEmptyWorkspaceSlotLocked(id int, viewport layout.Rect) *workspaceSlot {
	ws := layout.NewWorkspace(a.ids, viewport)
	ws.SetLayoutMode(parseLayoutMode(a.cfg.UI.DefaultLayoutMode))
	return &workspaceSlot{id: id, ws: ws}
}

func parseLayoutMode(s string) layout.Mode {
	switch s {
	case "horizontal":
		return layout.Horizontal
	case "stacked":
		return layout.Stacked
	default:
		return layout.Vertical
	}
}

// rebuildWorkspaceSlotLocked turns one reconciled WorkspaceRecord into a
// live layout.Workspace, restoring pane order, layout mode, zoom and
// focus.
func (a *App) rebuildWorkspaceSlotLocked(id int, wrec *persistence.WorkspaceRecord, viewport layout.Rect) *workspaceSlot {
	ws := layout.NewWorkspace(a.ids, viewport)

	// NewPane always mints a fresh id (the counter is process-lifetime,
	// not persisted), so the saved FocusedPaneId can't be looked up
	// directly; track old id -> new id as each pane is recreated in the
	// same main-then-stack order it was saved in.
	idMap := map[string]string{}
	if wrec.MainPane != nil {
		idMap[wrec.MainPane.Id] = ws.NewPane(wrec.MainPane.PtyId, wrec.MainPane.Title)
	}
	for _, p := range wrec.StackPanes {
		idMap[p.Id] = ws.NewPane(p.PtyId, p.Title)
	}

	ws.SetLayoutMode(wrec.LayoutMode)
	if wrec.Zoomed {
		ws.ToggleZoom()
	}
	if newId, ok := idMap[wrec.FocusedPaneId]; ok {
		ws.Focus(newId)
	}

	return &workspaceSlot{id: id, ws: ws, rec: wrec}
}

// spawnPane is the persistence.SpawnFunc: it creates a fresh PTY rooted
// at cwd (or the working directory openmux started in, if cwd is
// empty), sized to the active workspace's current viewport.
func (a *App) spawnPane(cwd string) (string, error) {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	w, h := 80, 24
	if a.screen != nil {
		w, h = a.screen.Size()
	}
	return a.registry.Create(ptyregistry.CreateOptions{
		Cols: w, Rows: h, Cwd: cwd,
	})
}

// saveActiveSession serializes every in-memory workspace into a
// SessionRecord and persists it, skipping the write entirely when there
// is no active session yet (startup race).
func (a *App) saveActiveSession() {
	a.mu.Lock()
	if a.sessionId == "" {
		a.mu.Unlock()
		return
	}
	id := a.sessionId
	name := a.sessionName
	active := a.activeWs

	workspaces := map[int]*persistence.WorkspaceRecord{}
	for wsId, slot := range a.workspaces {
		workspaces[wsId] = a.workspaceToRecord(slot)
	}
	a.mu.Unlock()

	rec := &persistence.SessionRecord{
		Id:              id,
		Name:            name,
		LastSwitchedAt:  time.Now(),
		Workspaces:      workspaces,
		ActiveWorkspace: active,
	}
	// Create/Load via the index owns CreatedAt/AutoNamed; re-load them so
	// Save doesn't clobber the index's view of those fields on disk.
	if prior, err := a.store.Load(id); err == nil {
		rec.CreatedAt = prior.CreatedAt
		rec.AutoNamed = prior.AutoNamed
		if rec.Name == "" {
			rec.Name = prior.Name
		}
	}

	_ = a.store.Save(rec)
}

func (a *App) workspaceToRecord(slot *workspaceSlot) *persistence.WorkspaceRecord {
	ws := slot.ws
	panes := ws.Panes()

	wrec := &persistence.WorkspaceRecord{
		Id:            slot.id,
		StackPanes:    []persistence.PaneRecord{},
		FocusedPaneId: ws.Focused(),
		LayoutMode:    ws.LayoutMode(),
		Zoomed:        ws.Zoomed(),
	}

	for i, p := range panes {
		pr := persistence.PaneRecord{Id: p.Id, PtyId: p.PtyId, Title: p.Title}
		if p.PtyId != "" {
			pr.Cwd = a.registry.GetCwd(p.PtyId)
		}
		if i == 0 {
			mp := pr
			wrec.MainPane = &mp
		} else {
			wrec.StackPanes = append(wrec.StackPanes, pr)
		}
	}

	return wrec
}
