package persistence

import (
	"strconv"
	"strings"
	"sync"

	"github.com/openmux/openmux/internal/ptyregistry"
)

// SpawnFunc creates a new PTY for a pane being reconciled without a
// retained ptyId, rooted at cwd, and returns the new ptyId.
type SpawnFunc func(cwd string) (string, error)

// Coordinator drives session switching: suspending the outgoing
// session's PTYs, swapping the layout engine's workspace set, and
// reconciling panes against retained or freshly spawned PTYs (§4.F
// "Switching semantics").
//
// Each session keeps its own suspended {paneId -> ptyId} map, recorded
// the moment it stops being active and consumed the moment it becomes
// active again, which is what lets an A->B->A round trip hand A's PTYs
// straight back without ever destroying them.
type Coordinator struct {
	mu sync.Mutex

	store    *Store
	registry *ptyregistry.Registry
	ids      idCounter

	activeId  string
	live      map[string]string            // paneId -> ptyId for the currently active session
	suspended map[string]map[string]string // sessionId -> {paneId -> ptyId} for inactive sessions
	switching bool
}

// idCounter is the subset of idgen.Counter the coordinator needs; kept as
// an interface so tests can substitute a deterministic one.
type idCounter interface {
	AdvancePast(n uint64)
}

// NewCoordinator constructs a Coordinator bound to store and registry.
func NewCoordinator(store *Store, registry *ptyregistry.Registry, ids idCounter) *Coordinator {
	return &Coordinator{
		store:     store,
		registry:  registry,
		ids:       ids,
		live:      map[string]string{},
		suspended: map[string]map[string]string{},
	}
}

// IsSwitching reports whether a switch is mid-flight, used to suppress
// the "no panes" empty state while panes are being reconciled.
func (c *Coordinator) IsSwitching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switching
}

// ActiveId returns the currently active session id, or "" before any
// switch has happened.
func (c *Coordinator) ActiveId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeId
}

// LivePanes returns a snapshot of the active session's current
// paneId->ptyId mapping, for consumers (e.g. internal/aggregate) that
// need the freshest pane topology rather than the last-saved one.
func (c *Coordinator) LivePanes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.live))
	for k, v := range c.live {
		out[k] = v
	}
	return out
}

// SwitchTo performs the three-step switch described in §4.F: suspend the
// outgoing session's live PTYs under its own id, load the incoming
// session's record, and reconcile each of its panes against that
// session's own previously-suspended map (reattach), its record's
// already-set ptyId (first activation with pre-provisioned PTYs), or a
// freshly spawned PTY using the stored restore cwd.
func (c *Coordinator) SwitchTo(toId string, spawn SpawnFunc) (*SessionRecord, error) {
	c.mu.Lock()
	c.switching = true
	if c.activeId != "" {
		c.suspended[c.activeId] = c.live
	}
	c.live = map[string]string{}
	outgoingForTarget := c.suspended[toId]
	delete(c.suspended, toId)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.switching = false
		c.mu.Unlock()
	}()

	rec, err := c.store.Load(toId)
	if err != nil {
		return nil, err
	}

	c.advancePastLoadedIds(rec)

	reconciled := map[string]string{} // paneId -> ptyId for the newly active session
	retained := map[string]bool{}     // paneIds from outgoingForTarget whose PTY got reused

	reconcilePane := func(p *PaneRecord) {
		if ptyId, ok := outgoingForTarget[p.Id]; ok {
			p.PtyId = ptyId
			reconciled[p.Id] = ptyId
			retained[p.Id] = true
			return
		}
		if p.PtyId != "" {
			reconciled[p.Id] = p.PtyId
			return
		}
		if spawn != nil {
			newId, err := spawn(p.Cwd)
			if err == nil {
				p.PtyId = newId
				reconciled[p.Id] = newId
			}
		}
	}

	for _, ws := range rec.Workspaces {
		if ws.MainPane != nil {
			reconcilePane(ws.MainPane)
		}
		for i := range ws.StackPanes {
			reconcilePane(&ws.StackPanes[i])
		}
	}

	// Any PTY this session had suspended whose pane no longer exists in
	// the freshly loaded record is orphaned and gets destroyed.
	for paneId, ptyId := range outgoingForTarget {
		if !retained[paneId] {
			_ = c.registry.Destroy(ptyId)
		}
	}

	if err := c.store.Save(rec); err != nil {
		return nil, err
	}
	if err := c.store.SwitchTo(toId); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.activeId = toId
	c.live = reconciled
	c.mu.Unlock()

	return rec, nil
}

// advancePastLoadedIds bumps c.ids past the highest numeric suffix among
// the loaded record's pane ids, so a subsequently created pane in the
// live layout engine can never collide with one just restored from disk
// (§4.E "Layout IDs").
func (c *Coordinator) advancePastLoadedIds(rec *SessionRecord) {
	if c.ids == nil {
		return
	}
	var maxN uint64
	note := func(id string) {
		idx := strings.LastIndex(id, "-")
		if idx < 0 {
			return
		}
		n, err := strconv.ParseUint(id[idx+1:], 10, 64)
		if err == nil && n > maxN {
			maxN = n
		}
	}
	for _, ws := range rec.Workspaces {
		if ws.MainPane != nil {
			note(ws.MainPane.Id)
		}
		for _, p := range ws.StackPanes {
			note(p.Id)
		}
	}
	if maxN > 0 {
		c.ids.AdvancePast(maxN)
	}
}

// DeleteResult reports what happened to the coordinator's active-session
// tracking after a Delete, so the caller knows whether (and where) to
// switch.
type DeleteResult struct {
	// WasActive reports whether the deleted session was the active one.
	WasActive bool
	// NextId is the session to switch to when WasActive is true, chosen
	// by lastSwitchedAt order among the sessions that remain. Empty when
	// WasActive is true but no session remains, in which case the caller
	// must create a fresh one (§4.F "Deletion").
	NextId string
}

// Delete removes a session entirely (§4.F "Deletion"). If it is the
// active session, its live PTYs are suspended in the sense that matters
// here: since the session record is about to disappear forever they can
// never be reattached, so they're destroyed outright rather than parked
// in the suspended map. Any PTYs already suspended under this session id
// from an earlier switch-away are destroyed too. The file and index
// entry are then removed, and if the deleted session was active, the
// result names the next session to activate by lastSwitchedAt order, or
// reports none remain so the caller can create a fresh one.
func (c *Coordinator) Delete(id string) (DeleteResult, error) {
	c.mu.Lock()
	wasActive := id != "" && id == c.activeId
	if wasActive {
		for _, ptyId := range c.live {
			_ = c.registry.Destroy(ptyId)
		}
		c.live = map[string]string{}
		c.activeId = ""
	}
	if suspended, ok := c.suspended[id]; ok {
		for _, ptyId := range suspended {
			_ = c.registry.Destroy(ptyId)
		}
		delete(c.suspended, id)
	}
	c.mu.Unlock()

	if err := c.store.Delete(id); err != nil {
		return DeleteResult{}, err
	}
	if !wasActive {
		return DeleteResult{}, nil
	}

	entries, err := c.store.List()
	if err != nil {
		return DeleteResult{}, err
	}
	if len(entries) == 0 {
		return DeleteResult{WasActive: true}, nil
	}
	// List() is already sorted most-recently-switched first.
	return DeleteResult{WasActive: true, NextId: entries[0].Id}, nil
}

// RecordActivePane tracks a live pane->ptyId mapping for the active
// session so a future SwitchTo away from it knows what to suspend. Call
// this whenever a pane's PTY is created or changes identity (new pane,
// move, swap_main).
func (c *Coordinator) RecordActivePane(paneId, ptyId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live[paneId] = ptyId
}

// ForgetActivePane removes a pane from the active-session tracking map
// (pane closed).
func (c *Coordinator) ForgetActivePane(paneId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.live, paneId)
}
