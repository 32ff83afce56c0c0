// Package aggregate implements the cross-session PTY listing of spec.md
// §4.H: every PTY across every on-disk session plus the active in-memory
// one, filterable, navigable, and backed by a live interactive preview.
//
// Grounded on elleryfamilia-thicc/internal/sourcecontrol/panel.go's
// ticker-plus-stop-channel polling idiom (StartPolling/StopPolling) and
// dashboard's busy/idle refresh-cadence split, reapplied here to PTYs
// instead of git repositories: an "active" tier polls PTYs whose
// foreground process looks busy roughly every 2s, an "inactive" tier
// polls the rest roughly every 10s, and lifecycle/title subscriptions
// from ptyregistry.Registry trigger an immediate refresh between polls
// instead of waiting for the next tick.
package aggregate

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openmux/openmux/internal/gitinfo"
	"github.com/openmux/openmux/internal/persistence"
	"github.com/openmux/openmux/internal/ptyregistry"
)

// PollTier is which of the two refresh cadences an entry currently falls
// under.
type PollTier int

const (
	TierActive PollTier = iota
	TierInactive
)

const (
	activeInterval   = 2 * time.Second
	inactiveInterval = 10 * time.Second
)

// idleProcessNames are foreground process names treated as "nothing is
// happening" for the purposes of poll-tier assignment: an idle shell
// prompt. Anything else (a build, an editor, a pager, a long-running
// command) is considered active.
var idleProcessNames = map[string]bool{
	"bash": true, "zsh": true, "sh": true, "fish": true, "ksh": true,
	"dash": true, "tcsh": true, "csh": true,
}

// Entry is one row of the aggregate view (§4.H).
type Entry struct {
	PtyId             string
	Cwd               string
	GitBranch         string
	HasGitBranch      bool
	GitDiffStats      *gitinfo.DiffStats
	ForegroundProcess string
	WorkspaceId       int
	HasWorkspaceId    bool
	PaneId            string

	LastPolled time.Time
	Tier       PollTier
}

func (e *Entry) tier() PollTier {
	if idleProcessNames[e.ForegroundProcess] {
		return TierInactive
	}
	return TierActive
}

// paneRef is the disk/live topology row joined against the registry to
// produce an Entry: which session and pane a ptyId belongs to.
type paneRef struct {
	sessionId    string
	workspaceId  int
	hasWorkspace bool
	paneId       string
	ptyId        string
	cwd          string
}

// View is the aggregate-view model: the entry table, the active filter
// and selection, and the preview/polling state machine.
type View struct {
	mu sync.Mutex

	registry    *ptyregistry.Registry
	store       *persistence.Store
	coordinator *persistence.Coordinator

	entries  []Entry
	filter   string
	selected int

	previewing    bool
	previewPtyId  string
	savedCols     int
	savedRows     int

	activeTicker   *time.Ticker
	inactiveTicker *time.Ticker
	pollStop       chan struct{}
	polling        bool

	unsubLifecycle ptyregistry.Cancel
	unsubTitle     ptyregistry.Cancel

	OnRefresh func()
}

// NewView constructs a View over the given registry, on-disk session
// store, and the live coordinator (used to resolve the active session's
// current pane->ptyId mapping, which may be ahead of its last save).
func NewView(registry *ptyregistry.Registry, store *persistence.Store, coordinator *persistence.Coordinator) *View {
	return &View{
		registry:    registry,
		store:       store,
		coordinator: coordinator,
	}
}

// StartPolling begins the two refresh tickers and wires lifecycle/title
// subscriptions for between-poll refreshes.
func (v *View) StartPolling() {
	v.mu.Lock()
	if v.polling {
		v.mu.Unlock()
		return
	}
	v.polling = true
	v.activeTicker = time.NewTicker(activeInterval)
	v.inactiveTicker = time.NewTicker(inactiveInterval)
	v.pollStop = make(chan struct{})
	stop := v.pollStop
	v.mu.Unlock()

	v.unsubLifecycle = v.registry.SubscribeLifecycle(func(ptyregistry.LifecycleEvent) {
		v.Refresh()
		v.notifyRefresh()
	})
	v.unsubTitle = v.registry.SubscribeAllTitles(func(ptyregistry.TitleEvent) {
		v.Refresh()
		v.notifyRefresh()
	})

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-v.activeTicker.C:
				v.refreshTier(TierActive)
				v.notifyRefresh()
			case <-v.inactiveTicker.C:
				v.refreshTier(TierInactive)
				v.notifyRefresh()
			}
		}
	}()
}

// StopPolling tears down the tickers and subscriptions.
func (v *View) StopPolling() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.polling {
		return
	}
	v.polling = false
	v.activeTicker.Stop()
	v.inactiveTicker.Stop()
	close(v.pollStop)
	v.activeTicker = nil
	v.inactiveTicker = nil
	v.pollStop = nil
	if v.unsubLifecycle != nil {
		v.unsubLifecycle()
	}
	if v.unsubTitle != nil {
		v.unsubTitle()
	}
}

func (v *View) notifyRefresh() {
	v.mu.Lock()
	cb := v.OnRefresh
	v.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Refresh rebuilds the full entry table from scratch: on-disk sessions
// plus the active in-memory one, joined against the registry's live PTY
// list. Entries whose ptyId is no longer registered are dropped.
func (v *View) Refresh() {
	refs := v.collectPaneRefs()

	live := map[string]bool{}
	for _, id := range v.registry.List() {
		live[id] = true
	}

	entries := make([]Entry, 0, len(refs))
	now := time.Now()
	for _, ref := range refs {
		if !live[ref.ptyId] {
			continue
		}
		e := Entry{
			PtyId:             ref.ptyId,
			Cwd:               v.resolveCwd(ref),
			ForegroundProcess: v.registry.GetForegroundProcess(ref.ptyId),
			WorkspaceId:       ref.workspaceId,
			HasWorkspaceId:    ref.hasWorkspace,
			PaneId:            ref.paneId,
			LastPolled:        now,
		}
		if status, ok := v.registry.GetGitInfo(e.Cwd); ok {
			e.GitBranch = status.Branch
			e.HasGitBranch = status.HasBranch
		}
		e.Tier = e.tier()
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].PtyId < entries[j].PtyId })

	v.mu.Lock()
	v.entries = entries
	if v.selected >= len(entries) {
		v.selected = len(entries) - 1
	}
	if v.selected < 0 {
		v.selected = 0
	}
	v.mu.Unlock()
}

// refreshTier re-resolves cwd/foreground-process/branch for only the
// entries currently in tier, leaving the rest of the table untouched —
// this is what lets the active/inactive cadences differ in cost per tick
// without rebuilding the whole table every time.
func (v *View) refreshTier(tier PollTier) {
	v.mu.Lock()
	entries := v.entries
	v.mu.Unlock()

	now := time.Now()
	for i := range entries {
		if entries[i].Tier != tier {
			continue
		}
		cwd := v.registry.GetCwd(entries[i].PtyId)
		if cwd == "unknown" {
			cwd = entries[i].Cwd
		}
		entries[i].Cwd = cwd
		entries[i].ForegroundProcess = v.registry.GetForegroundProcess(entries[i].PtyId)
		if status, ok := v.registry.GetGitInfo(cwd); ok {
			entries[i].GitBranch = status.Branch
			entries[i].HasGitBranch = status.HasBranch
		}
		entries[i].Tier = entries[i].tier()
		entries[i].LastPolled = now
	}

	v.mu.Lock()
	v.entries = entries
	v.mu.Unlock()
}

func (v *View) resolveCwd(ref paneRef) string {
	if cwd := v.registry.GetCwd(ref.ptyId); cwd != "unknown" {
		return cwd
	}
	return ref.cwd
}

// collectPaneRefs joins every on-disk session's persisted pane topology
// with the active session's live pane->ptyId mapping, which may be ahead
// of what was last saved (a pane respawned since the last autosave, for
// instance).
func (v *View) collectPaneRefs() []paneRef {
	var refs []paneRef

	active := v.coordinator.ActiveId()

	entries, err := v.store.List()
	if err == nil {
		for _, idx := range entries {
			rec, err := v.store.Load(idx.Id)
			if err != nil {
				continue
			}
			for wsId, ws := range rec.Workspaces {
				if ws.MainPane != nil {
					refs = append(refs, v.paneRefFrom(rec.Id, wsId, ws.MainPane))
				}
				for i := range ws.StackPanes {
					refs = append(refs, v.paneRefFrom(rec.Id, wsId, &ws.StackPanes[i]))
				}
			}
		}
	}

	if active != "" {
		for paneId, ptyId := range v.coordinator.LivePanes() {
			overridden := false
			for i := range refs {
				if refs[i].sessionId == active && refs[i].paneId == paneId {
					refs[i].ptyId = ptyId
					overridden = true
					break
				}
			}
			if !overridden {
				refs = append(refs, paneRef{sessionId: active, paneId: paneId, ptyId: ptyId})
			}
		}
	}

	return refs
}

func (v *View) paneRefFrom(sessionId string, workspaceId int, p *persistence.PaneRecord) paneRef {
	return paneRef{
		sessionId:    sessionId,
		workspaceId:  workspaceId,
		hasWorkspace: true,
		paneId:       p.Id,
		ptyId:        p.PtyId,
		cwd:          p.Cwd,
	}
}

// SetFilter sets the space-separated substring filter, matched against
// cwd, branch, and foreground process name (all must match, each
// case-insensitively, against at least one of the three fields).
func (v *View) SetFilter(filter string) {
	v.mu.Lock()
	v.filter = filter
	v.selected = 0
	v.mu.Unlock()
}

// Visible returns the entries currently passing the active filter.
func (v *View) Visible() []Entry {
	v.mu.Lock()
	entries := v.entries
	filter := v.filter
	v.mu.Unlock()

	terms := strings.Fields(strings.ToLower(filter))
	if len(terms) == 0 {
		return entries
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		haystack := strings.ToLower(e.Cwd + " " + e.GitBranch + " " + e.ForegroundProcess)
		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, e)
		}
	}
	return out
}

// MoveSelection moves the selection by delta rows within the currently
// visible (filtered) list, clamped to bounds.
func (v *View) MoveSelection(delta int) {
	visible := v.Visible()
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(visible) == 0 {
		v.selected = 0
		return
	}
	v.selected += delta
	if v.selected < 0 {
		v.selected = 0
	}
	if v.selected >= len(visible) {
		v.selected = len(visible) - 1
	}
}

// Selected returns the currently selected entry, if any.
func (v *View) Selected() (Entry, bool) {
	visible := v.Visible()
	v.mu.Lock()
	idx := v.selected
	v.mu.Unlock()
	if idx < 0 || idx >= len(visible) {
		return Entry{}, false
	}
	return visible[idx], true
}

// FetchSelectedDiffStats resolves git diff stats for only the currently
// selected entry, on demand, so the cost is never paid for every row in
// the table (§4.H "fetched on demand").
func (v *View) FetchSelectedDiffStats() *gitinfo.DiffStats {
	e, ok := v.Selected()
	if !ok {
		return nil
	}
	status, ok := v.registry.GetGitInfo(e.Cwd)
	if !ok || status.Diff == nil {
		return nil
	}
	return status.Diff
}

// StartPreview resizes the selected PTY to (previewCols, previewRows) for
// a live interactive preview. priorCols/priorRows are the pane's real
// dimensions as tracked by the layout engine — the registry has no notion
// of logical pane size, only PTY size — and are remembered so
// ClosePreview can restore them.
func (v *View) StartPreview(priorCols, priorRows, previewCols, previewRows int) error {
	e, ok := v.Selected()
	if !ok {
		return nil
	}

	v.mu.Lock()
	v.previewing = true
	v.previewPtyId = e.PtyId
	v.savedCols, v.savedRows = priorCols, priorRows
	v.mu.Unlock()

	return v.registry.Resize(e.PtyId, previewCols, previewRows)
}

// ClosePreview restores the previewed PTY to the dimensions saved by
// StartPreview and clears preview state.
func (v *View) ClosePreview() error {
	v.mu.Lock()
	ptyId := v.previewPtyId
	cols, rows := v.savedCols, v.savedRows
	v.previewing = false
	v.previewPtyId = ""
	v.mu.Unlock()

	if ptyId == "" {
		return nil
	}
	return v.registry.Resize(ptyId, cols, rows)
}

// Previewing reports whether a preview is currently active and, if so,
// which ptyId it is previewing.
func (v *View) Previewing() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.previewPtyId, v.previewing
}
