// Package persistence implements disk-backed session storage and the
// switch-between-sessions reconciliation of spec.md §4.F.
//
// The JSON marshal/read shape (json.MarshalIndent + os.WriteFile,
// os.IsNotExist handling on load) is grounded on
// elleryfamilia-thicc/internal/nuggets/store.go's SaveNuggets/LoadNuggets.
// The write-new-rename-over-old atomicity and the index/per-session file
// split are original to this repo: no example file in the retrieval pack
// persists anything with a separate index plus atomic rename, so this is
// built in the teacher's plain-JSON idiom, generalized to the stronger
// durability guarantee spec.md §4.F asks for.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/openmux/openmux/internal/layout"
)

// PaneRecord is one persisted pane: identity, geometry inputs, and the
// restore cwd used to respawn its shell after a restart.
type PaneRecord struct {
	Id    string `json:"id"`
	PtyId string `json:"ptyId,omitempty"`
	Title string `json:"title,omitempty"`
	Cwd   string `json:"cwd,omitempty"`
}

// WorkspaceRecord is one persisted workspace (§3 "Workspace").
type WorkspaceRecord struct {
	Id               int               `json:"id"`
	MainPane         *PaneRecord       `json:"mainPane,omitempty"`
	StackPanes       []PaneRecord      `json:"stackPanes"`
	FocusedPaneId    string            `json:"focusedPaneId,omitempty"`
	ActiveStackIndex int               `json:"activeStackIndex"`
	LayoutMode       layout.Mode       `json:"layoutMode"`
	Zoomed           bool              `json:"zoomed"`
	CwdMap           map[string]string `json:"cwdMap,omitempty"`
}

// SessionRecord is the full per-session payload (§3 "Session").
type SessionRecord struct {
	Id              string                   `json:"id"`
	Name            string                   `json:"name"`
	AutoNamed       bool                     `json:"autoNamed"`
	CreatedAt       time.Time                `json:"createdAt"`
	LastSwitchedAt  time.Time                `json:"lastSwitchedAt"`
	Workspaces      map[int]*WorkspaceRecord `json:"workspaces"`
	ActiveWorkspace int                      `json:"activeWorkspaceId"`
}

// IndexEntry is one row of the session index.
type IndexEntry struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	AutoNamed      bool      `json:"autoNamed"`
	CreatedAt      time.Time `json:"createdAt"`
	LastSwitchedAt time.Time `json:"lastSwitchedAt"`
}

type indexFile struct {
	Sessions        []IndexEntry `json:"sessions"`
	ActiveSessionId string       `json:"activeSessionId,omitempty"`
}

// Summary is the result of get_summary.
type Summary struct {
	WorkspaceCount int
	PaneCount      int
}

// ErrCorrupt is returned by Load when a session file fails to parse. The
// session list is left unchanged.
type ErrCorrupt struct {
	Id    string
	Cause error
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("persistence: session %q is corrupt: %v", e.Id, e.Cause)
}
func (e *ErrCorrupt) Unwrap() error { return e.Cause }

// Store is the disk-backed session table rooted at <configDir>/sessions.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore returns a Store rooted at <configDir>/sessions, where
// configDir is openmux's own config directory (config.Dir()), creating
// the directory if necessary.
func NewStore(configDir string) (*Store, error) {
	dir := filepath.Join(configDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) indexPath() string      { return filepath.Join(s.dir, "index.json") }
func (s *Store) sessionPath(id string) string { return filepath.Join(s.dir, id+".json") }

func (s *Store) readIndex() (indexFile, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return indexFile{}, nil
		}
		return indexFile{}, err
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return indexFile{}, &ErrCorrupt{Id: "index", Cause: err}
	}
	return idx, nil
}

func (s *Store) writeIndex(idx indexFile) error {
	return atomicWriteJSON(s.indexPath(), idx)
}

// atomicWriteJSON marshals v and writes it via write-new, rename-over-old
// (§4.F "Atomicity").
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// List returns every known session's index entry, most recently switched
// first.
func (s *Store) List() ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := append([]IndexEntry(nil), idx.Sessions...)
	sort.Slice(out, func(i, j int) bool { return out[i].LastSwitchedAt.After(out[j].LastSwitchedAt) })
	return out, nil
}

// Create adds a new empty session with the given name (or an
// auto-generated one if name is "") and returns its record.
func (s *Store) Create(id, name string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	autoNamed := name == ""
	if autoNamed {
		name = "session-" + id
	}
	now := currentTime()

	rec := &SessionRecord{
		Id:              id,
		Name:            name,
		AutoNamed:       autoNamed,
		CreatedAt:       now,
		LastSwitchedAt:  now,
		Workspaces:      map[int]*WorkspaceRecord{},
		ActiveWorkspace: 1,
	}

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	idx.Sessions = append(idx.Sessions, IndexEntry{
		Id: id, Name: name, AutoNamed: autoNamed, CreatedAt: now, LastSwitchedAt: now,
	})
	if err := s.writeIndex(idx); err != nil {
		return nil, err
	}

	return rec, nil
}

// Rename updates a session's display name in the index.
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	found := false
	for i := range idx.Sessions {
		if idx.Sessions[i].Id == id {
			idx.Sessions[i].Name = name
			idx.Sessions[i].AutoNamed = false
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("persistence: unknown session %q", id)
	}
	return s.writeIndex(idx)
}

// Delete removes a session's file and its index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	out := idx.Sessions[:0]
	for _, e := range idx.Sessions {
		if e.Id != id {
			out = append(out, e)
		}
	}
	idx.Sessions = out
	if idx.ActiveSessionId == id {
		idx.ActiveSessionId = ""
	}
	if err := s.writeIndex(idx); err != nil {
		return err
	}

	_ = os.Remove(s.sessionPath(id))
	return nil
}

// Load reads a session's full payload.
func (s *Store) Load(id string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		return nil, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ErrCorrupt{Id: id, Cause: err}
	}
	return &rec, nil
}

// Save persists a session's full payload. A session with zero panes
// across all its workspaces is not written, so a transiently empty
// in-memory layout during load never wipes the on-disk copy.
func (s *Store) Save(rec *SessionRecord) error {
	if countPanes(rec) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWriteJSON(s.sessionPath(rec.Id), rec)
}

func countPanes(rec *SessionRecord) int {
	n := 0
	for _, ws := range rec.Workspaces {
		if ws.MainPane != nil {
			n++
		}
		n += len(ws.StackPanes)
	}
	return n
}

// GetActiveId returns the index's recorded active session id.
func (s *Store) GetActiveId() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return "", err
	}
	return idx.ActiveSessionId, nil
}

// SetActiveId updates the index's active session id.
func (s *Store) SetActiveId(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.ActiveSessionId = id
	return s.writeIndex(idx)
}

// SwitchTo sets the active session id and bumps its lastSwitchedAt.
func (s *Store) SwitchTo(id string) error {
	s.mu.Lock()
	idx, err := s.readIndex()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	now := currentTime()
	for i := range idx.Sessions {
		if idx.Sessions[i].Id == id {
			idx.Sessions[i].LastSwitchedAt = now
		}
	}
	idx.ActiveSessionId = id
	if err := s.writeIndex(idx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	rec, err := s.Load(id)
	if err != nil {
		return err
	}
	rec.LastSwitchedAt = now
	return s.Save(rec)
}

// GetSummary returns workspace/pane counts for a session without loading
// it into the caller's layout engine.
func (s *Store) GetSummary(id string) (Summary, error) {
	rec, err := s.Load(id)
	if err != nil {
		return Summary{}, err
	}
	return Summary{WorkspaceCount: len(rec.Workspaces), PaneCount: countPanes(rec)}, nil
}

// currentTime is the one clock read in this package, isolated so tests
// can't be made flaky by it and so it's easy to find if a deterministic
// clock injection point is ever needed.
func currentTime() time.Time { return time.Now() }
