// Package ptyregistry owns the lifecycle of every spawned PTY session:
// spawn, write, resize, destroy, and the process-introspection and
// lifecycle/title fan-out spec.md §4.C requires of it. It is grounded on
// thicc's internal/terminal Panel (the PTY-plus-VT pairing and its
// readLoop), generalized from "one Panel owns its own VT10x instance" to
// "one session owns an emulator.Emulator", since the VT backend now lives
// behind the emulator package's interface instead of vt10x directly.
package ptyregistry

import (
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/openmux/openmux/internal/emulator"
	"github.com/openmux/openmux/internal/gitinfo"
	"github.com/openmux/openmux/internal/idgen"
)

// CreateOptions configures a new session.
type CreateOptions struct {
	Cols, Rows int
	Cwd        string
	Env        []string
	Shell      []string // argv; defaults to $SHELL when empty
}

// ExitStatus describes how a session's child process ended.
type ExitStatus struct {
	Code     int
	Signaled bool
}

// LifecycleEvent is delivered to subscribe_lifecycle callbacks.
type LifecycleEvent struct {
	Type string // "created" or "destroyed"
	Id   string
}

// TitleEvent is delivered to subscribe_all_titles callbacks.
type TitleEvent struct {
	Id    string
	Title string
}

// GitInfo mirrors gitinfo.Status for get_git_info's return shape.
type GitInfo struct {
	Branch    string
	HasBranch bool
	Dirty     bool
	Diff      *gitinfo.DiffStats
}

type session struct {
	mu sync.Mutex

	id   string
	pty  *os.File
	cmd  *exec.Cmd
	emu  emulator.Emulator
	cwd  string // spawn-time cwd; get_cwd resolves live via /proc
	env  []string
	argv []string

	destroyed bool
	onExit    []func(ExitStatus)
}

// Registry is the process-wide PTY session table. All methods are safe
// for concurrent use; each session's write path additionally serializes
// internally so callers need no external lock (§4.C concurrency note).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ids      *idgen.Counter

	git *gitinfo.Provider

	lifecycleSubs *subList[LifecycleEvent]
	titleSubs     *subList[TitleEvent]
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[string]*session),
		ids:           idgen.NewCounter("pty-"),
		git:           gitinfo.NewProvider(),
		lifecycleSubs: newSubList[LifecycleEvent](),
		titleSubs:     newSubList[TitleEvent](),
	}
}

const defaultScrollbackLimit = 1000

// Create spawns a shell (or the given argv) inside a new PTY and returns
// its id. Spawn failure leaves no partial session registered.
func (r *Registry) Create(opts CreateOptions) (string, error) {
	argv := opts.Shell
	if len(argv) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
		argv = []string{shell, "-i"}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string(nil), env...), "TERM=xterm-256color")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", wrapSpawn(err)
	}
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(opts.Rows), Cols: uint16(opts.Cols)})

	emu := emulator.New(opts.Cols, opts.Rows, defaultScrollbackLimit)

	id := r.ids.Next()
	s := &session{
		id:   id,
		pty:  ptmx,
		cmd:  cmd,
		emu:  emu,
		cwd:  opts.Cwd,
		env:  env,
		argv: argv,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	emu.SubscribeTitle(func(title string) {
		r.titleSubs.notify(TitleEvent{Id: id, Title: title})
	})

	go r.readLoop(s)

	r.lifecycleSubs.notify(LifecycleEvent{Type: "created", Id: id})

	return id, nil
}

// readLoop is the per-session PTY->emulator pump, grounded on Panel.readLoop:
// block on Read, feed what arrived to the emulator, and on EOF/error tear
// the session down and fire on_exit/lifecycle callbacks.
func (r *Registry) readLoop(s *session) {
	buf := make([]byte, 4096)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.emu.Write(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			r.finishSession(s)
			return
		}
	}
}

func (r *Registry) finishSession(s *session) {
	status := ExitStatus{}
	if s.cmd.ProcessState != nil {
		status.Code = s.cmd.ProcessState.ExitCode()
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	callbacks := append([]func(ExitStatus){}, s.onExit...)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(status)
	}

	r.lifecycleSubs.notify(LifecycleEvent{Type: "destroyed", Id: s.id})
}

func (r *Registry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Write sends bytes to the session's PTY master.
func (r *Registry) Write(id string, data []byte) error {
	s, ok := r.get(id)
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrNotFound
	}
	_, err := s.pty.Write(data)
	return err
}

// Resize changes a session's PTY and emulator dimensions.
func (r *Registry) Resize(id string, cols, rows int) error {
	s, ok := r.get(id)
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrNotFound
	}
	_ = pty.Setsize(s.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	s.emu.Resize(cols, rows)
	return nil
}

// Destroy kills the session's process and releases its emulator. After
// this call, scrollback is no longer retrievable for id.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	already := s.destroyed
	s.destroyed = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.pty.Close()
	s.emu.Close()

	if !already {
		r.lifecycleSubs.notify(LifecycleEvent{Type: "destroyed", Id: id})
	}
	return nil
}

// DestroyAll tears down every live session.
func (r *Registry) DestroyAll() {
	for _, id := range r.List() {
		_ = r.Destroy(id)
	}
}

// List returns the ids of all currently registered sessions.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// OnExit registers a callback fired once when id's process exits. If id is
// already destroyed, the callback fires immediately with a zero status.
func (r *Registry) OnExit(id string, cb func(ExitStatus)) error {
	s, ok := r.get(id)
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		cb(ExitStatus{})
		return nil
	}
	s.onExit = append(s.onExit, cb)
	return nil
}

// GetCwd resolves a session's live working directory via /proc (or the
// platform equivalent). Failures never propagate: "unknown" is returned.
func (r *Registry) GetCwd(id string) string {
	s, ok := r.get(id)
	if !ok {
		return "unknown"
	}
	s.mu.Lock()
	pid := 0
	if s.cmd.Process != nil {
		pid = s.cmd.Process.Pid
	}
	s.mu.Unlock()

	if pid == 0 {
		return "unknown"
	}
	if cwd, ok := processCwd(pid); ok {
		return cwd
	}
	return "unknown"
}

// GetForegroundProcess resolves the command name of the PTY's foreground
// process group leader. Failures never propagate: "unknown" is returned.
func (r *Registry) GetForegroundProcess(id string) string {
	s, ok := r.get(id)
	if !ok {
		return "unknown"
	}
	s.mu.Lock()
	fd := int(s.pty.Fd())
	destroyed := s.destroyed
	s.mu.Unlock()

	if destroyed {
		return "unknown"
	}
	if name, ok := foregroundProcessName(fd); ok && name != "" {
		return name
	}
	return "unknown"
}

// GetTitle returns the session's last-observed OSC title, or "" if none
// has been set.
func (r *Registry) GetTitle(id string) string {
	s, ok := r.get(id)
	if !ok {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emu.Title()
}

// GetGitInfo resolves branch/dirty/diff status for the repository
// containing cwd. The bool return is false when cwd is not inside a git
// working tree.
func (r *Registry) GetGitInfo(cwd string) (GitInfo, bool) {
	status, ok := r.git.Status(cwd)
	if !ok {
		return GitInfo{}, false
	}
	return GitInfo{Branch: status.Branch, HasBranch: status.HasBranch, Dirty: status.Dirty, Diff: status.Diff}, true
}

// SubscribeLifecycle registers cb for created/destroyed events across all
// sessions.
func (r *Registry) SubscribeLifecycle(cb func(LifecycleEvent)) Cancel {
	return r.lifecycleSubs.add(cb)
}

// SubscribeAllTitles registers cb for title changes across all sessions.
// Wiring per-session title events into this aggregate happens at Create
// time, not here, since the callback must know which session id changed.
func (r *Registry) SubscribeAllTitles(cb func(TitleEvent)) Cancel {
	return r.titleSubs.add(cb)
}

// Emulator exposes a session's emulator for callers (scrollback cache,
// layout/render) that need direct read access rather than going through
// the registry's narrower surface.
func (r *Registry) Emulator(id string) (emulator.Emulator, bool) {
	s, ok := r.get(id)
	if !ok {
		return nil, false
	}
	return s.emu, true
}

