// Package gitinfo resolves per-repository branch and dirty-state
// information for the PTY registry's get_git_info operation (§4.C).
// Branch is read directly off .git/HEAD; dirty/staged/untracked state has
// no libgit2-equivalent binding in the dependency set available here, so
// it is obtained the way the sourcecontrol package does it — shelling out
// to the git CLI — and cached behind a TTL plus a .git file-watcher so the
// subprocess only runs when something has actually changed.
package gitinfo

import (
	"bufio"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DiffStats summarizes unstaged + staged line deltas from `git diff --shortstat`.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// Status is the answer to get_git_info(cwd).
type Status struct {
	Branch    string
	HasBranch bool
	Dirty     bool
	Diff      *DiffStats
}

const ttl = 2 * time.Second

type cacheEntry struct {
	mu      sync.Mutex
	status  Status
	fetched time.Time
	stale   bool
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// Provider resolves and caches git status per repository root.
type Provider struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewProvider constructs an empty Provider.
func NewProvider() *Provider {
	return &Provider{entries: make(map[string]*cacheEntry)}
}

// Status returns branch/dirty/diff information for the repository
// containing cwd, or ok=false if cwd is not inside a git working tree.
func (p *Provider) Status(cwd string) (Status, bool) {
	root, ok := findRepoRoot(cwd)
	if !ok {
		return Status{}, false
	}

	entry := p.entryFor(root)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.stale && time.Since(entry.fetched) < ttl {
		return entry.status, true
	}

	entry.status = computeStatus(root)
	entry.fetched = time.Now()
	entry.stale = false
	return entry.status, true
}

// Close stops all per-repo watchers. Call on process shutdown.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.watcher != nil {
			close(e.stop)
			e.watcher.Close()
		}
	}
	p.entries = make(map[string]*cacheEntry)
}

func (p *Provider) entryFor(root string) *cacheEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[root]; ok {
		return e
	}

	e := &cacheEntry{stop: make(chan struct{})}
	p.entries[root] = e
	p.startWatcher(root, e)
	return e
}

// startWatcher marks the entry stale on any event under root/.git, so the
// next Status call re-runs git rather than serving a cached, possibly
// outdated, dirty flag.
func (p *Provider) startWatcher(root string, e *cacheEntry) {
	gitDir := filepath.Join(root, ".git")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("gitinfo: watcher unavailable for %s: %v", root, err)
		return
	}
	if err := w.Add(gitDir); err != nil {
		log.Printf("gitinfo: failed to watch %s: %v", gitDir, err)
		w.Close()
		return
	}

	e.watcher = w
	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				e.mu.Lock()
				e.stale = true
				e.mu.Unlock()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-e.stop:
				return
			}
		}
	}()
}

// findRepoRoot walks up from dir looking for a .git entry.
func findRepoRoot(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	cur := dir
	for {
		if info, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			_ = info
			return cur, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

func computeStatus(root string) Status {
	status := Status{}
	status.Branch, status.HasBranch = readHead(root)
	status.Dirty = isDirty(root)
	status.Diff = diffStats(root)
	return status
}

// readHead parses .git/HEAD directly: either "ref: refs/heads/X" or a raw
// 40-hex detached SHA.
func readHead(root string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(root, ".git", "HEAD"))
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(string(data))

	if rest, ok := strings.CutPrefix(line, "ref: "); ok {
		return strings.TrimPrefix(rest, "refs/heads/"), true
	}
	if len(line) >= 7 && isHex(line) {
		return line[:7], true
	}
	return "", false
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func isDirty(root string) bool {
	cmd := exec.Command("git", "status", "--porcelain", "-uall")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}

func diffStats(root string) *DiffStats {
	cmd := exec.Command("git", "diff", "--shortstat", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil || len(strings.TrimSpace(string(out))) == 0 {
		return nil
	}
	return parseShortstat(string(out))
}

// parseShortstat parses lines like:
// " 3 files changed, 42 insertions(+), 7 deletions(-)"
func parseShortstat(line string) *DiffStats {
	stats := &DiffStats{}
	scanner := bufio.NewScanner(strings.NewReader(line))
	scanner.Buffer(make([]byte, 0, 256), 256)
	for scanner.Scan() {
		for _, part := range strings.Split(scanner.Text(), ",") {
			part = strings.TrimSpace(part)
			fields := strings.Fields(part)
			if len(fields) < 2 {
				continue
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(fields[1], "file"):
				stats.FilesChanged = n
			case strings.HasPrefix(fields[1], "insertion"):
				stats.Insertions = n
			case strings.HasPrefix(fields[1], "deletion"):
				stats.Deletions = n
			}
		}
	}
	return stats
}
