package remoteshim

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeHost struct {
	mu        sync.Mutex
	input     [][]byte
	lastRows  int
	lastCols  int
	resizeCnt int
}

func (h *fakeHost) HandleInput(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := append([]byte(nil), data...)
	h.input = append(h.input, cp)
}

func (h *fakeHost) HandleResize(rows, cols int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRows, h.lastCols = rows, cols
	h.resizeCnt++
}

func (h *fakeHost) inputCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.input)
}

func TestDialHandshakeSucceedsAndReportsInitialSize(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "s.sock")
	host := &fakeHost{}

	srv, err := NewServer(socketPath, "my-session", host)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Stop()

	client, err := Dial(socketPath, 24, 80)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if client.SessionName != "my-session" {
		t.Fatalf("expected session name my-session, got %s", client.SessionName)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		host.mu.Lock()
		rows := host.lastRows
		host.mu.Unlock()
		if rows == 24 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	host.mu.Lock()
	defer host.mu.Unlock()
	if host.lastRows != 24 || host.lastCols != 80 {
		t.Fatalf("expected host to learn initial size 24x80, got %dx%d", host.lastRows, host.lastCols)
	}
}

func TestNewServerRefusesSecondLockHolder(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "s.sock")
	host := &fakeHost{}

	srv, err := NewServer(socketPath, "sess", host)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Stop()

	if _, err := NewServer(socketPath, "sess", host); err != ErrSessionLocked {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
}

func TestClientInputForwardsToHost(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "s.sock")
	host := &fakeHost{}

	srv, err := NewServer(socketPath, "sess", host)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Stop()

	client, err := Dial(socketPath, 24, 80)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := client.SendInput([]byte("ls\n")); err != nil {
		t.Fatalf("SendInput: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && host.inputCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if host.inputCount() != 1 {
		t.Fatalf("expected host to receive 1 input frame, got %d", host.inputCount())
	}
}

func TestBroadcastReachesAttachedClient(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "s.sock")
	host := &fakeHost{}

	srv, err := NewServer(socketPath, "sess", host)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Stop()

	client, err := Dial(socketPath, 24, 80)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !srv.HasClient() {
		time.Sleep(10 * time.Millisecond)
	}

	srv.Broadcast([]byte("hello from host"))

	frame, err := client.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Type != FrameData || string(frame.Payload) != "hello from host" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestSecondClientKicksFirst(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "s.sock")
	host := &fakeHost{}

	srv, err := NewServer(socketPath, "sess", host)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	defer srv.Stop()

	first, err := Dial(socketPath, 24, 80)
	if err != nil {
		t.Fatalf("Dial first: %v", err)
	}
	defer first.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !srv.HasClient() {
		time.Sleep(10 * time.Millisecond)
	}

	second, err := Dial(socketPath, 24, 80)
	if err != nil {
		t.Fatalf("Dial second: %v", err)
	}
	defer second.Close()

	frame, err := first.ReadFrame()
	if err != nil {
		t.Fatalf("expected first client to receive a close frame, got error: %v", err)
	}
	if frame.Type != FrameClose {
		t.Fatalf("expected FrameClose, got type %d", frame.Type)
	}
}
