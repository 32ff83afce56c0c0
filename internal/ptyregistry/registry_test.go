package ptyregistry

import (
	"testing"
	"time"
)

func TestCreateWriteResizeDestroy(t *testing.T) {
	r := NewRegistry()
	defer r.DestroyAll()

	id, err := r.Create(CreateOptions{
		Cols: 80, Rows: 24,
		Shell: []string{"/bin/sh", "-c", "cat"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ids := r.List()
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected List to contain %q, got %v", id, ids)
	}

	if err := r.Write(id, []byte("echo hi\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := r.Resize(id, 100, 30); err != nil {
		t.Fatalf("Resize: %v", err)
	}

	if err := r.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if _, ok := r.Emulator(id); ok {
		t.Fatalf("expected Emulator to be gone after Destroy")
	}
}

func TestDestroyUnknownIdReturnsErrNotFound(t *testing.T) {
	r := NewRegistry()
	if err := r.Destroy("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOnExitFiresOnProcessExit(t *testing.T) {
	r := NewRegistry()
	defer r.DestroyAll()

	id, err := r.Create(CreateOptions{
		Cols: 80, Rows: 24,
		Shell: []string{"/bin/sh", "-c", "exit 0"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := make(chan ExitStatus, 1)
	if err := r.OnExit(id, func(s ExitStatus) { done <- s }); err != nil {
		t.Fatalf("OnExit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for on_exit callback")
	}
}

func TestLifecycleSubscription(t *testing.T) {
	r := NewRegistry()
	defer r.DestroyAll()

	events := make(chan LifecycleEvent, 4)
	cancel := r.SubscribeLifecycle(func(e LifecycleEvent) { events <- e })
	defer cancel()

	id, err := r.Create(CreateOptions{Cols: 80, Rows: 24, Shell: []string{"/bin/sh", "-c", "cat"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case e := <-events:
		if e.Type != "created" || e.Id != id {
			t.Fatalf("got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for created event")
	}

	if err := r.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	select {
	case e := <-events:
		if e.Type != "destroyed" || e.Id != id {
			t.Fatalf("got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for destroyed event")
	}
}

func TestGetCwdAndForegroundProcessUnknownForMissingSession(t *testing.T) {
	r := NewRegistry()
	if got := r.GetCwd("missing"); got != "unknown" {
		t.Fatalf("got %q", got)
	}
	if got := r.GetForegroundProcess("missing"); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
