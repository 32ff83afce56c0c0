package scrollback

import (
	"sync"

	"github.com/openmux/openmux/internal/emulator"
)

// subList is a generic slab of callback subscribers, mirroring the one in
// internal/emulator; kept as a private copy so this package doesn't need
// emulator internals beyond its public Cancel type.
type subList[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func newSubList[T any]() *subList[T] {
	return &subList[T]{subs: make(map[int]func(T))}
}

func (s *subList[T]) add(cb func(T)) emulator.Cancel {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *subList[T]) notify(v T) {
	s.mu.Lock()
	cbs := make([]func(T), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
}
