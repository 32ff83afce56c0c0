package ptyregistry

import "sync"

// Cancel detaches a subscription registered with SubscribeLifecycle or
// SubscribeAllTitles. Calling it more than once is safe.
type Cancel func()

// subList is a generic slab of callback subscribers, mirroring the
// unexported one in internal/emulator; this package keeps its own copy.
type subList[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func newSubList[T any]() *subList[T] {
	return &subList[T]{subs: make(map[int]func(T))}
}

func (s *subList[T]) add(cb func(T)) Cancel {
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
