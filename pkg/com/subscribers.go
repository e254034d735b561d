package com

import (
	"sync"
	"sync/atomic"
)

// Subscribers is a copy-on-write list of non-owning observer references.
// Reads (ForEach) never lock, so it is safe to walk from hot loops such as
// the capture delivery or the render tick.
// Subscribers must unsubscribe before their own teardown.
type Subscribers[T comparable] struct {
	mu   sync.Mutex
	list atomic.Pointer[[]T]
}

// Subscribe adds s if it is not there yet.
func (s *Subscribers[T]) Subscribe(x T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	for _, v := range cur {
		if v == x {
			return
		}
	}
	next := make([]T, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, x)
	s.list.Store(&next)
}

// Unsubscribe removes x, returns false if it was not subscribed.
func (s *Subscribers[T]) Unsubscribe(x T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	for i, v := range cur {
		if v == x {
			next := make([]T, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			s.list.Store(&next)
			return true
		}
	}
	return false
}

func (s *Subscribers[T]) ForEach(fn func(T)) {
	for _, v := range s.load() {
		fn(v)
	}
}

func (s *Subscribers[T]) Len() int { return len(s.load()) }

func (s *Subscribers[T]) load() []T {
	if l := s.list.Load(); l != nil {
		return *l
	}
	return nil
}
