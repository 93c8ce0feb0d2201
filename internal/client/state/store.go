// Package state holds the client-side state containers: auth, contacts and alerts.
// Each container is a Store with a closed set of actions and a pure reducer. Operations
// call the API and dispatch the matching action; subscribers see every new state.
package state

import "sync"

// Reducer computes the next state. It must not modify the state it receives.
type Reducer[S any, A any] func(state S, action A) S

type subscription[S any] struct {
	id int
	fn func(S)
}

// Store notifies subscribers in the order they subscribed.
type Store[S any, A any] struct {
	mu          sync.Mutex
	state       S
	reduce      Reducer[S, A]
	subscribers []subscription[S]
	nextID      int
}

func NewStore[S any, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{
		state:  initial,
		reduce: reduce,
	}
}

func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Dispatch applies the action and then calls every subscriber with the resulting
// state. Subscribers run on the dispatching goroutine, outside the store lock.
func (s *Store[S, A]) Dispatch(action A) {
	s.mu.Lock()
	s.state = s.reduce(s.state, action)
	next := s.state
	subscribers := make([]subscription[S], len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber.fn(next)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S, A]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers = append(s.subscribers, subscription[S]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, subscriber := range s.subscribers {
			if subscriber.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}
