package main

import (
	"slices"
	"sync"
)

// StateStore holds the session's view state. Only the Controller mutates it;
// the presentation layer reads snapshots or subscribes to them. Requests are
// served concurrently, so every access goes through the lock.
type StateStore struct {
	mu          sync.RWMutex
	state       viewState
	subscribers map[int]chan viewState
	nextSubID   int
}

func NewStateStore() *StateStore {
	return &StateStore{
		state:       viewState{History: []QueryResult{}},
		subscribers: make(map[int]chan viewState),
	}
}

// Snapshot returns a deep copy safe to read without the lock.
func (s *StateStore) Snapshot() viewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Subscribe returns a channel that always holds the latest snapshot, starting
// with the current one. Slow readers skip intermediate states. The returned
// func unsubscribes and closes the channel.
func (s *StateStore) Subscribe() (<-chan viewState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan viewState, 1)
	ch <- s.copyLocked()
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *StateStore) copyLocked() viewState {
	cp := s.state
	if s.state.Location != nil {
		loc := *s.state.Location
		cp.Location = &loc
	}
	cp.History = make([]QueryResult, len(s.state.History))
	for i, r := range s.state.History {
		r.Sources = slices.Clone(r.Sources)
		cp.History[i] = r
	}
	return cp
}

// publishLocked hands the latest snapshot to every subscriber without
// blocking: a pending unread snapshot is replaced.
func (s *StateStore) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.copyLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *StateStore) setLocation(origin Coordinate, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Location = &origin
	s.state.LocationLabel = label
	s.state.LocationError = ""
	s.publishLocked()
}

func (s *StateStore) setLocationLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LocationLabel = label
	s.publishLocked()
}

func (s *StateStore) setLocationError(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LocationError = text
	s.publishLocked()
}

// location returns the current fix, if any.
func (s *StateStore) location() (Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Location == nil {
		return Coordinate{}, false
	}
	return *s.state.Location, true
}

// beginLoading claims the single query slot. It reports false, changing
// nothing, when a query is already in flight.
func (s *StateStore) beginLoading(message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loading.Active {
		return false
	}
	s.state.Loading = LoadingStatus{Active: true, Message: message}
	s.publishLocked()
	return true
}

func (s *StateStore) endLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = LoadingStatus{}
	s.publishLocked()
}

// prependResult inserts r at the front so the history stays newest-first.
func (s *StateStore) prependResult(r QueryResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.History = slices.Insert(s.state.History, 0, r)
	s.publishLocked()
}
