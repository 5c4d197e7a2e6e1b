package store

import (
	"sync"

	"github.com/go-ap/errors"
	"github.com/google/uuid"

	"monthcal/internal/model"
)

// Store is an ordered in-memory collection of events.
//
// Events keep insertion order; reads filter by date. The zero value is not
// usable, construct with New.
type Store struct {
	mu     sync.RWMutex
	events []model.Event
}

// New returns an empty store.
func New() *Store {
	return &Store{events: make([]model.Event, 0)}
}

// Load replaces the entire collection. Events without an ID get a fresh one,
// and so does any event repeating an ID seen earlier in the same batch.
func (s *Store) Load(events []model.Event) {
	next := make([]model.Event, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, dup := seen[ev.ID]; ev.ID == "" || dup {
			ev.ID = uuid.NewString()
		}
		seen[ev.ID] = struct{}{}
		next = append(next, ev)
	}

	s.mu.Lock()
	s.events = next
	s.mu.Unlock()
}

// Reset empties the collection.
func (s *Store) Reset() {
	s.mu.Lock()
	s.events = make([]model.Event, 0)
	s.mu.Unlock()
}

// ByDate returns the events of one day in insertion order. The result is a
// copy and never nil.
func (s *Store) ByDate(key model.DateKey) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Date == key {
			out = append(out, ev)
		}
	}
	return out
}

// HasAny reports whether at least one event falls on key.
func (s *Store) HasAny(key model.DateKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ev := range s.events {
		if ev.Date == key {
			return true
		}
	}
	return false
}

// Add appends ev and returns it as stored. An empty or already used ID is
// replaced with a generated one.
func (s *Store) Add(ev model.Event) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" || s.indexOf(ev.ID) >= 0 {
		ev.ID = uuid.NewString()
	}
	s.events = append(s.events, ev)
	return ev
}

// Get looks an event up by ID.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.events[i], true
	}
	return model.Event{}, false
}

// Remove deletes the event with the given ID. Removing an unknown ID is a
// no-op and returns false.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return true
}

// RemoveEvent deletes the first event equal to ev on every field.
// A record that is not present is a no-op.
func (s *Store) RemoveEvent(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.events {
		if cur.Equals(ev) {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

// Replace overwrites the event with the given ID in place, keeping its list
// position and ID.
func (s *Store) Replace(id string, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, errors.NotFoundf("event %s not found", id)
	}
	ev.ID = id
	s.events[i] = ev
	return ev, nil
}

// All returns a copy of every event in insertion order.
func (s *Store) All() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, ev := range s.events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}
