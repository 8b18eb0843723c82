package memory

import (
	"context"
	"sync"

	"github.com/cardea-gate/cardea/internal/cardea/store"
)

// EventStore is an in-memory append-only log of validation decisions.
// It is intended for use in tests and dev environments.
type EventStore struct {
	mu     sync.Mutex
	events []store.EventRecord
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) RecordEvent(_ context.Context, rec store.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns a copy of all recorded events. Test-only helper.
func (s *EventStore) Events() []store.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.EventRecord, len(s.events))
	copy(out, s.events)
	return out
}
