package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"edustream/internal/events"
)

// InMemoryStore keeps the event log in process memory with the same
// semantics as the PostgreSQL store. It favors clarity over performance and
// backs unit tests for everything above the storage layer.
type InMemoryStore struct {
	mu        sync.RWMutex
	byAgg     map[string][]events.Event
	snapshots map[string]Snapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byAgg:     make(map[string][]events.Event),
		snapshots: make(map[string]Snapshot),
	}
}

func (s *InMemoryStore) SaveEvent(_ context.Context, event events.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byAgg[event.AggregateID] {
		if existing.Version == event.Version {
			return fmt.Errorf("save event %s v%d: %w", event.AggregateID, event.Version, events.ErrVersionConflict)
		}
	}
	list := append(s.byAgg[event.AggregateID], event)
	sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })
	s.byAgg[event.AggregateID] = list
	return nil
}

func (s *InMemoryStore) GetEvents(_ context.Context, aggregateID string, fromVersion int64) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.Event
	for _, e := range s.byAgg[aggregateID] {
		if e.Version >= fromVersion {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *InMemoryStore) GetEventsByType(_ context.Context, typ events.Type, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.Event
	for _, list := range s.byAgg {
		for _, e := range list {
			if e.Type == typ {
				result = append(result, e)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *InMemoryStore) GetAllEvents(_ context.Context, offset, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.Event
	for _, list := range s.byAgg {
		result = append(result, list...)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *InMemoryStore) GetSnapshot(_ context.Context, aggregateID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[aggregateID]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &snap, nil
}

func (s *InMemoryStore) SaveSnapshot(_ context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

var _ Store = (*InMemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
