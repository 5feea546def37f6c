package store

import (
	"context"
	"encoding/json"
	"time"

	"edustream/internal/events"
)

// Store is the durable, version-ordered event log. Implementations must
// reject duplicate (aggregateId, version) pairs with events.ErrVersionConflict
// and must never mutate stored events.
type Store interface {
	// SaveEvent persists one event. A conflict on (aggregateId, version) is
	// recoverable by the caller: reload state, recompute the version, retry.
	SaveEvent(ctx context.Context, event events.Event) error

	// GetEvents returns all events for the aggregate with version >= fromVersion,
	// ascending by version. fromVersion 0 means the full history.
	GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]events.Event, error)

	// GetEventsByType returns the most recent events of one type, descending
	// by timestamp. Diagnostic use only.
	GetEventsByType(ctx context.Context, typ events.Type, limit int) ([]events.Event, error)

	// GetAllEvents pages over the whole log, descending by timestamp.
	// Diagnostic use only.
	GetAllEvents(ctx context.Context, offset, limit int) ([]events.Event, error)

	// GetSnapshot returns the cached aggregate projection, or
	// events.ErrNotFound when none exists.
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)

	// SaveSnapshot stores a projection. Snapshot.Version must be the version
	// of the last event folded into the state.
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// Snapshot is a materialized aggregate state at a known version. Readers
// apply events with Version > Snapshot.Version on top of State.
type Snapshot struct {
	AggregateID string          `json:"aggregateId"`
	Version     int64           `json:"version"`
	State       json.RawMessage `json:"state"`
	TakenAt     time.Time       `json:"takenAt"`
}
