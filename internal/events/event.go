package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the immutable unit of communication between services. Once stored
// it is never mutated or deleted; corrections are expressed as new events.
type Event struct {
	ID            string            `json:"id"`
	AggregateID   string            `json:"aggregateId"`
	AggregateType string            `json:"aggregateType"`
	Type          Type              `json:"eventType"`
	Version       int64             `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	UserID        string            `json:"userId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Data          json.RawMessage   `json:"data"`
}

// New builds an event with a fresh ID and producer-side timestamp. Version is
// the caller's responsibility: contiguous from 1 per aggregate, enforced by
// the store at save time.
func New(aggregateType, aggregateID string, typ Type, version int64, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, &ValidationError{Field: "data", Reason: err.Error()}
	}
	return Event{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Type:          typ,
		Version:       version,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}, nil
}

// Validate checks the structural invariants required before an event may be
// persisted or dispatched. Shape problems are permanent: callers drop the
// event instead of retrying.
func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return &ValidationError{Field: "id", Reason: "missing"}
	case e.AggregateID == "":
		return &ValidationError{Field: "aggregateId", Reason: "missing"}
	case e.AggregateType == "":
		return &ValidationError{Field: "aggregateType", Reason: "missing"}
	case e.Type == "":
		return &ValidationError{Field: "eventType", Reason: "missing"}
	case e.Version < 1:
		return &ValidationError{Field: "version", Reason: "must be >= 1"}
	case e.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	return nil
}

// DecodeData unmarshals the tagged payload into the shape fixed by the event
// type.
func DecodeData[T any](e Event) (T, error) {
	var payload T
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return payload, &ValidationError{Field: "data", Reason: err.Error()}
	}
	return payload, nil
}
