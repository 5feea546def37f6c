package audit

import "time"

// Entry is one materialized audit record.
type Entry struct {
	ID            string
	EventType     string
	AggregateType string
	AggregateID   string
	Version       int64
	UserID        string
	RecordedAt    time.Time
}
