package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"edustream/internal/events"
)

// Service is the boundary to the audit trail. Failures are logged by the
// caller and never rethrown; a broken audit sink must not stall the event
// pipeline.
type Service interface {
	Log(ctx context.Context, event events.Event) error
}

// PostgresTrail materializes critical events into the audit_events table.
// Inserts are idempotent on event id, so redelivery records each event once.
type PostgresTrail struct {
	db *sql.DB
}

func NewPostgresTrail(db *sql.DB) *PostgresTrail {
	return &PostgresTrail{db: db}
}

func (t *PostgresTrail) Log(ctx context.Context, event events.Event) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, event_type, aggregate_type, aggregate_id,
			version, user_id, payload, event_timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID,
		string(event.Type),
		event.AggregateType,
		event.AggregateID,
		event.Version,
		nullString(event.UserID),
		[]byte(event.Data),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the N most recently recorded audit entries; operator
// diagnostics only.
func (t *PostgresTrail) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, event_type, aggregate_type, aggregate_id, version, user_id, recorded_at
		FROM audit_events
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			userID sql.NullString
		)
		if err := rows.Scan(
			&entry.ID, &entry.EventType, &entry.AggregateType,
			&entry.AggregateID, &entry.Version, &userID, &entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if userID.Valid {
			entry.UserID = userID.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Recorder captures logged events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	logged []events.Event

	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Log(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.logged = append(r.logged, event)
	return nil
}

func (r *Recorder) Logged() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.logged))
	copy(out, r.logged)
	return out
}
