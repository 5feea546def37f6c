package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"edustream/internal/events"
)

const uniqueViolation = "23505"

// PostgresStore persists events in PostgreSQL with an optimistic-concurrency
// write path and an optional Redis read cache. The cache is advisory: cache
// failures are logged and swallowed, never surfaced to callers.
type PostgresStore struct {
	db     *sql.DB
	cache  *Cache
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed event store. cache may be nil
// when Redis is not configured.
func NewPostgres(db *sql.DB, cache *Cache, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, cache: cache, logger: logger}
}

// SaveEvent writes the event inside a transaction. A row already holding
// (aggregate_id, version) aborts the save with events.ErrVersionConflict; the
// unique constraint backstops the pre-check against concurrent writers.
func (s *PostgresStore) SaveEvent(ctx context.Context, event events.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM domain_events WHERE aggregate_id = $1 AND version = $2)`,
		event.AggregateID, event.Version,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check event version: %w", err)
	}
	if exists {
		return fmt.Errorf("save event %s v%d: %w", event.AggregateID, event.Version, events.ErrVersionConflict)
	}

	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO domain_events (
			id, aggregate_id, aggregate_type, event_type,
			event_data, metadata, version, user_id, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		string(event.Type),
		[]byte(event.Data),
		metadata,
		event.Version,
		nullString(event.UserID),
		event.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("save event %s v%d: %w", event.AggregateID, event.Version, events.ErrVersionConflict)
		}
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Append(ctx, event); err != nil {
			s.logger.Warn("event cache append failed", "aggregate_id", event.AggregateID, "error", err)
			// Drop the window rather than leave it contiguous but missing
			// this event; the next read goes durable and repopulates.
			if err := s.cache.Invalidate(ctx, event.AggregateID); err != nil {
				s.logger.Warn("event cache invalidate failed", "aggregate_id", event.AggregateID, "error", err)
			}
		}
	}
	return nil
}

// GetEvents serves from the cache when it can prove coverage of the
// requested range, otherwise reads durably and repopulates the cache.
func (s *PostgresStore) GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]events.Event, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, aggregateID, fromVersion); ok {
			return cached, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type,
		       event_data, metadata, version, user_id, timestamp
		FROM domain_events
		WHERE aggregate_id = $1 AND version >= $2
		ORDER BY version ASC
	`, aggregateID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	list, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && fromVersion <= 1 && len(list) > 0 {
		if err := s.cache.Replace(ctx, aggregateID, list); err != nil {
			s.logger.Warn("event cache repopulate failed", "aggregate_id", aggregateID, "error", err)
		}
	}
	return list, nil
}

// GetEventsByType returns the most recent events of one type.
func (s *PostgresStore) GetEventsByType(ctx context.Context, typ events.Type, limit int) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type,
		       event_data, metadata, version, user_id, timestamp
		FROM domain_events
		WHERE event_type = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, string(typ), limit)
	if err != nil {
		return nil, fmt.Errorf("query events by type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetAllEvents pages over the whole log, newest first.
func (s *PostgresStore) GetAllEvents(ctx context.Context, offset, limit int) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type,
		       event_data, metadata, version, user_id, timestamp
		FROM domain_events
		ORDER BY timestamp DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetSnapshot reads the aggregate projection from the cache.
func (s *PostgresStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	if s.cache == nil {
		return nil, events.ErrNotFound
	}
	return s.cache.GetSnapshot(ctx, aggregateID)
}

// SaveSnapshot stores the aggregate projection in the cache with a TTL.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.SaveSnapshot(ctx, snapshot)
}

func scanEvents(rows *sql.Rows) ([]events.Event, error) {
	var list []events.Event
	for rows.Next() {
		var (
			e        events.Event
			typ      string
			data     []byte
			metadata []byte
			userID   sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &typ,
			&data, &metadata, &e.Version, &userID, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = events.Type(typ)
		e.Data = json.RawMessage(data)
		if userID.Valid {
			e.UserID = userID.String
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return list, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
