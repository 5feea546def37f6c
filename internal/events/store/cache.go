package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"edustream/internal/events"
	"edustream/internal/platform/redis"
)

const (
	recentKeyPrefix   = "events:recent:"
	snapshotKeyPrefix = "events:snapshot:"

	defaultMaxEvents = 100
	defaultEventTTL  = time.Hour
	defaultSnapTTL   = 15 * time.Minute
)

// Cache keeps the most recent N events per aggregate in a Redis sorted set
// scored by event timestamp, plus TTL'd aggregate snapshots. It is a read
// accelerator only; every method failure is safe to ignore.
type Cache struct {
	rdb       *redis.Client
	maxEvents int64
	eventTTL  time.Duration
	snapTTL   time.Duration
}

// NewCache wraps a Redis client with the event-cache policy.
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{
		rdb:       rdb,
		maxEvents: defaultMaxEvents,
		eventTTL:  defaultEventTTL,
		snapTTL:   defaultSnapTTL,
	}
}

// Append adds one freshly committed event to the aggregate's recent window
// and trims the window to its bound.
func (c *Cache) Append(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cached event: %w", err)
	}
	key := recentKeyPrefix + event.AggregateID

	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(event.Timestamp.UnixNano()),
		Member: string(body),
	})
	pipe.ZRemRangeByRank(ctx, key, 0, -(c.maxEvents + 1))
	pipe.Expire(ctx, key, c.eventTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache append: %w", err)
	}
	return nil
}

// Invalidate drops the aggregate's recent window. Called after a failed
// append: the window is then missing the newest durable event but still
// contiguous, so Get would keep serving the stale history until the TTL
// expires.
func (c *Cache) Invalidate(ctx context.Context, aggregateID string) error {
	if err := c.rdb.Del(ctx, recentKeyPrefix+aggregateID).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Get returns the cached events with version >= fromVersion, ascending by
// version. The second return value is false when the cached window cannot
// prove it covers the requested range: a gap in versions, an empty window,
// or a window whose oldest entry is newer than the range start.
func (c *Cache) Get(ctx context.Context, aggregateID string, fromVersion int64) ([]events.Event, bool) {
	members, err := c.rdb.ZRange(ctx, recentKeyPrefix+aggregateID, 0, -1).Result()
	if err != nil || len(members) == 0 {
		return nil, false
	}

	cached := make([]events.Event, 0, len(members))
	for _, m := range members {
		var e events.Event
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			return nil, false
		}
		cached = append(cached, e)
	}
	sort.Slice(cached, func(i, j int) bool { return cached[i].Version < cached[j].Version })

	for i := 1; i < len(cached); i++ {
		if cached[i].Version != cached[i-1].Version+1 {
			return nil, false
		}
	}

	start := fromVersion
	if start < 1 {
		start = 1
	}
	if cached[0].Version > start {
		return nil, false
	}

	result := make([]events.Event, 0, len(cached))
	for _, e := range cached {
		if e.Version >= fromVersion {
			result = append(result, e)
		}
	}
	return result, true
}

// Replace rebuilds the aggregate's window from a durable read, keeping only
// the newest entries up to the bound.
func (c *Cache) Replace(ctx context.Context, aggregateID string, list []events.Event) error {
	if int64(len(list)) > c.maxEvents {
		list = list[int64(len(list))-c.maxEvents:]
	}
	key := recentKeyPrefix + aggregateID

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	for _, e := range list {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal cached event: %w", err)
		}
		pipe.ZAdd(ctx, key, goredis.Z{
			Score:  float64(e.Timestamp.UnixNano()),
			Member: string(body),
		})
	}
	pipe.Expire(ctx, key, c.eventTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache replace: %w", err)
	}
	return nil
}

// GetSnapshot reads a cached aggregate projection.
func (c *Cache) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	body, err := c.rdb.Get(ctx, snapshotKeyPrefix+aggregateID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot stores an aggregate projection with a TTL.
func (c *Cache) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now().UTC()
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKeyPrefix+snapshot.AggregateID, body, c.snapTTL).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
