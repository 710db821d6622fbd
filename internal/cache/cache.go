// Package cache holds the optimistic partition snapshots served before
// the authoritative store has the last word.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"simbay/internal/models"
)

// SnapshotCache stores per-partition booking lists in Redis. A stale
// snapshot is acceptable: writes are always re-checked against the
// authoritative store, the cache only serves fast reads.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

func partitionKey(clubID string, bay int, date time.Time) string {
	return fmt.Sprintf("simbay:partition:%s:%d:%s", clubID, bay, date.Format("2006-01-02"))
}

// GetPartition returns the cached booking list for one partition. The
// second result is false on miss or any Redis error.
func (c *SnapshotCache) GetPartition(ctx context.Context, clubID string, bay int, date time.Time) ([]models.Booking, bool) {
	data, err := c.client.Get(ctx, partitionKey(clubID, bay, date)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("snapshot read failed")
		}
		return nil, false
	}

	var bookings []models.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt snapshot payload")
		return nil, false
	}
	return bookings, true
}

// SetPartition caches the booking list for one partition. Errors are
// logged and swallowed.
func (c *SnapshotCache) SetPartition(ctx context.Context, clubID string, bay int, date time.Time, bookings []models.Booking) {
	if bookings == nil {
		bookings = []models.Booking{}
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		c.logger.Warn().Err(err).Msg("snapshot marshal failed")
		return
	}
	if err := c.client.Set(ctx, partitionKey(clubID, bay, date), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("snapshot write failed")
	}
}

// Invalidate drops the snapshot of one partition. Called after every
// authoritative write that touches it.
func (c *SnapshotCache) Invalidate(ctx context.Context, clubID string, bay int, date time.Time) {
	if err := c.client.Del(ctx, partitionKey(clubID, bay, date)).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("snapshot invalidate failed")
	}
}
