package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbay/internal/models"
)

func setupCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return New(client, 30*time.Second, &logger), mr
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	_, ok := c.GetPartition(ctx, "downtown", 1, date)
	assert.False(t, ok, "empty cache must miss")

	bookings := []models.Booking{{
		ID: 1, ClubID: "downtown", Bay: 1, OwnerName: "Alice",
		Date: date, StartTime: date.Add(9 * time.Hour), EndTime: date.Add(10 * time.Hour),
		Mode: models.ModeSolo,
	}}
	c.SetPartition(ctx, "downtown", 1, date, bookings)

	got, ok := c.GetPartition(ctx, "downtown", 1, date)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].OwnerName)

	// A different partition is unaffected.
	_, ok = c.GetPartition(ctx, "downtown", 2, date)
	assert.False(t, ok)
}

func TestSnapshotCacheEmptyList(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	// An empty partition is a valid cached value, distinct from a miss.
	c.SetPartition(ctx, "downtown", 1, date, nil)
	got, ok := c.GetPartition(ctx, "downtown", 1, date)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	c.SetPartition(ctx, "downtown", 1, date, []models.Booking{{ID: 1}})
	c.Invalidate(ctx, "downtown", 1, date)

	_, ok := c.GetPartition(ctx, "downtown", 1, date)
	assert.False(t, ok)
}

func TestSnapshotCacheExpiry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	c.SetPartition(ctx, "downtown", 1, date, []models.Booking{{ID: 1}})
	mr.FastForward(time.Minute)

	_, ok := c.GetPartition(ctx, "downtown", 1, date)
	assert.False(t, ok, "snapshot must expire with its TTL")
}
