package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbay/internal/audit"
	"simbay/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBooking(bay int, startClock, endClock string) *models.Booking {
	d := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	parse := func(clock string) time.Time {
		parsed, _ := time.Parse("15:04", clock)
		return d.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
	}
	return &models.Booking{
		ClubID:    "downtown",
		OwnerID:   42,
		OwnerName: "Alice",
		Bay:       bay,
		Date:      d,
		StartTime: parse(startClock),
		EndTime:   parse(endClock),
		Mode:      models.ModeSolo,
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(1, "09:00", "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NotZero(t, b.ID)
	assert.EqualValues(t, 1, b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.OwnerName)
	assert.Equal(t, "2025-06-10", got.DateKey())
	assert.Equal(t, models.ModeSolo, got.Mode)
	assert.Empty(t, got.Participants)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBooking(ctx, testBooking(1, "09:00", "10:00")))

	err := db.CreateBooking(ctx, testBooking(1, "09:30", "10:30"))
	var taken *SlotTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, "Alice", taken.Existing.OwnerName)

	// Other bays and touching intervals stay bookable.
	require.NoError(t, db.CreateBooking(ctx, testBooking(2, "09:00", "10:00")))
	require.NoError(t, db.CreateBooking(ctx, testBooking(1, "10:00", "11:00")))
}

func TestRescheduleBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(1, "09:00", "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	// Overlapping the booking's own old slot is allowed, and a mode
	// switch rides along with the slot change.
	moved := *b
	moved.StartTime = b.StartTime.Add(30 * time.Minute)
	moved.EndTime = b.EndTime.Add(30 * time.Minute)
	moved.Mode = models.ModeSocial
	require.NoError(t, db.RescheduleBooking(ctx, &moved))
	assert.EqualValues(t, 2, moved.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(moved.StartTime))
	assert.Equal(t, models.ModeSocial, got.Mode)
}

func TestRescheduleVersionMismatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(1, "09:00", "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	stale := *b
	stale.Version = 99
	stale.StartTime = b.StartTime.Add(time.Hour)
	stale.EndTime = b.EndTime.Add(time.Hour)
	err := db.RescheduleBooking(ctx, &stale)
	assert.True(t, errors.Is(err, ErrConcurrentModification))
}

func TestRescheduleMissingBooking(t *testing.T) {
	db := newTestDB(t)

	b := testBooking(1, "09:00", "10:00")
	b.ID = 12345
	b.Version = 1
	err := db.RescheduleBooking(context.Background(), b)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateParticipants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(1, "09:00", "10:00")
	b.Mode = models.ModeSocial
	require.NoError(t, db.CreateBooking(ctx, b))

	require.NoError(t, db.UpdateParticipants(ctx, b.ID, b.Version, []int64{77}))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{77}, got.Participants)
	assert.EqualValues(t, 2, got.Version)

	// Stale version loses.
	err = db.UpdateParticipants(ctx, b.ID, 1, []int64{77, 99})
	assert.True(t, errors.Is(err, ErrConcurrentModification))
}

func TestDeleteBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(1, "09:00", "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NoError(t, db.DeleteBooking(ctx, b.ID))

	_, err := db.GetBooking(ctx, b.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(db.DeleteBooking(ctx, b.ID), ErrNotFound))
}

func TestListPartition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBooking(ctx, testBooking(1, "09:00", "10:00")))
	require.NoError(t, db.CreateBooking(ctx, testBooking(1, "11:00", "12:00")))
	require.NoError(t, db.CreateBooking(ctx, testBooking(2, "09:00", "10:00")))

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	partition, err := db.ListPartition(ctx, "downtown", 1, date)
	require.NoError(t, err)
	require.Len(t, partition, 2)
	assert.True(t, partition[0].StartTime.Before(partition[1].StartTime))

	empty, err := db.ListPartition(ctx, "downtown", 3, date)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAuditLogRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &audit.Entry{
		Action:    "booking.created",
		BookingID: 1,
		MemberID:  42,
		ClubID:    "downtown",
		Detail:    "bay 1, 2025-06-10 09:00-10:00",
	}
	require.NoError(t, db.RecordAudit(ctx, entry))
	require.NotZero(t, entry.ID)

	entries, err := db.ListAudit(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "booking.created", entries[0].Action)
	assert.Equal(t, "downtown", entries[0].ClubID)
}

func TestConcurrentCreatesSamePartition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const racers = 8
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			results <- db.CreateBooking(ctx, testBooking(1, "09:00", "10:00"))
		}()
	}

	var wins, losses int
	for i := 0; i < racers; i++ {
		err := <-results
		if err == nil {
			wins++
			continue
		}
		var taken *SlotTakenError
		require.ErrorAs(t, err, &taken)
		losses++
	}

	assert.Equal(t, 1, wins, "exactly one racer may take the slot")
	assert.Equal(t, racers-1, losses)
}
