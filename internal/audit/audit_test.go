package audit

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"simbay/internal/events"
	"simbay/internal/models"
)

type memStore struct {
	entries []Entry
}

func (m *memStore) RecordAudit(_ context.Context, e *Entry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, from, to time.Time) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &logger
}

func sampleBooking() models.Booking {
	d := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	return models.Booking{
		ID:        3,
		ClubID:    "downtown",
		OwnerID:   42,
		OwnerName: "Alice",
		Bay:       2,
		Date:      d,
		StartTime: d.Add(9 * time.Hour),
		EndTime:   d.Add(10 * time.Hour),
		Mode:      models.ModeSolo,
	}
}

func TestRecorderCapturesEvents(t *testing.T) {
	store := &memStore{}
	recorder := NewRecorder(store, testLogger())

	bus := events.NewEventBus()
	recorder.Attach(bus)

	err := bus.PublishJSON(events.TypeBookingCreated, BookingEvent{
		Booking: sampleBooking(),
		ActorID: 42,
	})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, events.TypeBookingCreated, entry.Action)
	assert.Equal(t, int64(3), entry.BookingID)
	assert.Equal(t, int64(42), entry.MemberID)
	assert.Equal(t, "downtown", entry.ClubID)
	assert.Contains(t, entry.Detail, "bay 2")
	assert.Contains(t, entry.Detail, "2025-06-10")
}

func TestRecorderIgnoresBadPayload(t *testing.T) {
	store := &memStore{}
	recorder := NewRecorder(store, testLogger())

	bus := events.NewEventBus()
	recorder.Attach(bus)

	bus.Publish(events.Event{Type: events.TypeBookingCancelled, Payload: []byte("not json")})
	assert.Empty(t, store.entries)
}

func TestExportProducesWorkbook(t *testing.T) {
	now := time.Now()
	store := &memStore{entries: []Entry{
		{ID: 1, Action: events.TypeBookingCreated, BookingID: 3, MemberID: 42, ClubID: "downtown", Detail: "bay 2", CreatedAt: now},
		{ID: 2, Action: events.TypeBookingCancelled, BookingID: 3, MemberID: 42, ClubID: "downtown", Detail: "bay 2", CreatedAt: now},
	}}
	recorder := NewRecorder(store, testLogger())

	var buf bytes.Buffer
	err := recorder.Export(context.Background(), now.Add(-time.Hour), now.Add(time.Hour), &buf)
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Audit")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 entries
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, events.TypeBookingCreated, rows[1][1])
}
