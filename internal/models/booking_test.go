package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func TestBookingOverlaps(t *testing.T) {
	booking := &Booking{
		ClubID:    "downtown",
		Bay:       2,
		StartTime: mustTime(t, "2025-06-10 10:00"),
		EndTime:   mustTime(t, "2025-06-10 11:00"),
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"identical interval", "2025-06-10 10:00", "2025-06-10 11:00", true},
		{"fully inside", "2025-06-10 10:15", "2025-06-10 10:45", true},
		{"fully covering", "2025-06-10 09:00", "2025-06-10 12:00", true},
		{"overlaps start", "2025-06-10 09:30", "2025-06-10 10:30", true},
		{"overlaps end", "2025-06-10 10:30", "2025-06-10 11:30", true},
		{"touches start", "2025-06-10 09:00", "2025-06-10 10:00", false},
		{"touches end", "2025-06-10 11:00", "2025-06-10 12:00", false},
		{"well before", "2025-06-10 08:00", "2025-06-10 09:00", false},
		{"well after", "2025-06-10 12:00", "2025-06-10 13:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := booking.Overlaps(mustTime(t, tt.start), mustTime(t, tt.end))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookingOverlapsWith(t *testing.T) {
	base := &Booking{
		ClubID:    "downtown",
		Bay:       1,
		StartTime: mustTime(t, "2025-06-10 10:00"),
		EndTime:   mustTime(t, "2025-06-10 11:00"),
	}

	sameSlotOtherBay := &Booking{
		ClubID:    "downtown",
		Bay:       2,
		StartTime: base.StartTime,
		EndTime:   base.EndTime,
	}
	assert.False(t, base.OverlapsWith(sameSlotOtherBay), "different bays never conflict")

	sameSlotOtherClub := &Booking{
		ClubID:    "uptown",
		Bay:       1,
		StartTime: base.StartTime,
		EndTime:   base.EndTime,
	}
	assert.False(t, base.OverlapsWith(sameSlotOtherClub), "different clubs never conflict")

	sameBay := &Booking{
		ClubID:    "downtown",
		Bay:       1,
		StartTime: mustTime(t, "2025-06-10 10:30"),
		EndTime:   mustTime(t, "2025-06-10 11:30"),
	}
	assert.True(t, base.OverlapsWith(sameBay))
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeSolo.Valid())
	assert.True(t, ModeSocial.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("group").Valid())
}

func TestHasParticipant(t *testing.T) {
	b := &Booking{Participants: []int64{42, 77}}
	assert.True(t, b.HasParticipant(42))
	assert.False(t, b.HasParticipant(100))

	empty := &Booking{}
	assert.False(t, empty.HasParticipant(42))
}
