package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbay/internal/models"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func at(d time.Time, clock string) time.Time {
	parsed, _ := time.Parse("15:04", clock)
	return time.Date(d.Year(), d.Month(), d.Day(), parsed.Hour(), parsed.Minute(), 0, 0, d.Location())
}

func TestFindConflict(t *testing.T) {
	d := day(t, "2025-06-10")
	existing := []models.Booking{
		{
			ID: 1, ClubID: "downtown", Bay: 1, OwnerName: "Alice",
			Date: d, StartTime: at(d, "09:00"), EndTime: at(d, "10:00"),
		},
		{
			ID: 2, ClubID: "downtown", Bay: 2, OwnerName: "Bob",
			Date: d, StartTime: at(d, "09:00"), EndTime: at(d, "10:00"),
		},
	}

	cand := models.Candidate{
		ClubID: "downtown", Bay: 1, Date: d,
		Start: at(d, "09:30"), End: at(d, "10:30"),
	}

	hit := FindConflict(cand, existing, 0)
	require.NotNil(t, hit)
	assert.Equal(t, "Alice", hit.OwnerName)
	assert.Equal(t, int64(1), hit.ID)

	// Same interval in the free bay is fine.
	cand.Bay = 3
	assert.Nil(t, FindConflict(cand, existing, 0))

	// Back-to-back sessions do not collide.
	cand.Bay = 1
	cand.Start = at(d, "10:00")
	cand.End = at(d, "11:00")
	assert.Nil(t, FindConflict(cand, existing, 0))
}

func TestFindConflictExcludesSelf(t *testing.T) {
	d := day(t, "2025-06-10")
	existing := []models.Booking{{
		ID: 7, ClubID: "downtown", Bay: 1, OwnerName: "Alice",
		Date: d, StartTime: at(d, "09:00"), EndTime: at(d, "10:00"),
	}}

	// Shifting booking 7 by half an hour overlaps its own old slot;
	// with the exclusion that must not count as a conflict.
	cand := models.Candidate{
		ClubID: "downtown", Bay: 1, Date: d,
		Start: at(d, "09:30"), End: at(d, "10:30"),
	}
	assert.NotNil(t, FindConflict(cand, existing, 0))
	assert.Nil(t, FindConflict(cand, existing, 7))
}

func TestFindConflictIgnoresOtherPartitions(t *testing.T) {
	d := day(t, "2025-06-10")
	existing := []models.Booking{
		{
			ID: 1, ClubID: "uptown", Bay: 1,
			Date: d, StartTime: at(d, "09:00"), EndTime: at(d, "10:00"),
		},
		{
			ID: 2, ClubID: "downtown", Bay: 1,
			Date: day(t, "2025-06-11"), StartTime: at(day(t, "2025-06-11"), "09:00"), EndTime: at(day(t, "2025-06-11"), "10:00"),
		},
	}

	cand := models.Candidate{
		ClubID: "downtown", Bay: 1, Date: d,
		Start: at(d, "09:00"), End: at(d, "10:00"),
	}
	assert.Nil(t, FindConflict(cand, existing, 0))
}
