package schedule

import (
	"time"

	"simbay/internal/config"
	"simbay/internal/models"
)

// Slot is one cell of the availability grid for a single bay.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// BuildSlots renders the availability grid for one bay on one day:
// fixed steps from opening to closing, each marked unavailable when an
// existing booking intersects it or when the step already ended. Slots
// that would spill past closing time are not emitted.
func BuildSlots(date time.Time, club config.ClubSettings, bookings []models.Booking, now time.Time) []Slot {
	step := club.SlotDuration()
	opens := club.OpensAt(date)
	closes := club.ClosesAt(date)

	var slots []Slot
	for start := opens; !start.Add(step).After(closes); start = start.Add(step) {
		end := start.Add(step)
		available := end.After(now)
		if available {
			for i := range bookings {
				if bookings[i].Overlaps(start, end) {
					available = false
					break
				}
			}
		}
		slots = append(slots, Slot{Start: start, End: end, Available: available})
	}
	return slots
}
