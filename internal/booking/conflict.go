package booking

import (
	"simbay/internal/models"
)

// FindConflict returns the first existing booking that would collide
// with the candidate slot, or nil when the slot is free. Bookings in
// other bays or clubs never conflict; neither does the booking with
// excludeID, so a reschedule does not collide with itself. Pass
// excludeID 0 when creating.
func FindConflict(cand models.Candidate, existing []models.Booking, excludeID int64) *models.Booking {
	for i := range existing {
		b := &existing[i]
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if b.ClubID != cand.ClubID || b.Bay != cand.Bay {
			continue
		}
		if b.DateKey() != cand.Date.Format("2006-01-02") {
			continue
		}
		if b.Overlaps(cand.Start, cand.End) {
			return b
		}
	}
	return nil
}
