package models

import "time"

// Mode describes who may occupy a bay alongside the owner.
type Mode string

const (
	// ModeSolo keeps the bay exclusive to the owner.
	ModeSolo Mode = "solo"
	// ModeSocial lets other members join the session.
	ModeSocial Mode = "social"
)

// Valid reports whether the mode is one of the known values.
func (m Mode) Valid() bool {
	return m == ModeSolo || m == ModeSocial
}

// Booking represents a confirmed reservation of a simulator bay.
type Booking struct {
	ID           int64     `json:"id"`
	ClubID       string    `json:"club_id"`
	OwnerID      int64     `json:"owner_id"`
	OwnerName    string    `json:"owner_name"`
	Bay          int       `json:"bay"`
	Date         time.Time `json:"date"`       // calendar day, club-local
	StartTime    time.Time `json:"start_time"` // inclusive
	EndTime      time.Time `json:"end_time"`   // exclusive
	Mode         Mode      `json:"mode"`
	Participants []int64   `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// Candidate is a requested slot that has not been persisted yet.
type Candidate struct {
	ClubID string
	Bay    int
	Date   time.Time
	Start  time.Time
	End    time.Time
	Mode   Mode
}

// Duration returns the requested session length.
func (c Candidate) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// Overlaps reports whether the booking intersects the half-open
// interval [start, end). Touching bookings (one ends exactly when the
// other starts) do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}

// OverlapsWith reports whether two bookings occupy the same bay of the
// same club at an intersecting time.
func (b *Booking) OverlapsWith(other *Booking) bool {
	if b.ClubID != other.ClubID || b.Bay != other.Bay {
		return false
	}
	return b.Overlaps(other.StartTime, other.EndTime)
}

// HasParticipant reports whether the member already joined the session.
func (b *Booking) HasParticipant(memberID int64) bool {
	for _, id := range b.Participants {
		if id == memberID {
			return true
		}
	}
	return false
}

// DateKey returns the calendar day in YYYY-MM-DD form, the format used
// for partition keys and wire payloads.
func (b *Booking) DateKey() string {
	return b.Date.Format("2006-01-02")
}
