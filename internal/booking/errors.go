package booking

import (
	"errors"
	"fmt"
	"strings"

	"simbay/internal/models"
)

var (
	// ErrNotFound means the referenced booking does not exist.
	ErrNotFound = errors.New("booking not found")
	// ErrForbidden means the requester is not the booking owner. The
	// message deliberately carries no detail about the booking itself.
	ErrForbidden = errors.New("operation not permitted")
	// ErrNotJoinable means the session is solo or the member already
	// joined it.
	ErrNotJoinable = errors.New("booking cannot be joined")
	// ErrBookingDisabled means the club has switched bookings off.
	ErrBookingDisabled = errors.New("booking is disabled for this club")
	// ErrUnknownClub means the club id is not configured.
	ErrUnknownClub = errors.New("unknown club")
)

// ValidationError carries every rule the requested slot broke.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid booking request: " + strings.Join(e.Reasons, "; ")
}

// ConflictError means the requested change lost to another booking or
// to a concurrent write. With is the colliding booking when the cause
// is a slot collision, nil when the cause is concurrent modification.
type ConflictError struct {
	With *models.Booking
}

func (e *ConflictError) Error() string {
	if e.With == nil {
		return "booking was modified concurrently; reload and retry"
	}
	return fmt.Sprintf("bay %d is taken by %s from %s to %s",
		e.With.Bay,
		e.With.OwnerName,
		e.With.StartTime.Format("15:04"),
		e.With.EndTime.Format("15:04"))
}
