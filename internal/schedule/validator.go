// Package schedule implements the pure booking rules: slot validation
// against a club's operating policy and availability grid generation.
// Nothing here touches storage or the clock beyond the instant passed in.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"simbay/internal/config"
	"simbay/internal/models"
)

// Result collects every rule the candidate slot breaks. An empty
// result means the slot is acceptable.
type Result struct {
	Reasons []string
}

// OK reports whether the candidate passed all checks.
func (r *Result) OK() bool {
	return len(r.Reasons) == 0
}

func (r *Result) add(format string, args ...any) {
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...))
}

// Error renders all reasons as a single message.
func (r *Result) Error() string {
	return strings.Join(r.Reasons, "; ")
}

// Validate checks a candidate slot against the club's policy. All
// rules are evaluated so the caller gets the full list of violations,
// not just the first one. Times are interpreted in the club's local
// day; now anchors the past and advance-window checks.
func Validate(cand models.Candidate, club config.ClubSettings, now time.Time) Result {
	var res Result

	if cand.Bay < 1 || cand.Bay > club.NumberOfBays {
		res.add("bay %d does not exist; club has bays 1..%d", cand.Bay, club.NumberOfBays)
	}

	if !cand.Mode.Valid() {
		res.add("mode must be 'solo' or 'social'")
	}

	if !cand.End.After(cand.Start) {
		res.add("end time must be after start time")
		// Duration and window checks are meaningless for an inverted
		// interval.
		return res
	}

	dur := cand.Duration()
	if dur < club.MinDuration() {
		res.add("session of %s is shorter than the minimum of %s", dur, club.MinDuration())
	}
	if dur > club.MaxDuration() {
		res.add("session of %s is longer than the maximum of %s", dur, club.MaxDuration())
	}

	opens := club.OpensAt(cand.Date)
	closes := club.ClosesAt(cand.Date)
	if cand.Start.Before(opens) {
		res.add("session starts before opening time %s", club.OpeningTime)
	}
	if cand.End.After(closes) {
		res.add("session ends after closing time %s", club.ClosingTime)
	}

	if !club.OperatesOn(cand.Date.Weekday()) {
		res.add("club is closed on %s", cand.Date.Weekday())
	}

	today := truncateToDay(now)
	day := truncateToDay(cand.Date)
	if day.Before(today) {
		res.add("cannot book a past date")
	}
	lastDay := today.AddDate(0, 0, club.MaxAdvanceBookingDays)
	if day.After(lastDay) {
		res.add("date is more than %d days ahead", club.MaxAdvanceBookingDays)
	}
	if day.Equal(today) && cand.End.Before(now) {
		res.add("session is already over")
	}

	return res
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
