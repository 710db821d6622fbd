// Package booking implements the reservation lifecycle for simulator
// bays: conflict detection, owner-only mutations and the solo/social
// join rules.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"simbay/internal/audit"
	"simbay/internal/config"
	"simbay/internal/database"
	"simbay/internal/events"
	"simbay/internal/metrics"
	"simbay/internal/models"
	"simbay/internal/schedule"
)

// Store is the authoritative booking storage. It decides the winner of
// racing writes; every error it returns about a lost race is either a
// *database.SlotTakenError or database.ErrConcurrentModification.
type Store interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, clubID string, from, to time.Time) ([]models.Booking, error)
	ListPartition(ctx context.Context, clubID string, bay int, date time.Time) ([]models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	RescheduleBooking(ctx context.Context, b *models.Booking) error
	UpdateParticipants(ctx context.Context, id, version int64, participants []int64) error
	DeleteBooking(ctx context.Context, id int64) error
}

// Snapshot caches partition views for fast optimistic reads. A stale
// snapshot is harmless: the store re-checks every write.
type Snapshot interface {
	GetPartition(ctx context.Context, clubID string, bay int, date time.Time) ([]models.Booking, bool)
	SetPartition(ctx context.Context, clubID string, bay int, date time.Time, bookings []models.Booking)
	Invalidate(ctx context.Context, clubID string, bay int, date time.Time)
}

// SettingsSource resolves the current policy of a club.
type SettingsSource interface {
	Get(clubID string) (config.ClubSettings, bool)
}

// Publisher emits lifecycle events for the audit trail and other
// subscribers.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// Service coordinates validation, conflict detection and the
// authoritative store for every booking operation.
type Service struct {
	store    Store
	settings SettingsSource
	snapshot Snapshot  // optional
	bus      Publisher // optional
	logger   *zerolog.Logger
}

func NewService(store Store, settings SettingsSource, snapshot Snapshot, bus Publisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:    store,
		settings: settings,
		snapshot: snapshot,
		bus:      bus,
		logger:   logger,
	}
}

// BayAvailability is the slot grid of a single bay.
type BayAvailability struct {
	Bay   int
	Slots []schedule.Slot
}

// club resolves settings and applies the disabled-club gate common to
// all mutating operations.
func (s *Service) club(clubID string) (config.ClubSettings, error) {
	club, ok := s.settings.Get(clubID)
	if !ok {
		return config.ClubSettings{}, ErrUnknownClub
	}
	if !club.Enabled {
		return config.ClubSettings{}, ErrBookingDisabled
	}
	return club, nil
}

// partitionView reads one partition through the snapshot cache,
// falling back to the store and repopulating the cache on miss.
func (s *Service) partitionView(ctx context.Context, clubID string, bay int, date time.Time) ([]models.Booking, error) {
	if s.snapshot != nil {
		if bookings, ok := s.snapshot.GetPartition(ctx, clubID, bay, date); ok {
			return bookings, nil
		}
	}

	bookings, err := s.store.ListPartition(ctx, clubID, bay, date)
	if err != nil {
		return nil, fmt.Errorf("load partition: %w", err)
	}
	if s.snapshot != nil {
		s.snapshot.SetPartition(ctx, clubID, bay, date, bookings)
	}
	return bookings, nil
}

func (s *Service) invalidate(ctx context.Context, clubID string, bay int, date time.Time) {
	if s.snapshot != nil {
		s.snapshot.Invalidate(ctx, clubID, bay, date)
	}
}

func (s *Service) publish(eventType string, b *models.Booking, actorID int64) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, audit.BookingEvent{Booking: *b, ActorID: actorID}); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

// translateStoreErr maps storage-level race outcomes onto the service
// error taxonomy.
func translateStoreErr(err error) error {
	var taken *database.SlotTakenError
	if errors.As(err, &taken) {
		existing := taken.Existing
		return &ConflictError{With: &existing}
	}
	if errors.Is(err, database.ErrConcurrentModification) {
		return &ConflictError{}
	}
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// List returns a club's bookings with dates in [from, to].
func (s *Service) List(ctx context.Context, clubID string, from, to time.Time) ([]models.Booking, error) {
	if _, ok := s.settings.Get(clubID); !ok {
		return nil, ErrUnknownClub
	}
	return s.store.ListBookings(ctx, clubID, from, to)
}

// Availability renders the slot grid of every bay on one day.
func (s *Service) Availability(ctx context.Context, clubID string, date time.Time) ([]BayAvailability, error) {
	club, ok := s.settings.Get(clubID)
	if !ok {
		return nil, ErrUnknownClub
	}

	now := time.Now()
	bays := make([]BayAvailability, 0, club.NumberOfBays)
	for bay := 1; bay <= club.NumberOfBays; bay++ {
		bookings, err := s.partitionView(ctx, clubID, bay, date)
		if err != nil {
			return nil, err
		}
		bays = append(bays, BayAvailability{
			Bay:   bay,
			Slots: schedule.BuildSlots(date, club, bookings, now),
		})
	}
	return bays, nil
}

// Create validates the candidate slot, checks it against the cached
// partition view, and hands it to the store which re-checks under the
// partition lock. A losing race surfaces as a ConflictError naming the
// booking that won.
func (s *Service) Create(ctx context.Context, cand models.Candidate, ownerID int64, ownerName string) (*models.Booking, error) {
	club, err := s.club(cand.ClubID)
	if err != nil {
		return nil, err
	}

	if res := schedule.Validate(cand, club, time.Now()); !res.OK() {
		return nil, &ValidationError{Reasons: res.Reasons}
	}

	// Optimistic check against the (possibly cached) partition view.
	// Cheap rejection for the common case; the store has the last word.
	view, err := s.partitionView(ctx, cand.ClubID, cand.Bay, cand.Date)
	if err != nil {
		return nil, err
	}
	if hit := FindConflict(cand, view, 0); hit != nil {
		metrics.IncBookingConflict("create")
		return nil, &ConflictError{With: hit}
	}

	b := &models.Booking{
		ClubID:    cand.ClubID,
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Bay:       cand.Bay,
		Date:      cand.Date,
		StartTime: cand.Start,
		EndTime:   cand.End,
		Mode:      cand.Mode,
	}

	if err := s.store.CreateBooking(ctx, b); err != nil {
		err = translateStoreErr(err)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.IncBookingConflict("create")
		}
		return nil, err
	}

	s.invalidate(ctx, b.ClubID, b.Bay, b.Date)
	s.publish(events.TypeBookingCreated, b, ownerID)
	metrics.IncBookingCreated(string(b.Mode))

	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("owner_id", ownerID).
		Str("club_id", b.ClubID).
		Int("bay", b.Bay).
		Msg("booking created")
	return b, nil
}

// Join adds a member to a social session. Solo sessions, the owner's
// own session and repeated joins are all rejected as not joinable.
func (s *Service) Join(ctx context.Context, bookingID, memberID int64) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if _, err := s.club(b.ClubID); err != nil {
		// A club that vanished from the config behaves like a disabled
		// one for mutations.
		if errors.Is(err, ErrUnknownClub) {
			return nil, ErrBookingDisabled
		}
		return nil, err
	}

	if b.Mode != models.ModeSocial {
		return nil, ErrNotJoinable
	}
	if b.OwnerID == memberID || b.HasParticipant(memberID) {
		return nil, ErrNotJoinable
	}

	participants := append(append([]int64(nil), b.Participants...), memberID)
	if err := s.store.UpdateParticipants(ctx, b.ID, b.Version, participants); err != nil {
		return nil, translateStoreErr(err)
	}

	b.Participants = participants
	b.Version++

	s.invalidate(ctx, b.ClubID, b.Bay, b.Date)
	s.publish(events.TypeBookingJoined, b, memberID)
	metrics.IncBookingJoined()

	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("member_id", memberID).
		Msg("member joined booking")
	return b, nil
}

// Cancel removes a booking. Only the owner may cancel; anyone else
// gets ErrForbidden with no detail about the booking.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterID int64) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return translateStoreErr(err)
	}

	if _, err := s.club(b.ClubID); err != nil && !errors.Is(err, ErrUnknownClub) {
		return err
	}

	if b.OwnerID != requesterID {
		return ErrForbidden
	}

	if err := s.store.DeleteBooking(ctx, b.ID); err != nil {
		return translateStoreErr(err)
	}

	s.invalidate(ctx, b.ClubID, b.Bay, b.Date)
	s.publish(events.TypeBookingCancelled, b, requesterID)
	metrics.IncBookingCancelled()

	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("owner_id", requesterID).
		Msg("booking cancelled")
	return nil
}

// Reschedule moves a booking to a new slot within the same club. The
// booking's current slot never counts as a conflict with itself, so
// shifting a session by half an hour works.
func (s *Service) Reschedule(ctx context.Context, bookingID, requesterID int64, cand models.Candidate) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	club, err := s.club(b.ClubID)
	if err != nil {
		if errors.Is(err, ErrUnknownClub) {
			return nil, ErrBookingDisabled
		}
		return nil, err
	}

	if b.OwnerID != requesterID {
		return nil, ErrForbidden
	}

	// The club is pinned; date, time, bay and mode are all replaceable.
	// A request that omits the mode keeps the current one.
	cand.ClubID = b.ClubID
	if cand.Mode == "" {
		cand.Mode = b.Mode
	}
	if res := schedule.Validate(cand, club, time.Now()); !res.OK() {
		return nil, &ValidationError{Reasons: res.Reasons}
	}

	view, err := s.partitionView(ctx, cand.ClubID, cand.Bay, cand.Date)
	if err != nil {
		return nil, err
	}
	if hit := FindConflict(cand, view, b.ID); hit != nil {
		metrics.IncBookingConflict("reschedule")
		return nil, &ConflictError{With: hit}
	}

	oldBay, oldDate := b.Bay, b.Date
	b.Bay = cand.Bay
	b.Date = cand.Date
	b.StartTime = cand.Start
	b.EndTime = cand.End
	b.Mode = cand.Mode

	if err := s.store.RescheduleBooking(ctx, b); err != nil {
		err = translateStoreErr(err)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.IncBookingConflict("reschedule")
		}
		return nil, err
	}

	s.invalidate(ctx, b.ClubID, oldBay, oldDate)
	s.invalidate(ctx, b.ClubID, b.Bay, b.Date)
	s.publish(events.TypeBookingRescheduled, b, requesterID)
	metrics.IncBookingRescheduled()

	s.logger.Info().
		Int64("booking_id", b.ID).
		Int("bay", b.Bay).
		Str("date", b.DateKey()).
		Msg("booking rescheduled")
	return b, nil
}
