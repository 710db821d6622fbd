package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"simbay/internal/models"
)

const bookingColumns = `id, club_id, owner_id, owner_name, bay, date, start_time, end_time,
	mode, participants, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var dateStr, participants string
	err := row.Scan(&b.ID, &b.ClubID, &b.OwnerID, &b.OwnerName, &b.Bay,
		&dateStr, &b.StartTime, &b.EndTime, &b.Mode, &participants,
		&b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}

	b.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse booking date %q: %w", dateStr, err)
	}
	if err := json.Unmarshal([]byte(participants), &b.Participants); err != nil {
		return nil, fmt.Errorf("parse participants of booking %d: %w", b.ID, err)
	}
	return &b, nil
}

func marshalParticipants(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal participants: %w", err)
	}
	return string(data), nil
}

// GetBooking fetches a single booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// ListBookings returns all bookings of a club whose date lies in
// [from, to], ordered by bay and start time.
func (db *DB) ListBookings(ctx context.Context, clubID string, from, to time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE club_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, bay, start_time`,
		clubID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListPartition returns the bookings of one (club, bay, date)
// partition ordered by start time.
func (db *DB) ListPartition(ctx context.Context, clubID string, bay int, date time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE club_id = ? AND bay = ? AND date = ?
		 ORDER BY start_time`,
		clubID, bay, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list partition: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// findOverlap looks for a booking colliding with [start, end) in the
// given partition, excluding excludeID. Runs inside the write
// transaction so the check and the write are atomic.
func findOverlap(ctx context.Context, tx *sql.Tx, clubID string, bay int, date time.Time, start, end time.Time, excludeID int64) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE club_id = ? AND bay = ? AND date = ?
		   AND start_time < ? AND end_time > ?
		   AND id != ?
		 ORDER BY start_time
		 LIMIT 1`,
		clubID, bay, date.Format("2006-01-02"), end, start, excludeID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	return b, nil
}

// CreateBooking inserts a booking after re-checking the partition for
// overlaps inside the transaction. On success the booking's ID,
// timestamps and version are filled in.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	lock := db.partitionLock(b.ClubID, b.Bay, b.Date)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create booking: %w", err)
	}
	defer tx.Rollback()

	existing, err := findOverlap(ctx, tx, b.ClubID, b.Bay, b.Date, b.StartTime, b.EndTime, 0)
	if err != nil {
		return err
	}
	if existing != nil {
		return &SlotTakenError{Existing: *existing}
	}

	participants, err := marshalParticipants(b.Participants)
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (club_id, owner_id, owner_name, bay, date, start_time, end_time,
			mode, participants, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		b.ClubID, b.OwnerID, b.OwnerName, b.Bay, b.Date.Format("2006-01-02"),
		b.StartTime, b.EndTime, string(b.Mode), participants, now, now)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create booking: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1

	db.logger.Info().
		Int64("booking_id", id).
		Str("club_id", b.ClubID).
		Int("bay", b.Bay).
		Str("date", b.DateKey()).
		Msg("booking created")
	return nil
}

// RescheduleBooking replaces a booking's slot and mode with the values
// already set on b, guarded by optimistic versioning: the write only
// lands if the stored version still equals b.Version. The target
// partition is re-checked
// for overlaps in the same transaction, excluding the booking itself.
func (db *DB) RescheduleBooking(ctx context.Context, b *models.Booking) error {
	lock := db.partitionLock(b.ClubID, b.Bay, b.Date)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback()

	existing, err := findOverlap(ctx, tx, b.ClubID, b.Bay, b.Date, b.StartTime, b.EndTime, b.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &SlotTakenError{Existing: *existing}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET bay = ?, date = ?, start_time = ?, end_time = ?, mode = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		b.Bay, b.Date.Format("2006-01-02"), b.StartTime, b.EndTime, string(b.Mode), now, b.ID, b.Version)
	if err != nil {
		return fmt.Errorf("reschedule booking %d: %w", b.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reschedule rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM bookings WHERE id = ?`, b.ID).Scan(&exists); err != nil {
			return fmt.Errorf("reschedule existence check: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reschedule: %w", err)
	}

	b.UpdatedAt = now
	b.Version++

	db.logger.Info().
		Int64("booking_id", b.ID).
		Int("bay", b.Bay).
		Str("date", b.DateKey()).
		Msg("booking rescheduled")
	return nil
}

// UpdateParticipants replaces the participant list, guarded by the
// expected version.
func (db *DB) UpdateParticipants(ctx context.Context, id, version int64, participants []int64) error {
	encoded, err := marshalParticipants(participants)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE bookings
		 SET participants = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		encoded, time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("update participants of booking %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participants rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("participants existence check: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

// DeleteBooking removes a booking.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	db.logger.Info().Int64("booking_id", id).Msg("booking deleted")
	return nil
}
