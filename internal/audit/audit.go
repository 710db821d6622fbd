// Package audit keeps a trail of booking lifecycle actions and exports
// it as an Excel workbook for the club staff.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"simbay/internal/events"
	"simbay/internal/models"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	BookingID int64     `json:"booking_id"`
	MemberID  int64     `json:"member_id"`
	ClubID    string    `json:"club_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and queries audit entries.
type Store interface {
	RecordAudit(ctx context.Context, e *Entry) error
	ListAudit(ctx context.Context, from, to time.Time) ([]Entry, error)
}

// BookingEvent is the payload published by the booking service for
// each lifecycle action.
type BookingEvent struct {
	Booking models.Booking `json:"booking"`
	ActorID int64          `json:"actor_id"`
}

// Recorder turns booking events into audit entries.
type Recorder struct {
	store  Store
	logger *zerolog.Logger
}

func NewRecorder(store Store, logger *zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Attach subscribes the recorder to all booking lifecycle events.
func (r *Recorder) Attach(bus *events.EventBus) {
	for _, eventType := range []string{
		events.TypeBookingCreated,
		events.TypeBookingJoined,
		events.TypeBookingCancelled,
		events.TypeBookingRescheduled,
	} {
		bus.Subscribe(eventType, r.handle(eventType))
	}
}

func (r *Recorder) handle(action string) events.EventHandler {
	return func(e events.Event) error {
		var payload BookingEvent
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			r.logger.Error().Err(err).Str("action", action).Msg("bad audit payload")
			return err
		}

		entry := &Entry{
			Action:    action,
			BookingID: payload.Booking.ID,
			MemberID:  payload.ActorID,
			ClubID:    payload.Booking.ClubID,
			Detail: fmt.Sprintf("bay %d, %s %s-%s",
				payload.Booking.Bay,
				payload.Booking.DateKey(),
				payload.Booking.StartTime.Format("15:04"),
				payload.Booking.EndTime.Format("15:04")),
			CreatedAt: e.CreatedAt,
		}

		if err := r.store.RecordAudit(context.Background(), entry); err != nil {
			r.logger.Error().Err(err).Str("action", action).Msg("failed to record audit entry")
			return err
		}
		return nil
	}
}

var exportColumns = []string{"ID", "Action", "Booking", "Member", "Club", "Detail", "At"}

// Export writes the audit entries of [from, to] as an Excel workbook.
func (r *Recorder) Export(ctx context.Context, from, to time.Time, w io.Writer) error {
	entries, err := r.store.ListAudit(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load audit entries: %w", err)
	}

	file := excelize.NewFile()
	sheet := "Audit"
	file.SetSheetName("Sheet1", sheet)

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	for rowIdx, entry := range entries {
		values := []any{
			entry.ID,
			entry.Action,
			entry.BookingID,
			entry.MemberID,
			entry.ClubID,
			entry.Detail,
			entry.CreatedAt.Format(time.RFC3339),
		}
		for colIdx, val := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write audit workbook: %w", err)
	}
	return nil
}
