package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"simbay/internal/booking"
	"simbay/internal/metrics"
	"simbay/internal/models"
)

// BookingResponse is the wire form of a booking. Dates are YYYY-MM-DD,
// times HH:MM.
type BookingResponse struct {
	ID           int64   `json:"id"`
	ClubID       string  `json:"club_id"`
	OwnerID      int64   `json:"owner_id"`
	OwnerName    string  `json:"owner_name"`
	Bay          int     `json:"bay"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Mode         string  `json:"mode"`
	Participants []int64 `json:"participants"`
	Version      int64   `json:"version"`
}

func toBookingResponse(b *models.Booking) BookingResponse {
	participants := b.Participants
	if participants == nil {
		participants = []int64{}
	}
	return BookingResponse{
		ID:           b.ID,
		ClubID:       b.ClubID,
		OwnerID:      b.OwnerID,
		OwnerName:    b.OwnerName,
		Bay:          b.Bay,
		Date:         b.DateKey(),
		StartTime:    b.StartTime.Format("15:04"),
		EndTime:      b.EndTime.Format("15:04"),
		Mode:         string(b.Mode),
		Participants: participants,
		Version:      b.Version,
	}
}

// SlotRequest is the request body for creating or rescheduling a
// booking.
type SlotRequest struct {
	ClubID    string `json:"club_id,omitempty"`
	Bay       int    `json:"bay"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	Mode      string `json:"mode,omitempty"`
}

func (req *SlotRequest) candidate() (models.Candidate, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("invalid start_time format; expected HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("invalid end_time format; expected HH:MM")
	}

	anchor := func(clock time.Time) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, time.Local)
	}
	return models.Candidate{
		ClubID: req.ClubID,
		Bay:    req.Bay,
		Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local),
		Start:  anchor(start),
		End:    anchor(end),
		Mode:   models.Mode(req.Mode),
	}, nil
}

// memberIdentity reads the authenticated member from the gateway
// headers.
func memberIdentity(r *http.Request) (int64, string, error) {
	idStr := r.Header.Get("X-Member-Id")
	if idStr == "" {
		return 0, "", fmt.Errorf("X-Member-Id header is required")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("X-Member-Id must be a positive integer")
	}
	name := r.Header.Get("X-Member-Name")
	if name == "" {
		name = fmt.Sprintf("member %d", id)
	}
	return id, name, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid booking id")
	}
	return id, nil
}

// writeServiceError maps the service error taxonomy onto HTTP status
// codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"reasons": verr.Reasons,
		})
		return
	}

	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		payload := map[string]any{"error": conflict.Error()}
		if conflict.With != nil {
			payload["conflict"] = map[string]any{
				"owner_name": conflict.With.OwnerName,
				"bay":        conflict.With.Bay,
				"start_time": conflict.With.StartTime.Format("15:04"),
				"end_time":   conflict.With.EndTime.Format("15:04"),
			}
		}
		writeJSON(w, http.StatusConflict, payload)
		return
	}

	switch {
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, booking.ErrForbidden.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, booking.ErrNotFound.Error())
	case errors.Is(err, booking.ErrNotJoinable):
		writeError(w, http.StatusConflict, booking.ErrNotJoinable.Error())
	case errors.Is(err, booking.ErrBookingDisabled):
		writeError(w, http.StatusForbidden, booking.ErrBookingDisabled.Error())
	case errors.Is(err, booking.ErrUnknownClub):
		writeError(w, http.StatusNotFound, booking.ErrUnknownClub.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleListBookings returns a club's bookings for a date range.
// GET /api/bookings?club_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")

	clubID := r.URL.Query().Get("club_id")
	if clubID == "" {
		writeError(w, http.StatusBadRequest, "club_id is required")
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 30)

	var err error
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format; expected YYYY-MM-DD")
			return
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format; expected YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}

	bookings, err := s.svc.List(r.Context(), clubID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": responses})
}

// handleCreateBooking reserves a slot.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	memberID, memberName, err := memberIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SlotRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClubID == "" {
		writeError(w, http.StatusBadRequest, "club_id is required")
		return
	}

	cand, err := req.candidate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.Create(r.Context(), cand, memberID, memberName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// handleJoinBooking adds the member to a social session.
// POST /api/bookings/{id}/join
func (s *HTTPServer) handleJoinBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("join_booking")

	memberID, _, err := memberIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.Join(r.Context(), id, memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// handleRescheduleBooking moves a booking to a new slot.
// PUT /api/bookings/{id}
func (s *HTTPServer) handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reschedule_booking")

	memberID, _, err := memberIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SlotRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cand, err := req.candidate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.svc.Reschedule(r.Context(), id, memberID, cand)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// handleCancelBooking removes the member's booking.
// DELETE /api/bookings/{id}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	memberID, _, err := memberIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Cancel(r.Context(), id, memberID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
