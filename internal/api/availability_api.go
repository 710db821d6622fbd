package api

import (
	"fmt"
	"net/http"
	"time"

	"simbay/internal/metrics"
)

// SlotResponse is one cell of the availability grid.
type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// BayAvailabilityResponse is the grid of one bay.
type BayAvailabilityResponse struct {
	Bay   int            `json:"bay"`
	Slots []SlotResponse `json:"slots"`
}

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	ClubID string                    `json:"club_id"`
	Date   string                    `json:"date"`
	Bays   []BayAvailabilityResponse `json:"bays"`
}

// ClubSettingsResponse is the booking policy exposed to clients.
type ClubSettingsResponse struct {
	ClubID                 string `json:"club_id"`
	Name                   string `json:"name"`
	NumberOfBays           int    `json:"number_of_bays"`
	OpeningTime            string `json:"opening_time"`
	ClosingTime            string `json:"closing_time"`
	DaysOfOperation        string `json:"days_of_operation"`
	BookingDurationOptions []int  `json:"booking_duration_options"`
	MinBookingDuration     int    `json:"min_booking_duration"`
	MaxBookingDuration     int    `json:"max_booking_duration"`
	MaxAdvanceBookingDays  int    `json:"max_advance_booking_days"`
	Enabled                bool   `json:"enabled"`
}

// handleAvailability returns the per-bay slot grid for one day.
// GET /api/availability?club_id=...&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	clubID := r.URL.Query().Get("club_id")
	if clubID == "" {
		writeError(w, http.StatusBadRequest, "club_id is required")
		return
	}

	dateStr := r.URL.Query().Get("date")
	var date time.Time
	var err error
	if dateStr != "" {
		date, err = time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	} else {
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	}

	bays, err := s.svc.Availability(r.Context(), clubID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := AvailabilityResponse{
		ClubID: clubID,
		Date:   date.Format("2006-01-02"),
		Bays:   make([]BayAvailabilityResponse, 0, len(bays)),
	}
	for _, bay := range bays {
		slots := make([]SlotResponse, 0, len(bay.Slots))
		for _, slot := range bay.Slots {
			slots = append(slots, SlotResponse{
				StartTime: slot.Start.Format("15:04"),
				EndTime:   slot.End.Format("15:04"),
				Available: slot.Available,
			})
		}
		response.Bays = append(response.Bays, BayAvailabilityResponse{Bay: bay.Bay, Slots: slots})
	}
	writeJSON(w, http.StatusOK, response)
}

// handleClubSettings returns the club's booking policy.
// GET /api/clubs/{club}/settings
func (s *HTTPServer) handleClubSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("club_settings")

	clubID := r.PathValue("club")
	club, ok := s.settings.Get(clubID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown club")
		return
	}

	writeJSON(w, http.StatusOK, ClubSettingsResponse{
		ClubID:                 club.ClubID,
		Name:                   club.Name,
		NumberOfBays:           club.NumberOfBays,
		OpeningTime:            club.OpeningTime,
		ClosingTime:            club.ClosingTime,
		DaysOfOperation:        club.DaysOfOperationString(),
		BookingDurationOptions: club.BookingDurationOptions,
		MinBookingDuration:     club.MinBookingDuration,
		MaxBookingDuration:     club.MaxBookingDuration,
		MaxAdvanceBookingDays:  club.MaxAdvanceBookingDays,
		Enabled:                club.Enabled,
	})
}

// handleAuditExport streams the audit trail of a period as an Excel
// workbook.
// GET /api/audit/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_export")

	if s.recorder == nil {
		writeError(w, http.StatusNotFound, "audit export is not enabled")
		return
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	var err error
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err = time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format; expected YYYY-MM-DD")
			return
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err = time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format; expected YYYY-MM-DD")
			return
		}
		to = to.AddDate(0, 0, 1) // include the whole last day
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="simbay_audit_%s.xlsx"`, now.Format("20060102")))

	if err := s.recorder.Export(r.Context(), from, to, w); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	}
}
