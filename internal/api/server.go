// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"simbay/internal/audit"
	"simbay/internal/booking"
)

// HTTPServer serves the booking REST API.
type HTTPServer struct {
	svc      *booking.Service
	settings booking.SettingsSource
	recorder *audit.Recorder // optional
	apiKey   string
	limiter  *ipLimiter
	logger   *zerolog.Logger
	server   *http.Server
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	APIKey         string
	RateLimitRPS   int
	RateLimitBurst int
}

func NewHTTPServer(svc *booking.Service, settings booking.SettingsSource, recorder *audit.Recorder, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:      svc,
		settings: settings,
		recorder: recorder,
		apiKey:   opts.APIKey,
		logger:   logger,
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes builds the handler tree with the middleware chain applied.
func (s *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("POST /api/bookings/{id}/join", s.handleJoinBooking)
	mux.HandleFunc("PUT /api/bookings/{id}", s.handleRescheduleBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.handleCancelBooking)
	mux.HandleFunc("GET /api/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/clubs/{club}/settings", s.handleClubSettings)
	mux.HandleFunc("GET /api/audit/export", s.handleAuditExport)

	var handler http.Handler = mux
	handler = s.withAPIKey(handler)
	handler = s.withRateLimit(handler)
	handler = s.withRequestID(handler)
	return handler
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("http server started")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
