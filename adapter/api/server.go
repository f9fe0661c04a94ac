// Package api provides the HTTP API for the MentorHub booking service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/mentorhub/pkg/observability"
)

// Server is the HTTP API server for the booking service.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	logger   *slog.Logger
	bookings *BookingHandler
	streams  *StreamHandler
	health   *observability.HealthRegistry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration. The write
// timeout is zero because SSE connections stay open indefinitely.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        "0.0.0.0:8080",
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// NewServer creates a new booking API server. The stream handler may be nil
// when no read-model backend is configured; the stream routes are then not
// registered.
func NewServer(
	cfg ServerConfig,
	bookings *BookingHandler,
	streams *StreamHandler,
	health *observability.HealthRegistry,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = observability.NewHealthRegistry()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		bookings: bookings,
		streams:  streams,
		health:   health,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/bookings", s.bookings.CreateBooking)
	s.mux.HandleFunc("GET /api/v1/bookings/{bookingID}", s.bookings.GetBooking)
	s.mux.HandleFunc("PATCH /api/v1/bookings/{bookingID}/approve", s.bookings.ApproveBooking)
	s.mux.HandleFunc("PATCH /api/v1/bookings/{bookingID}/reject", s.bookings.RejectBooking)
	s.mux.HandleFunc("PATCH /api/v1/bookings/{bookingID}/cancel", s.bookings.CancelBooking)
	s.mux.HandleFunc("GET /api/v1/bookings/mentor/{mentorID}", s.bookings.ListMentorBookings)
	s.mux.HandleFunc("GET /api/v1/bookings/student/{studentID}", s.bookings.ListStudentBookings)
	s.mux.HandleFunc("GET /api/v1/availability", s.bookings.GetAvailability)

	if s.streams != nil {
		s.mux.HandleFunc("GET /api/v1/bookings/mentor/{mentorID}/stream", s.streams.StreamMentorBookings)
		s.mux.HandleFunc("GET /api/v1/bookings/student/{studentID}/stream", s.streams.StreamStudentBookings)
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.health.Check(r.Context())
	status := s.health.OverallStatus()

	code := http.StatusOK
	if status == observability.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": results,
	})
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting booking API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down booking API server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
