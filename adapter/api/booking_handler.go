package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/commands"
	"github.com/felixgeelhaar/mentorhub/internal/booking/application/queries"
	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
)

// ActorHeader carries the caller's identity. There is no ambient session;
// every state-changing request names its actor explicitly.
const ActorHeader = "X-Actor-ID"

// BookingHandler handles booking API requests.
type BookingHandler struct {
	createBooking   *commands.CreateBookingHandler
	approveBooking  *commands.ApproveBookingHandler
	rejectBooking   *commands.RejectBookingHandler
	cancelBooking   *commands.CancelBookingHandler
	listBookings    *queries.ListBookingsHandler
	getAvailability *queries.GetAvailabilityHandler
	logger          *slog.Logger
}

// BookingHandlerConfig holds dependencies for the booking handler.
type BookingHandlerConfig struct {
	CreateBooking   *commands.CreateBookingHandler
	ApproveBooking  *commands.ApproveBookingHandler
	RejectBooking   *commands.RejectBookingHandler
	CancelBooking   *commands.CancelBookingHandler
	ListBookings    *queries.ListBookingsHandler
	GetAvailability *queries.GetAvailabilityHandler
	Logger          *slog.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(cfg BookingHandlerConfig) *BookingHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BookingHandler{
		createBooking:   cfg.CreateBooking,
		approveBooking:  cfg.ApproveBooking,
		rejectBooking:   cfg.RejectBooking,
		cancelBooking:   cfg.CancelBooking,
		listBookings:    cfg.ListBookings,
		getAvailability: cfg.GetAvailability,
		logger:          cfg.Logger,
	}
}

type createBookingRequest struct {
	MentorID      uuid.UUID `json:"mentorId"`
	StudentID     uuid.UUID `json:"studentId"`
	StudentName   string    `json:"studentName"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	DurationHours int       `json:"durationHours"`
	Format        string    `json:"format"`
	Summary       string    `json:"summary"`
	Description   string    `json:"description"`
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := commands.CreateBookingCommand{
		ActorID:       actorID,
		MentorID:      req.MentorID,
		StudentID:     req.StudentID,
		StudentName:   req.StudentName,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		DurationHours: req.DurationHours,
		Format:        req.Format,
		Summary:       req.Summary,
		Description:   req.Description,
	}

	booking, err := h.createBooking.Handle(r.Context(), cmd)
	if err != nil {
		h.writeCommandError(w, "create booking", err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.SnapshotOf(booking))
}

// GetBooking handles GET /api/v1/bookings/{bookingID}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(r.PathValue("bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.listBookings.HandleGet(r.Context(), queries.GetBookingQuery{BookingID: bookingID})
	if err != nil {
		h.writeCommandError(w, "get booking", err)
		return
	}

	writeJSON(w, http.StatusOK, domain.SnapshotOf(booking))
}

// ApproveBooking handles PATCH /api/v1/bookings/{bookingID}/approve
func (h *BookingHandler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(r.PathValue("bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	result, err := h.approveBooking.Handle(r.Context(), commands.ApproveBookingCommand{
		ActorID:   actorID,
		BookingID: bookingID,
	})
	if err != nil {
		h.writeCommandError(w, "approve booking", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meetLink": result.MeetLink,
		"booking":  domain.SnapshotOf(result.Booking),
	})
}

type rejectBookingRequest struct {
	Reason string `json:"reason"`
}

// RejectBooking handles PATCH /api/v1/bookings/{bookingID}/reject
func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(r.PathValue("bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	var req rejectBookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	booking, err := h.rejectBooking.Handle(r.Context(), commands.RejectBookingCommand{
		ActorID:   actorID,
		BookingID: bookingID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeCommandError(w, "reject booking", err)
		return
	}

	writeJSON(w, http.StatusOK, domain.SnapshotOf(booking))
}

// CancelBooking handles PATCH /api/v1/bookings/{bookingID}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(r.PathValue("bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.cancelBooking.Handle(r.Context(), commands.CancelBookingCommand{
		ActorID:   actorID,
		BookingID: bookingID,
	})
	if err != nil {
		h.writeCommandError(w, "cancel booking", err)
		return
	}

	writeJSON(w, http.StatusOK, domain.SnapshotOf(booking))
}

// ListMentorBookings handles GET /api/v1/bookings/mentor/{mentorID}
func (h *BookingHandler) ListMentorBookings(w http.ResponseWriter, r *http.Request) {
	mentorID, err := uuid.Parse(r.PathValue("mentorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mentor ID")
		return
	}

	query := queries.ListMentorBookingsQuery{MentorID: mentorID}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.Status(statusParam)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		query.Status = &status
	}

	bookings, err := h.listBookings.HandleMentor(r.Context(), query)
	if err != nil {
		h.writeCommandError(w, "list mentor bookings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": snapshots(bookings)})
}

// ListStudentBookings handles GET /api/v1/bookings/student/{studentID}
func (h *BookingHandler) ListStudentBookings(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.PathValue("studentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	bookings, err := h.listBookings.HandleStudent(r.Context(), queries.ListStudentBookingsQuery{StudentID: studentID})
	if err != nil {
		h.writeCommandError(w, "list student bookings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": snapshots(bookings)})
}

// GetAvailability handles GET /api/v1/availability
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	// mentorId is optional; without it the response is the aggregate
	// anyone-busy view.
	var mentorID *uuid.UUID
	if raw := r.URL.Query().Get("mentorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid mentorId")
			return
		}
		mentorID = &id
	}

	timeMin, err := time.Parse(time.RFC3339, r.URL.Query().Get("timeMin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing timeMin")
		return
	}
	timeMax, err := time.Parse(time.RFC3339, r.URL.Query().Get("timeMax"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing timeMax")
		return
	}

	slots, err := h.getAvailability.Handle(r.Context(), queries.GetAvailabilityQuery{
		MentorID: mentorID,
		Start:    timeMin,
		End:      timeMax,
	})
	if err != nil {
		h.writeCommandError(w, "get availability", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": slots})
}

// actor extracts the caller identity from the request header.
func (h *BookingHandler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(ActorHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing "+ActorHeader+" header")
		return uuid.Nil, false
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+ActorHeader+" header")
		return uuid.Nil, false
	}
	return actorID, true
}

// writeCommandError maps application and domain errors to HTTP statuses.
func (h *BookingHandler) writeCommandError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, commands.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "Not allowed")
	case errors.Is(err, domain.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrDurationMismatch),
		errors.Is(err, domain.ErrMissingMentor),
		errors.Is(err, domain.ErrMissingStudent),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, commands.ErrMissingStart),
		errors.Is(err, queries.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func snapshots(bookings []*domain.Booking) []domain.Snapshot {
	out := make([]domain.Snapshot, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, domain.SnapshotOf(b))
	}
	return out
}
