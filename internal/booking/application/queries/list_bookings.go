package queries

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
)

// ListMentorBookingsQuery contains the parameters for listing a mentor's
// bookings, optionally narrowed to a single status.
type ListMentorBookingsQuery struct {
	MentorID uuid.UUID
	Status   *domain.Status
}

// ListStudentBookingsQuery contains the parameters for listing a student's
// bookings.
type ListStudentBookingsQuery struct {
	StudentID uuid.UUID
}

// GetBookingQuery contains the parameters for fetching a single booking.
type GetBookingQuery struct {
	BookingID uuid.UUID
}

// ListBookingsHandler handles booking list and lookup queries.
type ListBookingsHandler struct {
	bookingRepo domain.Repository
}

// NewListBookingsHandler creates a new ListBookingsHandler.
func NewListBookingsHandler(bookingRepo domain.Repository) *ListBookingsHandler {
	return &ListBookingsHandler{bookingRepo: bookingRepo}
}

// HandleMentor executes the ListMentorBookingsQuery, newest first.
func (h *ListBookingsHandler) HandleMentor(ctx context.Context, query ListMentorBookingsQuery) ([]*domain.Booking, error) {
	bookings, err := h.bookingRepo.FindByMentor(ctx, query.MentorID, query.Status)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(bookings)
	return bookings, nil
}

// HandleStudent executes the ListStudentBookingsQuery, newest first.
func (h *ListBookingsHandler) HandleStudent(ctx context.Context, query ListStudentBookingsQuery) ([]*domain.Booking, error) {
	bookings, err := h.bookingRepo.FindByStudent(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(bookings)
	return bookings, nil
}

// HandleGet executes the GetBookingQuery.
func (h *ListBookingsHandler) HandleGet(ctx context.Context, query GetBookingQuery) (*domain.Booking, error) {
	booking, err := h.bookingRepo.FindByID(ctx, query.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

func sortNewestFirst(bookings []*domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt().After(bookings[j].CreatedAt())
	})
}
