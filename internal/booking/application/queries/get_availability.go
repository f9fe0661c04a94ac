package queries

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
)

// ErrInvalidWindow is returned when the requested window is not a valid
// time range.
var ErrInvalidWindow = errors.New("invalid availability window")

// BusySlot is a data transfer object for an occupied stretch of a mentor's
// calendar.
type BusySlot struct {
	BookingID uuid.UUID     `json:"booking_id"`
	Start     time.Time     `json:"start_time"`
	End       time.Time     `json:"end_time"`
	Status    domain.Status `json:"status"`
}

// GetAvailabilityQuery contains the parameters for resolving busy slots
// within a window. A nil MentorID resolves the aggregate view across every
// mentor, used before a mentor has been selected.
type GetAvailabilityQuery struct {
	MentorID *uuid.UUID
	Start    time.Time
	End      time.Time
}

// GetAvailabilityHandler handles the GetAvailabilityQuery.
type GetAvailabilityHandler struct {
	bookingRepo domain.Repository
}

// NewGetAvailabilityHandler creates a new GetAvailabilityHandler.
func NewGetAvailabilityHandler(bookingRepo domain.Repository) *GetAvailabilityHandler {
	return &GetAvailabilityHandler{bookingRepo: bookingRepo}
}

// Handle executes the GetAvailabilityQuery. Only bookings that block the
// calendar count; rejected and cancelled ones are invisible here.
func (h *GetAvailabilityHandler) Handle(ctx context.Context, query GetAvailabilityQuery) ([]BusySlot, error) {
	window, err := domain.NewTimeRange(query.Start, query.End)
	if err != nil {
		return nil, ErrInvalidWindow
	}

	bookings, err := h.bookingRepo.FindBlocking(ctx, query.MentorID, window)
	if err != nil {
		return nil, err
	}

	slots := make([]BusySlot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, BusySlot{
			BookingID: b.ID(),
			Start:     b.TimeRange().Start,
			End:       b.TimeRange().End,
			Status:    b.Status(),
		})
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	return slots, nil
}
