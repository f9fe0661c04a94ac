package queries

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBookingsHandler_HandleMentor(t *testing.T) {
	mentorID := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("returns bookings newest first", func(t *testing.T) {
		repo := new(mockBookingRepo)
		handler := NewListBookingsHandler(repo)
		ctx := context.Background()

		older := rehydrateTestBooking(t, mentorID, domain.StatusApproved, base, base.Add(-48*time.Hour))
		newer := rehydrateTestBooking(t, mentorID, domain.StatusPending, base.Add(2*time.Hour), base.Add(-time.Hour))

		repo.On("FindByMentor", ctx, mentorID, (*domain.Status)(nil)).
			Return([]*domain.Booking{older, newer}, nil)

		bookings, err := handler.HandleMentor(ctx, ListMentorBookingsQuery{MentorID: mentorID})

		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, newer.ID(), bookings[0].ID())
		assert.Equal(t, older.ID(), bookings[1].ID())
	})

	t.Run("passes status filter through", func(t *testing.T) {
		repo := new(mockBookingRepo)
		handler := NewListBookingsHandler(repo)
		ctx := context.Background()

		status := domain.StatusPending
		pending := rehydrateTestBooking(t, mentorID, status, base, base.Add(-time.Hour))

		repo.On("FindByMentor", ctx, mentorID, &status).
			Return([]*domain.Booking{pending}, nil)

		bookings, err := handler.HandleMentor(ctx, ListMentorBookingsQuery{MentorID: mentorID, Status: &status})

		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, domain.StatusPending, bookings[0].Status())
	})
}

func TestListBookingsHandler_HandleStudent(t *testing.T) {
	studentID := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	repo := new(mockBookingRepo)
	handler := NewListBookingsHandler(repo)
	ctx := context.Background()

	older := rehydrateTestBooking(t, uuid.New(), domain.StatusRejected, base, base.Add(-72*time.Hour))
	newer := rehydrateTestBooking(t, uuid.New(), domain.StatusPending, base.Add(4*time.Hour), base.Add(-time.Hour))

	repo.On("FindByStudent", ctx, studentID).
		Return([]*domain.Booking{older, newer}, nil)

	bookings, err := handler.HandleStudent(ctx, ListStudentBookingsQuery{StudentID: studentID})

	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, newer.ID(), bookings[0].ID())
}

func TestListBookingsHandler_HandleGet(t *testing.T) {
	t.Run("returns the booking", func(t *testing.T) {
		repo := new(mockBookingRepo)
		handler := NewListBookingsHandler(repo)
		ctx := context.Background()

		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		booking := rehydrateTestBooking(t, uuid.New(), domain.StatusApproved, base, base)

		repo.On("FindByID", ctx, booking.ID()).Return(booking, nil)

		result, err := handler.HandleGet(ctx, GetBookingQuery{BookingID: booking.ID()})

		require.NoError(t, err)
		assert.Equal(t, booking.ID(), result.ID())
	})

	t.Run("returns ErrBookingNotFound when absent", func(t *testing.T) {
		repo := new(mockBookingRepo)
		handler := NewListBookingsHandler(repo)
		ctx := context.Background()

		bookingID := uuid.New()
		repo.On("FindByID", ctx, bookingID).Return(nil, nil)

		_, err := handler.HandleGet(ctx, GetBookingQuery{BookingID: bookingID})

		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})
}
