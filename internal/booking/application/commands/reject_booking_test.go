package commands

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRejectBookingHandler_Handle(t *testing.T) {
	mentorID := uuid.New()
	studentID := uuid.New()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("rejects pending booking with reason", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRejectBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		booking := createPendingBooking(t, mentorID, studentID, start, 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("FindByID", txCtx, booking.ID()).Return(booking, nil)
		repo.On("Save", txCtx, booking).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, RejectBookingCommand{
			ActorID:   mentorID,
			BookingID: booking.ID(),
			Reason:    "Fully booked that week",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Status())
		require.NotNil(t, result.RejectionReason())
		assert.Equal(t, "Fully booked that week", *result.RejectionReason())

		repo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("defaults empty reason", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRejectBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		booking := createPendingBooking(t, mentorID, studentID, start, 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("FindByID", txCtx, booking.ID()).Return(booking, nil)
		repo.On("Save", txCtx, booking).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, RejectBookingCommand{ActorID: mentorID, BookingID: booking.ID()})

		require.NoError(t, err)
		require.NotNil(t, result.RejectionReason())
		assert.Equal(t, domain.DefaultRejectionReason, *result.RejectionReason())
	})

	t.Run("returns ErrBookingNotFound for unknown booking", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRejectBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		bookingID := uuid.New()

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByID", txCtx, bookingID).Return(nil, nil)

		_, err := handler.Handle(ctx, RejectBookingCommand{ActorID: mentorID, BookingID: bookingID})

		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
		uow.AssertExpectations(t)
	})

	t.Run("refuses actor other than the mentor", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRejectBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		booking := createPendingBooking(t, mentorID, studentID, start, 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByID", txCtx, booking.ID()).Return(booking, nil)

		_, err := handler.Handle(ctx, RejectBookingCommand{ActorID: studentID, BookingID: booking.ID()})

		assert.ErrorIs(t, err, ErrNotAllowed)
		assert.Equal(t, domain.StatusPending, booking.Status())
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("refuses non-pending booking", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRejectBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		booking := createPendingBooking(t, mentorID, studentID, start, 2)
		require.NoError(t, booking.Cancel(studentID))

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByID", txCtx, booking.ID()).Return(booking, nil)

		_, err := handler.Handle(ctx, RejectBookingCommand{ActorID: mentorID, BookingID: booking.ID()})

		assert.ErrorIs(t, err, domain.ErrNotPending)
	})
}
