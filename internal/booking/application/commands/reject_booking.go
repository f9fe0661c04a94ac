package commands

import (
	"context"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/mentorhub/internal/shared/application"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// RejectBookingCommand contains the data needed to reject a booking.
type RejectBookingCommand struct {
	ActorID   uuid.UUID
	BookingID uuid.UUID
	Reason    string
}

// RejectBookingHandler handles the RejectBookingCommand.
type RejectBookingHandler struct {
	bookingRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
}

// NewRejectBookingHandler creates a new RejectBookingHandler.
func NewRejectBookingHandler(
	bookingRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *RejectBookingHandler {
	return &RejectBookingHandler{
		bookingRepo: bookingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
	}
}

// Handle executes the RejectBookingCommand.
func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*domain.Booking, error) {
	var booking *domain.Booking

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		current, err := h.bookingRepo.FindByID(txCtx, cmd.BookingID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrBookingNotFound
		}
		if cmd.ActorID != current.MentorID() {
			return ErrNotAllowed
		}

		if err := current.Reject(cmd.Reason); err != nil {
			return err
		}

		if err := h.bookingRepo.Save(txCtx, current); err != nil {
			return err
		}

		if err := saveEvents(txCtx, h.outboxRepo, current, cmd.ActorID); err != nil {
			return err
		}

		booking = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}
