package commands

import (
	"context"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/mentorhub/internal/shared/application"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CancelBookingCommand contains the data needed to cancel a booking.
type CancelBookingCommand struct {
	ActorID   uuid.UUID
	BookingID uuid.UUID
}

// CancelBookingHandler handles the CancelBookingCommand.
type CancelBookingHandler struct {
	bookingRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
}

// NewCancelBookingHandler creates a new CancelBookingHandler.
func NewCancelBookingHandler(
	bookingRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CancelBookingHandler {
	return &CancelBookingHandler{
		bookingRepo: bookingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
	}
}

// Handle executes the CancelBookingCommand. Either party of the booking may
// cancel; anyone else is refused.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*domain.Booking, error) {
	var booking *domain.Booking

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		current, err := h.bookingRepo.FindByID(txCtx, cmd.BookingID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrBookingNotFound
		}
		if cmd.ActorID != current.MentorID() && cmd.ActorID != current.StudentID() {
			return ErrNotAllowed
		}

		if err := current.Cancel(cmd.ActorID); err != nil {
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
