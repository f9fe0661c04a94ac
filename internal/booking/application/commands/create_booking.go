package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/mentorhub/internal/shared/application"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CreateBookingCommand contains the data needed to request a session.
// EndTime may be zero when the client books by duration; DurationHours may
// be zero when the client supplies an explicit end time.
type CreateBookingCommand struct {
	ActorID       uuid.UUID
	MentorID      uuid.UUID
	StudentID     uuid.UUID
	StudentName   string
	StartTime     time.Time
	EndTime       time.Time
	DurationHours int
	Format        string
	Summary       string
	Description   string
}

// CreateBookingHandler handles the CreateBookingCommand.
type CreateBookingHandler struct {
	bookingRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
}

// NewCreateBookingHandler creates a new CreateBookingHandler.
func NewCreateBookingHandler(bookingRepo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *CreateBookingHandler {
	return &CreateBookingHandler{
		bookingRepo: bookingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
	}
}

// Handle executes the CreateBookingCommand. The admission check runs behind
// a per-mentor lock in the same transaction as the insert, so two concurrent
// requests for overlapping slots cannot both land.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*domain.Booking, error) {
	if cmd.ActorID != cmd.StudentID {
		return nil, ErrNotAllowed
	}

	timeRange, durationHours, err := resolveTimeRange(cmd)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.bookingRepo.LockMentor(txCtx, cmd.MentorID); err != nil {
			return err
		}

		blocking, err := h.bookingRepo.FindBlocking(txCtx, &cmd.MentorID, timeRange)
		if err != nil {
			return err
		}
		for _, other := range blocking {
			if timeRange.Overlaps(other.TimeRange()) {
				return domain.ErrSlotTaken
			}
		}

		booking, err = domain.NewBooking(
			cmd.MentorID,
			cmd.StudentID,
			cmd.StudentName,
			timeRange,
			durationHours,
			domain.Format(cmd.Format),
			cmd.Summary,
			cmd.Description,
		)
		if err != nil {
			return err
		}

		if err := h.bookingRepo.Save(txCtx, booking); err != nil {
			return err
		}

		return saveEvents(txCtx, h.outboxRepo, booking, cmd.ActorID)
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// resolveTimeRange derives the booked range and its redundant duration from
// the command. The wall-clock span always wins: a caller-given duration that
// contradicts an explicit end time is rejected rather than trusted.
func resolveTimeRange(cmd CreateBookingCommand) (domain.TimeRange, int, error) {
	if cmd.StartTime.IsZero() {
		return domain.TimeRange{}, 0, ErrMissingStart
	}

	if cmd.EndTime.IsZero() {
		hours := cmd.DurationHours
		if hours <= 0 {
			hours = 1
		}
		timeRange, err := domain.NewTimeRange(cmd.StartTime, cmd.StartTime.Add(time.Duration(hours)*time.Hour))
		if err != nil {
			return domain.TimeRange{}, 0, err
		}
		return timeRange, hours, nil
	}

	timeRange, err := domain.NewTimeRange(cmd.StartTime, cmd.EndTime)
	if err != nil {
		return domain.TimeRange{}, 0, err
	}

	span := timeRange.Duration()
	hours := int(span / time.Hour)
	if time.Duration(hours)*time.Hour != span {
		return domain.TimeRange{}, 0, domain.ErrDurationMismatch
	}
	if cmd.DurationHours > 0 && cmd.DurationHours != hours {
		return domain.TimeRange{}, 0, domain.ErrDurationMismatch
	}
	return timeRange, hours, nil
}

// saveEvents drains the aggregate's uncommitted events into the outbox
// within the current transaction.
func saveEvents(ctx context.Context, repo outbox.Repository, booking *domain.Booking, actorID uuid.UUID) error {
	events := booking.DomainEvents()
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(actorID))

	msgs := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}

	booking.ClearDomainEvents()
	return nil
}
