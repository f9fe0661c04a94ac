package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/mentorhub/internal/shared/application"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// DefaultMeetingTimeout bounds the best-effort call to the meeting provider
// so a slow calendar backend cannot stall an approval.
const DefaultMeetingTimeout = 10 * time.Second

// ApproveBookingCommand contains the data needed to approve a booking.
type ApproveBookingCommand struct {
	ActorID   uuid.UUID
	BookingID uuid.UUID
}

// ApproveBookingResult carries the approved booking and its meeting link.
type ApproveBookingResult struct {
	Booking  *domain.Booking
	MeetLink *string
}

// ApproveBookingHandler handles the ApproveBookingCommand.
type ApproveBookingHandler struct {
	bookingRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	provider    MeetingProvider
	meetBaseURL string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewApproveBookingHandler creates a new ApproveBookingHandler. The provider
// may be nil, in which case only the locally generated link is used.
func NewApproveBookingHandler(
	bookingRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	provider MeetingProvider,
	meetBaseURL string,
	timeout time.Duration,
	logger *slog.Logger,
) *ApproveBookingHandler {
	if timeout <= 0 {
		timeout = DefaultMeetingTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ApproveBookingHandler{
		bookingRepo: bookingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		provider:    provider,
		meetBaseURL: meetBaseURL,
		timeout:     timeout,
		logger:      logger,
	}
}

// Handle executes the ApproveBookingCommand. The remote calendar call is
// deliberately best-effort: its failure is logged and the approval proceeds
// with whatever link is available.
func (h *ApproveBookingHandler) Handle(ctx context.Context, cmd ApproveBookingCommand) (*ApproveBookingResult, error) {
	booking, err := h.bookingRepo.FindByID(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	if cmd.ActorID != booking.MentorID() {
		return nil, ErrNotAllowed
	}
	if booking.Status() != domain.StatusPending {
		return nil, domain.ErrNotPending
	}

	meetLink := h.generateLink(booking)

	var result *ApproveBookingResult

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		// Reload inside the transaction so a concurrent transition is
		// caught by the precondition check.
		current, err := h.bookingRepo.FindByID(txCtx, cmd.BookingID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrBookingNotFound
		}

		if err := current.Approve(meetLink); err != nil {
			return err
		}

		if err := h.bookingRepo.Save(txCtx, current); err != nil {
			return err
		}

		if err := saveEvents(txCtx, h.outboxRepo, current, cmd.ActorID); err != nil {
			return err
		}

		result = &ApproveBookingResult{Booking: current, MeetLink: current.MeetLink()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Only a committed approval gets a calendar event; a concurrent
	// transition caught inside the transaction leaves nothing to clean up.
	h.createMeetingEvent(ctx, result.Booking, result.MeetLink)

	return result, nil
}

func (h *ApproveBookingHandler) generateLink(booking *domain.Booking) *string {
	if booking.Format() != domain.FormatVideo {
		return nil
	}
	room := domain.NewMeetingRoomID(booking.StudentName(), time.Now())
	link := domain.MeetingLink(h.meetBaseURL, room)
	return &link
}

func (h *ApproveBookingHandler) createMeetingEvent(ctx context.Context, booking *domain.Booking, meetLink *string) {
	if h.provider == nil {
		return
	}

	summary := booking.Summary()
	if summary == "" {
		summary = "Mentorship Session"
	}
	description := booking.Description()
	if description == "" {
		description = "Session with " + booking.StudentName()
	}
	if meetLink != nil {
		description += "\n\nJoin meeting: " + *meetLink
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err := h.provider.CreateEvent(callCtx, MeetingEvent{
		Summary:     summary,
		Description: description,
		Start:       booking.TimeRange().Start,
		End:         booking.TimeRange().End,
	})
	if err != nil {
		h.logger.Warn("meeting event creation failed, approving without calendar event",
			"booking_id", booking.ID(),
			"error", err,
		)
	}
}
