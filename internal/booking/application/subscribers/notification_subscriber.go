package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// Notification is a user-facing message about a booking transition.
type Notification struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NotificationSink delivers notifications to whoever is listening. Delivery
// is fire and forget; the sink decides transport and retention.
type NotificationSink interface {
	Notify(ctx context.Context, notification Notification) error
}

// NotificationSubscriber turns booking lifecycle events into notifications
// for the party that did not trigger the transition.
type NotificationSubscriber struct {
	sink   NotificationSink
	logger *slog.Logger
}

// NewNotificationSubscriber creates a new NotificationSubscriber.
func NewNotificationSubscriber(sink NotificationSink, logger *slog.Logger) *NotificationSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationSubscriber{sink: sink, logger: logger}
}

// EventTypes returns the event types this subscriber handles.
func (s *NotificationSubscriber) EventTypes() []string {
	return []string{
		domain.RoutingKeyBookingCreated,
		domain.RoutingKeyBookingApproved,
		domain.RoutingKeyBookingRejected,
		domain.RoutingKeyBookingCancelled,
	}
}

// Handle processes an event.
func (s *NotificationSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload struct {
		Booking     domain.Snapshot `json:"booking"`
		CancelledBy uuid.UUID       `json:"cancelled_by"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Error("dropping unparseable booking event",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}

	notification, ok := s.build(event.RoutingKey, payload.Booking, payload.CancelledBy, event.OccurredAt)
	if !ok {
		return nil
	}

	if err := s.sink.Notify(ctx, notification); err != nil {
		return fmt.Errorf("delivering %s notification for booking %s: %w",
			event.RoutingKey, payload.Booking.BookingID, err)
	}
	return nil
}

func (s *NotificationSubscriber) build(routingKey string, b domain.Snapshot, cancelledBy uuid.UUID, occurredAt time.Time) (Notification, bool) {
	n := Notification{
		BookingID:  b.BookingID,
		Kind:       routingKey,
		OccurredAt: occurredAt,
	}

	slot := b.StartTime.Format("Mon, 02 Jan 2006 15:04 MST")

	switch routingKey {
	case domain.RoutingKeyBookingCreated:
		n.RecipientID = b.MentorID
		n.SenderID = b.StudentID
		n.Title = "New session request"
		n.Message = fmt.Sprintf("%s requested a session on %s", b.StudentName, slot)
	case domain.RoutingKeyBookingApproved:
		n.RecipientID = b.StudentID
		n.SenderID = b.MentorID
		n.Title = "Session approved"
		n.Message = fmt.Sprintf("Your session on %s was approved", slot)
	case domain.RoutingKeyBookingRejected:
		n.RecipientID = b.StudentID
		n.SenderID = b.MentorID
		n.Title = "Session declined"
		reason := domain.DefaultRejectionReason
		if b.RejectionReason != nil && *b.RejectionReason != "" {
			reason = *b.RejectionReason
		}
		n.Message = fmt.Sprintf("Your session on %s was declined: %s", slot, reason)
	case domain.RoutingKeyBookingCancelled:
		// Notify the party that did not cancel.
		if cancelledBy == b.MentorID {
			n.RecipientID = b.StudentID
		} else {
			n.RecipientID = b.MentorID
		}
		n.SenderID = cancelledBy
		n.Title = "Session cancelled"
		n.Message = fmt.Sprintf("The session on %s was cancelled", slot)
	default:
		return Notification{}, false
	}

	return n, true
}
