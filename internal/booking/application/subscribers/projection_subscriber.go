package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ReadModelStore is the port the projection writes through. The system of
// record stays authoritative; the store only mirrors booking snapshots for
// fast reads.
type ReadModelStore interface {
	// Upsert stores a snapshot, refusing writes older than what is
	// already stored.
	Upsert(ctx context.Context, snapshot domain.Snapshot) error
}

// ProjectionSubscriber keeps the booking read model in sync with the
// lifecycle events coming off the bus.
type ProjectionSubscriber struct {
	store  ReadModelStore
	logger *slog.Logger
}

// NewProjectionSubscriber creates a new ProjectionSubscriber.
func NewProjectionSubscriber(store ReadModelStore, logger *slog.Logger) *ProjectionSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectionSubscriber{store: store, logger: logger}
}

// EventTypes returns the event types this subscriber handles.
func (s *ProjectionSubscriber) EventTypes() []string {
	return []string{
		domain.RoutingKeyBookingCreated,
		domain.RoutingKeyBookingApproved,
		domain.RoutingKeyBookingRejected,
		domain.RoutingKeyBookingCancelled,
	}
}

// Handle processes an event.
func (s *ProjectionSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	snapshot, err := decodeSnapshot(event)
	if err != nil {
		// A malformed payload will never become parseable; drop it
		// rather than poison the queue.
		s.logger.Error("dropping unparseable booking event",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}

	if err := s.store.Upsert(ctx, snapshot); err != nil {
		return fmt.Errorf("projecting %s for booking %s: %w", event.RoutingKey, snapshot.BookingID, err)
	}

	s.logger.Debug("booking projected",
		"routing_key", event.RoutingKey,
		"booking_id", snapshot.BookingID,
		"status", snapshot.Status,
	)
	return nil
}

// bookingEventPayload is the wire shape shared by all booking lifecycle
// events.
type bookingEventPayload struct {
	Booking domain.Snapshot `json:"booking"`
}

func decodeSnapshot(event *eventbus.ConsumedEvent) (domain.Snapshot, error) {
	var payload bookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshaling booking payload: %w", err)
	}
	if payload.Booking.BookingID == uuid.Nil {
		return domain.Snapshot{}, fmt.Errorf("booking payload missing booking_id")
	}
	return payload.Booking, nil
}
