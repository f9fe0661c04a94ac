package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/mentorhub/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType = "Booking"

	RoutingKeyBookingCreated   = "booking.created"
	RoutingKeyBookingApproved  = "booking.approved"
	RoutingKeyBookingRejected  = "booking.rejected"
	RoutingKeyBookingCancelled = "booking.cancelled"
)

// Snapshot is the full denormalized state of a booking carried on every
// lifecycle event, so read-model subscribers never have to read back from
// the system of record.
type Snapshot struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	MentorID        uuid.UUID  `json:"mentor_id"`
	StudentID       uuid.UUID  `json:"student_id"`
	StudentName     string     `json:"student_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationHours   int        `json:"duration_hours"`
	Format          string     `json:"format"`
	Status          string     `json:"status"`
	Summary         string     `json:"summary,omitempty"`
	Description     string     `json:"description,omitempty"`
	MeetLink        *string    `json:"meet_link,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SnapshotOf captures the current state of a booking.
func SnapshotOf(b *Booking) Snapshot {
	return Snapshot{
		BookingID:       b.ID(),
		MentorID:        b.MentorID(),
		StudentID:       b.StudentID(),
		StudentName:     b.StudentName(),
		StartTime:       b.TimeRange().Start,
		EndTime:         b.TimeRange().End,
		DurationHours:   b.DurationHours(),
		Format:          string(b.Format()),
		Status:          string(b.Status()),
		Summary:         b.Summary(),
		Description:     b.Description(),
		MeetLink:        b.MeetLink(),
		RejectionReason: b.RejectionReason(),
		RespondedAt:     b.RespondedAt(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
}

// BookingCreated is emitted when a student submits a booking request.
type BookingCreated struct {
	sharedDomain.BaseEvent
	Booking Snapshot `json:"booking"`
}

// NewBookingCreated creates a BookingCreated event.
func NewBookingCreated(b *Booking) *BookingCreated {
	return &BookingCreated{
		BaseEvent: sharedDomain.NewBaseEvent(b.ID(), AggregateType, RoutingKeyBookingCreated),
		Booking:   SnapshotOf(b),
	}
}

// BookingApproved is emitted when a mentor approves a pending booking.
type BookingApproved struct {
	sharedDomain.BaseEvent
	Booking Snapshot `json:"booking"`
}

// NewBookingApproved creates a BookingApproved event.
func NewBookingApproved(b *Booking) *BookingApproved {
	return &BookingApproved{
		BaseEvent: sharedDomain.NewBaseEvent(b.ID(), AggregateType, RoutingKeyBookingApproved),
		Booking:   SnapshotOf(b),
	}
}

// BookingRejected is emitted when a mentor rejects a pending booking.
type BookingRejected struct {
	sharedDomain.BaseEvent
	Booking Snapshot `json:"booking"`
}

// NewBookingRejected creates a BookingRejected event.
func NewBookingRejected(b *Booking) *BookingRejected {
	return &BookingRejected{
		BaseEvent: sharedDomain.NewBaseEvent(b.ID(), AggregateType, RoutingKeyBookingRejected),
		Booking:   SnapshotOf(b),
	}
}

// BookingCancelled is emitted when either party cancels a booking.
type BookingCancelled struct {
	sharedDomain.BaseEvent
	Booking     Snapshot  `json:"booking"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

// NewBookingCancelled creates a BookingCancelled event.
func NewBookingCancelled(b *Booking, cancelledBy uuid.UUID) *BookingCancelled {
	return &BookingCancelled{
		BaseEvent:   sharedDomain.NewBaseEvent(b.ID(), AggregateType, RoutingKeyBookingCancelled),
		Booking:     SnapshotOf(b),
		CancelledBy: cancelledBy,
	}
}
