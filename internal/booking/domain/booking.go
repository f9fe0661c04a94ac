package domain

import (
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/mentorhub/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrMissingMentor    = errors.New("mentor id is required")
	ErrMissingStudent   = errors.New("student id is required")
	ErrInvalidFormat    = errors.New("format must be video or chat")
	ErrDurationMismatch = errors.New("duration does not match the booked time range")
	ErrNotPending       = errors.New("booking is not pending")
	ErrNotCancellable   = errors.New("booking cannot be cancelled")
	ErrSlotTaken        = errors.New("requested slot overlaps an existing booking")
	ErrBookingNotFound  = errors.New("booking not found")
)

// DefaultRejectionReason is stored when a mentor rejects without a reason.
const DefaultRejectionReason = "No reason provided"

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Blocks reports whether bookings in this status block the mentor's
// availability. Pending requests hold their slot until answered.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusApproved
}

// Format represents how a session is held.
type Format string

const (
	FormatVideo Format = "video"
	FormatChat  Format = "chat"
)

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f == FormatVideo || f == FormatChat
}

// Booking is the aggregate root for a mentorship session request. It is the
// record of truth for the session's time range and lifecycle state; bookings
// are never deleted, terminal states are retained as history.
type Booking struct {
	sharedDomain.BaseAggregateRoot
	mentorID        uuid.UUID
	studentID       uuid.UUID
	studentName     string
	timeRange       TimeRange
	durationHours   int
	format          Format
	status          Status
	summary         string
	description     string
	meetLink        *string
	rejectionReason *string
	respondedAt     *time.Time
}

// NewBooking creates a pending booking request. The stored duration is
// redundant display data and must equal the actual span of the time range.
func NewBooking(
	mentorID uuid.UUID,
	studentID uuid.UUID,
	studentName string,
	timeRange TimeRange,
	durationHours int,
	format Format,
	summary string,
	description string,
) (*Booking, error) {
	if mentorID == uuid.Nil {
		return nil, ErrMissingMentor
	}
	if studentID == uuid.Nil {
		return nil, ErrMissingStudent
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	if time.Duration(durationHours)*time.Hour != timeRange.Duration() {
		return nil, ErrDurationMismatch
	}

	b := &Booking{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		mentorID:          mentorID,
		studentID:         studentID,
		studentName:       studentName,
		timeRange:         timeRange,
		durationHours:     durationHours,
		format:            format,
		status:            StatusPending,
		summary:           summary,
		description:       description,
	}
	b.AddDomainEvent(NewBookingCreated(b))
	return b, nil
}

// Getters
func (b *Booking) MentorID() uuid.UUID      { return b.mentorID }
func (b *Booking) StudentID() uuid.UUID     { return b.studentID }
func (b *Booking) StudentName() string      { return b.studentName }
func (b *Booking) TimeRange() TimeRange     { return b.timeRange }
func (b *Booking) DurationHours() int       { return b.durationHours }
func (b *Booking) Format() Format           { return b.format }
func (b *Booking) Status() Status           { return b.status }
func (b *Booking) Summary() string          { return b.summary }
func (b *Booking) Description() string      { return b.description }
func (b *Booking) MeetLink() *string        { return b.meetLink }
func (b *Booking) RejectionReason() *string { return b.rejectionReason }
func (b *Booking) RespondedAt() *time.Time  { return b.respondedAt }

// IsBlocking reports whether this booking blocks the mentor's availability.
func (b *Booking) IsBlocking() bool {
	return b.status.Blocks()
}

// Approve transitions a pending booking to approved. The meeting link may be
// nil when the external provider and the local generator both produced
// nothing; its absence is not an error state.
func (b *Booking) Approve(meetLink *string) error {
	if b.status != StatusPending {
		return fmt.Errorf("%w: booking is %s", ErrNotPending, b.status)
	}

	now := time.Now().UTC()
	b.status = StatusApproved
	b.meetLink = meetLink
	b.respondedAt = &now
	b.Touch()
	b.AddDomainEvent(NewBookingApproved(b))
	return nil
}

// Reject transitions a pending booking to rejected. An empty reason is
// replaced by the default reason string.
func (b *Booking) Reject(reason string) error {
	if b.status != StatusPending {
		return fmt.Errorf("%w: booking is %s", ErrNotPending, b.status)
	}
	if reason == "" {
		reason = DefaultRejectionReason
	}

	now := time.Now().UTC()
	b.status = StatusRejected
	b.rejectionReason = &reason
	b.respondedAt = &now
	b.Touch()
	b.AddDomainEvent(NewBookingRejected(b))
	return nil
}

// Cancel transitions a pending or approved booking to cancelled. The
// cancelling party is recorded on the event so the other side is notified.
func (b *Booking) Cancel(cancelledBy uuid.UUID) error {
	if b.status != StatusPending && b.status != StatusApproved {
		return fmt.Errorf("%w: booking is %s", ErrNotCancellable, b.status)
	}

	now := time.Now().UTC()
	b.status = StatusCancelled
	b.respondedAt = &now
	b.Touch()
	b.AddDomainEvent(NewBookingCancelled(b, cancelledBy))
	return nil
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	id uuid.UUID,
	mentorID uuid.UUID,
	studentID uuid.UUID,
	studentName string,
	timeRange TimeRange,
	durationHours int,
	format Format,
	status Status,
	summary string,
	description string,
	meetLink *string,
	rejectionReason *string,
	respondedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		mentorID:        mentorID,
		studentID:       studentID,
		studentName:     studentName,
		timeRange:       timeRange,
		durationHours:   durationHours,
		format:          format,
		status:          status,
		summary:         summary,
		description:     description,
		meetLink:        meetLink,
		rejectionReason: rejectionReason,
		respondedAt:     respondedAt,
	}
}
