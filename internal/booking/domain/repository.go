package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for booking persistence. The relational
// store behind it is the system of record for booking state.
type Repository interface {
	// Save persists a booking (create or update).
	Save(ctx context.Context, booking *Booking) error

	// FindByID finds a booking by its ID. Returns nil, nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByMentor returns a mentor's bookings, newest first. A non-nil
	// status restricts the result to that status.
	FindByMentor(ctx context.Context, mentorID uuid.UUID, status *Status) ([]*Booking, error)

	// FindByStudent returns a student's bookings, newest first.
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*Booking, error)

	// FindBlocking returns bookings whose time range overlaps the window and
	// whose status blocks scheduling (not cancelled, not rejected). A nil
	// mentorID spans all mentors.
	FindBlocking(ctx context.Context, mentorID *uuid.UUID, window TimeRange) ([]*Booking, error)

	// LockMentor serializes admission checks for one mentor's bookings.
	// Valid only inside a unit of work; the lock is released on commit or
	// rollback.
	LockMentor(ctx context.Context, mentorID uuid.UUID) error
}
