package persistence

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedPersistence "github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBookingRepository implements domain.Repository using PostgreSQL.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

type bookingRow struct {
	ID              uuid.UUID
	MentorID        uuid.UUID
	StudentID       uuid.UUID
	StudentName     string
	StartTime       time.Time
	EndTime         time.Time
	DurationHours   int
	Format          string
	Status          string
	Summary         string
	Description     string
	MeetLink        *string
	RejectionReason *string
	RespondedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const bookingColumns = `id, mentor_id, student_id, student_name, start_time, end_time,
	       duration_hours, format, status, summary, description, meet_link,
	       rejection_reason, responded_at, created_at, updated_at`

// Save persists a booking to the database.
func (r *PostgresBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return r.saveWithTx(ctx, info.Tx, booking)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.saveWithTx(ctx, tx, booking); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresBookingRepository) saveWithTx(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, mentor_id, student_id, student_name, start_time, end_time,
			duration_hours, format, status, summary, description, meet_link,
			rejection_reason, responded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			meet_link = EXCLUDED.meet_link,
			rejection_reason = EXCLUDED.rejection_reason,
			responded_at = EXCLUDED.responded_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := tx.Exec(ctx, query,
		booking.ID(),
		booking.MentorID(),
		booking.StudentID(),
		booking.StudentName(),
		booking.TimeRange().Start,
		booking.TimeRange().End,
		booking.DurationHours(),
		string(booking.Format()),
		string(booking.Status()),
		booking.Summary(),
		booking.Description(),
		booking.MeetLink(),
		booking.RejectionReason(),
		booking.RespondedAt(),
		booking.CreatedAt(),
		booking.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a booking by its ID.
func (r *PostgresBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	row, err := r.scanOne(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rowToBooking(row), nil
}

// FindByMentor retrieves all bookings for a mentor, optionally filtered by
// status.
func (r *PostgresBookingRepository) FindByMentor(ctx context.Context, mentorID uuid.UUID, status *domain.Status) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE mentor_id = $1`
	args := []any{mentorID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// FindByStudent retrieves all bookings made by a student.
func (r *PostgresBookingRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// FindBlocking retrieves bookings in calendar-blocking states that overlap
// the window. Overlap is half open, so a booking ending exactly at the
// window start does not match.
func (r *PostgresBookingRepository) FindBlocking(ctx context.Context, mentorID *uuid.UUID, window domain.TimeRange) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status IN ('pending', 'approved')
		  AND start_time < $1 AND end_time > $2`
	args := []any{window.End, window.Start}
	if mentorID != nil {
		query += ` AND mentor_id = $3`
		args = append(args, *mentorID)
	}
	query += ` ORDER BY start_time ASC`

	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// LockMentor takes a transaction-scoped advisory lock on the mentor so
// concurrent admission checks for the same calendar are serialized. It must
// run inside a unit of work.
func (r *PostgresBookingRepository) LockMentor(ctx context.Context, mentorID uuid.UUID) error {
	info, ok := sharedPersistence.TxInfoFromContext(ctx)
	if !ok {
		return errors.New("mentor lock requires an active transaction")
	}

	_, err := info.Tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, mentorLockKey(mentorID))
	return err
}

// mentorLockKey folds a mentor ID into the 64-bit keyspace pg advisory
// locks use.
func mentorLockKey(mentorID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(mentorID[:])
	return int64(h.Sum64())
}

func (r *PostgresBookingRepository) scanOne(row pgx.Row) (bookingRow, error) {
	var b bookingRow
	err := row.Scan(
		&b.ID,
		&b.MentorID,
		&b.StudentID,
		&b.StudentName,
		&b.StartTime,
		&b.EndTime,
		&b.DurationHours,
		&b.Format,
		&b.Status,
		&b.Summary,
		&b.Description,
		&b.MeetLink,
		&b.RejectionReason,
		&b.RespondedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (r *PostgresBookingRepository) scanBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		b, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, rowToBooking(b))
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return bookings, nil
}

func rowToBooking(row bookingRow) *domain.Booking {
	timeRange, _ := domain.NewTimeRange(row.StartTime, row.EndTime)
	return domain.RehydrateBooking(
		row.ID,
		row.MentorID,
		row.StudentID,
		row.StudentName,
		timeRange,
		row.DurationHours,
		domain.Format(row.Format),
		domain.Status(row.Status),
		row.Summary,
		row.Description,
		row.MeetLink,
		row.RejectionReason,
		row.RespondedAt,
		row.CreatedAt,
		row.UpdatedAt,
	)
}
