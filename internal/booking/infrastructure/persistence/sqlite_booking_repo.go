package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	sharedPersistence "github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// sqliteQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteBookingRepository implements domain.Repository using SQLite. Times
// are stored as fixed-width RFC 3339 strings in UTC so lexical comparison
// matches chronological order.
type SQLiteBookingRepository struct {
	dbConn *sql.DB
}

// NewSQLiteBookingRepository creates a new SQLite booking repository.
func NewSQLiteBookingRepository(dbConn *sql.DB) *SQLiteBookingRepository {
	return &SQLiteBookingRepository{dbConn: dbConn}
}

func (r *SQLiteBookingRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists a booking to the database.
func (r *SQLiteBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, mentor_id, student_id, student_name, start_time, end_time,
			duration_hours, format, status, summary, description, meet_link,
			rejection_reason, responded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			meet_link = excluded.meet_link,
			rejection_reason = excluded.rejection_reason,
			responded_at = excluded.responded_at,
			updated_at = excluded.updated_at
	`

	_, err := r.querier(ctx).ExecContext(ctx, query,
		booking.ID().String(),
		booking.MentorID().String(),
		booking.StudentID().String(),
		booking.StudentName(),
		formatTime(booking.TimeRange().Start),
		formatTime(booking.TimeRange().End),
		booking.DurationHours(),
		string(booking.Format()),
		string(booking.Status()),
		booking.Summary(),
		booking.Description(),
		nullString(booking.MeetLink()),
		nullString(booking.RejectionReason()),
		nullTime(booking.RespondedAt()),
		formatTime(booking.CreatedAt()),
		formatTime(booking.UpdatedAt()),
	)
	return err
}

// FindByID retrieves a booking by its ID.
func (r *SQLiteBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	booking, err := scanSQLiteBooking(r.querier(ctx).QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return booking, nil
}

// FindByMentor retrieves all bookings for a mentor, optionally filtered by
// status.
func (r *SQLiteBookingRepository) FindByMentor(ctx context.Context, mentorID uuid.UUID, status *domain.Status) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE mentor_id = ?`
	args := []any{mentorID.String()}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSQLiteBookings(rows)
}

// FindByStudent retrieves all bookings made by a student.
func (r *SQLiteBookingRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = ? ORDER BY created_at DESC`

	rows, err := r.querier(ctx).QueryContext(ctx, query, studentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSQLiteBookings(rows)
}

// FindBlocking retrieves calendar-blocking bookings that overlap the window.
func (r *SQLiteBookingRepository) FindBlocking(ctx context.Context, mentorID *uuid.UUID, window domain.TimeRange) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status IN ('pending', 'approved')
		  AND start_time < ? AND end_time > ?`
	args := []any{formatTime(window.End), formatTime(window.Start)}
	if mentorID != nil {
		query += ` AND mentor_id = ?`
		args = append(args, mentorID.String())
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSQLiteBookings(rows)
}

// LockMentor is a no-op: SQLite serializes writers already, and the
// admission check runs inside one transaction.
func (r *SQLiteBookingRepository) LockMentor(ctx context.Context, mentorID uuid.UUID) error {
	return nil
}

type sqliteRowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBooking(row sqliteRowScanner) (*domain.Booking, error) {
	var (
		id, mentorID, studentID              string
		studentName, format, status          string
		summary, description                 string
		startTime, endTime                   string
		createdAt, updatedAt                 string
		durationHours                        int
		meetLink, rejectionReason, responded sql.NullString
	)

	if err := row.Scan(
		&id, &mentorID, &studentID, &studentName, &startTime, &endTime,
		&durationHours, &format, &status, &summary, &description,
		&meetLink, &rejectionReason, &responded, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	timeRange, err := domain.NewTimeRange(parseTime(startTime), parseTime(endTime))
	if err != nil {
		return nil, err
	}

	var respondedAt *time.Time
	if responded.Valid {
		t := parseTime(responded.String)
		respondedAt = &t
	}

	return domain.RehydrateBooking(
		uuid.MustParse(id),
		uuid.MustParse(mentorID),
		uuid.MustParse(studentID),
		studentName,
		timeRange,
		durationHours,
		domain.Format(format),
		domain.Status(status),
		summary,
		description,
		stringPtr(meetLink),
		stringPtr(rejectionReason),
		respondedAt,
		parseTime(createdAt),
		parseTime(updatedAt),
	), nil
}

func scanSQLiteBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		booking, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

// sqliteTimeLayout keeps every digit so string comparison in SQL orders and
// filters the same way time.Time does. RFC3339Nano trims trailing zeros,
// which breaks that when whole-second and fractional values mix.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
