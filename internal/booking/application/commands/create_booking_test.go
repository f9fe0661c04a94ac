package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockBookingRepo is a mock implementation of domain.Repository.
type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Save(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) FindByMentor(ctx context.Context, mentorID uuid.UUID, status *domain.Status) ([]*domain.Booking, error) {
	args := m.Called(ctx, mentorID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) FindBlocking(ctx context.Context, mentorID *uuid.UUID, window domain.TimeRange) ([]*domain.Booking, error) {
	args := m.Called(ctx, mentorID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) LockMentor(ctx context.Context, mentorID uuid.UUID) error {
	args := m.Called(ctx, mentorID)
	return args.Error(0)
}

// mockOutboxRepo is a mock implementation of outbox.Repository.
type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, err, nextRetryAt)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// mockMeetingProvider is a mock implementation of MeetingProvider.
type mockMeetingProvider struct {
	mock.Mock
}

func (m *mockMeetingProvider) CreateEvent(ctx context.Context, event MeetingEvent) (MeetingEventRef, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(MeetingEventRef), args.Error(1)
}

func createPendingBooking(t *testing.T, mentorID, studentID uuid.UUID, start time.Time, hours int) *domain.Booking {
	t.Helper()
	tr, err := domain.NewTimeRange(start, start.Add(time.Duration(hours)*time.Hour))
	require.NoError(t, err)
	now := time.Now().UTC()
	return domain.RehydrateBooking(
		uuid.New(), mentorID, studentID, "Ada Lovelace",
		tr, hours, domain.FormatVideo, domain.StatusPending,
		"Career chat", "", nil, nil, nil,
		now, now,
	)
}

func TestCreateBookingHandler_Handle(t *testing.T) {
	mentorID := uuid.New()
	studentID := uuid.New()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	baseCommand := func() CreateBookingCommand {
		return CreateBookingCommand{
			ActorID:       studentID,
			MentorID:      mentorID,
			StudentID:     studentID,
			StudentName:   "Ada Lovelace",
			StartTime:     start,
			DurationHours: 2,
			Format:        "video",
			Summary:       "Career chat",
		}
	}

	t.Run("creates booking when slot is free", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("LockMentor", txCtx, mentorID).Return(nil)
		repo.On("FindBlocking", txCtx, &mentorID, mock.AnythingOfType("domain.TimeRange")).Return([]*domain.Booking{}, nil)
		repo.On("Save", txCtx, mock.AnythingOfType("*domain.Booking")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		booking, err := handler.Handle(ctx, baseCommand())

		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, domain.StatusPending, booking.Status())
		assert.Equal(t, start, booking.TimeRange().Start)
		assert.Equal(t, start.Add(2*time.Hour), booking.TimeRange().End)
		assert.Empty(t, booking.DomainEvents())

		repo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("derives duration from explicit end time", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("LockMentor", txCtx, mentorID).Return(nil)
		repo.On("FindBlocking", txCtx, &mentorID, mock.AnythingOfType("domain.TimeRange")).Return([]*domain.Booking{}, nil)
		repo.On("Save", txCtx, mock.AnythingOfType("*domain.Booking")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		cmd := baseCommand()
		cmd.DurationHours = 0
		cmd.EndTime = start.Add(3 * time.Hour)

		booking, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, 3, booking.DurationHours())
	})

	t.Run("returns ErrSlotTaken on overlap", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		existing := createPendingBooking(t, mentorID, uuid.New(), start.Add(time.Hour), 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("LockMentor", txCtx, mentorID).Return(nil)
		repo.On("FindBlocking", txCtx, &mentorID, mock.AnythingOfType("domain.TimeRange")).Return([]*domain.Booking{existing}, nil)

		booking, err := handler.Handle(ctx, baseCommand())

		assert.ErrorIs(t, err, domain.ErrSlotTaken)
		assert.Nil(t, booking)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		uow.AssertExpectations(t)
	})

	t.Run("allows booking that touches an existing one", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		// Existing booking ends exactly when the new one starts.
		existing := createPendingBooking(t, mentorID, uuid.New(), start.Add(-2*time.Hour), 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("LockMentor", txCtx, mentorID).Return(nil)
		repo.On("FindBlocking", txCtx, &mentorID, mock.AnythingOfType("domain.TimeRange")).Return([]*domain.Booking{existing}, nil)
		repo.On("Save", txCtx, mock.AnythingOfType("*domain.Booking")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		booking, err := handler.Handle(ctx, baseCommand())

		require.NoError(t, err)
		require.NotNil(t, booking)
	})

	t.Run("refuses actor other than the student", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		cmd := baseCommand()
		cmd.ActorID = uuid.New()

		booking, err := handler.Handle(context.Background(), cmd)

		assert.ErrorIs(t, err, ErrNotAllowed)
		assert.Nil(t, booking)
		uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("requires a start time", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		cmd := baseCommand()
		cmd.StartTime = time.Time{}

		_, err := handler.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, ErrMissingStart)
	})

	t.Run("rejects duration contradicting explicit end time", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		cmd := baseCommand()
		cmd.EndTime = start.Add(3 * time.Hour)
		cmd.DurationHours = 2

		_, err := handler.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, domain.ErrDurationMismatch)
	})

	t.Run("rejects fractional span", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		cmd := baseCommand()
		cmd.DurationHours = 0
		cmd.EndTime = start.Add(90 * time.Minute)

		_, err := handler.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, domain.ErrDurationMismatch)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(mockBookingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateBookingHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		repoErr := errors.New("connection lost")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("LockMentor", txCtx, mentorID).Return(repoErr)

		_, err := handler.Handle(ctx, baseCommand())
		assert.ErrorIs(t, err, repoErr)
		uow.AssertExpectations(t)
	})
}
