package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReadModelStore records upserted snapshots.
type mockReadModelStore struct {
	snapshots []domain.Snapshot
	err       error
}

func (m *mockReadModelStore) Upsert(ctx context.Context, snapshot domain.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func testSnapshot() domain.Snapshot {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		BookingID:     uuid.New(),
		MentorID:      uuid.New(),
		StudentID:     uuid.New(),
		StudentName:   "Ada Lovelace",
		StartTime:     now,
		EndTime:       now.Add(2 * time.Hour),
		DurationHours: 2,
		Format:        "video",
		Status:        "pending",
		CreatedAt:     now.Add(-time.Hour),
		UpdatedAt:     now.Add(-time.Hour),
	}
}

func consumedEvent(t *testing.T, routingKey string, payload interface{}) *eventbus.ConsumedEvent {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return &eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "Booking",
		RoutingKey:    routingKey,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
	}
}

func TestProjectionSubscriber_EventTypes(t *testing.T) {
	subscriber := NewProjectionSubscriber(&mockReadModelStore{}, nil)
	assert.ElementsMatch(t, []string{
		"booking.created",
		"booking.approved",
		"booking.rejected",
		"booking.cancelled",
	}, subscriber.EventTypes())
}

func TestProjectionSubscriber_Handle(t *testing.T) {
	t.Run("projects booking snapshot", func(t *testing.T) {
		store := &mockReadModelStore{}
		subscriber := NewProjectionSubscriber(store, nil)

		snapshot := testSnapshot()
		event := consumedEvent(t, "booking.created", map[string]interface{}{"booking": snapshot})

		err := subscriber.Handle(context.Background(), event)

		require.NoError(t, err)
		require.Len(t, store.snapshots, 1)
		assert.Equal(t, snapshot.BookingID, store.snapshots[0].BookingID)
		assert.Equal(t, "pending", store.snapshots[0].Status)
	})

	t.Run("drops unparseable payload without error", func(t *testing.T) {
		store := &mockReadModelStore{}
		subscriber := NewProjectionSubscriber(store, nil)

		event := consumedEvent(t, "booking.created", nil)
		event.Payload = []byte("{not json")

		err := subscriber.Handle(context.Background(), event)

		require.NoError(t, err)
		assert.Empty(t, store.snapshots)
	})

	t.Run("drops payload without booking id", func(t *testing.T) {
		store := &mockReadModelStore{}
		subscriber := NewProjectionSubscriber(store, nil)

		event := consumedEvent(t, "booking.approved", map[string]interface{}{"booking": map[string]string{}})

		err := subscriber.Handle(context.Background(), event)

		require.NoError(t, err)
		assert.Empty(t, store.snapshots)
	})

	t.Run("returns store errors for redelivery", func(t *testing.T) {
		store := &mockReadModelStore{err: errors.New("redis down")}
		subscriber := NewProjectionSubscriber(store, nil)

		event := consumedEvent(t, "booking.created", map[string]interface{}{"booking": testSnapshot()})

		err := subscriber.Handle(context.Background(), event)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}
