package readmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/subscribers"
	"github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// NotificationRetention caps how many notifications are kept per
	// recipient.
	NotificationRetention = 100

	bookingKeyPrefix      = "mentorhub:booking:"
	mentorChannelPrefix   = "mentorhub:bookings:mentor:"
	studentChannelPrefix  = "mentorhub:bookings:student:"
	notificationKeyPrefix = "mentorhub:notifications:"
)

// MentorChannel returns the pub/sub channel carrying live booking updates
// for a mentor. The same name keys the mentor's booking index set.
func MentorChannel(mentorID uuid.UUID) string {
	return mentorChannelPrefix + mentorID.String()
}

// StudentChannel returns the pub/sub channel carrying live booking updates
// for a student.
func StudentChannel(studentID uuid.UUID) string {
	return studentChannelPrefix + studentID.String()
}

// NotificationChannel returns the pub/sub channel for a recipient's
// notifications. The same name keys the recipient's notification list.
func NotificationChannel(recipientID uuid.UUID) string {
	return notificationKeyPrefix + recipientID.String()
}

// RedisStore mirrors booking snapshots into Redis for fast reads and live
// push. The relational record stays the system of record; writes carrying
// an older updated_at than what is stored are dropped.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed read model store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func bookingKey(id uuid.UUID) string {
	return bookingKeyPrefix + id.String()
}

// Upsert stores a snapshot and pushes it to the booking's mentor and
// student channels.
func (s *RedisStore) Upsert(ctx context.Context, snapshot domain.Snapshot) error {
	key := bookingKey(snapshot.BookingID)

	stored, err := s.client.HGet(ctx, key, "updated_at").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("reading stored booking %s: %w", snapshot.BookingID, err)
	}
	if err == nil {
		storedAt, parseErr := time.Parse(time.RFC3339Nano, stored)
		if parseErr == nil && storedAt.After(snapshot.UpdatedAt) {
			// A newer projection already landed.
			return nil
		}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling booking %s: %w", snapshot.BookingID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"data":       string(data),
		"status":     snapshot.Status,
		"updated_at": snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, MentorChannel(snapshot.MentorID), snapshot.BookingID.String())
	pipe.SAdd(ctx, StudentChannel(snapshot.StudentID), snapshot.BookingID.String())
	pipe.Publish(ctx, MentorChannel(snapshot.MentorID), string(data))
	pipe.Publish(ctx, StudentChannel(snapshot.StudentID), string(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing booking %s: %w", snapshot.BookingID, err)
	}

	return nil
}

// Get retrieves a single booking snapshot, redis.Nil-free: absence is
// (nil, nil).
func (s *RedisStore) Get(ctx context.Context, bookingID uuid.UUID) (*domain.Snapshot, error) {
	data, err := s.client.HGet(ctx, bookingKey(bookingID), "data").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling booking %s: %w", bookingID, err)
	}
	return &snapshot, nil
}

// ListByMentor retrieves all snapshots indexed under a mentor.
func (s *RedisStore) ListByMentor(ctx context.Context, mentorID uuid.UUID) ([]domain.Snapshot, error) {
	return s.listIndexed(ctx, MentorChannel(mentorID))
}

// ListByStudent retrieves all snapshots indexed under a student.
func (s *RedisStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Snapshot, error) {
	return s.listIndexed(ctx, StudentChannel(studentID))
}

func (s *RedisStore) listIndexed(ctx context.Context, indexKey string) ([]domain.Snapshot, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.Snapshot, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		snapshot, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			snapshots = append(snapshots, *snapshot)
		}
	}
	return snapshots, nil
}

// Notify appends the notification to the recipient's list and pushes it on
// their channel.
func (s *RedisStore) Notify(ctx context.Context, notification subscribers.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	key := NotificationChannel(notification.RecipientID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, 0, NotificationRetention-1)
	pipe.Publish(ctx, key, string(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delivering notification to %s: %w", notification.RecipientID, err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription on a channel and returns the
// message stream. The caller closes the subscription via the returned
// function.
func (s *RedisStore) Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error) {
	sub := s.client.Subscribe(ctx, channel)
	return sub.Channel(), sub.Close
}
