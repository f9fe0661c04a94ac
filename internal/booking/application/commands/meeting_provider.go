package commands

import (
	"context"
	"time"
)

// MeetingEvent describes a remote calendar event for an approved session.
type MeetingEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// MeetingEventRef identifies a created remote meeting event.
type MeetingEventRef struct {
	ID   string
	Link string
}

// MeetingProvider creates a remote meeting event for an approved booking.
// Providers are best-effort collaborators: approval must not fail when a
// provider does.
type MeetingProvider interface {
	CreateEvent(ctx context.Context, event MeetingEvent) (MeetingEventRef, error)
}
