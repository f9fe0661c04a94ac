package meeting

import (
	"context"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/commands"
)

// NoopProvider is the meeting provider for local mode. It creates nothing
// and reports success, leaving the locally generated link as the only one.
type NoopProvider struct{}

// NewNoopProvider creates a new NoopProvider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// CreateEvent does nothing.
func (p *NoopProvider) CreateEvent(ctx context.Context, event commands.MeetingEvent) (commands.MeetingEventRef, error) {
	return commands.MeetingEventRef{}, nil
}
