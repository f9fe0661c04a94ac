package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/commands"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// GoogleConfig configures the Google Calendar provider.
type GoogleConfig struct {
	CalendarID   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	BaseURL      string
}

// GoogleProvider creates calendar events through the Google Calendar v3 API.
// Calls run through a circuit breaker so a flapping calendar backend is cut
// off instead of slowing every approval.
type GoogleProvider struct {
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[commands.MeetingEventRef]
	baseURL    string
	calendarID string
	logger     *slog.Logger
}

// NewGoogleProvider creates a Google Calendar meeting provider using a
// refresh-token oauth2 token source.
func NewGoogleProvider(cfg GoogleConfig, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	source := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	client := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &oauthTransport{
			base:   http.DefaultTransport,
			source: source,
		},
	}

	return newGoogleProvider(cfg, client, logger)
}

// NewGoogleProviderWithClient creates a provider over a caller-supplied HTTP
// client. Used in tests against a stub server.
func NewGoogleProviderWithClient(cfg GoogleConfig, client *http.Client, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return newGoogleProvider(cfg, client, logger)
}

func newGoogleProvider(cfg GoogleConfig, client *http.Client, logger *slog.Logger) *GoogleProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	settings := gobreaker.Settings{
		Name:    "google-calendar",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &GoogleProvider{
		client:     client,
		breaker:    gobreaker.NewCircuitBreaker[commands.MeetingEventRef](settings),
		baseURL:    baseURL,
		calendarID: calendarID,
		logger:     logger,
	}
}

type googleEvent struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
}

type googleEventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent creates a calendar event for the session.
func (p *GoogleProvider) CreateEvent(ctx context.Context, event commands.MeetingEvent) (commands.MeetingEventRef, error) {
	return p.breaker.Execute(func() (commands.MeetingEventRef, error) {
		return p.createEvent(ctx, event)
	})
}

func (p *GoogleProvider) createEvent(ctx context.Context, event commands.MeetingEvent) (commands.MeetingEventRef, error) {
	payload := googleEvent{
		Summary:     event.Summary,
		Description: event.Description,
	}
	payload.Start.DateTime = event.Start.UTC().Format(time.RFC3339)
	payload.End.DateTime = event.End.UTC().Format(time.RFC3339)

	body, err := json.Marshal(payload)
	if err != nil {
		return commands.MeetingEventRef{}, err
	}

	url := fmt.Sprintf("%s/calendars/%s/events", p.baseURL, p.calendarID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return commands.MeetingEventRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return commands.MeetingEventRef{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return commands.MeetingEventRef{}, fmt.Errorf("google calendar returned %d: %s", resp.StatusCode, data)
	}

	var created googleEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return commands.MeetingEventRef{}, fmt.Errorf("decoding calendar response: %w", err)
	}

	return commands.MeetingEventRef{ID: created.ID, Link: created.HTMLLink}, nil
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.base.RoundTrip(req)
}
