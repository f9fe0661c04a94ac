package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/commands"
	"github.com/sony/gobreaker/v2"
)

func TestGoogleProvider_CreateEvent(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "evt-123",
			"htmlLink": "https://calendar.google.com/event?eid=abc",
		})
	}))
	defer server.Close()

	provider := NewGoogleProviderWithClient(GoogleConfig{BaseURL: server.URL}, server.Client(), nil)

	start := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	ref, err := provider.CreateEvent(context.Background(), commands.MeetingEvent{
		Summary:     "Mentorship Session",
		Description: "Session with Ada",
		Start:       start,
		End:         start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	if ref.ID != "evt-123" {
		t.Fatalf("unexpected event id: %s", ref.ID)
	}
	if ref.Link != "https://calendar.google.com/event?eid=abc" {
		t.Fatalf("unexpected event link: %s", ref.Link)
	}
	if gotPath != "/calendars/primary/events" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotPayload["summary"] != "Mentorship Session" {
		t.Fatalf("unexpected summary: %v", gotPayload["summary"])
	}
	startField, ok := gotPayload["start"].(map[string]any)
	if !ok || startField["dateTime"] != "2026-03-14T15:00:00Z" {
		t.Fatalf("unexpected start: %v", gotPayload["start"])
	}
}

func TestGoogleProvider_CreateEvent_CustomCalendar(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1", "htmlLink": "https://example.com/e"})
	}))
	defer server.Close()

	provider := NewGoogleProviderWithClient(GoogleConfig{BaseURL: server.URL, CalendarID: "mentors@example.com"}, server.Client(), nil)

	_, err := provider.CreateEvent(context.Background(), commands.MeetingEvent{
		Summary: "Session",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	if gotPath != "/calendars/mentors@example.com/events" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
}

func TestGoogleProvider_CreateEvent_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewGoogleProviderWithClient(GoogleConfig{BaseURL: server.URL}, server.Client(), nil)

	_, err := provider.CreateEvent(context.Background(), commands.MeetingEvent{
		Summary: "Session",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestGoogleProvider_CircuitBreakerOpens(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewGoogleProviderWithClient(GoogleConfig{BaseURL: server.URL}, server.Client(), nil)

	event := commands.MeetingEvent{
		Summary: "Session",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	}

	for i := 0; i < 3; i++ {
		if _, err := provider.CreateEvent(context.Background(), event); err == nil {
			t.Fatalf("call %d: expected error", i+1)
		}
	}

	_, err := provider.CreateEvent(context.Background(), event)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected 3 upstream requests, got %d", requests)
	}
}
