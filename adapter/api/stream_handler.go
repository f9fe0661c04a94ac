package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/booking/infrastructure/readmodel"
	"github.com/google/uuid"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// StreamHandler serves live booking updates over server-sent events, backed
// by the read model's pub/sub channels. Clients get the current state up
// front and pushed updates after that; no polling.
type StreamHandler struct {
	store  *readmodel.RedisStore
	logger *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(store *readmodel.RedisStore, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{store: store, logger: logger}
}

// StreamMentorBookings handles GET /api/v1/bookings/mentor/{mentorID}/stream
func (h *StreamHandler) StreamMentorBookings(w http.ResponseWriter, r *http.Request) {
	mentorID, err := uuid.Parse(r.PathValue("mentorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mentor ID")
		return
	}
	h.stream(w, r, readmodel.MentorChannel(mentorID), func() (any, error) {
		return h.store.ListByMentor(r.Context(), mentorID)
	})
}

// StreamStudentBookings handles GET /api/v1/bookings/student/{studentID}/stream
func (h *StreamHandler) StreamStudentBookings(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.PathValue("studentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}
	h.stream(w, r, readmodel.StudentChannel(studentID), func() (any, error) {
		return h.store.ListByStudent(r.Context(), studentID)
	})
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, channel string, initial func() (any, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Subscribe before sending the initial state so no update falls into
	// the gap between the two.
	updates, closeSub := h.store.Subscribe(r.Context(), channel)
	defer closeSub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	state, err := initial()
	if err != nil {
		h.logger.Error("reading initial stream state failed", "channel", channel, "error", err)
	} else {
		writeSSE(w, "snapshot", state)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-updates:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: update\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode SSE payload", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, encoded)
}
