package domain

import (
	"strconv"
	"strings"
	"time"
)

// DefaultMeetBaseURL is the meeting service used for generated join links.
const DefaultMeetBaseURL = "https://meet.jit.si"

// NewMeetingRoomID builds a human-readable, collision-resistant room name
// from the student's name and a time-based suffix.
func NewMeetingRoomID(studentName string, now time.Time) string {
	safe := strings.Join(strings.Fields(studentName), "")
	if safe == "" {
		safe = "Student"
	}

	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}

	return "Mentorship-" + safe + "-" + millis
}

// MeetingLink builds the joinable link for a room.
func MeetingLink(baseURL, roomID string) string {
	if baseURL == "" {
		baseURL = DefaultMeetBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + roomID
}
