// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
//
// The relay uses it to fan session events out to monitor clients:
// every message a voice session sends to its client is mirrored, tagged
// with the session id, to anyone watching /ws/monitor.
package hub

import "encoding/json"

// Event is one session occurrence mirrored to monitor clients.
type Event struct {
	// SessionID identifies the voice session the event belongs to.
	SessionID string `json:"session_id"`

	// Event is the encoded client message being mirrored.
	Event json.RawMessage `json:"event"`
}

// NewEvent wraps an already-encoded client message.
func NewEvent(sessionID string, encoded []byte) Event {
	return Event{SessionID: sessionID, Event: encoded}
}
