// Package broadcast is the advisory realtime channel. Delivery is
// best-effort: the coordinator's request/response API is the source of
// truth and clients reconcile by re-fetching session status.
package broadcast

import (
	"context"
	"encoding/json"
)

// EventKind names the session events fanned out to connected clients.
type EventKind string

const (
	EventSessionStarted      EventKind = "session-started"
	EventQuestionChanged     EventKind = "question-changed"
	EventParticipantAnswered EventKind = "participant-answered"
	EventSessionEnded        EventKind = "session-ended"
)

// Event is one notification on a session's channel, keyed by join code.
type Event struct {
	Kind    EventKind       `json:"kind"`
	Code    string          `json:"code"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. A payload that fails to
// marshal is dropped silently; broadcasts are not a correctness path.
func NewEvent(kind EventKind, code string, payload any) Event {
	ev := Event{Kind: kind, Code: code}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// Broker fans events out to subscribers of a session code. Publish never
// blocks on subscriber availability and never reports delivery failure.
type Broker interface {
	Publish(ctx context.Context, code string, event Event)
	// Subscribe returns a stream of events for code. The caller must
	// invoke the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, code string) (<-chan Event, func())
}
