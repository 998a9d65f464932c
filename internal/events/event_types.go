package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionIssued   EventType = "session_issued"
	EventExchangeFailed  EventType = "exchange_failed"
	EventSessionRejected EventType = "session_rejected"
	EventAccessDenied    EventType = "access_denied"
	EventSignedOut       EventType = "signed_out"
)

// Actor identifies who the event is about. Subject is empty when nobody was authenticated.
type Actor struct {
	Subject   string      `json:"subject,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// Event is an audit record emitted by the request mediator and the HTTP layer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Endpoint  string      `json:"endpoint,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, endpoint string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Endpoint:  endpoint,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionIssuedPayload payload.
type SessionIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// FailurePayload carries the error behind an exchange failure or session rejection.
type FailurePayload struct {
	Error string `json:"error"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Reason domain.DecisionReason `json:"reason"`
}
