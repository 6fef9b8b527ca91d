package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventTwoFactorFailed EventType = "two_factor_failed"
	EventUserCreated     EventType = "user_created"
	EventUserDeleted     EventType = "user_deleted"
	EventTOTPEnabled     EventType = "totp_enabled"
	EventTOTPDisabled    EventType = "totp_disabled"
)

// Event represents a security-relevant fact emitted by services.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Subject   string            `json:"subject"`
	ActorID   *uuid.UUID        `json:"actor_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, subject string, actorID *uuid.UUID, attrs map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Attrs:     attrs,
	}
}
