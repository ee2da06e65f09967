package domain

import (
	"slices"
	"time"
)

// Activity is an extracurricular offering and its current roster.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	// Participants holds student emails in signup order.
	Participants []string
}

// Clone returns a deep copy so callers never share the roster slice with the registry.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = slices.Clone(a.Participants)
	if out.Participants == nil {
		out.Participants = []string{}
	}
	return out
}

// HasParticipant reports whether email is on the roster.
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// AvailableSpots is the remaining capacity; negative when the roster exceeds it.
func (a Activity) AvailableSpots() int {
	return a.MaxParticipants - len(a.Participants)
}

// RegistrationEventType names the kind of roster change.
type RegistrationEventType string

const (
	RegistrationSignedUp     RegistrationEventType = "registration.signed_up"
	RegistrationUnregistered RegistrationEventType = "registration.unregistered"
)

// RegistrationEvent records one successful signup or unregister.
type RegistrationEvent struct {
	ID               string                `json:"event_id"`
	Type             RegistrationEventType `json:"event_type"`
	Activity         string                `json:"activity"`
	Email            string                `json:"email"`
	ParticipantCount int                   `json:"participant_count"`
	OccurredAt       time.Time             `json:"occurred_at"`
}
