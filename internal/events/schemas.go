package events

import (
	"fmt"

	"example.com/extracurricular/internal/domain"
)

const registrationEventSchema = `{
  "type": "object",
  "title": "%s",
  "properties": {
    "event_id": {"type": "string"},
    "event_type": {"type": "string"},
    "activity": {"type": "string"},
    "email": {"type": "string"},
    "participant_count": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "event_type", "activity", "email", "participant_count", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event type to the JSON schema registered for it.
var schemaCatalog = map[domain.RegistrationEventType]string{
	domain.RegistrationSignedUp:     fmt.Sprintf(registrationEventSchema, "ParticipantSignedUp"),
	domain.RegistrationUnregistered: fmt.Sprintf(registrationEventSchema, "ParticipantUnregistered"),
}
