package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one inbox entry for a user. Read state only ever moves
// from unread to read.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RelatedID *uuid.UUID `json:"related_id,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Payload is the queued fan-out unit: one message, many recipients.
type Payload struct {
	Recipients []uuid.UUID `json:"recipients"`
	Type       string      `json:"type"`
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	RelatedID  *uuid.UUID  `json:"related_id,omitempty"`
}
