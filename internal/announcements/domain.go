package announcements

import (
	"time"

	"github.com/google/uuid"
)

// Announcement priorities.
const (
	PriorityNormal    = "normal"
	PriorityImportant = "important"
	PriorityUrgent    = "urgent"
)

var priorities = map[string]struct{}{
	PriorityNormal:    {},
	PriorityImportant: {},
	PriorityUrgent:    {},
}

// ValidPriority reports whether p is a known announcement priority.
func ValidPriority(p string) bool {
	_, ok := priorities[p]
	return ok
}

// Announcement is an org-wide post visible to every principal.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
