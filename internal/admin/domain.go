package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/roles"
)

// User is a principal as seen from the admin panel: profile fields plus
// the assigned role set.
type User struct {
	ID         uuid.UUID    `json:"id"`
	Email      string       `json:"email"`
	FullName   string       `json:"full_name"`
	Department string       `json:"department"`
	Phone      string       `json:"phone"`
	AvatarURL  string       `json:"avatar_url"`
	Roles      []roles.Role `json:"roles"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
