package goals

import (
	"time"

	"github.com/google/uuid"
)

// Goal periods.
const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodYearly    = "yearly"
)

// Goal statuses. A goal expires when its end date passes without the
// target being met; completion is stamped by the refresh job.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// ValidPeriod reports whether p is a known goal period.
func ValidPeriod(p string) bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// Goal is a revenue target assigned to a principal for a date range.
type Goal struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	CreatedBy    uuid.UUID `json:"created_by"`
	Title        string    `json:"title"`
	TargetAmount float64   `json:"target_amount"`
	Period       string    `json:"period"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
