package sales

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses follow the pipeline the dashboard charts are built
// around. A transaction is immutable once recorded; corrections are new
// entries.
const (
	StatusClosedWon  = "Closed Won"
	StatusClosedLost = "Closed Lost"
	StatusInProgress = "In Progress"
)

// Statuses lists the accepted transaction statuses.
var Statuses = []string{StatusClosedWon, StatusClosedLost, StatusInProgress}

// ValidStatus reports whether s is an accepted status.
func ValidStatus(s string) bool {
	for _, known := range Statuses {
		if known == s {
			return true
		}
	}
	return false
}

// Transaction is a single sales record.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	Date            time.Time `json:"date"`
	Region          string    `json:"region"`
	SaleAmount      float64   `json:"sale_amount"`
	CustomerSegment string    `json:"customer_segment"`
	LeadSource      string    `json:"lead_source"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	OwnerID *uuid.UUID
	Region  string
	Status  string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
