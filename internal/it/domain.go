package it

import (
	"time"

	"github.com/google/uuid"
)

// Asset statuses.
const (
	AssetInUse       = "in_use"
	AssetInStorage   = "in_storage"
	AssetUnderRepair = "under_repair"
	AssetRetired     = "retired"
)

// ValidAssetStatus reports whether s is a known asset status.
func ValidAssetStatus(s string) bool {
	switch s {
	case AssetInUse, AssetInStorage, AssetUnderRepair, AssetRetired:
		return true
	}
	return false
}

// Asset is one tracked hardware or license record.
type Asset struct {
	ID             uuid.UUID  `json:"id"`
	AssetName      string     `json:"asset_name"`
	AssetType      string     `json:"asset_type"`
	SerialNumber   string     `json:"serial_number"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	WarrantyExpiry *time.Time `json:"warranty_expiry,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Ticket statuses advance one way: open, in_progress, resolved.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// nextTicketStatus holds the only legal forward transitions.
var nextTicketStatus = map[string]string{
	TicketOpen:       TicketInProgress,
	TicketInProgress: TicketResolved,
}

// CanTransition reports whether a ticket may move from to to.
func CanTransition(from, to string) bool {
	return nextTicketStatus[from] == to
}

// Ticket is one support request.
type Ticket struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
