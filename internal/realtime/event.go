// Package realtime keeps client-held copies of server records consistent
// with backend changes. Repositories publish change events after committed
// writes; subscribers reconcile cached views and stream events to the
// dashboard.
package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Collection identifies a record collection with a change feed.
type Collection string

const (
	CollectionTransactions  Collection = "transactions"
	CollectionNotifications Collection = "notifications"
	CollectionLeaveRequests Collection = "leave_requests"
	CollectionExpenses      Collection = "expenses"
	CollectionITAssets      Collection = "it_assets"
	CollectionITTickets     Collection = "it_tickets"
	CollectionGoals         Collection = "goals"
	CollectionAnnouncements Collection = "announcements"
	CollectionEmployees     Collection = "employees"
)

// Collections lists every subscribable collection.
var Collections = []Collection{
	CollectionTransactions,
	CollectionNotifications,
	CollectionLeaveRequests,
	CollectionExpenses,
	CollectionITAssets,
	CollectionITTickets,
	CollectionGoals,
	CollectionAnnouncements,
	CollectionEmployees,
}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Action enumerates change event kinds.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Record is the envelope every reconciled row carries. Data holds the
// table-specific payload already validated at the persistence boundary.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ChangeEvent describes a single insert/update/delete on a collection.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Action     Action     `json:"action"`
	Record     Record     `json:"record"`
	OccurredAt time.Time  `json:"occurred_at"`
}
