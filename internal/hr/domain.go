package hr

import (
	"time"

	"github.com/google/uuid"
)

// Employee statuses.
const (
	EmployeeActive   = "active"
	EmployeeOnLeave  = "on_leave"
	EmployeeInactive = "inactive"
)

// ValidEmployeeStatus reports whether s is a known roster status.
func ValidEmployeeStatus(s string) bool {
	switch s {
	case EmployeeActive, EmployeeOnLeave, EmployeeInactive:
		return true
	}
	return false
}

// Employee is one roster entry. ProfileID links to a login profile when
// the employee has dashboard access.
type Employee struct {
	ID         uuid.UUID  `json:"id"`
	ProfileID  *uuid.UUID `json:"profile_id,omitempty"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Position   string     `json:"position"`
	Department string     `json:"department"`
	HireDate   time.Time  `json:"hire_date"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Leave request statuses: pending moves to exactly one of approved or
// rejected, stamped with the reviewer.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// LeaveRequest is one time-off submission.
type LeaveRequest struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	LeaveType  string     `json:"leave_type"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
