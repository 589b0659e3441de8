// Package maintenance tracks repair requests from tenants. Tenants submit
// the issue; status and priority are set during admin triage, never by the
// reporter.
package maintenance

import (
	"time"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// MAINTENANCE REQUEST
// =============================================================================

// Category classifies the reported issue.
type Category string

const (
	CategoryPlumbing   Category = "PLUMBING"
	CategoryElectrical Category = "ELECTRICAL"
	CategoryStructural Category = "STRUCTURAL"
	CategoryOther      Category = "OTHER"
)

// Status tracks a request through triage and resolution.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Priority is assigned by the admin during triage.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Request is one reported issue. LeaseID is the tenant's active lease at
// submission time and may be empty when the reporter holds none.
type Request struct {
	ID       string
	TenantID ledger.PayerID
	LeaseID  ledger.LeaseID

	Category    Category
	Title       string
	Description string

	Status   Status
	Priority Priority

	CreatedAt time.Time
	UpdatedAt time.Time
}

func validCategory(c Category) bool {
	switch c {
	case CategoryPlumbing, CategoryElectrical, CategoryStructural, CategoryOther:
		return true
	}
	return false
}

func validStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
