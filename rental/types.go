// Package rental implements the unit and lease registry the billing ledger
// bills against. It owns units, tenant profiles, lease records, and
// announcements, and adapts active lease records into billing lease facts.
package rental

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// REGISTRY RECORDS
// =============================================================================

// Unit is a rentable unit.
type Unit struct {
	ID        ledger.UnitID
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
}

// Tenant is a billable tenant profile. The ID doubles as the ledger payer
// identifier.
type Tenant struct {
	ID        ledger.PayerID
	FullName  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// LeaseStatus tracks a lease record's lifecycle.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseTerminated LeaseStatus = "TERMINATED"
)

// LeaseRecord is the persisted lease agreement. At most one ACTIVE record
// exists per unit and per tenant; the store enforces both.
type LeaseRecord struct {
	ID          ledger.LeaseID
	UnitID      ledger.UnitID
	TenantID    ledger.PayerID
	MonthlyRent decimal.Decimal
	DueDay      int
	StartDate   time.Time
	EndDate     *time.Time
	Status      LeaseStatus
	CreatedAt   time.Time
}

// Active reports whether the record is the tenant's current lease.
func (r LeaseRecord) Active() bool { return r.Status == LeaseActive }

// BillingLease projects the record into the lease facts billing operates on.
func (r LeaseRecord) BillingLease() ledger.Lease {
	return ledger.Lease{
		ID:          r.ID,
		PayerID:     r.TenantID,
		UnitID:      r.UnitID,
		MonthlyRent: r.MonthlyRent,
		DueDay:      r.DueDay,
		StartDate:   r.StartDate,
		Active:      r.Active(),
	}
}

// Announcement is a notice shown on tenant dashboards.
type Announcement struct {
	ID        string
	Title     string
	Body      string
	Active    bool
	CreatedAt time.Time
}
