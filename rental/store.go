package rental

import (
	"context"
	"errors"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// REGISTRY ERRORS
// =============================================================================

var (
	// ErrUnitNotFound is returned when a referenced unit does not exist.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrTenantNotFound is returned when a referenced tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrUnitOccupied is returned when a lease is created for a unit that
	// already has an active lease.
	ErrUnitOccupied = errors.New("unit already has an active lease")

	// ErrTenantHasLease is returned when a lease is created for a tenant who
	// already has an active lease.
	ErrTenantHasLease = errors.New("tenant already has an active lease")

	// ErrInvalidLeaseTerms is returned when lease terms fail validation at
	// creation time.
	ErrInvalidLeaseTerms = errors.New("invalid lease terms")
)

// =============================================================================
// REGISTRY STORE
// =============================================================================

// Store persists registry records. Find methods return (nil, nil) when the
// record does not exist.
type Store interface {
	CreateUnit(ctx context.Context, u Unit) error
	FindUnit(ctx context.Context, id ledger.UnitID) (*Unit, error)
	Units(ctx context.Context) ([]Unit, error)

	CreateTenant(ctx context.Context, t Tenant) error
	FindTenant(ctx context.Context, id ledger.PayerID) (*Tenant, error)
	Tenants(ctx context.Context) ([]Tenant, error)

	CreateLease(ctx context.Context, r LeaseRecord) error
	UpdateLease(ctx context.Context, r LeaseRecord) error
	ActiveLeaseByTenant(ctx context.Context, tenantID ledger.PayerID) (*LeaseRecord, error)
	ActiveLeaseByUnit(ctx context.Context, unitID ledger.UnitID) (*LeaseRecord, error)
	FindLease(ctx context.Context, id ledger.LeaseID) (*LeaseRecord, error)
	Leases(ctx context.Context) ([]LeaseRecord, error)

	CreateAnnouncement(ctx context.Context, a Announcement) error
	ActiveAnnouncements(ctx context.Context) ([]Announcement, error)
}
