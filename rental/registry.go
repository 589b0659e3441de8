/*
registry.go - Unit and lease registry operations

PURPOSE:
  Admin-facing lifecycle for units, tenants, and leases, plus the
  ledger.LeaseSource adapter billing resolves payers through.

INVARIANTS:
  1. At most one ACTIVE lease per unit.
  2. At most one ACTIVE lease per tenant.
  3. A lease record handed to billing has validated facts: positive rent,
     due day in [1, 31], non-zero start date. A record that violates them is
     surfaced as a data consistency failure, never billed.
*/
package rental

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/ledger"
)

// Registry manages units, tenants, leases, and announcements.
type Registry struct {
	store  Store
	clock  ledger.Clock
	logger *zap.Logger
}

func NewRegistry(store Store, clock ledger.Clock, logger *zap.Logger) *Registry {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, clock: clock, logger: logger}
}

// Compile-time check that Registry implements ledger.LeaseSource.
var _ ledger.LeaseSource = (*Registry)(nil)

// =============================================================================
// LEASE SOURCE ADAPTER
// =============================================================================

// ActiveLease resolves a payer to validated lease facts for billing.
// Returns ledger.ErrLeaseNotFound when the tenant has no active lease and a
// consistency error when the stored record is unusable for billing.
func (r *Registry) ActiveLease(ctx context.Context, payerID ledger.PayerID) (ledger.Lease, error) {
	rec, err := r.store.ActiveLeaseByTenant(ctx, payerID)
	if err != nil {
		return ledger.Lease{}, err
	}
	if rec == nil {
		return ledger.Lease{}, fmt.Errorf("%w: payer %s", ledger.ErrLeaseNotFound, payerID)
	}

	if err := validateLeaseTerms(rec.MonthlyRent, rec.DueDay, rec.StartDate); err != nil {
		r.logger.Error("active lease has invalid billing facts",
			zap.String("lease_id", string(rec.ID)),
			zap.String("tenant_id", string(payerID)),
			zap.Error(err),
		)
		return ledger.Lease{}, &ledger.ConsistencyError{
			LeaseID: rec.ID,
			Detail:  err.Error(),
		}
	}
	return rec.BillingLease(), nil
}

// =============================================================================
// UNIT AND TENANT LIFECYCLE
// =============================================================================

func (r *Registry) AddUnit(ctx context.Context, name, address string) (Unit, error) {
	u := Unit{
		ID:        ledger.UnitID(uuid.New().String()),
		Name:      strings.TrimSpace(name),
		Address:   strings.TrimSpace(address),
		Active:    true,
		CreatedAt: r.clock.Now(),
	}
	if u.Name == "" {
		return Unit{}, fmt.Errorf("%w: unit name is required", ErrInvalidLeaseTerms)
	}
	if err := r.store.CreateUnit(ctx, u); err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (r *Registry) Units(ctx context.Context) ([]Unit, error) {
	return r.store.Units(ctx)
}

func (r *Registry) AddTenant(ctx context.Context, fullName, email, phone string) (Tenant, error) {
	t := Tenant{
		ID:        ledger.PayerID(uuid.New().String()),
		FullName:  strings.TrimSpace(fullName),
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: r.clock.Now(),
	}
	if t.FullName == "" {
		return Tenant{}, fmt.Errorf("%w: tenant name is required", ErrInvalidLeaseTerms)
	}
	if err := r.store.CreateTenant(ctx, t); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (r *Registry) Tenants(ctx context.Context) ([]Tenant, error) {
	return r.store.Tenants(ctx)
}

// Tenant looks up a single tenant.
func (r *Registry) Tenant(ctx context.Context, id ledger.PayerID) (Tenant, error) {
	t, err := r.store.FindTenant(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if t == nil {
		return Tenant{}, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	return *t, nil
}

// LeaseFor returns the full lease record behind a tenant's active lease.
// ActiveLease projects only billing facts; admin and API views need the rest.
func (r *Registry) LeaseFor(ctx context.Context, tenantID ledger.PayerID) (LeaseRecord, error) {
	rec, err := r.store.ActiveLeaseByTenant(ctx, tenantID)
	if err != nil {
		return LeaseRecord{}, err
	}
	if rec == nil {
		return LeaseRecord{}, fmt.Errorf("%w: tenant %s", ledger.ErrLeaseNotFound, tenantID)
	}
	return *rec, nil
}

// =============================================================================
// LEASE LIFECYCLE
// =============================================================================

// LeaseTerms are the caller-supplied facts for a new lease.
type LeaseTerms struct {
	UnitID      ledger.UnitID
	TenantID    ledger.PayerID
	MonthlyRent string // decimal string, e.g. "10000.00"
	DueDay      int
	StartDate   time.Time
}

// CreateLease activates a lease for a vacant unit and an unleased tenant.
func (r *Registry) CreateLease(ctx context.Context, terms LeaseTerms) (LeaseRecord, error) {
	rent, err := ledger.ParseAmount(terms.MonthlyRent)
	if err != nil {
		return LeaseRecord{}, fmt.Errorf("%w: monthly rent %q", ErrInvalidLeaseTerms, terms.MonthlyRent)
	}
	if err := validateLeaseTerms(rent, terms.DueDay, terms.StartDate); err != nil {
		return LeaseRecord{}, fmt.Errorf("%w: %v", ErrInvalidLeaseTerms, err)
	}

	unit, err := r.store.FindUnit(ctx, terms.UnitID)
	if err != nil {
		return LeaseRecord{}, err
	}
	if unit == nil {
		return LeaseRecord{}, fmt.Errorf("%w: %s", ErrUnitNotFound, terms.UnitID)
	}
	tenant, err := r.store.FindTenant(ctx, terms.TenantID)
	if err != nil {
		return LeaseRecord{}, err
	}
	if tenant == nil {
		return LeaseRecord{}, fmt.Errorf("%w: %s", ErrTenantNotFound, terms.TenantID)
	}

	if existing, err := r.store.ActiveLeaseByUnit(ctx, terms.UnitID); err != nil {
		return LeaseRecord{}, err
	} else if existing != nil {
		return LeaseRecord{}, fmt.Errorf("%w: %s", ErrUnitOccupied, terms.UnitID)
	}
	if existing, err := r.store.ActiveLeaseByTenant(ctx, terms.TenantID); err != nil {
		return LeaseRecord{}, err
	} else if existing != nil {
		return LeaseRecord{}, fmt.Errorf("%w: %s", ErrTenantHasLease, terms.TenantID)
	}

	rec := LeaseRecord{
		ID:          ledger.LeaseID(uuid.New().String()),
		UnitID:      terms.UnitID,
		TenantID:    terms.TenantID,
		MonthlyRent: ledger.Round2(rent),
		DueDay:      terms.DueDay,
		StartDate:   ledger.DayOf(terms.StartDate),
		Status:      LeaseActive,
		CreatedAt:   r.clock.Now(),
	}
	if err := r.store.CreateLease(ctx, rec); err != nil {
		return LeaseRecord{}, err
	}

	r.logger.Info("lease activated",
		zap.String("lease_id", string(rec.ID)),
		zap.String("unit_id", string(rec.UnitID)),
		zap.String("tenant_id", string(rec.TenantID)),
	)
	return rec, nil
}

// TerminateLease ends an active lease. Historical billing periods stay as
// they are; only future materialization stops.
func (r *Registry) TerminateLease(ctx context.Context, id ledger.LeaseID, endDate time.Time) error {
	rec, err := r.store.FindLease(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ledger.ErrLeaseNotFound, id)
	}
	if !rec.Active() {
		return nil
	}

	end := ledger.DayOf(endDate)
	rec.Status = LeaseTerminated
	rec.EndDate = &end
	if err := r.store.UpdateLease(ctx, *rec); err != nil {
		return err
	}

	r.logger.Info("lease terminated",
		zap.String("lease_id", string(id)),
		zap.Time("end_date", end),
	)
	return nil
}

func (r *Registry) Leases(ctx context.Context) ([]LeaseRecord, error) {
	return r.store.Leases(ctx)
}

// =============================================================================
// ANNOUNCEMENTS
// =============================================================================

func (r *Registry) Announce(ctx context.Context, title, body string) (Announcement, error) {
	a := Announcement{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		Body:      strings.TrimSpace(body),
		Active:    true,
		CreatedAt: r.clock.Now(),
	}
	if a.Title == "" {
		return Announcement{}, fmt.Errorf("%w: announcement title is required", ErrInvalidLeaseTerms)
	}
	if err := r.store.CreateAnnouncement(ctx, a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// ActiveAnnouncements returns active notices, newest first.
func (r *Registry) ActiveAnnouncements(ctx context.Context) ([]Announcement, error) {
	return r.store.ActiveAnnouncements(ctx)
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateLeaseTerms(rent decimal.Decimal, dueDay int, startDate time.Time) error {
	if rent.Sign() <= 0 {
		return fmt.Errorf("monthly rent must be positive")
	}
	if dueDay < 1 || dueDay > 31 {
		return fmt.Errorf("due day %d outside [1, 31]", dueDay)
	}
	if startDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	return nil
}
