/*
demo.go - Demo data seeder for development and demos

PURPOSE:

	Populates an empty database with realistic data so the API is usable
	immediately: two units, two tenants, one active lease with backdated
	start so late surcharges are visible, a posted water bill, and an
	announcement.

HOW SEEDING WORKS:
 1. Skip entirely if any unit already exists (idempotent on restart)
 2. Create units and tenants via the registry
 3. Activate one lease backdated two months
 4. Draft and post a water bill for the leased unit
 5. Publish a welcome announcement

USAGE:

	Enabled with RENT_LEDGER_SEED_DEMO=true (see config). Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Handler whose dependencies the seeder reuses
  - cmd/server/main.go: Calls SeedDemo at startup when configured
*/
package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/rental"
	"github.com/warp/rent-ledger/water"
)

// SeedDemo populates the database with demo data unless it already has units.
func SeedDemo(ctx context.Context, h *Handler) error {
	units, err := h.Registry.Units(ctx)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if len(units) > 0 {
		h.Logger.Info("demo seed skipped, database already has units")
		return nil
	}

	unitA, err := h.Registry.AddUnit(ctx, "Unit 2A", "14 Mabini St, Quezon City")
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if _, err := h.Registry.AddUnit(ctx, "Unit 2B", "14 Mabini St, Quezon City"); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	tenant, err := h.Registry.AddTenant(ctx, "Maria Santos", "maria@example.com", "+63 917 555 0101")
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if _, err := h.Registry.AddTenant(ctx, "Jose Reyes", "jose@example.com", ""); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	// Backdate the lease two months so the first period is already late and
	// the surcharge ladder shows up on the dashboard.
	now := h.Clock.Now()
	start := ledger.AddMonths(now, -2)
	lease, err := h.Registry.CreateLease(ctx, rental.LeaseTerms{
		UnitID:      unitA.ID,
		TenantID:    tenant.ID,
		MonthlyRent: "10000.00",
		DueDay:      5,
		StartDate:   start,
	})
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	// A posted water bill for the first lease month.
	bill, err := h.Water.Draft(ctx, water.Bill{
		UnitID:          unitA.ID,
		PeriodStart:     start,
		PeriodEnd:       ledger.AddMonths(start, 1).AddDate(0, 0, -1),
		PreviousReading: ledger.MustDecimal("120"),
		CurrentReading:  ledger.MustDecimal("135"),
		RatePerCubic:    ledger.MustDecimal("28.75"),
		Charges: []water.Charge{
			{Label: "Meter maintenance", Amount: ledger.MustDecimal("50.00")},
		},
	})
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if _, err := h.Water.Post(ctx, bill.ID); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	if _, err := h.Registry.Announce(ctx, "Welcome",
		"Rent is due on the 5th of each month. A 3% surcharge applies per late week."); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	h.Logger.Info("demo data seeded",
		zap.String("tenant_id", string(tenant.ID)),
		zap.String("lease_id", string(lease.ID)),
		zap.String("lease_start", start.Format("2006-01-02")))
	return nil
}
