package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLABORATOR INTERFACES - What the ledger reads but never owns
// =============================================================================

// LeaseSource supplies lease facts from the unit/lease registry.
type LeaseSource interface {
	// ActiveLease returns the payer's active lease, or ErrLeaseNotFound.
	ActiveLease(ctx context.Context, payerID PayerID) (Lease, error)
}

// UtilitySource supplies externally posted utility charges. The ledger pulls
// the amount at computation time and never caches it.
type UtilitySource interface {
	// PostedAmountFor returns the posted utility charge for a unit and
	// calendar month. A month with nothing posted yet returns (0, false).
	PostedAmountFor(ctx context.Context, unitID UnitID, month time.Time) (decimal.Decimal, bool, error)
}

// NoUtility is a UtilitySource that never has a posted charge.
type NoUtility struct{}

func (NoUtility) PostedAmountFor(context.Context, UnitID, time.Time) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

// =============================================================================
// CLOCK - Injectable "today" for deterministic tests
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }
