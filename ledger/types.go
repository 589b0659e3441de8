/*
Package ledger implements the recurring billing and late-fee accrual core.

PURPOSE:
  Given a lease (fixed monthly rent, due day, start date) this package
  materializes exactly one billing record per elapsed calendar month, computes
  a weekly-step late surcharge, folds in externally sourced utility charges,
  and settles outstanding periods atomically under concurrent attempts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Lease: read-only lease facts supplied by the unit/lease registry
  - BillingPeriod: one month's obligation (rent + utility + surcharge)
  - SettlementTransaction: one aggregate record per successful settlement
  - ID types: type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every monetary field, Round2 at every
     quantization step
  2. Frozen history: a SETTLED period is never recomputed
  3. Explicit time: every entry point takes an as-of date; no ambient "today"

SEE ALSO:
  - calendar.go: month arithmetic and due-date clamping
  - accrual.go:  the late-surcharge step function
  - sync.go:     idempotent period materialization
  - settle.go:   atomic settlement
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LeaseID string
type UnitID string
type PayerID string
type PeriodID string
type SettlementID string

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Round2 quantizes to 2 decimal places, rounding half away from zero.
// All amounts in this domain are non-negative, so this is round-half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a decimal amount string from external input.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// MustDecimal parses a decimal literal, returning zero on malformed input.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// LEASE - Read-only facts from the unit/lease registry
// =============================================================================

// Lease carries the facts the ledger needs. The ledger never creates or
// edits leases; it only reads them through a LeaseSource.
type Lease struct {
	ID          LeaseID
	PayerID     PayerID
	UnitID      UnitID
	MonthlyRent decimal.Decimal // > 0
	DueDay      int             // 1-31, clamped per month
	StartDate   time.Time
	Active      bool
}

// =============================================================================
// BILLING PERIOD - One month's obligation for a lease
// =============================================================================

type PeriodStatus string

const (
	StatusOutstanding PeriodStatus = "OUTSTANDING"
	StatusSettled     PeriodStatus = "SETTLED"
)

// BillingPeriod is owned exclusively by the ledger.
//
// INVARIANTS:
//   - Exactly one period per (LeaseID, PeriodMonth); PeriodMonth is always
//     the first day of its month.
//   - TotalAmount = BaseAmount + UtilityAmount + SurchargeAmount, Round2'd.
//   - Once Status is SETTLED every monetary field is frozen.
type BillingPeriod struct {
	ID          PeriodID
	LeaseID     LeaseID
	PeriodMonth time.Time // first of month, UTC midnight
	DueDate     time.Time // due day clamped to the month's last day

	BaseAmount      decimal.Decimal
	UtilityAmount   decimal.Decimal
	SurchargeAmount decimal.Decimal
	TotalAmount     decimal.Decimal

	Status              PeriodStatus
	SettledAt           *time.Time
	SettlementReference string
	CreatedAt           time.Time
}

// Outstanding reports whether the period can still be recomputed or settled.
func (p BillingPeriod) Outstanding() bool { return p.Status == StatusOutstanding }

// derivedEqual compares the fields the synchronizer recomputes, so unchanged
// periods skip the write entirely.
func (p BillingPeriod) derivedEqual(o BillingPeriod) bool {
	return p.DueDate.Equal(o.DueDate) &&
		p.BaseAmount.Equal(o.BaseAmount) &&
		p.UtilityAmount.Equal(o.UtilityAmount) &&
		p.SurchargeAmount.Equal(o.SurchargeAmount) &&
		p.TotalAmount.Equal(o.TotalAmount)
}

// =============================================================================
// SETTLEMENT TRANSACTION - One aggregate record per settlement
// =============================================================================

// SettlementTransaction is created exactly once per successful settlement
// and is immutable thereafter.
type SettlementTransaction struct {
	ID             SettlementID
	LeaseID        LeaseID
	Reference      string
	PeriodsSettled int
	TotalAmount    decimal.Decimal
	SettledAt      time.Time
}
