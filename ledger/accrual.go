package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LATE-INTEREST ACCRUAL - Weekly step function on the base amount
// =============================================================================

// LateFeeRate is the flat per-week penalty applied to the base amount.
// Each elapsed late week adds another 3% of the original base: 3%, 6%, 9%...
// The surcharge never compounds on itself, which keeps the arithmetic exact
// under fixed-point decimals and makes the fee auditable from the week count.
var LateFeeRate = MustDecimal("0.03")

// Accrual is the result of the late-interest calculation.
type Accrual struct {
	Surcharge decimal.Decimal
	IsLate    bool
	WeeksLate int
}

// Accrue computes the late surcharge for a base amount due on dueDate as
// observed at asOf. On or before the due date there is no surcharge. After
// it, every started week counts: one day late is week 1, seven days late is
// still week 1, eight days late is week 2.
func Accrue(base decimal.Decimal, dueDate, asOf time.Time) Accrual {
	daysLate := DaysBetween(dueDate, asOf)
	if daysLate <= 0 {
		return Accrual{Surcharge: decimal.Zero.Round(2)}
	}

	weeks := (daysLate + 6) / 7
	surcharge := Round2(base.Mul(LateFeeRate).Mul(decimal.NewFromInt(int64(weeks))))

	return Accrual{
		Surcharge: surcharge,
		IsLate:    true,
		WeeksLate: weeks,
	}
}
