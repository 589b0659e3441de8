// Package water implements metered water billing for units. Bills are drafted
// from meter readings, reviewed, and posted; only posted bills feed the rent
// ledger's utility amounts.
package water

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// WATER BILL
// =============================================================================

// BillStatus tracks a bill through its review lifecycle.
type BillStatus string

const (
	// BillDraft bills are editable and invisible to the rent ledger.
	BillDraft BillStatus = "DRAFT"
	// BillPosted bills are frozen and feed the billing month their period
	// ends in.
	BillPosted BillStatus = "POSTED"
)

// Charge is an extra labeled line item on a bill (maintenance fee, meter
// replacement, and so on).
type Charge struct {
	Label  string
	Amount decimal.Decimal
}

// Bill is one unit's water bill for a reading period.
type Bill struct {
	ID              string
	UnitID          ledger.UnitID
	PeriodStart     time.Time
	PeriodEnd       time.Time
	PreviousReading decimal.Decimal // cubic meters
	CurrentReading  decimal.Decimal // cubic meters
	RatePerCubic    decimal.Decimal
	Charges         []Charge
	Status          BillStatus
	PostedAt        *time.Time
	CreatedAt       time.Time
}

// Consumption returns metered usage in cubic meters. A current reading below
// the previous one (meter rollover or replacement) floors at zero.
func (b Bill) Consumption() decimal.Decimal {
	c := b.CurrentReading.Sub(b.PreviousReading)
	if c.Sign() < 0 {
		return decimal.Zero
	}
	return c
}

// UsageAmount returns the metered portion of the bill, quantized.
func (b Bill) UsageAmount() decimal.Decimal {
	return ledger.Round2(b.Consumption().Mul(b.RatePerCubic))
}

// Total returns usage plus all extra charges, quantized.
func (b Bill) Total() decimal.Decimal {
	total := b.UsageAmount()
	for _, c := range b.Charges {
		total = total.Add(c.Amount)
	}
	return ledger.Round2(total)
}
