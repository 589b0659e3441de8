/*
store.go - Persistence interfaces for billing periods and settlements

PURPOSE:
  Defines the boundary between the ledger logic and the database. Every
  cross-entity read is an explicit call with its own failure mode; there is
  no hidden lazy loading and no implicit get-or-create.

CONTRACT:
  - CreatePeriod enforces the (lease, period_month) uniqueness invariant.
  - UpdateIfOutstanding and MarkSettled are the only period writes, and both
    refuse to touch a SETTLED row.
  - Settlement transactions are append-only and immutable.
  - WithTx scopes writes to one atomic unit; settlement commits through it.

IMPLEMENTATIONS:
  - store/sqlite:      production SQLite
  - ledger/store:      in-memory, for tests
*/
package ledger

import (
	"context"
	"time"
)

// PeriodFilter narrows Periods queries. Zero-value fields are ignored.
// Results are always ordered oldest period month first.
type PeriodFilter struct {
	Status          PeriodStatus // "" = any
	DueOnOrBefore   *time.Time
	MonthOnOrAfter  *time.Time
	MonthOnOrBefore *time.Time
	Limit           int // 0 = no limit
}

// Store handles persistence of billing periods and settlement transactions.
type Store interface {
	// FindPeriod returns the period for (lease, month-start of month), or
	// nil when none exists.
	FindPeriod(ctx context.Context, leaseID LeaseID, month time.Time) (*BillingPeriod, error)

	// CreatePeriod inserts a new period. Returns ErrDuplicatePeriod if one
	// already exists for (lease, period_month).
	CreatePeriod(ctx context.Context, p BillingPeriod) error

	// UpdateIfOutstanding overwrites the derived fields (due date and
	// amounts) of an existing OUTSTANDING period. Returns false without
	// writing when the period is missing or already SETTLED.
	UpdateIfOutstanding(ctx context.Context, p BillingPeriod) (bool, error)

	// MarkSettled freezes a period: final amounts, SETTLED status, settled-at
	// timestamp and reference. Returns ErrPeriodSettled if the row is no
	// longer OUTSTANDING, ErrPeriodNotFound if it does not exist.
	MarkSettled(ctx context.Context, p BillingPeriod) error

	// Periods returns the lease's periods matching the filter, oldest month
	// first.
	Periods(ctx context.Context, leaseID LeaseID, f PeriodFilter) ([]BillingPeriod, error)

	// AppendSettlement records one settlement transaction. Append-only.
	AppendSettlement(ctx context.Context, tx SettlementTransaction) error

	// SettlementsByLease returns settlement transactions, newest first.
	SettlementsByLease(ctx context.Context, leaseID LeaseID) ([]SettlementTransaction, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction rolls back and no partial write is visible.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
