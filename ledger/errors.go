/*
errors.go - Centralized error types for the billing ledger

ERROR CATEGORIES:
  1. Validation errors - rejected before any mutation
  2. Not-found errors  - missing lease or period, no retry
  3. Conflict errors   - transient lock contention, caller retries with backoff
  4. Consistency errors - settled data found in an impossible state; fatal for
     the operation, logged in full, surfaced generically

Callers classify with IsRetryable / IsClientError / IsNotFound rather than
matching sentinel errors directly.
*/
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoOutstandingPeriods is returned when a settlement finds nothing to
	// settle after candidate selection.
	ErrNoOutstandingPeriods = errors.New("no outstanding billing periods")

	// ErrInvalidReference is returned when a settlement is attempted with an
	// empty external reference.
	ErrInvalidReference = errors.New("settlement reference is required")

	// ErrInvalidMonthCount is returned when a requested period count is
	// outside [1, 12].
	ErrInvalidMonthCount = errors.New("month count out of range")

	// ErrSettlementConflict is returned when the per-lease settlement lock
	// cannot be acquired within its timeout. Transient; the caller may retry
	// with backoff. Never auto-retried internally.
	ErrSettlementConflict = errors.New("concurrent settlement in progress")

	// ErrLeaseNotFound is returned when a payer has no active lease.
	ErrLeaseNotFound = errors.New("no active lease")

	// ErrPeriodNotFound is returned when a referenced billing period does not
	// exist.
	ErrPeriodNotFound = errors.New("billing period not found")

	// ErrDuplicatePeriod is returned by stores when a second period is
	// created for the same (lease, month).
	ErrDuplicatePeriod = errors.New("billing period already exists for month")

	// ErrPeriodSettled is returned when a write targets a SETTLED period.
	ErrPeriodSettled = errors.New("billing period already settled")

	// ErrDataConsistency is returned when stored ledger state violates an
	// invariant (e.g. a settled period with mismatched totals).
	ErrDataConsistency = errors.New("ledger data consistency violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConsistencyError reports settled or lease data found in an invalid state.
// The detail is for operator logs; callers surface a generic failure.
type ConsistencyError struct {
	LeaseID LeaseID
	Detail  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("data consistency violation for lease %s: %s", e.LeaseID, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return ErrDataConsistency }

// SettledTotalMismatchError reports a SETTLED period whose stored total does
// not equal the sum of its components.
type SettledTotalMismatchError struct {
	PeriodID PeriodID
	Month    time.Time
	Stored   decimal.Decimal
	Computed decimal.Decimal
}

func (e *SettledTotalMismatchError) Error() string {
	return fmt.Sprintf("settled period %s (%s) total %s does not match components %s",
		e.PeriodID, e.Month.Format("2006-01"), e.Stored, e.Computed)
}

func (e *SettledTotalMismatchError) Unwrap() error { return ErrDataConsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSettlementConflict)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInvalidMonthCount) ||
		errors.Is(err, ErrNoOutstandingPeriods)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLeaseNotFound) ||
		errors.Is(err, ErrPeriodNotFound)
}
