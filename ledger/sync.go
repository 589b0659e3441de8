/*
sync.go - Idempotent materialization of billing periods

PURPOSE:
  For a lease and an as-of date, guarantee exactly one billing period per
  calendar month from the lease start through the as-of month. Missing
  periods are created; outstanding ones get their derived fields (due date,
  base, utility, surcharge, total) refreshed. SETTLED periods are never
  touched.

IDEMPOTENCE:
  Running Sync twice with the same inputs yields identical rows. Two
  concurrent Syncs race benignly: both compute the same values from the same
  inputs, so last-writer-wins is harmless. Settlement, by contrast, must not
  race a Sync - the settlement processor recomputes under its own lock.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/metrics"
)

// Synchronizer brings a lease's billing periods current.
type Synchronizer struct {
	store   Store
	utility UtilitySource
	clock   Clock
	logger  *zap.Logger
}

func NewSynchronizer(store Store, utility UtilitySource, clock Clock, logger *zap.Logger) *Synchronizer {
	if utility == nil {
		utility = NoUtility{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{store: store, utility: utility, clock: clock, logger: logger}
}

// Sync ensures one billing period exists for every month from the lease
// start through asOf's month, refreshing derived fields on outstanding ones.
func (s *Synchronizer) Sync(ctx context.Context, lease Lease, asOf time.Time) error {
	return s.syncRange(ctx, lease, MonthStart(asOf), asOf)
}

// SyncUpTo extends coverage through targetMonth, which may lie beyond the
// as-of month, to support advance-payment previews. A future month's
// surcharge is zero unless its due date has already passed at asOf.
func (s *Synchronizer) SyncUpTo(ctx context.Context, lease Lease, targetMonth, asOf time.Time) error {
	end := MonthStart(targetMonth)
	if cur := MonthStart(asOf); cur.After(end) {
		end = cur
	}
	return s.syncRange(ctx, lease, end, asOf)
}

func (s *Synchronizer) syncRange(ctx context.Context, lease Lease, endMonth, asOf time.Time) error {
	if err := validateLease(lease); err != nil {
		return err
	}

	created, refreshed := 0, 0
	for _, m := range MonthsBetween(lease.StartDate, endMonth) {
		didCreate, didRefresh, err := s.syncMonth(ctx, lease, m, asOf)
		if err != nil {
			return fmt.Errorf("sync lease %s month %s: %w", lease.ID, m.Format("2006-01"), err)
		}
		if didCreate {
			created++
			metrics.IncPeriodCreated()
		}
		if didRefresh {
			refreshed++
			metrics.IncPeriodRefreshed()
		}
	}

	if created > 0 || refreshed > 0 {
		s.logger.Debug("billing periods synchronized",
			zap.String("lease_id", string(lease.ID)),
			zap.Int("created", created),
			zap.Int("refreshed", refreshed),
			zap.Time("as_of", asOf),
		)
	}
	return nil
}

// syncMonth upserts one month. Returns (created, refreshed).
func (s *Synchronizer) syncMonth(ctx context.Context, lease Lease, month, asOf time.Time) (bool, bool, error) {
	computed, err := s.Compute(ctx, lease, month, asOf)
	if err != nil {
		return false, false, err
	}

	existing, err := s.store.FindPeriod(ctx, lease.ID, month)
	if err != nil {
		return false, false, err
	}

	if existing == nil {
		computed.ID = PeriodID(uuid.New().String())
		computed.CreatedAt = s.clock.Now()
		err := s.store.CreatePeriod(ctx, computed)
		if err == ErrDuplicatePeriod {
			// Lost a benign race with another sync; the winner wrote the
			// same values.
			return false, false, nil
		}
		return err == nil, false, err
	}

	if !existing.Outstanding() {
		return false, false, nil
	}
	if existing.derivedEqual(computed) {
		return false, false, nil
	}

	computed.ID = existing.ID
	computed.CreatedAt = existing.CreatedAt
	wrote, err := s.store.UpdateIfOutstanding(ctx, computed)
	return false, wrote, err
}

// Compute derives a period's fields for one month at asOf, without writing.
// The settlement processor reuses this for its final recomputation.
func (s *Synchronizer) Compute(ctx context.Context, lease Lease, month, asOf time.Time) (BillingPeriod, error) {
	m := MonthStart(month)
	dueDate := DueDateForMonth(m.Year(), m.Month(), lease.DueDay)

	utility, _, err := s.utility.PostedAmountFor(ctx, lease.UnitID, m)
	if err != nil {
		return BillingPeriod{}, fmt.Errorf("utility amount for unit %s: %w", lease.UnitID, err)
	}

	accrual := Accrue(lease.MonthlyRent, dueDate, asOf)
	total := Round2(lease.MonthlyRent.Add(utility).Add(accrual.Surcharge))

	return BillingPeriod{
		LeaseID:         lease.ID,
		PeriodMonth:     m,
		DueDate:         dueDate,
		BaseAmount:      Round2(lease.MonthlyRent),
		UtilityAmount:   Round2(utility),
		SurchargeAmount: accrual.Surcharge,
		TotalAmount:     total,
		Status:          StatusOutstanding,
	}, nil
}

// validateLease guards against registry rows missing required fields.
func validateLease(lease Lease) error {
	switch {
	case lease.ID == "":
		return &ConsistencyError{LeaseID: lease.ID, Detail: "lease has no identifier"}
	case !lease.MonthlyRent.IsPositive():
		return &ConsistencyError{LeaseID: lease.ID, Detail: "monthly rent must be positive"}
	case lease.DueDay < 1 || lease.DueDay > 31:
		return &ConsistencyError{LeaseID: lease.ID, Detail: fmt.Sprintf("due day %d out of range", lease.DueDay)}
	case lease.StartDate.IsZero():
		return &ConsistencyError{LeaseID: lease.ID, Detail: "lease has no start date"}
	}
	return nil
}
