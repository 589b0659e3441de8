/*
settle.go - Atomic settlement of outstanding billing periods

PURPOSE:
  Select the oldest outstanding periods for a lease, lock out concurrent
  settlement attempts for that lease, recompute each total one final time,
  freeze the periods as SETTLED under a single reference, and record exactly
  one aggregate settlement transaction. All-or-nothing.

ORDERING:
  Already-due periods (due date <= as-of) settle first, oldest month first.
  Only when nothing is due yet does settlement pay ahead, covering future
  months from the current month forward.

CONCURRENCY:
  Within one lease, settlements are serialized by a per-lease lock bounded by
  a timeout. A second concurrent attempt either waits its turn (and then
  re-selects, typically finding nothing left) or fails with
  ErrSettlementConflict when the wait exceeds the bound. The lock is acquired
  before any read that feeds the final computation, and all writes commit in
  one store transaction.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/metrics"
)

// DefaultLockTimeout bounds how long a settlement waits for a competing
// settlement on the same lease before giving up.
const DefaultLockTimeout = 5 * time.Second

// MaxSettlementPeriods caps how many periods one settlement may cover.
const MaxSettlementPeriods = 12

// Processor settles outstanding billing periods.
type Processor struct {
	store       TxStore
	sync        *Synchronizer
	clock       Clock
	logger      *zap.Logger
	locks       *leaseLocks
	lockTimeout time.Duration
}

func NewProcessor(store TxStore, sync *Synchronizer, clock Clock, logger *zap.Logger) *Processor {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:       store,
		sync:        sync,
		clock:       clock,
		logger:      logger,
		locks:       newLeaseLocks(),
		lockTimeout: DefaultLockTimeout,
	}
}

// SetLockTimeout overrides the settlement lock bound (tests use a short one).
func (p *Processor) SetLockTimeout(d time.Duration) { p.lockTimeout = d }

// Settle marks up to maxPeriods outstanding periods as settled under one
// external reference and records one aggregate SettlementTransaction.
//
// Fails with ErrInvalidReference for an empty reference, ErrInvalidMonthCount
// for maxPeriods outside [1, 12], ErrNoOutstandingPeriods when nothing
// matches, and ErrSettlementConflict on lock timeout. Validation happens
// before any mutation; on any failure no period is left partially modified.
func (p *Processor) Settle(ctx context.Context, lease Lease, maxPeriods int, reference string, asOf time.Time) (SettlementTransaction, error) {
	if strings.TrimSpace(reference) == "" {
		return SettlementTransaction{}, ErrInvalidReference
	}
	if maxPeriods < 1 || maxPeriods > MaxSettlementPeriods {
		return SettlementTransaction{}, fmt.Errorf("%w: %d", ErrInvalidMonthCount, maxPeriods)
	}

	// Freshness: settled amounts must reflect the as-of date.
	if err := p.sync.Sync(ctx, lease, asOf); err != nil {
		return SettlementTransaction{}, err
	}

	started := time.Now()
	release, err := p.locks.acquire(ctx, lease.ID, p.lockTimeout)
	if err != nil {
		p.logger.Warn("settlement lock contention",
			zap.String("lease_id", string(lease.ID)),
			zap.Duration("timeout", p.lockTimeout),
		)
		metrics.IncSettlementConflict()
		metrics.ObserveSettlement(metrics.ResultConflict, time.Since(started))
		return SettlementTransaction{}, err
	}
	defer release()

	candidates, err := selectSettlementCandidates(ctx, p.store, p.sync, lease, maxPeriods, asOf)
	if err != nil {
		return SettlementTransaction{}, err
	}
	if len(candidates) == 0 {
		return SettlementTransaction{}, ErrNoOutstandingPeriods
	}

	now := p.clock.Now()
	settlement := SettlementTransaction{
		ID:        SettlementID(uuid.New().String()),
		LeaseID:   lease.ID,
		Reference: strings.TrimSpace(reference),
		SettledAt: now,
	}

	err = p.store.WithTx(ctx, func(tx Store) error {
		total := decimal.Zero
		settled := 0

		for _, candidate := range candidates {
			current, err := tx.FindPeriod(ctx, lease.ID, candidate.PeriodMonth)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("%w: %s", ErrPeriodNotFound, candidate.PeriodMonth.Format("2006-01"))
			}
			if !current.Outstanding() {
				// Settled by an earlier settlement; nothing to redo here.
				continue
			}

			// Final recomputation: the last write before commit, so amounts
			// frozen here reflect the inputs at settlement time.
			final, err := p.sync.Compute(ctx, lease, current.PeriodMonth, asOf)
			if err != nil {
				return err
			}
			final.ID = current.ID
			final.CreatedAt = current.CreatedAt
			final.Status = StatusSettled
			final.SettledAt = &now
			final.SettlementReference = settlement.Reference

			if err := tx.MarkSettled(ctx, final); err != nil {
				return err
			}

			total = total.Add(final.TotalAmount)
			settled++
		}

		if settled == 0 {
			return ErrNoOutstandingPeriods
		}

		settlement.PeriodsSettled = settled
		settlement.TotalAmount = Round2(total)
		return tx.AppendSettlement(ctx, settlement)
	})
	if err != nil {
		metrics.ObserveSettlement(metrics.ResultError, time.Since(started))
		return SettlementTransaction{}, err
	}
	metrics.ObserveSettlement(metrics.ResultSuccess, time.Since(started))

	p.logger.Info("settlement committed",
		zap.String("lease_id", string(lease.ID)),
		zap.String("settlement_id", string(settlement.ID)),
		zap.Int("periods", settlement.PeriodsSettled),
		zap.String("total", settlement.TotalAmount.String()),
	)
	return settlement, nil
}

// selectSettlementCandidates picks the periods a settlement covers: due
// periods first, oldest month first; otherwise future periods from the
// current month on, materializing enough of them to satisfy maxPeriods.
// Settle calls this under the lease lock; PreviewSettlement without it.
func selectSettlementCandidates(ctx context.Context, store Store, syncer *Synchronizer, lease Lease, maxPeriods int, asOf time.Time) ([]BillingPeriod, error) {
	cutoff := DayOf(asOf)
	due, err := store.Periods(ctx, lease.ID, PeriodFilter{
		Status:        StatusOutstanding,
		DueOnOrBefore: &cutoff,
		Limit:         maxPeriods,
	})
	if err != nil {
		return nil, err
	}
	if len(due) > 0 {
		return due, nil
	}

	// Paying ahead: make sure enough future periods exist first.
	thisMonth := MonthStart(asOf)
	target := AddMonths(thisMonth, maxPeriods-1)
	if err := syncer.SyncUpTo(ctx, lease, target, asOf); err != nil {
		return nil, err
	}

	return store.Periods(ctx, lease.ID, PeriodFilter{
		Status:         StatusOutstanding,
		MonthOnOrAfter: &thisMonth,
		Limit:          maxPeriods,
	})
}

// verifySettledInvariant checks a SETTLED period's stored total against its
// components. Settled data is never auto-corrected; violations surface as
// consistency errors.
func verifySettledInvariant(p BillingPeriod) error {
	if p.Status != StatusSettled {
		return nil
	}
	computed := Round2(p.BaseAmount.Add(p.UtilityAmount).Add(p.SurchargeAmount))
	if !p.TotalAmount.Equal(computed) {
		return &SettledTotalMismatchError{
			PeriodID: p.ID,
			Month:    p.PeriodMonth,
			Stored:   p.TotalAmount,
			Computed: computed,
		}
	}
	return nil
}

// =============================================================================
// PER-LEASE LOCK REGISTRY
// =============================================================================
// A single-node stand-in for row locks: one semaphore per lease identifier.
// Lease count is small and bounded, so entries are never evicted.

type leaseLocks struct {
	mu   sync.Mutex
	sems map[LeaseID]chan struct{}
}

func newLeaseLocks() *leaseLocks {
	return &leaseLocks{sems: make(map[LeaseID]chan struct{})}
}

func (l *leaseLocks) sem(id LeaseID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[id]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[id] = s
	}
	return s
}

// acquire blocks up to timeout for the lease's lock. A timeout converts to
// ErrSettlementConflict so the caller can retry with backoff.
func (l *leaseLocks) acquire(ctx context.Context, id LeaseID, timeout time.Duration) (func(), error) {
	s := l.sem(id)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-timer.C:
		return nil, ErrSettlementConflict
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSettlementConflict, ctx.Err())
	}
}
