/*
query.go - Read-only projections over the ledger

PURPOSE:
  The query façade callers read through: current due period, next upcoming
  period, settlement preview, full statement, settlement history. Queries
  synchronize first so every projection reflects freshly computed amounts,
  but they never lock and never settle.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Queries exposes read-only ledger projections.
type Queries struct {
	store  Store
	sync   *Synchronizer
	logger *zap.Logger
}

func NewQueries(store Store, sync *Synchronizer, logger *zap.Logger) *Queries {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queries{store: store, sync: sync, logger: logger}
}

// CurrentDue returns the oldest outstanding period with freshly recomputed
// amounts, or nil when the lease owes nothing.
func (q *Queries) CurrentDue(ctx context.Context, lease Lease, asOf time.Time) (*BillingPeriod, error) {
	if err := q.sync.Sync(ctx, lease, asOf); err != nil {
		return nil, err
	}

	periods, err := q.store.Periods(ctx, lease.ID, PeriodFilter{
		Status: StatusOutstanding,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}
	return &periods[0], nil
}

// Upcoming returns next month's period, materializing it if necessary.
func (q *Queries) Upcoming(ctx context.Context, lease Lease, asOf time.Time) (*BillingPeriod, error) {
	next := AddMonths(MonthStart(asOf), 1)
	if err := q.sync.SyncUpTo(ctx, lease, next, asOf); err != nil {
		return nil, err
	}

	p, err := q.store.FindPeriod(ctx, lease.ID, next)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, next.Format("2006-01"))
	}
	return p, nil
}

// Outstanding returns the unpaid periods that have reached their billing
// month (no future periods), oldest first.
func (q *Queries) Outstanding(ctx context.Context, lease Lease, asOf time.Time) ([]BillingPeriod, error) {
	if err := q.sync.Sync(ctx, lease, asOf); err != nil {
		return nil, err
	}

	thisMonth := MonthStart(asOf)
	return q.store.Periods(ctx, lease.ID, PeriodFilter{
		Status:          StatusOutstanding,
		MonthOnOrBefore: &thisMonth,
	})
}

// Statement returns every period through the current month, outstanding ones
// refreshed and settled ones verified against the frozen-total invariant.
// A violated invariant surfaces as a consistency error, never a silent fix.
func (q *Queries) Statement(ctx context.Context, lease Lease, asOf time.Time) ([]BillingPeriod, error) {
	if err := q.sync.Sync(ctx, lease, asOf); err != nil {
		return nil, err
	}

	thisMonth := MonthStart(asOf)
	periods, err := q.store.Periods(ctx, lease.ID, PeriodFilter{MonthOnOrBefore: &thisMonth})
	if err != nil {
		return nil, err
	}

	for _, p := range periods {
		if err := verifySettledInvariant(p); err != nil {
			q.logger.Error("settled period failed invariant check",
				zap.String("lease_id", string(lease.ID)),
				zap.String("period_id", string(p.ID)),
				zap.Error(err),
			)
			return nil, err
		}
	}
	return periods, nil
}

// PreviewSettlement returns the ordered periods a settlement would cover and
// their running total, without locking or settling. Side effects are limited
// to synchronization.
func (q *Queries) PreviewSettlement(ctx context.Context, lease Lease, monthsRequested int, asOf time.Time) ([]BillingPeriod, decimal.Decimal, error) {
	if monthsRequested < 1 || monthsRequested > MaxSettlementPeriods {
		return nil, decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidMonthCount, monthsRequested)
	}
	if err := q.sync.Sync(ctx, lease, asOf); err != nil {
		return nil, decimal.Zero, err
	}

	candidates, err := selectSettlementCandidates(ctx, q.store, q.sync, lease, monthsRequested, asOf)
	if err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range candidates {
		total = total.Add(p.TotalAmount)
	}
	return candidates, Round2(total), nil
}

// History returns the lease's settlement transactions, newest first.
func (q *Queries) History(ctx context.Context, lease Lease) ([]SettlementTransaction, error) {
	return q.store.SettlementsByLease(ctx, lease.ID)
}
