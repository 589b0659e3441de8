package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/ledger/store"
)

func newQueryHarness(t *testing.T, now time.Time) (*store.TxMemory, *ledger.Processor, *ledger.Queries) {
	t.Helper()
	mem := store.NewTxMemory()
	clock := ledger.FixedClock{At: now}
	syncer := ledger.NewSynchronizer(mem, ledger.NoUtility{}, clock, nil)
	proc := ledger.NewProcessor(mem, syncer, clock, nil)
	return mem, proc, ledger.NewQueries(mem, syncer, nil)
}

func TestCurrentDue_OldestOutstandingWithFreshAmounts(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	p, err := q.CurrentDue(ctx, lease, asOf)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, ledger.Date(2026, time.January, 1), p.PeriodMonth)
	assert.Equal(t, "13000.00", p.TotalAmount.StringFixed(2),
		"January carries 10 started late weeks at 2026-03-10")
}

func TestCurrentDue_NilWhenNothingOwed(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, proc, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	_, err := proc.Settle(ctx, lease, 3, "PAID-UP", asOf)
	require.NoError(t, err)

	p, err := q.CurrentDue(ctx, lease, asOf)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpcoming_MaterializesNextMonth(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	p, err := q.Upcoming(ctx, lease, asOf)
	require.NoError(t, err)

	assert.Equal(t, ledger.Date(2026, time.April, 1), p.PeriodMonth)
	assert.Equal(t, ledger.Date(2026, time.April, 5), p.DueDate)
	assert.Equal(t, "0.00", p.SurchargeAmount.StringFixed(2), "future months carry no surcharge")
	assert.Equal(t, ledger.StatusOutstanding, p.Status)
}

func TestOutstanding_ExcludesFutureAndSettled(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, proc, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	// Materialize April via Upcoming, then settle January.
	_, err := q.Upcoming(ctx, lease, asOf)
	require.NoError(t, err)
	_, err = proc.Settle(ctx, lease, 1, "REF-JAN", asOf)
	require.NoError(t, err)

	periods, err := q.Outstanding(ctx, lease, asOf)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	assert.Equal(t, ledger.Date(2026, time.February, 1), periods[0].PeriodMonth)
	assert.Equal(t, ledger.Date(2026, time.March, 1), periods[1].PeriodMonth)
}

func TestStatement_IncludesSettledAndOutstanding(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, proc, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	_, err := proc.Settle(ctx, lease, 2, "REF123", asOf)
	require.NoError(t, err)

	periods, err := q.Statement(ctx, lease, asOf)
	require.NoError(t, err)

	require.Len(t, periods, 3)
	assert.Equal(t, ledger.StatusSettled, periods[0].Status)
	assert.Equal(t, ledger.StatusSettled, periods[1].Status)
	assert.Equal(t, ledger.StatusOutstanding, periods[2].Status)
}

func TestStatement_SurfacesCorruptedSettledTotals(t *testing.T) {
	asOf := ledger.Date(2026, time.February, 10)
	mem, _, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	// Seed a settled January row whose stored total disagrees with the sum
	// of its components, as if the row were damaged after settlement.
	settledAt := ledger.Date(2026, time.January, 10)
	require.NoError(t, mem.CreatePeriod(ctx, ledger.BillingPeriod{
		ID:                  "per-corrupt",
		LeaseID:             lease.ID,
		PeriodMonth:         ledger.Date(2026, time.January, 1),
		DueDate:             ledger.Date(2026, time.January, 5),
		BaseAmount:          ledger.MustDecimal("10000.00"),
		UtilityAmount:       ledger.MustDecimal("0.00"),
		SurchargeAmount:     ledger.MustDecimal("300.00"),
		TotalAmount:         ledger.MustDecimal("10300.01"),
		Status:              ledger.StatusSettled,
		SettledAt:           &settledAt,
		SettlementReference: "REF-1",
		CreatedAt:           settledAt,
	}))

	_, err := q.Statement(ctx, lease, asOf)
	assert.ErrorIs(t, err, ledger.ErrDataConsistency)

	var mismatch *ledger.SettledTotalMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "10300.01", mismatch.Stored.StringFixed(2))
}

func TestPreviewSettlement_MatchesSettleWithoutMutating(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	mem, proc, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	candidates, total, err := q.PreviewSettlement(ctx, lease, 2, asOf)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, ledger.Date(2026, time.January, 1), candidates[0].PeriodMonth)
	assert.Equal(t, ledger.Date(2026, time.February, 1), candidates[1].PeriodMonth)
	assert.Equal(t, "24500.00", total.StringFixed(2))

	// Preview leaves everything outstanding.
	settled, err := mem.Periods(ctx, lease.ID, ledger.PeriodFilter{Status: ledger.StatusSettled})
	require.NoError(t, err)
	assert.Empty(t, settled)

	// A real settlement then matches the preview.
	tx, err := proc.Settle(ctx, lease, 2, "REF123", asOf)
	require.NoError(t, err)
	assert.True(t, tx.TotalAmount.Equal(total))
}

func TestPreviewSettlement_RejectsBadMonthCount(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, q := newQueryHarness(t, asOf)
	ctx := context.Background()

	_, _, err := q.PreviewSettlement(ctx, testLease(), 0, asOf)
	assert.ErrorIs(t, err, ledger.ErrInvalidMonthCount)

	_, _, err = q.PreviewSettlement(ctx, testLease(), 13, asOf)
	assert.ErrorIs(t, err, ledger.ErrInvalidMonthCount)
}

func TestHistory_NewestFirst(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, proc, q := newQueryHarness(t, asOf)
	ctx := context.Background()
	lease := testLease()

	_, err := proc.Settle(ctx, lease, 1, "FIRST", asOf)
	require.NoError(t, err)
	_, err = proc.Settle(ctx, lease, 1, "SECOND", asOf)
	require.NoError(t, err)

	history, err := q.History(ctx, lease)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, "SECOND", history[0].Reference)
	assert.Equal(t, "FIRST", history[1].Reference)
}
