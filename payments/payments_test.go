package payments

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/ledger/store"
)

// memStore is a map-backed payment Store.
type memStore struct {
	payments map[string]ManualPayment
}

func newMemStore() *memStore { return &memStore{payments: make(map[string]ManualPayment)} }

func (m *memStore) CreatePayment(_ context.Context, p ManualPayment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *memStore) UpdatePayment(_ context.Context, p ManualPayment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *memStore) FindPayment(_ context.Context, id string) (*ManualPayment, error) {
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) PaymentsByTenant(_ context.Context, tenantID ledger.PayerID) ([]ManualPayment, error) {
	var out []ManualPayment
	for _, p := range m.payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	return out, nil
}

func (m *memStore) PendingPayments(_ context.Context) ([]ManualPayment, error) {
	var out []ManualPayment
	for _, p := range m.payments {
		if p.Status == PaymentPending {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

// staticLeases resolves one tenant to one lease.
type staticLeases struct {
	lease ledger.Lease
}

func (s staticLeases) ActiveLease(_ context.Context, payerID ledger.PayerID) (ledger.Lease, error) {
	if payerID != s.lease.PayerID {
		return ledger.Lease{}, ledger.ErrLeaseNotFound
	}
	return s.lease, nil
}

func testLease() ledger.Lease {
	return ledger.Lease{
		ID:          "lease-1",
		PayerID:     "tenant-1",
		UnitID:      "unit-1",
		MonthlyRent: ledger.MustDecimal("10000.00"),
		DueDay:      5,
		StartDate:   ledger.Date(2026, time.January, 1),
		Active:      true,
	}
}

func newTestService(t *testing.T, now time.Time) (*memStore, *store.TxMemory, *Service) {
	t.Helper()
	clock := ledger.FixedClock{At: now}
	ledgerStore := store.NewTxMemory()
	syncer := ledger.NewSynchronizer(ledgerStore, ledger.NoUtility{}, clock, nil)
	proc := ledger.NewProcessor(ledgerStore, syncer, clock, nil)

	payStore := newMemStore()
	svc := NewService(payStore, staticLeases{lease: testLease()}, proc, clock, nil)
	return payStore, ledgerStore, svc
}

func TestCapture_RecordsPending(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, svc := newTestService(t, asOf)
	ctx := context.Background()

	p, err := svc.Capture(ctx, "tenant-1", "  REF123  ", 2, "bank transfer")
	require.NoError(t, err)

	assert.Equal(t, PaymentPending, p.Status)
	assert.Equal(t, "REF123", p.Reference, "reference is trimmed")
	assert.Equal(t, 2, p.MonthsCovered)
	assert.Nil(t, p.ReviewedAt)
}

func TestCapture_Validation(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, svc := newTestService(t, asOf)
	ctx := context.Background()

	_, err := svc.Capture(ctx, "tenant-1", "   ", 1, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidReference)

	_, err = svc.Capture(ctx, "tenant-1", "REF", 0, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidMonthCount)

	_, err = svc.Capture(ctx, "tenant-1", "REF", 13, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidMonthCount)

	_, err = svc.Capture(ctx, "stranger", "REF", 1, "")
	assert.ErrorIs(t, err, ledger.ErrLeaseNotFound)
}

func TestApprove_SettlesUnderCapturedReference(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, ledgerStore, svc := newTestService(t, asOf)
	ctx := context.Background()

	p, err := svc.Capture(ctx, "tenant-1", "REF123", 2, "")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, p.ID, "admin", asOf)
	require.NoError(t, err)

	assert.Equal(t, PaymentApproved, approved.Status)
	assert.Equal(t, "admin", approved.Reviewer)
	assert.NotEmpty(t, approved.SettlementID)
	require.NotNil(t, approved.ReviewedAt)

	// The ledger carries one settlement under the payment's reference.
	history, err := ledgerStore.SettlementsByLease(ctx, "lease-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "REF123", history[0].Reference)
	assert.Equal(t, 2, history[0].PeriodsSettled)
	assert.Equal(t, approved.SettlementID, history[0].ID)
}

func TestApprove_PaymentStaysPendingWhenSettlementFails(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	payStore, _, svc := newTestService(t, asOf)
	ctx := context.Background()

	p, err := svc.Capture(ctx, "tenant-1", "REF-1", 12, "")
	require.NoError(t, err)

	// Drain everything settleable, then approval has nothing to settle.
	drain1, err := svc.Capture(ctx, "tenant-1", "DRAIN-1", 12, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, drain1.ID, "admin", asOf)
	require.NoError(t, err)
	drain2, err := svc.Capture(ctx, "tenant-1", "DRAIN-2", 12, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, drain2.ID, "admin", asOf)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, p.ID, "admin", asOf)
	assert.ErrorIs(t, err, ledger.ErrNoOutstandingPeriods)

	stored, err := payStore.FindPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, stored.Status, "failed approval leaves the payment reviewable")
}

func TestReject_RecordsDecisionWithoutSettling(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, ledgerStore, svc := newTestService(t, asOf)
	ctx := context.Background()

	p, err := svc.Capture(ctx, "tenant-1", "BOGUS", 1, "")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, p.ID, "admin", "no matching deposit")
	require.NoError(t, err)

	assert.Equal(t, PaymentRejected, rejected.Status)
	assert.Equal(t, "no matching deposit", rejected.ReviewNote)

	history, err := ledgerStore.SettlementsByLease(ctx, "lease-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReview_RejectsDoubleDecision(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	_, _, svc := newTestService(t, asOf)
	ctx := context.Background()

	p, err := svc.Capture(ctx, "tenant-1", "REF123", 1, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, p.ID, "admin", asOf)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, p.ID, "admin", asOf)
	assert.ErrorIs(t, err, ErrPaymentReviewed)
	_, err = svc.Reject(ctx, p.ID, "admin", "late")
	assert.ErrorIs(t, err, ErrPaymentReviewed)

	_, err = svc.Approve(ctx, "missing", "admin", asOf)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestPendingQueue_OldestFirst(t *testing.T) {
	asOf := ledger.Date(2026, time.March, 10)
	payStore, _, svc := newTestService(t, asOf)
	ctx := context.Background()

	// Force distinct capture times.
	first := ManualPayment{ID: "p1", TenantID: "tenant-1", Reference: "R1",
		MonthsCovered: 1, Status: PaymentPending,
		CapturedAt: ledger.Date(2026, time.March, 1)}
	second := ManualPayment{ID: "p2", TenantID: "tenant-1", Reference: "R2",
		MonthsCovered: 1, Status: PaymentPending,
		CapturedAt: ledger.Date(2026, time.March, 2)}
	require.NoError(t, payStore.CreatePayment(ctx, second))
	require.NoError(t, payStore.CreatePayment(ctx, first))

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p1", pending[0].ID)
	assert.Equal(t, "p2", pending[1].ID)
}
