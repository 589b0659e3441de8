package maintenance

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-ledger/ledger"
)

// memStore is a map-backed request Store with an insertion counter so
// newest-first ordering is deterministic under a fixed clock.
type memStore struct {
	requests map[string]Request
	order    map[string]int
	seq      int
}

func newMemStore() *memStore {
	return &memStore{requests: make(map[string]Request), order: make(map[string]int)}
}

func (m *memStore) CreateRequest(_ context.Context, r Request) error {
	m.seq++
	m.requests[r.ID] = r
	m.order[r.ID] = m.seq
	return nil
}

func (m *memStore) UpdateRequest(_ context.Context, r Request) error {
	m.requests[r.ID] = r
	return nil
}

func (m *memStore) FindRequest(_ context.Context, id string) (*Request, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memStore) RequestsByTenant(_ context.Context, tenantID ledger.PayerID) ([]Request, error) {
	var out []Request
	for _, r := range m.requests {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	m.sortNewestFirst(out)
	return out, nil
}

func (m *memStore) Requests(_ context.Context, status Status) ([]Request, error) {
	var out []Request
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	m.sortNewestFirst(out)
	return out, nil
}

func (m *memStore) sortNewestFirst(out []Request) {
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
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

func newTestService(t *testing.T, now time.Time) (*memStore, *Service) {
	t.Helper()
	st := newMemStore()
	svc := NewService(st, staticLeases{lease: testLease()}, ledger.FixedClock{At: now}, nil)
	return st, svc
}

func TestSubmit_OpensWithDefaultPriority(t *testing.T) {
	now := ledger.Date(2026, time.March, 10)
	_, svc := newTestService(t, now)
	ctx := context.Background()

	r, err := svc.Submit(ctx, "tenant-1", CategoryPlumbing, "  Leaking faucet  ", "Kitchen faucet drips overnight.")
	require.NoError(t, err)

	assert.Equal(t, "Leaking faucet", r.Title)
	assert.Equal(t, StatusOpen, r.Status)
	assert.Equal(t, PriorityMedium, r.Priority)
	assert.Equal(t, ledger.LeaseID("lease-1"), r.LeaseID)
	assert.Equal(t, now, r.CreatedAt)
}

func TestSubmit_WithoutActiveLease(t *testing.T) {
	// A tenant between leases can still report an issue; the request just
	// carries no lease.
	_, svc := newTestService(t, ledger.Date(2026, time.March, 10))

	r, err := svc.Submit(context.Background(), "stranger", CategoryOther, "Broken gate", "The street gate latch is broken.")
	require.NoError(t, err)
	assert.Empty(t, r.LeaseID)
}

func TestSubmit_Validation(t *testing.T) {
	st, svc := newTestService(t, ledger.Date(2026, time.March, 10))
	ctx := context.Background()

	_, err := svc.Submit(ctx, "tenant-1", Category("GARDENING"), "Weeds", "Overgrown weeds.")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Submit(ctx, "tenant-1", CategoryOther, "   ", "No title given.")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Submit(ctx, "tenant-1", CategoryOther, "No description", "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Empty(t, st.requests, "rejected submissions must not be stored")
}

func TestTriage_SetsStatusAndPriority(t *testing.T) {
	submitted := ledger.Date(2026, time.March, 10)
	st, svc := newTestService(t, submitted)
	ctx := context.Background()

	r, err := svc.Submit(ctx, "tenant-1", CategoryElectrical, "No power in bedroom", "Outlets on the east wall are dead.")
	require.NoError(t, err)

	triaged, err := svc.Triage(ctx, r.ID, StatusInProgress, PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, triaged.Status)
	assert.Equal(t, PriorityUrgent, triaged.Priority)

	// Submission facts survive triage untouched.
	stored := st.requests[r.ID]
	assert.Equal(t, "No power in bedroom", stored.Title)
	assert.Equal(t, CategoryElectrical, stored.Category)
	assert.Equal(t, submitted, stored.CreatedAt)
}

func TestTriage_Validation(t *testing.T) {
	_, svc := newTestService(t, ledger.Date(2026, time.March, 10))
	ctx := context.Background()

	r, err := svc.Submit(ctx, "tenant-1", CategoryOther, "Squeaky door", "Front door hinge squeaks.")
	require.NoError(t, err)

	_, err = svc.Triage(ctx, r.ID, Status("DONE"), PriorityLow)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Triage(ctx, r.ID, StatusResolved, Priority("WHENEVER"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Triage(ctx, "missing", StatusResolved, PriorityLow)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestByTenant_NewestFirst(t *testing.T) {
	_, svc := newTestService(t, ledger.Date(2026, time.March, 10))
	ctx := context.Background()

	first, err := svc.Submit(ctx, "tenant-1", CategoryPlumbing, "First", "Oldest report.")
	require.NoError(t, err)
	second, err := svc.Submit(ctx, "tenant-1", CategoryOther, "Second", "Newest report.")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "stranger", CategoryOther, "Elsewhere", "Someone else's report.")
	require.NoError(t, err)

	mine, err := svc.ByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
}

func TestAll_FiltersByStatus(t *testing.T) {
	_, svc := newTestService(t, ledger.Date(2026, time.March, 10))
	ctx := context.Background()

	open, err := svc.Submit(ctx, "tenant-1", CategoryPlumbing, "Open one", "Still open.")
	require.NoError(t, err)
	done, err := svc.Submit(ctx, "tenant-1", CategoryOther, "Done one", "Already handled.")
	require.NoError(t, err)
	_, err = svc.Triage(ctx, done.ID, StatusResolved, PriorityLow)
	require.NoError(t, err)

	all, err := svc.All(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyOpen, err := svc.All(ctx, StatusOpen)
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, open.ID, onlyOpen[0].ID)

	_, err = svc.All(ctx, Status("BOGUS"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
