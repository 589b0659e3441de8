/*
handlers_test.go - HTTP tests for the API surface

Tests run against the real router with a SQLite-backed handler, so they
exercise routing, JSON mapping, error statuses, and the full domain wiring.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/config"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/maintenance"
	"github.com/warp/rent-ledger/payments"
	"github.com/warp/rent-ledger/rental"
	"github.com/warp/rent-ledger/store/sqlite"
	"github.com/warp/rent-ledger/water"
)

func newTestAPI(t *testing.T, now time.Time) (*Handler, http.Handler) {
	t.Helper()

	st, err := sqlite.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := ledger.FixedClock{At: now}
	logger := zap.NewNop()

	registry := rental.NewRegistry(st, clock, logger)
	waterSrc := water.NewSource(st)
	waterSvc := water.NewService(st, clock, logger)
	sync := ledger.NewSynchronizer(st, waterSrc, clock, logger)
	processor := ledger.NewProcessor(st, sync, clock, logger)
	queries := ledger.NewQueries(st, sync, logger)
	paySvc := payments.NewService(st, registry, processor, clock, logger)
	maintSvc := maintenance.NewService(st, registry, clock, logger)

	payee := config.PayeeConfig{
		AccountName:   "Warp Property Mgmt",
		AccountNumber: "0012-3456-78",
		BankName:      "BDO",
	}
	h := NewHandler(registry, waterSvc, paySvc, maintSvc, queries, processor, clock, payee, logger)
	return h, NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// seedLeasedTenant creates a unit, tenant, and lease through the API and
// returns the tenant ID. Rent 10000.00, due day 5, start January 2026.
func seedLeasedTenant(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/admin/units", CreateUnitRequest{
		Name:    "Unit 2A",
		Address: "14 Mabini St",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	unit := decode[UnitDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/tenants", CreateTenantRequest{
		FullName: "Maria Santos",
		Email:    "maria@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tenant := decode[TenantDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/leases", CreateLeaseRequest{
		UnitID:      unit.ID,
		TenantID:    tenant.ID,
		MonthlyRent: "10000.00",
		DueDay:      5,
		StartDate:   "2026-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	return tenant.ID
}

func TestDashboard(t *testing.T) {
	// GIVEN: a lease three months old with nothing paid, viewed March 10
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DashboardResponse](t, rec)

	assert.Equal(t, "Maria Santos", resp.Tenant.FullName)
	assert.Equal(t, "10000.00", resp.Lease.MonthlyRent)
	assert.Equal(t, "BDO", resp.Payee.BankName)

	// Oldest unpaid period: January, 65 days late = 10 started weeks,
	// 10000 + 10 * 300.
	require.NotNil(t, resp.CurrentDue)
	assert.Equal(t, "2026-01", resp.CurrentDue.PeriodMonth)
	assert.Equal(t, "13000.00", resp.CurrentDue.TotalAmount)
	assert.Equal(t, string(ledger.UrgencyOverdue), resp.CurrentDue.Urgency)

	// Next month ahead is April, not yet late.
	require.NotNil(t, resp.Upcoming)
	assert.Equal(t, "2026-04", resp.Upcoming.PeriodMonth)
	assert.Equal(t, "0.00", resp.Upcoming.SurchargeAmount)
}

func TestDashboard_TenantNotFound(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))

	rec := doJSON(t, router, http.MethodGet, "/api/tenants/nobody/dashboard", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBilling(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[BillingResponse](t, rec)

	require.Len(t, resp.Outstanding, 3)
	assert.Equal(t, "2026-01", resp.Outstanding[0].PeriodMonth)
	assert.Equal(t, "2026-03", resp.Outstanding[2].PeriodMonth)
	assert.NotEmpty(t, resp.Outstanding[0].Urgency)
	assert.Empty(t, resp.History)
}

func TestSettleEndpoint(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	// Preview first: two months cover January and February.
	rec := doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/settlement/preview",
		PreviewSettlementRequest{Months: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[PreviewSettlementResponse](t, rec)
	require.Len(t, preview.Periods, 2)
	assert.Equal(t, "24500.00", preview.TotalAmount)

	// Settle them.
	rec = doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/settle",
		SettleRequest{Months: 2, Reference: "REF123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	settled := decode[SettlementDTO](t, rec)
	assert.Equal(t, "REF123", settled.Reference)
	assert.Equal(t, 2, settled.PeriodsSettled)
	assert.Equal(t, "24500.00", settled.TotalAmount)

	// Billing now shows only March outstanding and one settlement.
	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	billing := decode[BillingResponse](t, rec)
	require.Len(t, billing.Outstanding, 1)
	assert.Equal(t, "2026-03", billing.Outstanding[0].PeriodMonth)
	require.Len(t, billing.History, 1)
	assert.Equal(t, settled.ID, billing.History[0].ID)
}

func TestSettleEndpoint_Validation(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/settle",
		SettleRequest{Months: 0, Reference: "REF123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/settle",
		SettleRequest{Months: 2, Reference: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was settled by the rejected attempts.
	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	billing := decode[BillingResponse](t, rec)
	assert.Len(t, billing.Outstanding, 3)
	assert.Empty(t, billing.History)
}

func TestPaymentReviewFlow(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	// Tenant reports a transfer covering two months.
	rec := doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/payments",
		CapturePaymentRequest{Reference: "GCASH-778", MonthsCovered: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	captured := decode[PaymentDTO](t, rec)
	assert.Equal(t, "PENDING", captured.Status)

	// Admin sees it in the queue.
	rec = doJSON(t, router, http.MethodGet, "/api/admin/payments/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[[]PaymentDTO](t, rec)
	require.Len(t, queue, 1)
	require.Equal(t, captured.ID, queue[0].ID)

	// Approval settles January and February.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/payments/"+captured.ID+"/approve",
		ReviewPaymentRequest{Reviewer: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[PaymentDTO](t, rec)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.NotEmpty(t, approved.SettlementID)

	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	billing := decode[BillingResponse](t, rec)
	require.Len(t, billing.History, 1)
	assert.Equal(t, approved.SettlementID, billing.History[0].ID)
	assert.Equal(t, "GCASH-778", billing.History[0].Reference)

	// A second decision on the same payment conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/payments/"+captured.ID+"/reject",
		ReviewPaymentRequest{Reviewer: "admin", Note: "dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWaterBillLifecycle(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/dashboard", nil)
	dash := decode[DashboardResponse](t, rec)
	unitID := dash.Lease.UnitID

	// Draft a bill for January: 15 cu.m at 28.75 plus a 50.00 charge.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/water-bills", DraftWaterBillRequest{
		UnitID:          unitID,
		PeriodStart:     "2026-01-01",
		PeriodEnd:       "2026-01-31",
		PreviousReading: "120",
		CurrentReading:  "135",
		RatePerCubic:    "28.75",
		Charges:         []ChargeDTO{{Label: "Meter maintenance", Amount: "50.00"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bill := decode[WaterBillDTO](t, rec)
	assert.Equal(t, "DRAFT", bill.Status)
	assert.Equal(t, "481.25", bill.Total)

	// Drafts are invisible to billing.
	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	billing := decode[BillingResponse](t, rec)
	assert.Equal(t, "0.00", billing.Outstanding[0].UtilityAmount)

	// Posting freezes the bill and folds it into January's total.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/water-bills/"+bill.ID+"/post", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posted := decode[WaterBillDTO](t, rec)
	assert.Equal(t, "POSTED", posted.Status)
	require.NotNil(t, posted.PostedAt)

	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/billing", nil)
	billing = decode[BillingResponse](t, rec)
	assert.Equal(t, "481.25", billing.Outstanding[0].UtilityAmount)
	assert.Equal(t, "13481.25", billing.Outstanding[0].TotalAmount)

	// Posted bills reject edits and a second post.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/water-bills/"+bill.ID+"/post", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/admin/water-bills?unit_id="+unitID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]WaterBillDTO](t, rec), 1)
}

func TestLeaseConflicts(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/units", CreateUnitRequest{Name: "Unit 2B"})
	require.Equal(t, http.StatusCreated, rec.Code)
	spare := decode[UnitDTO](t, rec)

	// The tenant already holds an active lease.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/leases", CreateLeaseRequest{
		UnitID:      spare.ID,
		TenantID:    tenantID,
		MonthlyRent: "8000.00",
		DueDay:      1,
		StartDate:   "2026-03-01",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Bad terms are a client error, not a conflict.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/leases", CreateLeaseRequest{
		UnitID:      spare.ID,
		TenantID:    tenantID,
		MonthlyRent: "not-a-number",
		DueDay:      1,
		StartDate:   "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceFlow(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	// Tenant reports an issue.
	rec := doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/maintenance", SubmitMaintenanceRequest{
		Category:    "PLUMBING",
		Title:       "Leaking kitchen faucet",
		Description: "Dripping steadily since Monday.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	submitted := decode[MaintenanceRequestDTO](t, rec)
	assert.Equal(t, "OPEN", submitted.Status)
	assert.Equal(t, "MEDIUM", submitted.Priority)
	assert.NotEmpty(t, submitted.LeaseID, "active lease should be attached")

	// It shows up in the admin queue.
	rec = doJSON(t, router, http.MethodGet, "/api/admin/maintenance?status=OPEN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[[]MaintenanceRequestDTO](t, rec)
	require.Len(t, queue, 1)
	assert.Equal(t, submitted.ID, queue[0].ID)

	// Admin triages it.
	rec = doJSON(t, router, http.MethodPost, "/api/admin/maintenance/"+submitted.ID+"/triage", TriageMaintenanceRequest{
		Status:   "IN_PROGRESS",
		Priority: "URGENT",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	triaged := decode[MaintenanceRequestDTO](t, rec)
	assert.Equal(t, "IN_PROGRESS", triaged.Status)
	assert.Equal(t, "URGENT", triaged.Priority)

	// The tenant sees the updated state.
	rec = doJSON(t, router, http.MethodGet, "/api/tenants/"+tenantID+"/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]MaintenanceRequestDTO](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "IN_PROGRESS", mine[0].Status)

	// Triaged requests drop out of the OPEN queue.
	rec = doJSON(t, router, http.MethodGet, "/api/admin/maintenance?status=OPEN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]MaintenanceRequestDTO](t, rec))
}

func TestMaintenanceValidation(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))
	tenantID := seedLeasedTenant(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/tenants/"+tenantID+"/maintenance", SubmitMaintenanceRequest{
		Category:    "GARDENING",
		Title:       "Trim the hedge",
		Description: "It is blocking the walkway.",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/maintenance/no-such-request/triage", TriageMaintenanceRequest{
		Status:   "RESOLVED",
		Priority: "LOW",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnnouncements(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))

	rec := doJSON(t, router, http.MethodPost, "/api/admin/announcements", CreateAnnouncementRequest{
		Title: "Water interruption",
		Body:  "Maintenance on Saturday 9am to 12nn.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/announcements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notices := decode[[]AnnouncementDTO](t, rec)
	require.Len(t, notices, 1)
	assert.Equal(t, "Water interruption", notices[0].Title)
}

func TestHealthz(t *testing.T) {
	_, router := newTestAPI(t, ledger.Date(2026, time.March, 10))

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSeedDemo_Idempotent(t *testing.T) {
	h, _ := newTestAPI(t, ledger.Date(2026, time.March, 10))
	ctx := context.Background()

	require.NoError(t, SeedDemo(ctx, h))
	units, err := h.Registry.Units(ctx)
	require.NoError(t, err)
	firstCount := len(units)
	require.Greater(t, firstCount, 0)

	// A second seed run finds existing units and does nothing.
	require.NoError(t, SeedDemo(ctx, h))
	units, err = h.Registry.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, firstCount)
}
