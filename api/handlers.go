/*
handlers.go - HTTP API handlers for the rent billing ledger

PURPOSE:
  Exposes the billing ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tenant:
    GET  /api/tenants/{id}/dashboard          Current due, upcoming, payee, notices
    GET  /api/tenants/{id}/billing            Outstanding, statement, history
    POST /api/tenants/{id}/settlement/preview Preview which periods N months cover
    POST /api/tenants/{id}/settle             Settle N periods against a reference
    POST /api/tenants/{id}/payments           Capture a manual payment for review
    GET  /api/tenants/{id}/payments           Payment history
    POST /api/tenants/{id}/maintenance        Report a maintenance issue
    GET  /api/tenants/{id}/maintenance        Own maintenance requests

  Admin:
    GET/POST /api/admin/units                 Unit management
    GET/POST /api/admin/tenants               Tenant management
    GET/POST /api/admin/leases                Lease management
    POST     /api/admin/leases/{id}/terminate
    POST/PUT /api/admin/water-bills           Draft water bills
    POST     /api/admin/water-bills/{id}/post
    GET      /api/admin/payments/pending      Approval queue
    POST     /api/admin/payments/{id}/approve
    POST     /api/admin/payments/{id}/reject
    GET      /api/admin/maintenance           Triage queue (filter by status)
    POST     /api/admin/maintenance/{id}/triage
    POST     /api/admin/announcements

  Public:
    GET /api/announcements
    GET /healthz

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Registry:    units, tenants, leases, announcements
  - Water:       water bill drafting and posting
  - Payments:    manual payment capture and review
  - Maintenance: issue reporting and triage
  - Queries:     ledger read facade (sync-then-read)
  - Processor:   settlement execution

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (concurrent settlement, occupied unit, posted bill)
  - 500: Internal errors. Consistency violations are logged in full but
         surfaced generically so stored detail never leaks to clients.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo data seeder
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/config"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/maintenance"
	"github.com/warp/rent-ledger/payments"
	"github.com/warp/rent-ledger/rental"
	"github.com/warp/rent-ledger/water"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Registry    *rental.Registry
	Water       *water.Service
	Payments    *payments.Service
	Maintenance *maintenance.Service
	Queries     *ledger.Queries
	Processor   *ledger.Processor

	Clock  ledger.Clock
	Payee  config.PayeeConfig
	Logger *zap.Logger
}

// NewHandler creates a handler over the assembled domain services.
func NewHandler(registry *rental.Registry, waterSvc *water.Service, paySvc *payments.Service,
	maintSvc *maintenance.Service, queries *ledger.Queries, processor *ledger.Processor,
	clock ledger.Clock, payee config.PayeeConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Registry:    registry,
		Water:       waterSvc,
		Payments:    paySvc,
		Maintenance: maintSvc,
		Queries:     queries,
		Processor:   processor,
		Clock:       clock,
		Payee:       payee,
		Logger:      logger,
	}
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// Dashboard returns the tenant landing view.
// GET /api/tenants/{id}/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := ledger.PayerID(chi.URLParam(r, "id"))
	asOf := h.Clock.Now()

	tenant, err := h.Registry.Tenant(ctx, tenantID)
	if err != nil {
		h.writeDomainError(w, "Failed to load tenant", err)
		return
	}
	record, err := h.Registry.LeaseFor(ctx, tenantID)
	if err != nil {
		h.writeDomainError(w, "Failed to load lease", err)
		return
	}
	lease := record.BillingLease()

	current, err := h.Queries.CurrentDue(ctx, lease, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to load current due", err)
		return
	}
	upcoming, err := h.Queries.Upcoming(ctx, lease, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to load upcoming period", err)
		return
	}
	notices, err := h.Registry.ActiveAnnouncements(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to load announcements", err)
		return
	}

	resp := DashboardResponse{
		Tenant: toTenantDTO(tenant),
		Lease:  toLeaseDTO(record),
		Payee: PayeeDTO{
			AccountName:   h.Payee.AccountName,
			AccountNumber: h.Payee.AccountNumber,
			BankName:      h.Payee.BankName,
			Instructions:  h.Payee.Instructions,
		},
		Announcements: make([]AnnouncementDTO, len(notices)),
	}
	if current != nil {
		dto := toPeriodDTO(*current, asOf)
		resp.CurrentDue = &dto
	}
	if upcoming != nil {
		dto := toPeriodDTO(*upcoming, asOf)
		resp.Upcoming = &dto
	}
	for i, n := range notices {
		resp.Announcements[i] = toAnnouncementDTO(n)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Billing returns the tenant's outstanding periods, statement, and
// settlement history.
// GET /api/tenants/{id}/billing
func (h *Handler) Billing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asOf := h.Clock.Now()

	record, err := h.Registry.LeaseFor(ctx, ledger.PayerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to load lease", err)
		return
	}
	lease := record.BillingLease()

	outstanding, err := h.Queries.Outstanding(ctx, lease, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to load outstanding periods", err)
		return
	}
	statement, err := h.Queries.Statement(ctx, lease, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to load statement", err)
		return
	}
	history, err := h.Queries.History(ctx, lease)
	if err != nil {
		h.writeDomainError(w, "Failed to load settlement history", err)
		return
	}

	resp := BillingResponse{
		Outstanding: toPeriodDTOs(outstanding, asOf),
		Statement:   toPeriodDTOs(statement, asOf),
		History:     make([]SettlementDTO, len(history)),
	}
	for i, tx := range history {
		resp.History[i] = toSettlementDTO(tx)
	}

	writeJSON(w, http.StatusOK, resp)
}

// PreviewSettlement shows which periods a payment covering N months would
// settle, without mutating anything.
// POST /api/tenants/{id}/settlement/preview
func (h *Handler) PreviewSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req PreviewSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Registry.LeaseFor(ctx, ledger.PayerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to load lease", err)
		return
	}

	asOf := h.Clock.Now()
	periods, total, err := h.Queries.PreviewSettlement(ctx, record.BillingLease(), req.Months, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to preview settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewSettlementResponse{
		Periods:     toPeriodDTOs(periods, asOf),
		TotalAmount: total.StringFixed(2),
	})
}

// Settle settles up to N periods for the tenant against an external
// payment reference.
// POST /api/tenants/{id}/settle
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Registry.LeaseFor(ctx, ledger.PayerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to load lease", err)
		return
	}

	tx, err := h.Processor.Settle(ctx, record.BillingLease(), req.Months, req.Reference, h.Clock.Now())
	if err != nil {
		h.writeDomainError(w, "Settlement failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSettlementDTO(tx))
}

// CapturePayment records a manual bank transfer for admin review.
// POST /api/tenants/{id}/payments
func (h *Handler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CapturePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Payments.Capture(ctx, ledger.PayerID(chi.URLParam(r, "id")), req.Reference, req.MonthsCovered, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to capture payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// TenantPayments returns the tenant's payment history, newest first.
// GET /api/tenants/{id}/payments
func (h *Handler) TenantPayments(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Payments.ByTenant(r.Context(), ledger.PayerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to load payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(ps))
}

// =============================================================================
// ADMIN: UNITS, TENANTS, LEASES
// =============================================================================

// ListUnits returns all units.
// GET /api/admin/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Registry.Units(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list units", err)
		return
	}
	dtos := make([]UnitDTO, len(units))
	for i, u := range units {
		dtos[i] = toUnitDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUnit registers a new unit.
// POST /api/admin/units
func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	u, err := h.Registry.AddUnit(r.Context(), req.Name, req.Address)
	if err != nil {
		h.writeDomainError(w, "Failed to create unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUnitDTO(u))
}

// ListTenants returns all tenants.
// GET /api/admin/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Registry.Tenants(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list tenants", err)
		return
	}
	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = toTenantDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTenant registers a new tenant.
// POST /api/admin/tenants
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Registry.AddTenant(r.Context(), req.FullName, req.Email, req.Phone)
	if err != nil {
		h.writeDomainError(w, "Failed to create tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(t))
}

// ListLeases returns all leases, active and terminated.
// GET /api/admin/leases
func (h *Handler) ListLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := h.Registry.Leases(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list leases", err)
		return
	}
	dtos := make([]LeaseDTO, len(leases))
	for i, l := range leases {
		dtos[i] = toLeaseDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLease activates a lease between a unit and a tenant.
// POST /api/admin/leases
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}

	rec, err := h.Registry.CreateLease(r.Context(), rental.LeaseTerms{
		UnitID:      ledger.UnitID(req.UnitID),
		TenantID:    ledger.PayerID(req.TenantID),
		MonthlyRent: req.MonthlyRent,
		DueDay:      req.DueDay,
		StartDate:   startDate,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create lease", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaseDTO(rec))
}

// TerminateLease ends an active lease.
// POST /api/admin/leases/{id}/terminate
func (h *Handler) TerminateLease(w http.ResponseWriter, r *http.Request) {
	var req TerminateLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
		return
	}

	leaseID := ledger.LeaseID(chi.URLParam(r, "id"))
	if err := h.Registry.TerminateLease(r.Context(), leaseID, endDate); err != nil {
		h.writeDomainError(w, "Failed to terminate lease", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN: WATER BILLS
// =============================================================================

// ListWaterBills returns bills for a unit.
// GET /api/admin/water-bills?unit_id=...
func (h *Handler) ListWaterBills(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id query parameter is required", nil)
		return
	}
	bills, err := h.Water.BillsByUnit(r.Context(), ledger.UnitID(unitID))
	if err != nil {
		h.writeDomainError(w, "Failed to list water bills", err)
		return
	}
	dtos := make([]WaterBillDTO, len(bills))
	for i, b := range bills {
		dtos[i] = toWaterBillDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DraftWaterBill creates a draft water bill.
// POST /api/admin/water-bills
func (h *Handler) DraftWaterBill(w http.ResponseWriter, r *http.Request) {
	var req DraftWaterBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	bill, err := h.billFromRequest(req, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid water bill fields", err)
		return
	}
	created, err := h.Water.Draft(r.Context(), bill)
	if err != nil {
		h.writeDomainError(w, "Failed to draft water bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWaterBillDTO(created))
}

// UpdateWaterBill replaces a draft bill's readings and charges.
// PUT /api/admin/water-bills/{id}
func (h *Handler) UpdateWaterBill(w http.ResponseWriter, r *http.Request) {
	var req DraftWaterBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	bill, err := h.billFromRequest(req, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid water bill fields", err)
		return
	}
	updated, err := h.Water.UpdateDraft(r.Context(), bill)
	if err != nil {
		h.writeDomainError(w, "Failed to update water bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toWaterBillDTO(updated))
}

// PostWaterBill posts a draft bill, making it visible to rent billing.
// POST /api/admin/water-bills/{id}/post
func (h *Handler) PostWaterBill(w http.ResponseWriter, r *http.Request) {
	posted, err := h.Water.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to post water bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toWaterBillDTO(posted))
}

func (h *Handler) billFromRequest(req DraftWaterBillRequest, id string) (water.Bill, error) {
	periodStart, err := time.ParseInLocation("2006-01-02", req.PeriodStart, time.UTC)
	if err != nil {
		return water.Bill{}, err
	}
	periodEnd, err := time.ParseInLocation("2006-01-02", req.PeriodEnd, time.UTC)
	if err != nil {
		return water.Bill{}, err
	}
	prev, err := ledger.ParseAmount(req.PreviousReading)
	if err != nil {
		return water.Bill{}, err
	}
	curr, err := ledger.ParseAmount(req.CurrentReading)
	if err != nil {
		return water.Bill{}, err
	}
	rate, err := ledger.ParseAmount(req.RatePerCubic)
	if err != nil {
		return water.Bill{}, err
	}

	charges := make([]water.Charge, len(req.Charges))
	for i, c := range req.Charges {
		amount, err := ledger.ParseAmount(c.Amount)
		if err != nil {
			return water.Bill{}, err
		}
		charges[i] = water.Charge{Label: c.Label, Amount: amount}
	}

	return water.Bill{
		ID:              id,
		UnitID:          ledger.UnitID(req.UnitID),
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		PreviousReading: prev,
		CurrentReading:  curr,
		RatePerCubic:    rate,
		Charges:         charges,
	}, nil
}

// =============================================================================
// ADMIN: PAYMENT REVIEW
// =============================================================================

// PendingPayments returns the approval queue, oldest first.
// GET /api/admin/payments/pending
func (h *Handler) PendingPayments(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Payments.Pending(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load pending payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(ps))
}

// ApprovePayment approves a pending payment, which settles the covered
// periods in the ledger.
// POST /api/admin/payments/{id}/approve
func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	var req ReviewPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Payments.Approve(r.Context(), chi.URLParam(r, "id"), req.Reviewer, h.Clock.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to approve payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// RejectPayment rejects a pending payment without touching the ledger.
// POST /api/admin/payments/{id}/reject
func (h *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	var req ReviewPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Payments.Reject(r.Context(), chi.URLParam(r, "id"), req.Reviewer, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to reject payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// =============================================================================
// MAINTENANCE REQUESTS
// =============================================================================

// SubmitMaintenance records a reported issue from a tenant. Status opens as
// OPEN and priority defaults to MEDIUM; both belong to admin triage.
// POST /api/tenants/{id}/maintenance
func (h *Handler) SubmitMaintenance(w http.ResponseWriter, r *http.Request) {
	var req SubmitMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := h.Maintenance.Submit(r.Context(), ledger.PayerID(chi.URLParam(r, "id")),
		maintenance.Category(req.Category), req.Title, req.Description)
	if err != nil {
		h.writeDomainError(w, "Failed to submit maintenance request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceDTO(m))
}

// TenantMaintenance returns the tenant's requests, newest first.
// GET /api/tenants/{id}/maintenance
func (h *Handler) TenantMaintenance(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Maintenance.ByTenant(r.Context(), ledger.PayerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to load maintenance requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTOs(rs))
}

// ListMaintenance returns all requests, optionally filtered by status.
// GET /api/admin/maintenance?status=OPEN
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	status := maintenance.Status(r.URL.Query().Get("status"))
	rs, err := h.Maintenance.All(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, "Failed to list maintenance requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTOs(rs))
}

// TriageMaintenance sets a request's status and priority.
// POST /api/admin/maintenance/{id}/triage
func (h *Handler) TriageMaintenance(w http.ResponseWriter, r *http.Request) {
	var req TriageMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := h.Maintenance.Triage(r.Context(), chi.URLParam(r, "id"),
		maintenance.Status(req.Status), maintenance.Priority(req.Priority))
	if err != nil {
		h.writeDomainError(w, "Failed to triage maintenance request", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTO(m))
}

// =============================================================================
// ANNOUNCEMENTS
// =============================================================================

// ListAnnouncements returns active announcements, newest first.
// GET /api/announcements
func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Registry.ActiveAnnouncements(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list announcements", err)
		return
	}
	dtos := make([]AnnouncementDTO, len(notices))
	for i, n := range notices {
		dtos[i] = toAnnouncementDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAnnouncement publishes a new announcement.
// POST /api/admin/announcements
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Registry.Announce(r.Context(), req.Title, req.Body)
	if err != nil {
		h.writeDomainError(w, "Failed to create announcement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnnouncementDTO(a))
}

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

// writeDomainError maps domain errors onto HTTP statuses. Consistency
// violations are logged with full detail but returned generically.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrDataConsistency):
		h.Logger.Error("ledger consistency violation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal data error", nil)
	case ledger.IsClientError(err),
		errors.Is(err, rental.ErrInvalidLeaseTerms),
		errors.Is(err, water.ErrInvalidReadings),
		errors.Is(err, maintenance.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err),
		errors.Is(err, rental.ErrUnitNotFound),
		errors.Is(err, rental.ErrTenantNotFound),
		errors.Is(err, water.ErrBillNotFound),
		errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, maintenance.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsRetryable(err),
		errors.Is(err, rental.ErrUnitOccupied),
		errors.Is(err, rental.ErrTenantHasLease),
		errors.Is(err, water.ErrBillPosted),
		errors.Is(err, payments.ErrPaymentReviewed):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
