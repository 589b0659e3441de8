/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY AND DATES:
  All amounts are serialized as decimal strings ("10300.00"), never floats.
  Calendar dates use "2006-01-02", billing months "2006-01", and timestamps
  RFC3339.

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types and the conversion helpers below
  - server.go: Route definitions
*/
package api

import (
	"time"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/maintenance"
	"github.com/warp/rent-ledger/payments"
	"github.com/warp/rent-ledger/rental"
	"github.com/warp/rent-ledger/water"
)

// =============================================================================
// TENANT-FACING TYPES
// =============================================================================

// PeriodDTO represents one billing period row.
type PeriodDTO struct {
	ID              string  `json:"id"`
	PeriodMonth     string  `json:"period_month"`
	DueDate         string  `json:"due_date"`
	BaseAmount      string  `json:"base_amount"`
	UtilityAmount   string  `json:"utility_amount"`
	SurchargeAmount string  `json:"surcharge_amount"`
	TotalAmount     string  `json:"total_amount"`
	Status          string  `json:"status"`
	Urgency         string  `json:"urgency,omitempty"`
	SettledAt       *string `json:"settled_at,omitempty"`
	SettlementRef   string  `json:"settlement_reference,omitempty"`
}

// SettlementDTO represents one settlement transaction.
type SettlementDTO struct {
	ID             string `json:"id"`
	LeaseID        string `json:"lease_id"`
	Reference      string `json:"reference"`
	PeriodsSettled int    `json:"periods_settled"`
	TotalAmount    string `json:"total_amount"`
	SettledAt      string `json:"settled_at"`
}

// PayeeDTO carries the bank details shown to tenants for manual transfers.
type PayeeDTO struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Instructions  string `json:"instructions,omitempty"`
}

// DashboardResponse is the tenant landing view.
type DashboardResponse struct {
	Tenant        TenantDTO         `json:"tenant"`
	Lease         LeaseDTO          `json:"lease"`
	CurrentDue    *PeriodDTO        `json:"current_due"`
	Upcoming      *PeriodDTO        `json:"upcoming"`
	Payee         PayeeDTO          `json:"payee"`
	Announcements []AnnouncementDTO `json:"announcements"`
}

// BillingResponse is the tenant billing view: what is owed plus what was paid.
type BillingResponse struct {
	Outstanding []PeriodDTO     `json:"outstanding"`
	Statement   []PeriodDTO     `json:"statement"`
	History     []SettlementDTO `json:"history"`
}

// PreviewSettlementRequest asks which periods a payment of N months would cover.
type PreviewSettlementRequest struct {
	Months int `json:"months"`
}

// PreviewSettlementResponse lists the covered periods and their sum.
type PreviewSettlementResponse struct {
	Periods     []PeriodDTO `json:"periods"`
	TotalAmount string      `json:"total_amount"`
}

// SettleRequest settles up to Months periods against an external reference.
type SettleRequest struct {
	Months    int    `json:"months"`
	Reference string `json:"reference"`
}

// CapturePaymentRequest records a manual bank transfer for review.
type CapturePaymentRequest struct {
	Reference     string `json:"reference"`
	MonthsCovered int    `json:"months_covered"`
	Note          string `json:"note,omitempty"`
}

// PaymentDTO represents a manual payment and its review state.
type PaymentDTO struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	Reference     string  `json:"reference"`
	MonthsCovered int     `json:"months_covered"`
	Note          string  `json:"note,omitempty"`
	Status        string  `json:"status"`
	Reviewer      string  `json:"reviewer,omitempty"`
	ReviewNote    string  `json:"review_note,omitempty"`
	SettlementID  string  `json:"settlement_id,omitempty"`
	CapturedAt    string  `json:"captured_at"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// UnitDTO represents a rental unit.
type UnitDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// CreateUnitRequest registers a new unit.
type CreateUnitRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// TenantDTO represents a tenant.
type TenantDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at"`
}

// CreateTenantRequest registers a new tenant.
type CreateTenantRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// LeaseDTO represents a lease agreement.
type LeaseDTO struct {
	ID          string  `json:"id"`
	UnitID      string  `json:"unit_id"`
	TenantID    string  `json:"tenant_id"`
	MonthlyRent string  `json:"monthly_rent"`
	DueDay      int     `json:"due_day"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

// CreateLeaseRequest activates a lease between a unit and a tenant.
type CreateLeaseRequest struct {
	UnitID      string `json:"unit_id"`
	TenantID    string `json:"tenant_id"`
	MonthlyRent string `json:"monthly_rent"`
	DueDay      int    `json:"due_day"`
	StartDate   string `json:"start_date"`
}

// TerminateLeaseRequest ends an active lease.
type TerminateLeaseRequest struct {
	EndDate string `json:"end_date"`
}

// ChargeDTO is one extra line item on a water bill.
type ChargeDTO struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// WaterBillDTO represents a water bill with its derived totals.
type WaterBillDTO struct {
	ID              string      `json:"id"`
	UnitID          string      `json:"unit_id"`
	PeriodStart     string      `json:"period_start"`
	PeriodEnd       string      `json:"period_end"`
	PreviousReading string      `json:"previous_reading"`
	CurrentReading  string      `json:"current_reading"`
	RatePerCubic    string      `json:"rate_per_cubic"`
	Consumption     string      `json:"consumption"`
	UsageAmount     string      `json:"usage_amount"`
	Charges         []ChargeDTO `json:"charges"`
	Total           string      `json:"total"`
	Status          string      `json:"status"`
	PostedAt        *string     `json:"posted_at,omitempty"`
	CreatedAt       string      `json:"created_at"`
}

// DraftWaterBillRequest creates or updates a draft water bill.
type DraftWaterBillRequest struct {
	UnitID          string      `json:"unit_id"`
	PeriodStart     string      `json:"period_start"`
	PeriodEnd       string      `json:"period_end"`
	PreviousReading string      `json:"previous_reading"`
	CurrentReading  string      `json:"current_reading"`
	RatePerCubic    string      `json:"rate_per_cubic"`
	Charges         []ChargeDTO `json:"charges,omitempty"`
}

// ReviewPaymentRequest approves or rejects a pending manual payment.
type ReviewPaymentRequest struct {
	Reviewer string `json:"reviewer"`
	Note     string `json:"note,omitempty"`
}

// MaintenanceRequestDTO represents a reported issue and its triage state.
type MaintenanceRequestDTO struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	LeaseID     string `json:"lease_id,omitempty"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SubmitMaintenanceRequest reports an issue. Status and priority are not
// accepted from the reporter.
type SubmitMaintenanceRequest struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TriageMaintenanceRequest sets a request's status and priority.
type TriageMaintenanceRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// AnnouncementDTO represents a notice shown on tenant dashboards.
type AnnouncementDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// CreateAnnouncementRequest publishes a new announcement.
type CreateAnnouncementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPeriodDTO(p ledger.BillingPeriod, asOf time.Time) PeriodDTO {
	dto := PeriodDTO{
		ID:              string(p.ID),
		PeriodMonth:     p.PeriodMonth.Format("2006-01"),
		DueDate:         p.DueDate.Format("2006-01-02"),
		BaseAmount:      p.BaseAmount.StringFixed(2),
		UtilityAmount:   p.UtilityAmount.StringFixed(2),
		SurchargeAmount: p.SurchargeAmount.StringFixed(2),
		TotalAmount:     p.TotalAmount.StringFixed(2),
		Status:          string(p.Status),
		SettlementRef:   p.SettlementReference,
	}
	if p.Outstanding() {
		dto.Urgency = string(ledger.Classify(p.DueDate, asOf))
	}
	if p.SettledAt != nil {
		dto.SettledAt = strPtr(p.SettledAt.Format(time.RFC3339))
	}
	return dto
}

func toPeriodDTOs(periods []ledger.BillingPeriod, asOf time.Time) []PeriodDTO {
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p, asOf)
	}
	return dtos
}

func toSettlementDTO(tx ledger.SettlementTransaction) SettlementDTO {
	return SettlementDTO{
		ID:             string(tx.ID),
		LeaseID:        string(tx.LeaseID),
		Reference:      tx.Reference,
		PeriodsSettled: tx.PeriodsSettled,
		TotalAmount:    tx.TotalAmount.StringFixed(2),
		SettledAt:      tx.SettledAt.Format(time.RFC3339),
	}
}

func toUnitDTO(u rental.Unit) UnitDTO {
	return UnitDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Address:   u.Address,
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toTenantDTO(t rental.Tenant) TenantDTO {
	return TenantDTO{
		ID:        string(t.ID),
		FullName:  t.FullName,
		Email:     t.Email,
		Phone:     t.Phone,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func toLeaseDTO(l rental.LeaseRecord) LeaseDTO {
	dto := LeaseDTO{
		ID:          string(l.ID),
		UnitID:      string(l.UnitID),
		TenantID:    string(l.TenantID),
		MonthlyRent: l.MonthlyRent.StringFixed(2),
		DueDay:      l.DueDay,
		StartDate:   l.StartDate.Format("2006-01-02"),
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
	if l.EndDate != nil {
		dto.EndDate = strPtr(l.EndDate.Format("2006-01-02"))
	}
	return dto
}

func toWaterBillDTO(b water.Bill) WaterBillDTO {
	charges := make([]ChargeDTO, len(b.Charges))
	for i, c := range b.Charges {
		charges[i] = ChargeDTO{Label: c.Label, Amount: c.Amount.StringFixed(2)}
	}
	dto := WaterBillDTO{
		ID:              b.ID,
		UnitID:          string(b.UnitID),
		PeriodStart:     b.PeriodStart.Format("2006-01-02"),
		PeriodEnd:       b.PeriodEnd.Format("2006-01-02"),
		PreviousReading: b.PreviousReading.String(),
		CurrentReading:  b.CurrentReading.String(),
		RatePerCubic:    b.RatePerCubic.String(),
		Consumption:     b.Consumption().String(),
		UsageAmount:     b.UsageAmount().StringFixed(2),
		Charges:         charges,
		Total:           b.Total().StringFixed(2),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
	if b.PostedAt != nil {
		dto.PostedAt = strPtr(b.PostedAt.Format(time.RFC3339))
	}
	return dto
}

func toPaymentDTO(p payments.ManualPayment) PaymentDTO {
	dto := PaymentDTO{
		ID:            p.ID,
		TenantID:      string(p.TenantID),
		Reference:     p.Reference,
		MonthsCovered: p.MonthsCovered,
		Note:          p.Note,
		Status:        string(p.Status),
		Reviewer:      p.Reviewer,
		ReviewNote:    p.ReviewNote,
		SettlementID:  string(p.SettlementID),
		CapturedAt:    p.CapturedAt.Format(time.RFC3339),
	}
	if p.ReviewedAt != nil {
		dto.ReviewedAt = strPtr(p.ReviewedAt.Format(time.RFC3339))
	}
	return dto
}

func toPaymentDTOs(ps []payments.ManualPayment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toMaintenanceDTO(r maintenance.Request) MaintenanceRequestDTO {
	return MaintenanceRequestDTO{
		ID:          r.ID,
		TenantID:    string(r.TenantID),
		LeaseID:     string(r.LeaseID),
		Category:    string(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Status:      string(r.Status),
		Priority:    string(r.Priority),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}

func toMaintenanceDTOs(rs []maintenance.Request) []MaintenanceRequestDTO {
	dtos := make([]MaintenanceRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toMaintenanceDTO(r)
	}
	return dtos
}

func toAnnouncementDTO(a rental.Announcement) AnnouncementDTO {
	return AnnouncementDTO{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func strPtr(s string) *string {
	return &s
}
