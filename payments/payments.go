/*
Package payments implements manual payment intake and review.

PURPOSE:
  Tenants report out-of-band payments (bank transfer, over-the-counter
  deposit) with an external reference code and how many months the payment
  covers. An administrator reviews each report: approval triggers a ledger
  settlement under the captured reference, rejection records the decision and
  nothing else. The payment record is the audit trail either way.

LIFECYCLE:
  PENDING -> APPROVED (settlement committed, transaction recorded on payment)
          -> REJECTED (reviewer note recorded, ledger untouched)
*/
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/metrics"
)

// =============================================================================
// TYPES
// =============================================================================

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// ManualPayment is one reported payment awaiting or past review.
type ManualPayment struct {
	ID             string
	TenantID       ledger.PayerID
	Reference      string
	MonthsCovered  int
	Note           string
	Status         PaymentStatus
	Reviewer       string
	ReviewNote     string
	SettlementID   ledger.SettlementID
	CapturedAt     time.Time
	ReviewedAt     *time.Time
}

var (
	// ErrPaymentNotFound is returned when a referenced payment does not exist.
	ErrPaymentNotFound = errors.New("manual payment not found")

	// ErrPaymentReviewed is returned when a decision targets a payment that
	// is no longer pending.
	ErrPaymentReviewed = errors.New("manual payment already reviewed")
)

// Store persists manual payments. FindPayment returns (nil, nil) when absent.
type Store interface {
	CreatePayment(ctx context.Context, p ManualPayment) error
	UpdatePayment(ctx context.Context, p ManualPayment) error
	FindPayment(ctx context.Context, id string) (*ManualPayment, error)
	PaymentsByTenant(ctx context.Context, tenantID ledger.PayerID) ([]ManualPayment, error)
	PendingPayments(ctx context.Context) ([]ManualPayment, error)
}

// Settler is the slice of the settlement processor approval needs.
type Settler interface {
	Settle(ctx context.Context, lease ledger.Lease, maxPeriods int, reference string, asOf time.Time) (ledger.SettlementTransaction, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service captures and reviews manual payments.
type Service struct {
	store   Store
	leases  ledger.LeaseSource
	settler Settler
	clock   ledger.Clock
	logger  *zap.Logger
}

func NewService(store Store, leases ledger.LeaseSource, settler Settler, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, leases: leases, settler: settler, clock: clock, logger: logger}
}

// Capture records a tenant's payment report as PENDING. The reference and
// month count are validated here so review never sees unusable input.
func (s *Service) Capture(ctx context.Context, tenantID ledger.PayerID, reference string, monthsCovered int, note string) (ManualPayment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ManualPayment{}, ledger.ErrInvalidReference
	}
	if monthsCovered < 1 || monthsCovered > ledger.MaxSettlementPeriods {
		return ManualPayment{}, fmt.Errorf("%w: %d", ledger.ErrInvalidMonthCount, monthsCovered)
	}

	// The tenant must resolve to an active lease; a payment nobody can settle
	// is rejected at the door.
	if _, err := s.leases.ActiveLease(ctx, tenantID); err != nil {
		return ManualPayment{}, err
	}

	p := ManualPayment{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Reference:     reference,
		MonthsCovered: monthsCovered,
		Note:          strings.TrimSpace(note),
		Status:        PaymentPending,
		CapturedAt:    s.clock.Now(),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return ManualPayment{}, err
	}

	metrics.IncPaymentCaptured()
	s.logger.Info("manual payment captured",
		zap.String("payment_id", p.ID),
		zap.String("tenant_id", string(tenantID)),
		zap.String("reference", reference),
		zap.Int("months", monthsCovered),
	)
	return p, nil
}

// Approve settles the tenant's ledger under the captured reference and marks
// the payment APPROVED. The payment stays PENDING if the settlement fails,
// so the reviewer can retry after a conflict.
func (s *Service) Approve(ctx context.Context, paymentID, reviewer string, asOf time.Time) (ManualPayment, error) {
	p, err := s.pendingPayment(ctx, paymentID)
	if err != nil {
		return ManualPayment{}, err
	}

	lease, err := s.leases.ActiveLease(ctx, p.TenantID)
	if err != nil {
		return ManualPayment{}, err
	}

	tx, err := s.settler.Settle(ctx, lease, p.MonthsCovered, p.Reference, asOf)
	if err != nil {
		s.logger.Warn("settlement failed during payment approval",
			zap.String("payment_id", p.ID),
			zap.Error(err),
		)
		return ManualPayment{}, err
	}

	now := s.clock.Now()
	p.Status = PaymentApproved
	p.Reviewer = reviewer
	p.SettlementID = tx.ID
	p.ReviewedAt = &now
	if err := s.store.UpdatePayment(ctx, *p); err != nil {
		// The settlement committed; surface the bookkeeping failure loudly.
		s.logger.Error("settlement committed but payment record not updated",
			zap.String("payment_id", p.ID),
			zap.String("settlement_id", string(tx.ID)),
			zap.Error(err),
		)
		return ManualPayment{}, err
	}

	metrics.IncPaymentReviewed("approved")
	s.logger.Info("manual payment approved",
		zap.String("payment_id", p.ID),
		zap.String("settlement_id", string(tx.ID)),
		zap.String("reviewer", reviewer),
	)
	return *p, nil
}

// Reject records the decision; the ledger is untouched.
func (s *Service) Reject(ctx context.Context, paymentID, reviewer, reviewNote string) (ManualPayment, error) {
	p, err := s.pendingPayment(ctx, paymentID)
	if err != nil {
		return ManualPayment{}, err
	}

	now := s.clock.Now()
	p.Status = PaymentRejected
	p.Reviewer = reviewer
	p.ReviewNote = strings.TrimSpace(reviewNote)
	p.ReviewedAt = &now
	if err := s.store.UpdatePayment(ctx, *p); err != nil {
		return ManualPayment{}, err
	}
	metrics.IncPaymentReviewed("rejected")
	return *p, nil
}

// Pending lists the review queue, oldest first.
func (s *Service) Pending(ctx context.Context) ([]ManualPayment, error) {
	return s.store.PendingPayments(ctx)
}

// ByTenant lists a tenant's payment reports, newest first.
func (s *Service) ByTenant(ctx context.Context, tenantID ledger.PayerID) ([]ManualPayment, error) {
	return s.store.PaymentsByTenant(ctx, tenantID)
}

func (s *Service) pendingPayment(ctx context.Context, id string) (*ManualPayment, error) {
	p, err := s.store.FindPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	if p.Status != PaymentPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentReviewed, id, p.Status)
	}
	return p, nil
}
