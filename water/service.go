/*
service.go - Water bill drafting, posting, and the utility source adapter

PURPOSE:
  Drafting and posting of water bills, plus the ledger.UtilitySource adapter:
  a billing month's utility amount is the sum of POSTED bills whose reading
  period ends in that calendar month. Drafts never reach the ledger.

LIFECYCLE:
  Draft  -> editable, amounts recomputed from readings on every update
  Posted -> frozen, visible to the rent ledger
*/
package water

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/metrics"
)

var (
	// ErrBillNotFound is returned when a referenced bill does not exist.
	ErrBillNotFound = errors.New("water bill not found")

	// ErrBillPosted is returned when an update or second post targets a
	// posted bill.
	ErrBillPosted = errors.New("water bill already posted")

	// ErrInvalidReadings is returned when a draft's readings or rate are
	// malformed.
	ErrInvalidReadings = errors.New("invalid water bill readings")
)

// Store persists water bills. FindBill returns (nil, nil) when absent.
type Store interface {
	CreateBill(ctx context.Context, b Bill) error
	UpdateBill(ctx context.Context, b Bill) error
	FindBill(ctx context.Context, id string) (*Bill, error)
	BillsByUnit(ctx context.Context, unitID ledger.UnitID) ([]Bill, error)
	// PostedBillsEndingIn returns POSTED bills whose PeriodEnd falls inside
	// the given calendar month.
	PostedBillsEndingIn(ctx context.Context, unitID ledger.UnitID, month time.Time) ([]Bill, error)
}

// Service drafts and posts water bills.
type Service struct {
	store  Store
	clock  ledger.Clock
	logger *zap.Logger
}

func NewService(store Store, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

// =============================================================================
// DRAFTING AND POSTING
// =============================================================================

// Draft captures a new water bill in DRAFT status.
func (s *Service) Draft(ctx context.Context, b Bill) (Bill, error) {
	if err := validateReadings(b); err != nil {
		return Bill{}, err
	}
	b.ID = uuid.New().String()
	b.Status = BillDraft
	b.PostedAt = nil
	b.CreatedAt = s.clock.Now()
	if err := s.store.CreateBill(ctx, b); err != nil {
		return Bill{}, err
	}
	return b, nil
}

// UpdateDraft replaces a draft's readings, rate, and charges.
func (s *Service) UpdateDraft(ctx context.Context, b Bill) (Bill, error) {
	existing, err := s.store.FindBill(ctx, b.ID)
	if err != nil {
		return Bill{}, err
	}
	if existing == nil {
		return Bill{}, fmt.Errorf("%w: %s", ErrBillNotFound, b.ID)
	}
	if existing.Status != BillDraft {
		return Bill{}, fmt.Errorf("%w: %s", ErrBillPosted, b.ID)
	}
	if err := validateReadings(b); err != nil {
		return Bill{}, err
	}

	existing.PeriodStart = b.PeriodStart
	existing.PeriodEnd = b.PeriodEnd
	existing.PreviousReading = b.PreviousReading
	existing.CurrentReading = b.CurrentReading
	existing.RatePerCubic = b.RatePerCubic
	existing.Charges = b.Charges
	if err := s.store.UpdateBill(ctx, *existing); err != nil {
		return Bill{}, err
	}
	return *existing, nil
}

// Post freezes a draft, making it visible to the rent ledger.
func (s *Service) Post(ctx context.Context, id string) (Bill, error) {
	b, err := s.store.FindBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if b == nil {
		return Bill{}, fmt.Errorf("%w: %s", ErrBillNotFound, id)
	}
	if b.Status != BillDraft {
		return Bill{}, fmt.Errorf("%w: %s", ErrBillPosted, id)
	}

	now := s.clock.Now()
	b.Status = BillPosted
	b.PostedAt = &now
	if err := s.store.UpdateBill(ctx, *b); err != nil {
		return Bill{}, err
	}

	metrics.IncWaterBillPosted()
	s.logger.Info("water bill posted",
		zap.String("bill_id", b.ID),
		zap.String("unit_id", string(b.UnitID)),
		zap.String("total", b.Total().String()),
	)
	return *b, nil
}

// BillsByUnit lists a unit's bills, drafts included.
func (s *Service) BillsByUnit(ctx context.Context, unitID ledger.UnitID) ([]Bill, error) {
	return s.store.BillsByUnit(ctx, unitID)
}

// =============================================================================
// UTILITY SOURCE ADAPTER
// =============================================================================

// Source adapts posted water bills into ledger utility amounts.
type Source struct {
	store Store
}

func NewSource(store Store) *Source { return &Source{store: store} }

var _ ledger.UtilitySource = (*Source)(nil)

// PostedAmountFor sums the totals of POSTED bills whose reading period ends
// in the given month. The second return reports whether any such bill exists.
func (s *Source) PostedAmountFor(ctx context.Context, unitID ledger.UnitID, month time.Time) (decimal.Decimal, bool, error) {
	bills, err := s.store.PostedBillsEndingIn(ctx, unitID, month)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(bills) == 0 {
		return decimal.Zero, false, nil
	}

	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Total())
	}
	return ledger.Round2(total), true, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateReadings(b Bill) error {
	if b.UnitID == "" {
		return fmt.Errorf("%w: unit is required", ErrInvalidReadings)
	}
	if b.PeriodEnd.Before(b.PeriodStart) {
		return fmt.Errorf("%w: period ends before it starts", ErrInvalidReadings)
	}
	if b.PreviousReading.Sign() < 0 || b.CurrentReading.Sign() < 0 {
		return fmt.Errorf("%w: readings must be non-negative", ErrInvalidReadings)
	}
	if b.RatePerCubic.Sign() < 0 {
		return fmt.Errorf("%w: rate must be non-negative", ErrInvalidReadings)
	}
	for _, c := range b.Charges {
		if c.Label == "" {
			return fmt.Errorf("%w: charge label is required", ErrInvalidReadings)
		}
		if c.Amount.Sign() < 0 {
			return fmt.Errorf("%w: charge %q must be non-negative", ErrInvalidReadings, c.Label)
		}
	}
	return nil
}
