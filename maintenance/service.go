/*
service.go - Maintenance request submission and admin triage

PURPOSE:
  Tenants report issues with a category, title, and description; new
  requests open with default MEDIUM priority. Admins triage by setting
  status and priority. The reporter's active lease is attached when one
  exists so triage can see which unit the issue belongs to.

FLOW:
  Submit -> OPEN/MEDIUM -> Triage(status, priority) -> ... -> CLOSED
*/
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/metrics"
)

var (
	// ErrRequestNotFound is returned when a referenced request does not
	// exist.
	ErrRequestNotFound = errors.New("maintenance request not found")

	// ErrInvalidRequest is returned when a submission or triage decision
	// fails validation.
	ErrInvalidRequest = errors.New("invalid maintenance request")
)

// Store persists maintenance requests. FindRequest returns (nil, nil) when
// absent. List methods return newest first.
type Store interface {
	CreateRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	FindRequest(ctx context.Context, id string) (*Request, error)
	RequestsByTenant(ctx context.Context, tenantID ledger.PayerID) ([]Request, error)
	Requests(ctx context.Context, status Status) ([]Request, error)
}

// Service is the maintenance workflow over a Store.
type Service struct {
	store  Store
	leases ledger.LeaseSource
	clock  ledger.Clock
	logger *zap.Logger
}

func NewService(store Store, leases ledger.LeaseSource, clock ledger.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, leases: leases, clock: clock, logger: logger}
}

// Submit records a new request from a tenant. Status and priority are not
// caller-settable; they start OPEN and MEDIUM.
func (s *Service) Submit(ctx context.Context, tenantID ledger.PayerID, category Category, title, description string) (Request, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if !validCategory(category) {
		return Request{}, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, category)
	}
	if title == "" {
		return Request{}, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if description == "" {
		return Request{}, fmt.Errorf("%w: description is required", ErrInvalidRequest)
	}

	// Attach the active lease when the reporter has one; a tenant between
	// leases can still report an issue.
	var leaseID ledger.LeaseID
	lease, err := s.leases.ActiveLease(ctx, tenantID)
	switch {
	case err == nil:
		leaseID = lease.ID
	case errors.Is(err, ledger.ErrLeaseNotFound):
	default:
		return Request{}, err
	}

	now := s.clock.Now()
	r := Request{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		LeaseID:     leaseID,
		Category:    category,
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return Request{}, err
	}

	metrics.IncMaintenanceSubmitted(string(category))
	s.logger.Info("maintenance request submitted",
		zap.String("request_id", r.ID),
		zap.String("tenant_id", string(tenantID)),
		zap.String("category", string(category)))
	return r, nil
}

// Triage sets a request's status and priority.
func (s *Service) Triage(ctx context.Context, id string, status Status, priority Priority) (Request, error) {
	if !validStatus(status) {
		return Request{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	if !validPriority(priority) {
		return Request{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, priority)
	}

	r, err := s.store.FindRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r == nil {
		return Request{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}

	r.Status = status
	r.Priority = priority
	r.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateRequest(ctx, *r); err != nil {
		return Request{}, err
	}

	s.logger.Info("maintenance request triaged",
		zap.String("request_id", r.ID),
		zap.String("status", string(status)),
		zap.String("priority", string(priority)))
	return *r, nil
}

// ByTenant returns a tenant's requests, newest first.
func (s *Service) ByTenant(ctx context.Context, tenantID ledger.PayerID) ([]Request, error) {
	return s.store.RequestsByTenant(ctx, tenantID)
}

// All returns requests newest first, optionally filtered by status. An
// empty status means no filter.
func (s *Service) All(ctx context.Context, status Status) ([]Request, error) {
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return s.store.Requests(ctx, status)
}
