// maintenance.go - SQLite persistence for maintenance requests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/maintenance"
)

var _ maintenance.Store = (*Store)(nil)

const maintenanceColumns = `id, tenant_id, lease_id, category, title,
	description, status, priority, created_at, updated_at`

func (s *Store) CreateRequest(ctx context.Context, r maintenance.Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_requests (id, tenant_id, lease_id, category,
			title, description, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.TenantID), nullString(string(r.LeaseID)),
		string(r.Category), r.Title, r.Description,
		string(r.Status), string(r.Priority),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	return nil
}

func (s *Store) UpdateRequest(ctx context.Context, r maintenance.Request) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_requests
		SET status = ?, priority = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), string(r.Priority),
		r.UpdatedAt.UTC().Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update maintenance request: %w", err)
	}
	return nil
}

func (s *Store) FindRequest(ctx context.Context, id string) (*maintenance.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) RequestsByTenant(ctx context.Context, tenantID ledger.PayerID) ([]maintenance.Request, error) {
	return s.queryRequests(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenance_requests
		WHERE tenant_id = ? ORDER BY created_at DESC, rowid DESC`,
		string(tenantID))
}

func (s *Store) Requests(ctx context.Context, status maintenance.Status) ([]maintenance.Request, error) {
	if status == "" {
		return s.queryRequests(ctx, `
			SELECT `+maintenanceColumns+` FROM maintenance_requests
			ORDER BY created_at DESC, rowid DESC`)
	}
	return s.queryRequests(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenance_requests
		WHERE status = ? ORDER BY created_at DESC, rowid DESC`,
		string(status))
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]maintenance.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance requests: %w", err)
	}
	defer rows.Close()

	var out []maintenance.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (maintenance.Request, error) {
	var (
		r         maintenance.Request
		tenantID  string
		leaseID   sql.NullString
		category  string
		status    string
		priority  string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&r.ID, &tenantID, &leaseID, &category, &r.Title,
		&r.Description, &status, &priority, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}
	r.TenantID = ledger.PayerID(tenantID)
	r.LeaseID = ledger.LeaseID(leaseID.String)
	r.Category = maintenance.Category(category)
	r.Status = maintenance.Status(status)
	r.Priority = maintenance.Priority(priority)
	r.CreatedAt = parseTimestamp(createdAt)
	r.UpdatedAt = parseTimestamp(updatedAt)
	return r, nil
}
