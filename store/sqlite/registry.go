/*
registry.go - SQLite persistence for units, tenants, leases, announcements

The partial unique indexes idx_leases_active_unit and idx_leases_active_tenant
back the registry's one-active-lease invariants; constraint violations map to
the registry's sentinel errors.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/rental"
)

var _ rental.Store = (*Store)(nil)

// =============================================================================
// UNITS
// =============================================================================

func (s *Store) CreateUnit(ctx context.Context, u rental.Unit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (id, name, address, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(u.ID), u.Name, u.Address, u.Active,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

func (s *Store) FindUnit(ctx context.Context, id ledger.UnitID) (*rental.Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, active, created_at FROM units WHERE id = ?`,
		string(id),
	)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Units(ctx context.Context) ([]rental.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, active, created_at FROM units ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []rental.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func scanUnit(row rowScanner) (rental.Unit, error) {
	var (
		u         rental.Unit
		id        string
		address   sql.NullString
		createdAt string
	)
	if err := row.Scan(&id, &u.Name, &address, &u.Active, &createdAt); err != nil {
		return u, err
	}
	u.ID = ledger.UnitID(id)
	u.Address = address.String
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) CreateTenant(ctx context.Context, t rental.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, full_name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(t.ID), t.FullName, t.Email, t.Phone,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (s *Store) FindTenant(ctx context.Context, id ledger.PayerID) (*rental.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, created_at FROM tenants WHERE id = ?`,
		string(id),
	)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Tenants(ctx context.Context) ([]rental.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, email, phone, created_at FROM tenants ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []rental.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func scanTenant(row rowScanner) (rental.Tenant, error) {
	var (
		t            rental.Tenant
		id           string
		email, phone sql.NullString
		createdAt    string
	)
	if err := row.Scan(&id, &t.FullName, &email, &phone, &createdAt); err != nil {
		return t, err
	}
	t.ID = ledger.PayerID(id)
	t.Email = email.String
	t.Phone = phone.String
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

// =============================================================================
// LEASES
// =============================================================================

const leaseColumns = `id, unit_id, tenant_id, monthly_rent, due_day,
	start_date, end_date, status, created_at`

func (s *Store) CreateLease(ctx context.Context, r rental.LeaseRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (id, unit_id, tenant_id, monthly_rent, due_day,
			start_date, end_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.UnitID), string(r.TenantID),
		r.MonthlyRent.String(), r.DueDay, dateKey(r.StartDate),
		nullDate(r.EndDate), string(r.Status),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		if strings.Contains(err.Error(), "idx_leases_active_tenant") {
			return rental.ErrTenantHasLease
		}
		return rental.ErrUnitOccupied
	}
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	return nil
}

func (s *Store) UpdateLease(ctx context.Context, r rental.LeaseRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leases
		SET monthly_rent = ?, due_day = ?, start_date = ?, end_date = ?, status = ?
		WHERE id = ?`,
		r.MonthlyRent.String(), r.DueDay, dateKey(r.StartDate),
		nullDate(r.EndDate), string(r.Status), string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update lease: %w", err)
	}
	return nil
}

func (s *Store) ActiveLeaseByTenant(ctx context.Context, tenantID ledger.PayerID) (*rental.LeaseRecord, error) {
	return s.findLeaseWhere(ctx, `tenant_id = ? AND status = 'ACTIVE'`, string(tenantID))
}

func (s *Store) ActiveLeaseByUnit(ctx context.Context, unitID ledger.UnitID) (*rental.LeaseRecord, error) {
	return s.findLeaseWhere(ctx, `unit_id = ? AND status = 'ACTIVE'`, string(unitID))
}

func (s *Store) FindLease(ctx context.Context, id ledger.LeaseID) (*rental.LeaseRecord, error) {
	return s.findLeaseWhere(ctx, `id = ?`, string(id))
}

func (s *Store) findLeaseWhere(ctx context.Context, where string, args ...any) (*rental.LeaseRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE `+where, args...)
	r, err := scanLease(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Leases(ctx context.Context) ([]rental.LeaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leaseColumns+` FROM leases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	defer rows.Close()

	var leases []rental.LeaseRecord
	for rows.Next() {
		r, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, r)
	}
	return leases, rows.Err()
}

func scanLease(row rowScanner) (rental.LeaseRecord, error) {
	var (
		r                 rental.LeaseRecord
		id, unitID        string
		tenantID, rent    string
		startDate, status string
		endDate           sql.NullString
		createdAt         string
	)
	err := row.Scan(&id, &unitID, &tenantID, &rent, &r.DueDay,
		&startDate, &endDate, &status, &createdAt)
	if err != nil {
		return r, err
	}
	r.ID = ledger.LeaseID(id)
	r.UnitID = ledger.UnitID(unitID)
	r.TenantID = ledger.PayerID(tenantID)
	r.MonthlyRent = mustDecimal(rent)
	r.StartDate = parseDate(startDate)
	if endDate.Valid {
		t := parseDate(endDate.String)
		r.EndDate = &t
	}
	r.Status = rental.LeaseStatus(status)
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

// =============================================================================
// ANNOUNCEMENTS
// =============================================================================

func (s *Store) CreateAnnouncement(ctx context.Context, a rental.Announcement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, body, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Body, a.Active,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

func (s *Store) ActiveAnnouncements(ctx context.Context) ([]rental.Announcement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, active, created_at
		FROM announcements
		WHERE active = TRUE
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var out []rental.Announcement
	for rows.Next() {
		var (
			a         rental.Announcement
			body      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Title, &body, &a.Active, &createdAt); err != nil {
			return nil, err
		}
		a.Body = body.String
		a.CreatedAt = parseTimestamp(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: dateKey(*t), Valid: true}
}
