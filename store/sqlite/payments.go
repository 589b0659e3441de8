// payments.go - SQLite persistence for manual payments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/payments"
)

var _ payments.Store = (*Store)(nil)

const paymentColumns = `id, tenant_id, reference, months_covered, note,
	status, reviewer, review_note, settlement_id, captured_at, reviewed_at`

func (s *Store) CreatePayment(ctx context.Context, p payments.ManualPayment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_payments (id, tenant_id, reference, months_covered,
			note, status, reviewer, review_note, settlement_id, captured_at, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.TenantID), p.Reference, p.MonthsCovered,
		nullString(p.Note), string(p.Status), nullString(p.Reviewer),
		nullString(p.ReviewNote), nullString(string(p.SettlementID)),
		p.CapturedAt.UTC().Format(time.RFC3339), nullTime(p.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create manual payment: %w", err)
	}
	return nil
}

func (s *Store) UpdatePayment(ctx context.Context, p payments.ManualPayment) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE manual_payments
		SET status = ?, reviewer = ?, review_note = ?, settlement_id = ?, reviewed_at = ?
		WHERE id = ?`,
		string(p.Status), nullString(p.Reviewer), nullString(p.ReviewNote),
		nullString(string(p.SettlementID)), nullTime(p.ReviewedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update manual payment: %w", err)
	}
	return nil
}

func (s *Store) FindPayment(ctx context.Context, id string) (*payments.ManualPayment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM manual_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PaymentsByTenant(ctx context.Context, tenantID ledger.PayerID) ([]payments.ManualPayment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+` FROM manual_payments
		WHERE tenant_id = ? ORDER BY captured_at DESC`,
		string(tenantID))
}

func (s *Store) PendingPayments(ctx context.Context) ([]payments.ManualPayment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+` FROM manual_payments
		WHERE status = ? ORDER BY captured_at ASC`,
		string(payments.PaymentPending))
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]payments.ManualPayment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual payments: %w", err)
	}
	defer rows.Close()

	var out []payments.ManualPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (payments.ManualPayment, error) {
	var (
		p            payments.ManualPayment
		tenantID     string
		note         sql.NullString
		status       string
		reviewer     sql.NullString
		reviewNote   sql.NullString
		settlementID sql.NullString
		capturedAt   string
		reviewedAt   sql.NullString
	)
	err := row.Scan(&p.ID, &tenantID, &p.Reference, &p.MonthsCovered, &note,
		&status, &reviewer, &reviewNote, &settlementID, &capturedAt, &reviewedAt)
	if err != nil {
		return p, err
	}
	p.TenantID = ledger.PayerID(tenantID)
	p.Note = note.String
	p.Status = payments.PaymentStatus(status)
	p.Reviewer = reviewer.String
	p.ReviewNote = reviewNote.String
	p.SettlementID = ledger.SettlementID(settlementID.String)
	p.CapturedAt = parseTimestamp(capturedAt)
	if reviewedAt.Valid {
		t := parseTimestamp(reviewedAt.String)
		p.ReviewedAt = &t
	}
	return p, nil
}
