/*
water.go - SQLite persistence for water bills

Charges live in a child table keyed by (bill_id, position) so a bill's extra
line items keep their order. PostedBillsEndingIn drives the ledger's utility
amounts: the month window comparison happens on the period_end date column.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/water"
)

var _ water.Store = (*Store)(nil)

const waterColumns = `id, unit_id, period_start, period_end, previous_reading,
	current_reading, rate_per_cubic, status, posted_at, created_at`

func (s *Store) CreateBill(ctx context.Context, b water.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO water_bills (id, unit_id, period_start, period_end,
			previous_reading, current_reading, rate_per_cubic, status,
			posted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.UnitID), dateKey(b.PeriodStart), dateKey(b.PeriodEnd),
		b.PreviousReading.String(), b.CurrentReading.String(),
		b.RatePerCubic.String(), string(b.Status),
		nullTime(b.PostedAt), b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create water bill: %w", err)
	}
	if err := insertCharges(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdateBill(ctx context.Context, b water.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE water_bills
		SET period_start = ?, period_end = ?, previous_reading = ?,
		    current_reading = ?, rate_per_cubic = ?, status = ?, posted_at = ?
		WHERE id = ?`,
		dateKey(b.PeriodStart), dateKey(b.PeriodEnd),
		b.PreviousReading.String(), b.CurrentReading.String(),
		b.RatePerCubic.String(), string(b.Status), nullTime(b.PostedAt),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update water bill: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM water_charges WHERE bill_id = ?`, b.ID); err != nil {
		return fmt.Errorf("failed to replace water charges: %w", err)
	}
	if err := insertCharges(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCharges(ctx context.Context, tx *sql.Tx, b water.Bill) error {
	for i, c := range b.Charges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO water_charges (bill_id, position, label, amount)
			VALUES (?, ?, ?, ?)`,
			b.ID, i, c.Label, c.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert water charge: %w", err)
		}
	}
	return nil
}

func (s *Store) FindBill(ctx context.Context, id string) (*water.Bill, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+waterColumns+` FROM water_bills WHERE id = ?`, id)
	b, err := scanWaterBill(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadCharges(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) BillsByUnit(ctx context.Context, unitID ledger.UnitID) ([]water.Bill, error) {
	return s.queryBills(ctx,
		`SELECT `+waterColumns+` FROM water_bills WHERE unit_id = ? ORDER BY period_end DESC`,
		string(unitID))
}

func (s *Store) PostedBillsEndingIn(ctx context.Context, unitID ledger.UnitID, month time.Time) ([]water.Bill, error) {
	start := ledger.MonthStart(month)
	end := ledger.AddMonths(start, 1)
	return s.queryBills(ctx, `
		SELECT `+waterColumns+` FROM water_bills
		WHERE unit_id = ? AND status = ? AND period_end >= ? AND period_end < ?
		ORDER BY period_end`,
		string(unitID), string(water.BillPosted), dateKey(start), dateKey(end))
}

func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]water.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query water bills: %w", err)
	}
	defer rows.Close()

	var bills []water.Bill
	for rows.Next() {
		b, err := scanWaterBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bills {
		if err := s.loadCharges(ctx, &bills[i]); err != nil {
			return nil, err
		}
	}
	return bills, nil
}

func (s *Store) loadCharges(ctx context.Context, b *water.Bill) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, amount FROM water_charges
		WHERE bill_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query water charges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c water.Charge
		var amount string
		if err := rows.Scan(&c.Label, &amount); err != nil {
			return err
		}
		c.Amount = mustDecimal(amount)
		b.Charges = append(b.Charges, c)
	}
	return rows.Err()
}

func scanWaterBill(row rowScanner) (water.Bill, error) {
	var (
		b                water.Bill
		unitID           string
		periodStart      string
		periodEnd        string
		prev, cur, rate  string
		status           string
		postedAt         sql.NullString
		createdAt        string
	)
	err := row.Scan(&b.ID, &unitID, &periodStart, &periodEnd,
		&prev, &cur, &rate, &status, &postedAt, &createdAt)
	if err != nil {
		return b, err
	}
	b.UnitID = ledger.UnitID(unitID)
	b.PeriodStart = parseDate(periodStart)
	b.PeriodEnd = parseDate(periodEnd)
	b.PreviousReading = mustDecimal(prev)
	b.CurrentReading = mustDecimal(cur)
	b.RatePerCubic = mustDecimal(rate)
	b.Status = water.BillStatus(status)
	if postedAt.Valid {
		t := parseTimestamp(postedAt.String)
		b.PostedAt = &t
	}
	b.CreatedAt = parseTimestamp(createdAt)
	return b, nil
}
