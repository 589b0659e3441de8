/*
Package sqlite provides the SQLite-backed implementation of every repository
interface in the rent ledger.

INTERFACES IMPLEMENTED:
  ledger.TxStore:  billing periods and settlement transactions
  rental.Store:    units, tenants, leases, announcements
  water.Store:     water bills and their charges
  payments.Store:  manual payments

KEY TABLES:
  billing_periods:         one row per (lease, month); UNIQUE enforced
  settlement_transactions: one aggregate row per settlement
  leases:                  at most one ACTIVE row per unit and per tenant
  water_bills/water_charges
  manual_payments
  maintenance_requests
  units, tenants, announcements

DATA ENCODING:
  Monetary amounts are stored as decimal strings, never floats. Calendar
  dates use YYYY-MM-DD, billing months YYYY-MM, timestamps RFC3339.

CONCURRENCY:
  SQLite is opened with WAL and foreign keys on. Settlement writes run
  inside WithTx so a failed settlement leaves no partial rows. Methods do
  not hold a process-level mutex across the WithTx callback; SQLite's own
  single-writer discipline serializes commits.

USAGE:
  st, err := sqlite.New("./rent-ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  syncer := ledger.NewSynchronizer(st, waterSource, clock, logger)

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for hermetic tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-ledger/ledger"
)

// Store implements all repository interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// The pool may open several connections, so a plain ":memory:" path would
// give each connection its own empty database; use a file path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Units
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Tenants
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	-- Leases: one ACTIVE row per unit and per tenant
	CREATE TABLE IF NOT EXISTS leases (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		monthly_rent TEXT NOT NULL,
		due_day INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_leases_active_unit
		ON leases(unit_id) WHERE status = 'ACTIVE';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_leases_active_tenant
		ON leases(tenant_id) WHERE status = 'ACTIVE';

	-- Billing periods: exactly one row per (lease, month)
	CREATE TABLE IF NOT EXISTS billing_periods (
		id TEXT PRIMARY KEY,
		lease_id TEXT NOT NULL REFERENCES leases(id),
		period_month TEXT NOT NULL,
		due_date TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		utility_amount TEXT NOT NULL,
		surcharge_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		settled_at TEXT,
		settlement_reference TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(lease_id, period_month)
	);

	CREATE INDEX IF NOT EXISTS idx_periods_lease_status
		ON billing_periods(lease_id, status);
	CREATE INDEX IF NOT EXISTS idx_periods_due_date
		ON billing_periods(due_date);

	-- Settlement transactions: one aggregate row per settlement
	CREATE TABLE IF NOT EXISTS settlement_transactions (
		id TEXT PRIMARY KEY,
		lease_id TEXT NOT NULL REFERENCES leases(id),
		reference TEXT NOT NULL,
		periods_settled INTEGER NOT NULL,
		total_amount TEXT NOT NULL,
		settled_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_lease
		ON settlement_transactions(lease_id, settled_at DESC);

	-- Water bills
	CREATE TABLE IF NOT EXISTS water_bills (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		previous_reading TEXT NOT NULL,
		current_reading TEXT NOT NULL,
		rate_per_cubic TEXT NOT NULL,
		status TEXT NOT NULL,
		posted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_water_bills_unit_end
		ON water_bills(unit_id, period_end);

	CREATE TABLE IF NOT EXISTS water_charges (
		bill_id TEXT NOT NULL REFERENCES water_bills(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (bill_id, position)
	);

	-- Manual payments
	CREATE TABLE IF NOT EXISTS manual_payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		reference TEXT NOT NULL,
		months_covered INTEGER NOT NULL,
		note TEXT,
		status TEXT NOT NULL,
		reviewer TEXT,
		review_note TEXT,
		settlement_id TEXT,
		captured_at TEXT NOT NULL,
		reviewed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant
		ON manual_payments(tenant_id, captured_at DESC);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON manual_payments(status, captured_at);

	-- Announcements
	CREATE TABLE IF NOT EXISTS announcements (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Maintenance requests
	CREATE TABLE IF NOT EXISTS maintenance_requests (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		lease_id TEXT REFERENCES leases(id),
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_tenant
		ON maintenance_requests(tenant_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_maintenance_status
		ON maintenance_requests(status, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so period methods run both inside
// and outside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER STORE (ledger.TxStore interface)
// =============================================================================

var _ ledger.TxStore = (*Store)(nil)

func (s *Store) FindPeriod(ctx context.Context, leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	return findPeriod(ctx, s.db, leaseID, month)
}

func (s *Store) CreatePeriod(ctx context.Context, p ledger.BillingPeriod) error {
	return createPeriod(ctx, s.db, p)
}

func (s *Store) UpdateIfOutstanding(ctx context.Context, p ledger.BillingPeriod) (bool, error) {
	return updateIfOutstanding(ctx, s.db, p)
}

func (s *Store) MarkSettled(ctx context.Context, p ledger.BillingPeriod) error {
	return markSettled(ctx, s.db, p)
}

func (s *Store) Periods(ctx context.Context, leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	return listPeriods(ctx, s.db, leaseID, f)
}

func (s *Store) AppendSettlement(ctx context.Context, tx ledger.SettlementTransaction) error {
	return appendSettlement(ctx, s.db, tx)
}

func (s *Store) SettlementsByLease(ctx context.Context, leaseID ledger.LeaseID) ([]ledger.SettlementTransaction, error) {
	return settlementsByLease(ctx, s.db, leaseID)
}

// WithTx runs fn inside one database transaction; any error rolls everything
// back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the ledger.Store view handed to WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) FindPeriod(ctx context.Context, leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	return findPeriod(ctx, t.tx, leaseID, month)
}

func (t *txStore) CreatePeriod(ctx context.Context, p ledger.BillingPeriod) error {
	return createPeriod(ctx, t.tx, p)
}

func (t *txStore) UpdateIfOutstanding(ctx context.Context, p ledger.BillingPeriod) (bool, error) {
	return updateIfOutstanding(ctx, t.tx, p)
}

func (t *txStore) MarkSettled(ctx context.Context, p ledger.BillingPeriod) error {
	return markSettled(ctx, t.tx, p)
}

func (t *txStore) Periods(ctx context.Context, leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	return listPeriods(ctx, t.tx, leaseID, f)
}

func (t *txStore) AppendSettlement(ctx context.Context, tx ledger.SettlementTransaction) error {
	return appendSettlement(ctx, t.tx, tx)
}

func (t *txStore) SettlementsByLease(ctx context.Context, leaseID ledger.LeaseID) ([]ledger.SettlementTransaction, error) {
	return settlementsByLease(ctx, t.tx, leaseID)
}

// =============================================================================
// BILLING PERIOD QUERIES
// =============================================================================

const periodColumns = `id, lease_id, period_month, due_date, base_amount,
	utility_amount, surcharge_amount, total_amount, status, settled_at,
	settlement_reference, created_at`

func findPeriod(ctx context.Context, q querier, leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE lease_id = ? AND period_month = ?`,
		string(leaseID), monthKey(month),
	)
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func createPeriod(ctx context.Context, q querier, p ledger.BillingPeriod) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO billing_periods
		(id, lease_id, period_month, due_date, base_amount, utility_amount,
		 surcharge_amount, total_amount, status, settled_at, settlement_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.LeaseID), monthKey(p.PeriodMonth), dateKey(p.DueDate),
		p.BaseAmount.String(), p.UtilityAmount.String(), p.SurchargeAmount.String(),
		p.TotalAmount.String(), string(p.Status),
		nullTime(p.SettledAt), nullString(p.SettlementReference),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrDuplicatePeriod
	}
	if err != nil {
		return fmt.Errorf("failed to create billing period: %w", err)
	}
	return nil
}

func updateIfOutstanding(ctx context.Context, q querier, p ledger.BillingPeriod) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE billing_periods
		SET due_date = ?, base_amount = ?, utility_amount = ?,
		    surcharge_amount = ?, total_amount = ?
		WHERE lease_id = ? AND period_month = ? AND status = ?`,
		dateKey(p.DueDate), p.BaseAmount.String(), p.UtilityAmount.String(),
		p.SurchargeAmount.String(), p.TotalAmount.String(),
		string(p.LeaseID), monthKey(p.PeriodMonth), string(ledger.StatusOutstanding),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update billing period: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func markSettled(ctx context.Context, q querier, p ledger.BillingPeriod) error {
	res, err := q.ExecContext(ctx, `
		UPDATE billing_periods
		SET due_date = ?, base_amount = ?, utility_amount = ?,
		    surcharge_amount = ?, total_amount = ?, status = ?,
		    settled_at = ?, settlement_reference = ?
		WHERE lease_id = ? AND period_month = ? AND status = ?`,
		dateKey(p.DueDate), p.BaseAmount.String(), p.UtilityAmount.String(),
		p.SurchargeAmount.String(), p.TotalAmount.String(), string(ledger.StatusSettled),
		nullTime(p.SettledAt), nullString(p.SettlementReference),
		string(p.LeaseID), monthKey(p.PeriodMonth), string(ledger.StatusOutstanding),
	)
	if err != nil {
		return fmt.Errorf("failed to settle billing period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		existing, err := findPeriod(ctx, q, p.LeaseID, p.PeriodMonth)
		if err != nil {
			return err
		}
		if existing == nil {
			return ledger.ErrPeriodNotFound
		}
		return ledger.ErrPeriodSettled
	}
	return nil
}

func listPeriods(ctx context.Context, q querier, leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM billing_periods WHERE lease_id = ?`
	args := []any{string(leaseID)}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.DueOnOrBefore != nil {
		query += ` AND due_date <= ?`
		args = append(args, dateKey(*f.DueOnOrBefore))
	}
	if f.MonthOnOrAfter != nil {
		query += ` AND period_month >= ?`
		args = append(args, monthKey(*f.MonthOnOrAfter))
	}
	if f.MonthOnOrBefore != nil {
		query += ` AND period_month <= ?`
		args = append(args, monthKey(*f.MonthOnOrBefore))
	}
	query += ` ORDER BY period_month ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query billing periods: %w", err)
	}
	defer rows.Close()

	var periods []ledger.BillingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func appendSettlement(ctx context.Context, q querier, tx ledger.SettlementTransaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settlement_transactions
		(id, lease_id, reference, periods_settled, total_amount, settled_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(tx.ID), string(tx.LeaseID), tx.Reference,
		tx.PeriodsSettled, tx.TotalAmount.String(),
		tx.SettledAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append settlement: %w", err)
	}
	return nil
}

func settlementsByLease(ctx context.Context, q querier, leaseID ledger.LeaseID) ([]ledger.SettlementTransaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, lease_id, reference, periods_settled, total_amount, settled_at
		FROM settlement_transactions
		WHERE lease_id = ?
		ORDER BY settled_at DESC, rowid DESC`,
		string(leaseID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var out []ledger.SettlementTransaction
	for rows.Next() {
		var (
			tx        ledger.SettlementTransaction
			id        string
			leaseID   string
			total     string
			settledAt string
		)
		if err := rows.Scan(&id, &leaseID, &tx.Reference, &tx.PeriodsSettled, &total, &settledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		tx.ID = ledger.SettlementID(id)
		tx.LeaseID = ledger.LeaseID(leaseID)
		tx.TotalAmount = mustDecimal(total)
		tx.SettledAt = parseTimestamp(settledAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (ledger.BillingPeriod, error) {
	var (
		p           ledger.BillingPeriod
		id, leaseID string
		month       string
		dueDate     string
		base        string
		utility     string
		surcharge   string
		total       string
		status      string
		settledAt   sql.NullString
		reference   sql.NullString
		createdAt   string
	)
	err := row.Scan(&id, &leaseID, &month, &dueDate, &base, &utility,
		&surcharge, &total, &status, &settledAt, &reference, &createdAt)
	if err != nil {
		return p, err
	}

	p.ID = ledger.PeriodID(id)
	p.LeaseID = ledger.LeaseID(leaseID)
	p.PeriodMonth = parseMonth(month)
	p.DueDate = parseDate(dueDate)
	p.BaseAmount = mustDecimal(base)
	p.UtilityAmount = mustDecimal(utility)
	p.SurchargeAmount = mustDecimal(surcharge)
	p.TotalAmount = mustDecimal(total)
	p.Status = ledger.PeriodStatus(status)
	if settledAt.Valid {
		t := parseTimestamp(settledAt.String)
		p.SettledAt = &t
	}
	p.SettlementReference = reference.String
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func monthKey(t time.Time) string { return ledger.MonthStart(t).Format("2006-01") }
func dateKey(t time.Time) string  { return t.Format("2006-01-02") }

func parseMonth(s string) time.Time {
	t, _ := time.Parse("2006-01", s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t.UTC()
}

func mustDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
