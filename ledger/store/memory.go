// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	periods     map[periodKey]ledger.BillingPeriod
	settlements map[ledger.LeaseID][]ledger.SettlementTransaction
}

type periodKey struct {
	LeaseID ledger.LeaseID
	Month   string // YYYY-MM
}

func keyFor(leaseID ledger.LeaseID, month time.Time) periodKey {
	return periodKey{LeaseID: leaseID, Month: ledger.MonthStart(month).Format("2006-01")}
}

func NewMemory() *Memory {
	return &Memory{
		periods:     make(map[periodKey]ledger.BillingPeriod),
		settlements: make(map[ledger.LeaseID][]ledger.SettlementTransaction),
	}
}

func (m *Memory) FindPeriod(_ context.Context, leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(leaseID, month)
}

func (m *Memory) findLocked(leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	p, ok := m.periods[keyFor(leaseID, month)]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *Memory) CreatePeriod(_ context.Context, p ledger.BillingPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(p)
}

func (m *Memory) createLocked(p ledger.BillingPeriod) error {
	k := keyFor(p.LeaseID, p.PeriodMonth)
	if _, exists := m.periods[k]; exists {
		return ledger.ErrDuplicatePeriod
	}
	m.periods[k] = p
	return nil
}

func (m *Memory) UpdateIfOutstanding(_ context.Context, p ledger.BillingPeriod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(p)
}

func (m *Memory) updateLocked(p ledger.BillingPeriod) (bool, error) {
	k := keyFor(p.LeaseID, p.PeriodMonth)
	existing, ok := m.periods[k]
	if !ok || !existing.Outstanding() {
		return false, nil
	}

	existing.DueDate = p.DueDate
	existing.BaseAmount = p.BaseAmount
	existing.UtilityAmount = p.UtilityAmount
	existing.SurchargeAmount = p.SurchargeAmount
	existing.TotalAmount = p.TotalAmount
	m.periods[k] = existing
	return true, nil
}

func (m *Memory) MarkSettled(_ context.Context, p ledger.BillingPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settleLocked(p)
}

func (m *Memory) settleLocked(p ledger.BillingPeriod) error {
	k := keyFor(p.LeaseID, p.PeriodMonth)
	existing, ok := m.periods[k]
	if !ok {
		return ledger.ErrPeriodNotFound
	}
	if !existing.Outstanding() {
		return ledger.ErrPeriodSettled
	}
	m.periods[k] = p
	return nil
}

func (m *Memory) Periods(_ context.Context, leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.periodsLocked(leaseID, f)
}

func (m *Memory) periodsLocked(leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	var result []ledger.BillingPeriod
	for k, p := range m.periods {
		if k.LeaseID != leaseID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.DueOnOrBefore != nil && p.DueDate.After(*f.DueOnOrBefore) {
			continue
		}
		if f.MonthOnOrAfter != nil && p.PeriodMonth.Before(ledger.MonthStart(*f.MonthOnOrAfter)) {
			continue
		}
		if f.MonthOnOrBefore != nil && p.PeriodMonth.After(ledger.MonthStart(*f.MonthOnOrBefore)) {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodMonth.Before(result[j].PeriodMonth)
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *Memory) AppendSettlement(_ context.Context, tx ledger.SettlementTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendSettlementLocked(tx)
}

func (m *Memory) appendSettlementLocked(tx ledger.SettlementTransaction) error {
	m.settlements[tx.LeaseID] = append(m.settlements[tx.LeaseID], tx)
	return nil
}

func (m *Memory) SettlementsByLease(_ context.Context, leaseID ledger.LeaseID) ([]ledger.SettlementTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settlementsLocked(leaseID), nil
}

func (m *Memory) settlementsLocked(leaseID ledger.LeaseID) []ledger.SettlementTransaction {
	src := m.settlements[leaseID]
	result := make([]ledger.SettlementTransaction, len(src))
	// Reverse insertion order first so settlements sharing a timestamp still
	// come back newest first after the stable sort.
	for i, tx := range src {
		result[len(src)-1-i] = tx
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SettledAt.After(result[j].SettledAt)
	})
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a snapshot
// restored on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	periods     map[periodKey]ledger.BillingPeriod
	settlements map[ledger.LeaseID][]ledger.SettlementTransaction
}

func (tm *TxMemory) snapshot() memorySnapshot {
	periods := make(map[periodKey]ledger.BillingPeriod, len(tm.periods))
	for k, v := range tm.periods {
		periods[k] = v
	}
	settlements := make(map[ledger.LeaseID][]ledger.SettlementTransaction, len(tm.settlements))
	for k, v := range tm.settlements {
		settlements[k] = append([]ledger.SettlementTransaction{}, v...)
	}
	return memorySnapshot{periods: periods, settlements: settlements}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.periods = s.periods
	tm.settlements = s.settlements
}

// txMemoryView runs against the parent's maps while the parent's mutex is
// already held by WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) FindPeriod(_ context.Context, leaseID ledger.LeaseID, month time.Time) (*ledger.BillingPeriod, error) {
	return tv.parent.findLocked(leaseID, month)
}

func (tv *txMemoryView) CreatePeriod(_ context.Context, p ledger.BillingPeriod) error {
	return tv.parent.createLocked(p)
}

func (tv *txMemoryView) UpdateIfOutstanding(_ context.Context, p ledger.BillingPeriod) (bool, error) {
	return tv.parent.updateLocked(p)
}

func (tv *txMemoryView) MarkSettled(_ context.Context, p ledger.BillingPeriod) error {
	return tv.parent.settleLocked(p)
}

func (tv *txMemoryView) Periods(_ context.Context, leaseID ledger.LeaseID, f ledger.PeriodFilter) ([]ledger.BillingPeriod, error) {
	return tv.parent.periodsLocked(leaseID, f)
}

func (tv *txMemoryView) AppendSettlement(_ context.Context, tx ledger.SettlementTransaction) error {
	return tv.parent.appendSettlementLocked(tx)
}

func (tv *txMemoryView) SettlementsByLease(_ context.Context, leaseID ledger.LeaseID) ([]ledger.SettlementTransaction, error) {
	return tv.parent.settlementsLocked(leaseID), nil
}
