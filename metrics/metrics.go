// Package metrics registers Prometheus instrumentation for the rent ledger.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "rentledger_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	periodsCreated   prometheus.Counter
	periodsRefreshed prometheus.Counter

	settlementsTotal    *prometheus.CounterVec
	settlementsLatency  *prometheus.HistogramVec
	settlementConflicts prometheus.Counter

	paymentsCaptured prometheus.Counter
	paymentsReviewed *prometheus.CounterVec

	waterBillsPosted prometheus.Counter

	maintenanceSubmitted *prometheus.CounterVec
)

// Init registers ledger metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		periodsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "periods_created_total",
			Help: "Total billing periods materialized",
		})
		periodsRefreshed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "periods_refreshed_total",
			Help: "Total outstanding periods refreshed with new amounts",
		})

		settlementsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_total",
				Help: "Total settlement attempts by result",
			},
			[]string{"result"},
		)
		settlementsLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_latency_seconds",
				Help:    "Settlement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "settlement_conflicts_total",
			Help: "Total settlements rejected by lock contention",
		})

		paymentsCaptured = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "manual_payments_captured_total",
			Help: "Total manual payments captured",
		})
		paymentsReviewed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "manual_payments_reviewed_total",
				Help: "Total manual payment review decisions by outcome",
			},
			[]string{"decision"},
		)

		waterBillsPosted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "water_bills_posted_total",
			Help: "Total water bills posted",
		})
		maintenanceSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "maintenance_requests_total",
			Help: "Total maintenance requests submitted, by category",
		}, []string{"category"})

		prometheus.MustRegister(
			periodsCreated,
			periodsRefreshed,
			settlementsTotal,
			settlementsLatency,
			settlementConflicts,
			paymentsCaptured,
			paymentsReviewed,
			waterBillsPosted,
			maintenanceSubmitted,
		)
	})
}

// IncPeriodCreated increments the materialized-period counter.
func IncPeriodCreated() {
	if periodsCreated != nil {
		periodsCreated.Inc()
	}
}

// IncPeriodRefreshed increments the refreshed-period counter.
func IncPeriodRefreshed() {
	if periodsRefreshed != nil {
		periodsRefreshed.Inc()
	}
}

// ObserveSettlement records settlement duration and result.
func ObserveSettlement(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementsTotal != nil {
		settlementsTotal.WithLabelValues(result).Inc()
	}
	if settlementsLatency != nil {
		settlementsLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSettlementConflict increments the lock-contention counter.
func IncSettlementConflict() {
	if settlementConflicts != nil {
		settlementConflicts.Inc()
	}
}

// IncPaymentCaptured increments the captured manual-payment counter.
func IncPaymentCaptured() {
	if paymentsCaptured != nil {
		paymentsCaptured.Inc()
	}
}

// IncPaymentReviewed increments review decisions by outcome.
func IncPaymentReviewed(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	if paymentsReviewed != nil {
		paymentsReviewed.WithLabelValues(decision).Inc()
	}
}

// IncWaterBillPosted increments the posted water-bill counter.
func IncWaterBillPosted() {
	if waterBillsPosted != nil {
		waterBillsPosted.Inc()
	}
}

// IncMaintenanceSubmitted increments the maintenance-request counter for a
// category.
func IncMaintenanceSubmitted(category string) {
	if maintenanceSubmitted != nil {
		maintenanceSubmitted.WithLabelValues(category).Inc()
	}
}

// Exported result constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultConflict = "conflict"
)
