// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for the pickup lifecycle and the verification
// pipeline.
type Metrics struct {
	PickupsCreatedTotal     prometheus.CounterVec
	PickupsResolvedTotal    prometheus.CounterVec
	PickupsExpiredTotal     prometheus.Counter
	PickupErrorsTotal       prometheus.CounterVec
	ViolationsRecordedTotal prometheus.CounterVec
	AccountsBlockedTotal    prometheus.Counter
	AccountsUnlockedTotal   prometheus.Counter

	VerificationTransitionsTotal prometheus.CounterVec
	SubmissionsApprovedTotal     prometheus.Counter
	SubmissionsRejectedTotal     prometheus.CounterVec

	WithdrawalsTotal      prometheus.Counter
	WithdrawalAmountTotal prometheus.Counter
	CommissionAmountTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PickupsCreatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_pickups_created_total",
				Help: "Total number of stock pickup lines created",
			},
			[]string{"dealer_id"},
		),

		PickupsResolvedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_pickups_resolved_total",
				Help: "Total number of pickups reaching a terminal state",
			},
			[]string{"status"},
		),

		PickupsExpiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stock_pickups_expired_total",
				Help: "Total number of pickups expired past their deadline",
			},
		),

		PickupErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_pickup_errors_total",
				Help: "Total number of rejected pickup operations",
			},
			[]string{"error_type"},
		),

		ViolationsRecordedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "violations_recorded_total",
				Help: "Total number of violations recorded",
			},
			[]string{"violation_type"},
		),

		AccountsBlockedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_blocked_total",
				Help: "Total number of accounts blocked at the violation threshold",
			},
		),

		AccountsUnlockedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_unlocked_total",
				Help: "Total number of MasterAdmin account unlocks",
			},
		),

		VerificationTransitionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_transitions_total",
				Help: "Total number of verification workflow transitions",
			},
			[]string{"action", "stage"},
		),

		SubmissionsApprovedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "verification_submissions_approved_total",
				Help: "Total number of verification submissions approved",
			},
		),

		SubmissionsRejectedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_submissions_rejected_total",
				Help: "Total number of verification submissions rejected",
			},
			[]string{"rejected_by"},
		),

		WithdrawalsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_withdrawals_total",
				Help: "Total number of wallet withdrawals processed",
			},
		),

		WithdrawalAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_withdrawal_amount_total",
				Help: "Total amount withdrawn from wallets",
			},
		),

		CommissionAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_commission_amount_total",
				Help: "Total commission amount credited to wallets",
			},
		),
	}
}

func (m *Metrics) RecordPickupCreated(dealerID string) {
	m.PickupsCreatedTotal.WithLabelValues(dealerID).Inc()
}

func (m *Metrics) RecordPickupResolved(status string) {
	m.PickupsResolvedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPickupExpired() {
	m.PickupsExpiredTotal.Inc()
	m.PickupsResolvedTotal.WithLabelValues("expired").Inc()
}

func (m *Metrics) RecordPickupError(errorType string) {
	m.PickupErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) RecordViolation(violationType string) {
	m.ViolationsRecordedTotal.WithLabelValues(violationType).Inc()
}

func (m *Metrics) RecordVerificationTransition(action, stage string) {
	m.VerificationTransitionsTotal.WithLabelValues(action, stage).Inc()
}

func (m *Metrics) RecordWithdrawal(amount float64) {
	m.WithdrawalsTotal.Inc()
	m.WithdrawalAmountTotal.Add(amount)
}

func (m *Metrics) RecordCommission(amount float64) {
	m.CommissionAmountTotal.Add(amount)
}
