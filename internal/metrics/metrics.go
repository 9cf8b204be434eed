package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adplaymart_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerAppliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_ledger_applies_total",
			Help: "Ledger credit and debit attempts by outcome",
		},
		[]string{"type", "direction", "outcome"},
	)

	CommissionCreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_commission_credits_total",
			Help: "Level income credits produced by package purchases",
		},
		[]string{"level", "outcome"},
	)

	CommissionDistributionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adplaymart_commission_distribution_seconds",
			Help:    "Time taken to distribute one purchase up the sponsor chain",
			Buckets: prometheus.DefBuckets,
		},
	)

	RewardClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_reward_claims_total",
			Help: "Activity reward claims by outcome",
		},
		[]string{"activity", "outcome"},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_withdrawals_total",
			Help: "Withdrawal requests by resulting status",
		},
		[]string{"status"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_registrations_total",
			Help: "Total number of user registrations",
		},
		[]string{"sponsored"},
	)

	PackagePurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_package_purchases_total",
			Help: "Total number of package purchases",
		},
		[]string{"payment"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adplaymart_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adplaymart_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerApply(txType, direction, outcome string) {
	LedgerAppliesTotal.WithLabelValues(txType, direction, outcome).Inc()
}

func RecordCommissionCredit(level, outcome string) {
	CommissionCreditsTotal.WithLabelValues(level, outcome).Inc()
}

func ObserveCommissionDistribution(seconds float64) {
	CommissionDistributionDuration.Observe(seconds)
}

func RecordRewardClaim(activity, outcome string) {
	RewardClaimsTotal.WithLabelValues(activity, outcome).Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordRegistration(sponsored bool) {
	label := "false"
	if sponsored {
		label = "true"
	}
	RegistrationsTotal.WithLabelValues(label).Inc()
}

func RecordPackagePurchase(payment string) {
	PackagePurchasesTotal.WithLabelValues(payment).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
