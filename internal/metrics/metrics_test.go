package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/wallet", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/wallet", "200"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/api/rewards/claim", "200", 0.1)
	RecordHTTPRequest("POST", "/api/rewards/claim", "200", 0.2)
	RecordHTTPRequest("POST", "/api/rewards/claim", "409", 0.05)

	okCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/rewards/claim", "200"))
	conflictCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/rewards/claim", "409"))

	assert.Equal(t, float64(2), okCount)
	assert.Equal(t, float64(1), conflictCount)
}

func TestRecordLedgerApply(t *testing.T) {
	LedgerAppliesTotal.Reset()

	RecordLedgerApply("level_income", "credit", "applied")
	RecordLedgerApply("level_income", "credit", "applied")
	RecordLedgerApply("withdrawal", "debit", "rejected")

	assert.Equal(t, float64(2), testutil.ToFloat64(LedgerAppliesTotal.WithLabelValues("level_income", "credit", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(LedgerAppliesTotal.WithLabelValues("withdrawal", "debit", "rejected")))
}

func TestRecordCommissionCredit(t *testing.T) {
	CommissionCreditsTotal.Reset()

	RecordCommissionCredit("1", "applied")
	RecordCommissionCredit("2", "applied")
	RecordCommissionCredit("2", "failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(CommissionCreditsTotal.WithLabelValues("1", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CommissionCreditsTotal.WithLabelValues("2", "failed")))
}

func TestObserveCommissionDistribution(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "adplaymart_commission_distribution_seconds_test",
		Help: "test",
	})

	old := CommissionDistributionDuration
	CommissionDistributionDuration = h
	defer func() { CommissionDistributionDuration = old }()

	ObserveCommissionDistribution(0.02)
	ObserveCommissionDistribution(0.04)

	assert.Equal(t, 1, testutil.CollectAndCount(h))
}

func TestRecordRewardClaim(t *testing.T) {
	RewardClaimsTotal.Reset()

	RecordRewardClaim("video", "credited")
	RecordRewardClaim("video", "daily_cap_reached")

	assert.Equal(t, float64(1), testutil.ToFloat64(RewardClaimsTotal.WithLabelValues("video", "credited")))
	assert.Equal(t, float64(1), testutil.ToFloat64(RewardClaimsTotal.WithLabelValues("video", "daily_cap_reached")))
}

func TestRecordWithdrawal(t *testing.T) {
	WithdrawalsTotal.Reset()

	RecordWithdrawal("pending")
	RecordWithdrawal("pending")
	RecordWithdrawal("rejected")

	assert.Equal(t, float64(2), testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("rejected")))
}

func TestRecordRegistration(t *testing.T) {
	RegistrationsTotal.Reset()

	RecordRegistration(true)
	RecordRegistration(false)
	RecordRegistration(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(RegistrationsTotal.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(RegistrationsTotal.WithLabelValues("false")))
}

func TestRecordPackagePurchase(t *testing.T) {
	PackagePurchasesTotal.Reset()

	RecordPackagePurchase("wallet")
	RecordPackagePurchase("gateway")

	assert.Equal(t, float64(1), testutil.ToFloat64(PackagePurchasesTotal.WithLabelValues("wallet")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PackagePurchasesTotal.WithLabelValues("gateway")))
}

func TestRecordEmail(t *testing.T) {
	EmailsSentTotal.Reset()

	RecordEmail("withdrawal_processed", "success")
	RecordEmail("withdrawal_processed", "failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(EmailsSentTotal.WithLabelValues("withdrawal_processed", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EmailsSentTotal.WithLabelValues("withdrawal_processed", "failed")))
}

func TestEmailQueueLength(t *testing.T) {
	EmailQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(EmailQueueLength))

	EmailQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(EmailQueueLength))
}
