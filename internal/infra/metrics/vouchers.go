package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		vouchersCreatedTotal,
		voucherRedemptionsTotal,
		vouchersExpiredTotal,
		staffVouchersTotal,
		loyaltyVisitsTotal,
		loyaltyTierChangesTotal,
		vouchersByStatus,
	)
}

var (
	vouchersByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vouchers_by_status",
			Help: "Stored vouchers per status, refreshed by the stats poller.",
		},
		[]string{"status"},
	)

	vouchersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vouchers_created_total",
			Help: "Vouchers issued, by voucher type.",
		},
		[]string{"type"},
	)

	voucherRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_redemptions_total",
			Help: "Redemption attempts by result (redeemed/already_redeemed/expired/not_active/not_found/error).",
		},
		[]string{"result"},
	)

	vouchersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_expired_total",
			Help: "Active vouchers flipped to expired by the sweeper.",
		},
	)

	staffVouchersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staff_vouchers_total",
			Help: "Staff WiFi voucher requests by result (issued/limit_reached/override).",
		},
		[]string{"result"},
	)

	loyaltyVisitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_visits_total",
			Help: "Customer visits recorded.",
		},
	)

	loyaltyTierChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_tier_changes_total",
			Help: "Customers promoted into a tier.",
		},
		[]string{"tier"},
	)
)

func IncVoucherCreated(voucherType string) {
	vouchersCreatedTotal.WithLabelValues(norm(voucherType)).Inc()
}

func IncRedemption(result string) {
	voucherRedemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func AddVouchersExpired(n int64) {
	if n > 0 {
		vouchersExpiredTotal.Add(float64(n))
	}
}

func IncStaffVoucher(result string) {
	staffVouchersTotal.WithLabelValues(norm(result)).Inc()
}

func IncLoyaltyVisit() { loyaltyVisitsTotal.Inc() }

func IncTierChange(tier string) {
	loyaltyTierChangesTotal.WithLabelValues(norm(tier)).Inc()
}

// SetVouchersByStatus replaces the per-status gauge values.
func SetVouchersByStatus(counts map[string]int) {
	vouchersByStatus.Reset()
	for status, n := range counts {
		vouchersByStatus.WithLabelValues(norm(status)).Set(float64(n))
	}
}
