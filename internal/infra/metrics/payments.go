package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		intentsOutstanding,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment intents by terminal status (completed/cancelled/expired).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of settled payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	intentsOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_intents_outstanding",
			Help: "Payment intents currently tracked in memory.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func SetOutstandingIntents(n int) {
	intentsOutstanding.Set(float64(n))
}
