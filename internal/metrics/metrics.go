package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcome labels.
const (
	OutcomeApplied          = "applied"
	OutcomeNoop             = "noop"
	OutcomeConflict         = "conflict"
	OutcomeOrderNotFound    = "order_not_found"
	OutcomeInvalidPayload   = "invalid_payload"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeStoreError       = "store_error"
)

// PaymentMetrics tracks checkout and webhook reconciliation activity.
type PaymentMetrics struct {
	CheckoutsTotal       *prometheus.CounterVec
	CheckoutAmountTotal  prometheus.Counter
	WebhookOutcomesTotal *prometheus.CounterVec
	OrdersByStatus       *prometheus.GaugeVec
	GatewayDuration      prometheus.Histogram
}

func NewPaymentMetrics() *PaymentMetrics {
	return NewPaymentMetricsWith(prometheus.DefaultRegisterer)
}

// NewPaymentMetricsWith registers the collectors on reg; tests pass a fresh
// registry so repeated construction does not panic.
func NewPaymentMetricsWith(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)

	return &PaymentMetrics{
		CheckoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "Checkout attempts by result",
			},
			[]string{"result"},
		),

		CheckoutAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_amount_total",
				Help: "Gross amount of successfully initiated checkouts",
			},
		),

		WebhookOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_outcomes_total",
				Help: "Gateway notification outcomes (applied, noop, conflict, order_not_found, ...)",
			},
			[]string{"outcome"},
		),

		OrdersByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orders_by_payment_status",
				Help: "Payment status transitions applied, by resulting status",
			},
			[]string{"status"},
		),

		GatewayDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Duration of transaction-creation calls to the payment gateway",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
}

func (m *PaymentMetrics) RecordCheckout(result string, grossAmount int64) {
	m.CheckoutsTotal.WithLabelValues(result).Inc()
	if result == "success" {
		m.CheckoutAmountTotal.Add(float64(grossAmount))
	}
}

func (m *PaymentMetrics) RecordWebhookOutcome(outcome string) {
	m.WebhookOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RecordStatusApplied(status string) {
	m.OrdersByStatus.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) RecordGatewayDuration(seconds float64) {
	m.GatewayDuration.Observe(seconds)
}
