package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records gateway, confirmation and delivery outcomes.
type PaymentMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	confirmations   *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
}

// Confirmation outcome labels.
const (
	OutcomeProcessed        = "processed"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeNotPaid          = "not_paid"
	OutcomeFailed           = "failed"
)

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flow_gateway_request_duration_seconds",
		Help:    "Duration of Flow API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Confirmation attempts by outcome.",
	}, []string{"outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_deliveries_total",
		Help: "Fulfillment email dispatches by channel and result.",
	}, []string{"channel", "result"})
	reg.MustRegister(gatewayDuration, confirmations, deliveries)
	return &PaymentMetrics{
		gatewayDuration: gatewayDuration,
		confirmations:   confirmations,
		deliveries:      deliveries,
	}
}

// ObserveGatewayDuration records the duration of one Flow API call.
func (p *PaymentMetrics) ObserveGatewayDuration(op string, duration time.Duration) {
	if p == nil || p.gatewayDuration == nil {
		return
	}
	p.gatewayDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncConfirmation increments the confirmation counter for an outcome.
func (p *PaymentMetrics) IncConfirmation(outcome string) {
	if p == nil || p.confirmations == nil {
		return
	}
	p.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDelivery increments the delivery counter for a channel/result pair.
func (p *PaymentMetrics) IncDelivery(channel, result string) {
	if p == nil || p.deliveries == nil {
		return
	}
	p.deliveries.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
