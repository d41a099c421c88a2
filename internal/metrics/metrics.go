package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CheckoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout sessions opened, by account type",
		},
		[]string{"account_type"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment provider webhook deliveries, by event type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WebhookProcessingTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_seconds",
			Help:    "Time taken to process a webhook delivery",
			Buckets: prometheus.DefBuckets,
		},
	)

	PurchaseItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_items_total",
			Help: "Purchased line items processed, by outcome",
		},
		[]string{"outcome"},
	)

	FailsafeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failsafe_resolutions_total",
			Help: "Post-payment redirect resolutions, by final state",
		},
		[]string{"state"},
	)
)

// Register adds the collectors to the default registry. Call once at startup.
func Register() {
	prometheus.MustRegister(
		CheckoutSessions,
		WebhookEvents,
		WebhookProcessingTime,
		PurchaseItems,
		FailsafeResolutions,
	)
}
