// Package metrics registers the Prometheus instruments shared by the API
// and worker binaries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_orders_created_total",
		Help: "Orders successfully created at checkout.",
	})

	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_checkout_failures_total",
		Help: "Failed checkouts by reason.",
	}, []string{"reason"})

	PaymentsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_payments_settled_total",
		Help: "Payment intents confirmed and settled onto orders.",
	})

	RefundsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_refunds_issued_total",
		Help: "Refunds pushed through to the processor.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_webhook_events_total",
		Help: "Webhook deliveries by provider, type, and outcome.",
	}, []string{"provider", "type", "outcome"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_jobs_processed_total",
		Help: "Background jobs by topic and outcome.",
	}, []string{"topic", "outcome"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler { return promhttp.Handler() }
