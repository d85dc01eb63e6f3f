// Package metrics holds the Prometheus collectors shared by the webhook,
// the turn graph, the messenger gateway and the attribution resolver.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderbot",
		Name:      "webhook_events_total",
		Help:      "Inbound webhook messaging events by kind.",
	}, []string{"kind"})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderbot",
		Name:      "turns_total",
		Help:      "Conversation turns by route and result.",
	}, []string{"route", "result"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orderbot",
		Name:      "turn_duration_seconds",
		Help:      "Time spent running one conversation turn.",
		Buckets:   prometheus.DefBuckets,
	})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderbot",
		Name:      "messages_sent_total",
		Help:      "Outbound messenger sends by message kind and result.",
	}, []string{"kind", "result"})

	AttributionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderbot",
		Name:      "attribution_decisions_total",
		Help:      "Order attribution attempts by path and outcome.",
	}, []string{"path", "outcome"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderbot",
		Name:      "orders_created_total",
		Help:      "Checkout order-creation attempts by result.",
	}, []string{"result"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
