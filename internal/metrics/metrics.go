package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's collectors. Tests register on a fresh registry.
type Metrics struct {
	Updates    *prometheus.CounterVec
	Reactions  *prometheus.CounterVec
	Publishes  *prometheus.CounterVec
	Deliveries *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dayof_updates_total",
			Help: "Inbound messages and button clicks by event and outcome.",
		}, []string{"event", "kind", "outcome"}),
		Reactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dayof_reactions_total",
			Help: "Reaction attempts by kind and outcome (added, repeat, rejected).",
		}, []string{"event", "kind", "outcome"}),
		Publishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dayof_publish_total",
			Help: "Publish attempts by result.",
		}, []string{"event", "result"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dayof_delivery_total",
			Help: "Outbound chat platform calls by operation and result.",
		}, []string{"op", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dayof_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayof_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Nop returns collectors bound to a throwaway registry.
func Nop() *Metrics { return New(prometheus.NewRegistry()) }
