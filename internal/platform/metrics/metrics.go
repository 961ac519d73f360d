package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec

	UsersRegistered         prometheus.Counter
	CheckoutSessionsCreated prometheus.Counter
	SettlementsCompleted    prometheus.Counter
	SettlementReplays       prometheus.Counter
	SettlementFailures      prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tuitionhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tuitionhub_users_registered_total",
			Help: "Total number of users registered in the system",
		}),
		CheckoutSessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tuitionhub_checkout_sessions_created_total",
			Help: "Total number of checkout sessions created with the payment provider",
		}),
		SettlementsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tuitionhub_settlements_completed_total",
			Help: "Total number of settlements that produced a new payment record",
		}),
		SettlementReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tuitionhub_settlement_replays_total",
			Help: "Total number of settlement calls answered from an existing payment record",
		}),
		SettlementFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tuitionhub_settlement_failures_total",
			Help: "Total number of settlement calls that failed",
		}),
	}
}
