// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Submit attempts by result (invalid, delivered, failed, busy).",
		}, []string{"result"})

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contact_delivery_duration_seconds",
			Help:    "Time spent in one delivery driver call.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"driver", "status"})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_active_sessions",
			Help: "Number of visitor controllers currently held in memory.",
		})

	SessionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_sessions_evicted_total",
			Help: "Cumulative number of visitor controllers evicted.",
		})

	RejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_rejected_total",
			Help: "Requests refused before reaching the controller, by reason.",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		DeliveryDuration,
		ActiveSessions,
		SessionsEvictedTotal,
		RejectedTotal,
	)
}
