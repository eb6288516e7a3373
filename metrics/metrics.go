// Package metrics exposes the Prometheus collectors for the engine and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climate_guardian"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	assignmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "missions",
			Name:      "assigned_total",
			Help:      "Total number of daily mission assignments created.",
		},
	)

	missionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "missions",
			Name:      "completed_total",
			Help:      "Total number of completed missions by category.",
		},
		[]string{"category"},
	)

	missionsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "missions",
			Name:      "skipped_total",
			Help:      "Total number of skipped missions.",
		},
	)

	co2Saved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "missions",
			Name:      "co2_saved_kg_total",
			Help:      "Kilograms of CO2 saved by completed missions.",
		},
	)

	badgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "awarded_total",
			Help:      "Total number of badges awarded.",
		},
		[]string{"badge"},
	)

	referrals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "processed_total",
			Help:      "Referral codes processed at signup by outcome.",
		},
		[]string{"outcome"},
	)

	transitionRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "retries_total",
			Help:      "Ledger transactions retried after a lock conflict.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		assignmentsCreated,
		missionsCompleted,
		missionsSkipped,
		co2Saved,
		badgesAwarded,
		referrals,
		transitionRetries,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// AssignmentCreated counts a new daily assignment.
func AssignmentCreated() { assignmentsCreated.Inc() }

// MissionCompleted counts a completion and the CO2 it saved.
func MissionCompleted(category string, kg float64) {
	if category == "" {
		category = "unknown"
	}
	missionsCompleted.WithLabelValues(category).Inc()
	if kg > 0 {
		co2Saved.Add(kg)
	}
}

// MissionSkipped counts a skip.
func MissionSkipped() { missionsSkipped.Inc() }

// BadgeAwarded counts a newly earned badge.
func BadgeAwarded(slug string) { badgesAwarded.WithLabelValues(slug).Inc() }

// ReferralProcessed counts a referral outcome.
func ReferralProcessed(outcome string) { referrals.WithLabelValues(outcome).Inc() }

// TransitionRetried counts a retried ledger transaction.
func TransitionRetried() { transitionRetries.Inc() }

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, route, status string, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}
