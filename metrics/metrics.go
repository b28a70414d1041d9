// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var ProviderCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bookio_voice",
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Calls made to the Bookio widget API by endpoint and outcome",
	},
	[]string{"endpoint", "outcome"}, // outcome: ok, error
)

var ProviderLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "bookio_voice",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Latency of Bookio widget API calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
	},
	[]string{"endpoint"},
)

var ScanDayFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bookio_voice",
		Subsystem: "scanner",
		Name:      "day_failures_total",
		Help:      "Days skipped by the slot scanner because the provider call failed",
	},
	[]string{"mode"}, // soonest, overview
)

var ScanOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bookio_voice",
		Subsystem: "scanner",
		Name:      "outcomes_total",
		Help:      "Soonest-slot scan results",
	},
	[]string{"outcome"}, // found, not_found, partial, failed
)

var CatalogStaleServed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bookio_voice",
		Subsystem: "catalog",
		Name:      "stale_served_total",
		Help:      "Catalog reads answered from stale data after a failed refresh",
	},
	[]string{"kind", "tier"}, // kind: categories, services; tier: memory, redis, none
)

var WebhookRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bookio_voice",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Voice agent tool calls by action and success flag",
	},
	[]string{"action", "success"},
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ProviderCalls,
			ProviderLatency,
			ScanDayFailures,
			ScanOutcomes,
			CatalogStaleServed,
			WebhookRequests,
		)
	})
}
