// Package metrics holds the prometheus collectors shared by the cache
// adapters, the incident service and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "td_cache_lookups_total",
			Help: "Cache lookups by adapter and result (hit, miss, error).",
		},
		[]string{"adapter", "result"},
	)

	// StatusCacheResults counts how derived statuses were obtained:
	// hit, miss, or stale (cached but no longer trusted).
	StatusCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "td_status_cache_results_total",
			Help: "Derived status lookups by outcome.",
		},
		[]string{"result"},
	)

	ParameterCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "td_parameter_cache_results_total",
			Help: "System parameter lookups by outcome.",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "td_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "td_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	IncidentsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "td_incidents_by_status",
			Help: "Open incidents per derived status at the last refresh.",
		},
		[]string{"status"},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "td_status_refresh_runs_total",
			Help: "Status refresh runs by outcome.",
		},
		[]string{"outcome"},
	)
)
