// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveOrgs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "citysync_active_orgs",
			Help: "Number of organizations currently scheduled for sync.",
		})

	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citysync_sync_runs_total",
			Help: "Cumulative number of sync runs, by terminal status.",
		},
		[]string{"status"}, // idle | error
	)

	SyncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citysync_sync_records_total",
			Help: "Cumulative number of records processed by the sync engine.",
		},
		[]string{"entity", "outcome"}, // citizen|vehicle, created|updated|error
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citysync_sync_duration_seconds",
			Help:    "Wall-clock duration of one full sync run.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12), // 0.25s … ~17m
		})

	RoleCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citysync_role_cache_hits_total",
			Help: "Role-members cache hits.",
		})

	RoleCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citysync_role_cache_misses_total",
			Help: "Role-members cache misses (store fallback taken).",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveOrgs,
		SyncRunsTotal,
		SyncRecordsTotal,
		SyncDuration,
		RoleCacheHitsTotal,
		RoleCacheMissesTotal,
	)
}
