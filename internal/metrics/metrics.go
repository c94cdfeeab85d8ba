// Package metrics holds Prometheus instruments used across the resolver.
// All collectors are registered with the global registry, so importing
// this package is enough to expose them wherever promhttp is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_secret_cache_hits_total",
			Help: "Cumulative number of secret-cache reads served without a remote fetch.",
		})

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_secret_cache_misses_total",
			Help: "Cumulative number of secret-cache reads that needed a remote fetch.",
		})

	RemoteFetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_remote_fetch_errors_total",
			Help: "Cumulative number of failed remote secret-store fetches.",
		})

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "config_secret_cache_entries",
			Help: "Number of entries currently held by the secret cache, fresh or expired.",
		})

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_resolutions_total",
			Help: "Cumulative number of configuration resolutions by context and outcome.",
		},
		[]string{"context", "outcome"})

	StageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "config_resolve_stage_seconds",
			Help:    "Duration of each resolution pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"stage"})

	KeysByProvenance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "config_keys_by_provenance",
			Help: "Keys in the last resolved configuration, by supplying source.",
		},
		[]string{"source"})
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		RemoteFetchErrorsTotal,
		CacheEntries,
		ResolutionsTotal,
		StageSeconds,
		KeysByProvenance,
	)
}
