// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package metrics exposes Prometheus instrumentation for FlickLit:
// recommendation latency and throughput, cache efficiency, store query
// performance, and interaction event flow.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation engine metrics

	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_recommendation_requests_total",
			Help: "Total recommendation requests by mode",
		},
		[]string{"mode"}, // "personalized", "popular", "similar"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flicklit_recommendation_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	ScorerDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_scorer_degradations_total",
			Help: "Sub-scorer failures absorbed as zero-score contributions",
		},
		[]string{"scorer"}, // "collaborative", "content", "trending"
	)

	// Cache metrics

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_cache_hits_total",
			Help: "Cache hits by cache kind",
		},
		[]string{"cache"}, // "recommendations", "profile"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_cache_misses_total",
			Help: "Cache misses by cache kind (TTL expiry and fingerprint mismatch count as misses)",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_cache_evictions_total",
			Help: "Cache evictions by reason",
		},
		[]string{"cache", "reason"}, // "interaction", "related_user", "sweep", "explicit"
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flicklit_cache_entries",
			Help: "Current number of cached entries by cache kind",
		},
		[]string{"cache"},
	)

	// Store metrics

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flicklit_store_query_duration_seconds",
			Help:    "DuckDB query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_store_query_errors_total",
			Help: "DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Interaction event metrics

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_interactions_recorded_total",
			Help: "Interactions appended to the log",
		},
		[]string{"action"}, // "like", "dislike"
	)

	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flicklit_events_published_total",
			Help: "Interaction events published to the bus",
		},
	)

	WALPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flicklit_wal_pending_entries",
			Help: "Unconfirmed entries in the interaction WAL",
		},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flicklit_api_requests_total",
			Help: "API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flicklit_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// ObserveStoreQuery records a store query's duration and outcome.
func ObserveStoreQuery(operation string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveAPIRequest records an API request's duration and status.
func ObserveAPIRequest(method, route string, status int, start time.Time) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
