// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package metrics registers the prometheus collectors exported by the SDK.
// Collectors are registered on the default registry, host applications
// expose them with their own promhttp handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

var (
	// CacheHits counts cache lookups that returned a live entry.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses counts lookups of unknown keys.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// CacheExpirations counts entries dropped on read after their deadline.
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_cache_expirations_total",
			Help: "Total number of cache entries expired on read",
		},
		[]string{"cache"},
	)

	keymakerFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_keymaker_fetches_total",
			Help: "Total number of keymaker key object fetches",
		},
		[]string{"status"},
	)

	keymakerFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raptor_keymaker_fetch_duration_seconds",
			Help:    "Duration of keymaker key object fetches in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	certMaterializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_cert_materializations_total",
			Help: "Total number of client certificate materialization attempts",
		},
		[]string{"status"},
	)

	raptorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raptor_calls_total",
			Help: "Total number of outbound raptor calls",
		},
		[]string{"method", "status"},
	)
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordKeymakerFetch records the outcome and latency of a key object fetch.
func RecordKeymakerFetch(d time.Duration, err error) {
	keymakerFetches.WithLabelValues(status(err)).Inc()
	keymakerFetchDuration.Observe(d.Seconds())
}

// RecordMaterialization records a certificate materialization outcome. The
// status is one of StatusSuccess, StatusError or StatusSkipped.
func RecordMaterialization(s string) {
	certMaterializations.WithLabelValues(s).Inc()
}

// RecordCall records an outbound raptor call.
func RecordCall(method string, err error) {
	raptorCalls.WithLabelValues(method, status(err)).Inc()
}

// KeymakerFetches returns the fetch counter for the given status. Used by
// tests to observe deltas.
func KeymakerFetches(s string) prometheus.Counter {
	return keymakerFetches.WithLabelValues(s)
}

// Materializations returns the materialization counter for the given status.
func Materializations(s string) prometheus.Counter {
	return certMaterializations.WithLabelValues(s)
}
