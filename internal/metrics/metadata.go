// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MetadataFetchTotal counts metadata fetch outcomes.
	// result: success, failure, invalid, superseded
	MetadataFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiocore_metadata_fetch_total",
		Help: "Metadata fetch attempts by result",
	}, []string{"result"})

	// MetadataFetchDuration tracks round-trip time of the metadata endpoint.
	MetadataFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radiocore_metadata_fetch_duration_seconds",
		Help:    "Latency of metadata endpoint requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	metadataConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiocore_metadata_consecutive_failures",
		Help: "Consecutive metadata fetch failures since the last success",
	})

	metadataTrackChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radiocore_metadata_track_changes_total",
		Help: "Number of detected track changes",
	})

	metadataPollingStopped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiocore_metadata_polling_stopped",
		Help: "1 when the poller gave up after repeated failures",
	})
)

// IncMetadataFetch records a metadata fetch outcome.
func IncMetadataFetch(result string) {
	MetadataFetchTotal.WithLabelValues(result).Inc()
}

// ObserveMetadataFetchDuration records the metadata request latency.
func ObserveMetadataFetchDuration(d time.Duration) {
	MetadataFetchDuration.Observe(d.Seconds())
}

// SetMetadataFailures publishes the consecutive failure count.
func SetMetadataFailures(n int) {
	metadataConsecutiveFailures.Set(float64(n))
}

// IncTrackChange records a detected track change.
func IncTrackChange() {
	metadataTrackChanges.Inc()
}

// SetMetadataPollingStopped flags whether polling has given up.
func SetMetadataPollingStopped(stopped bool) {
	if stopped {
		metadataPollingStopped.Set(1)
		return
	}
	metadataPollingStopped.Set(0)
}
