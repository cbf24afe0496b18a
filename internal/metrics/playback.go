// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bufferHealthSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiocore_buffer_health_seconds",
		Help: "Seconds of buffered audio ahead of the play head",
	})

	fragmentLatencyMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiocore_fragment_latency_milliseconds",
		Help: "Load duration of the most recent stream fragment",
	})

	connectionQuality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radiocore_connection_quality",
		Help: "Connection quality classification (1 for the active level)",
	}, []string{"quality"})

	sessionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radiocore_session_status",
		Help: "Playback session status (1 for the active status)",
	}, []string{"status"})

	streamBitrate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiocore_stream_bitrate_bps",
		Help: "Bitrate of the currently selected stream level",
	})

	// TrackedErrorsTotal counts errors recorded by the error monitor.
	TrackedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiocore_tracked_errors_total",
		Help: "Errors recorded by the error monitor",
	}, []string{"source", "severity"})

	// ErrorReportsTotal counts backend sink forwarding outcomes.
	// result: sent, failed, suppressed
	ErrorReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiocore_error_reports_total",
		Help: "Backend error sink forwarding outcomes",
	}, []string{"result"})

	recoveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiocore_recovery_total",
		Help: "Playback recovery attempts and confirmed recoveries",
	}, []string{"outcome"})
)

var (
	qualityLevels = []string{"good", "fair", "poor"}
	statusLevels  = []string{"initializing", "ready", "playing", "paused", "buffering", "error"}
)

// ObserveBuffer publishes the latest buffer sample.
func ObserveBuffer(bufferSeconds, latencyMs float64, quality string) {
	bufferHealthSeconds.Set(bufferSeconds)
	fragmentLatencyMs.Set(latencyMs)
	setOneHot(connectionQuality, qualityLevels, quality)
}

// SetSessionStatus records the active playback status.
func SetSessionStatus(status string) {
	setOneHot(sessionStatus, statusLevels, status)
}

// SetStreamBitrate records the current stream level bitrate.
func SetStreamBitrate(bps int) {
	streamBitrate.Set(float64(bps))
}

// IncTrackedError records an error entering the ledger.
func IncTrackedError(source, severity string) {
	TrackedErrorsTotal.WithLabelValues(source, severity).Inc()
}

// IncErrorReport records a backend forwarding outcome.
func IncErrorReport(result string) {
	ErrorReportsTotal.WithLabelValues(result).Inc()
}

// IncRecovery records a recovery attempt ("attempt") or success ("success").
func IncRecovery(outcome string) {
	recoveryTotal.WithLabelValues(outcome).Inc()
}

func setOneHot(vec *prometheus.GaugeVec, labels []string, active string) {
	for _, l := range labels {
		value := 0.0
		if l == active {
			value = 1.0
		}
		vec.WithLabelValues(l).Set(value)
	}
}
