// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package quality samples the playback buffer and classifies connection quality.
package quality

import "time"

// Level is the connection quality classification.
type Level string

const (
	Good Level = "good"
	Fair Level = "fair"
	Poor Level = "poor"
)

const (
	goodBufferSeconds = 10.0
	goodLatency       = 500 * time.Millisecond
	fairBufferSeconds = 5.0
	fairLatency       = 1000 * time.Millisecond
)

// TimeRange is a buffered span of media time, in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Sample is the latest buffer observation.
type Sample struct {
	BufferHealthSeconds float64   `json:"buffer_health_seconds"`
	FragmentLatencyMs   float64   `json:"fragment_latency_ms"`
	Quality             Level     `json:"quality"`
	TakenAt             time.Time `json:"taken_at"`
}

// Classify maps buffer depth and fragment latency to a quality level.
// Rules are evaluated in order and the first match wins.
func Classify(bufferSeconds float64, latency time.Duration) Level {
	switch {
	case bufferSeconds >= goodBufferSeconds && latency < goodLatency:
		return Good
	case bufferSeconds >= fairBufferSeconds && latency < fairLatency:
		return Fair
	default:
		return Poor
	}
}

// BufferAhead returns the seconds buffered ahead of position inside the
// range containing it, or 0 when position is not buffered.
func BufferAhead(ranges []TimeRange, position float64) float64 {
	for _, r := range ranges {
		if position >= r.Start && position <= r.End {
			return r.End - position
		}
	}
	return 0
}
