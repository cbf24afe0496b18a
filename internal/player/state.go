// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/quality"
)

// Status is the playback lifecycle state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusPlaying      Status = "playing"
	StatusPaused       Status = "paused"
	StatusBuffering    Status = "buffering"
	StatusError        Status = "error"
)

// Session is a read-only snapshot of the playback session.
type Session struct {
	ID             string             `json:"id"`
	Status         Status             `json:"status"`
	StatusMessage  string             `json:"status_message,omitempty"`
	LastError      string             `json:"last_error,omitempty"`
	Volume         float64            `json:"volume"`
	Muted          bool               `json:"muted"`
	Notifications  bool               `json:"notifications"`
	Loading        bool               `json:"loading"`
	Track          metadata.TrackInfo `json:"track"`
	BitDepth       float64            `json:"bit_depth,omitempty"`
	SampleRate     float64            `json:"sample_rate,omitempty"`
	Bitrate        int                `json:"bitrate,omitempty"`
	Quality        quality.Sample     `json:"quality"`
	MetadataStatus string             `json:"metadata_status,omitempty"`
}

// allowedFrom lists the states each target may be entered from. StatusError
// is reachable from anywhere and is not listed.
var allowedFrom = map[Status][]Status{
	StatusReady:     {StatusInitializing},
	StatusPlaying:   {StatusReady, StatusPaused, StatusBuffering, StatusError},
	StatusPaused:    {StatusPlaying, StatusBuffering},
	StatusBuffering: {StatusReady, StatusPlaying, StatusPaused},
}

// canTransition reports whether from → to is an edge of the state machine.
func canTransition(from, to Status) bool {
	if to == StatusError {
		return true
	}
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}
