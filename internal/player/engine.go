// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"context"
	"fmt"
	"time"
)

// EngineErrorType is the engine's error category.
type EngineErrorType string

const (
	EngineNetworkError EngineErrorType = "networkError"
	EngineMediaError   EngineErrorType = "mediaError"
	EngineOtherError   EngineErrorType = "otherError"
)

// EngineError is the payload of an engine error event.
type EngineError struct {
	Type    EngineErrorType
	Fatal   bool
	Details string
	URL     string
}

func (e *EngineError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fatal %s: %s", e.Type, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// EngineEventKind names engine events.
type EngineEventKind int

const (
	EventManifestParsed EngineEventKind = iota
	EventFragmentLoaded
	EventLevelSwitched
	EventError
)

func (k EngineEventKind) String() string {
	switch k {
	case EventManifestParsed:
		return "manifest_parsed"
	case EventFragmentLoaded:
		return "fragment_loaded"
	case EventLevelSwitched:
		return "level_switched"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineEvent is a single engine notification. Bitrate is set for
// manifest-parsed and level-switched, LoadDuration for fragment-loaded and
// Error for error events.
type EngineEvent struct {
	Kind         EngineEventKind
	Bitrate      int
	LoadDuration time.Duration
	Error        *EngineError
}

// EngineConfig is passed to the engine constructor.
type EngineConfig struct {
	MaxBufferLength  time.Duration
	BackBufferLength time.Duration
	StartLevel       int
	LowLatency       bool
}

// DefaultEngineConfig suits a continuous audio stream.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxBufferLength:  30 * time.Second,
		BackBufferLength: 30 * time.Second,
		StartLevel:       -1,
	}
}

// Engine is a handle on an adaptive-stream engine instance.
type Engine interface {
	LoadSource(url string)
	AttachMedia(sink AudioSink)
	StartLoad()
	RecoverMediaError()
	Destroy()
	Subscribe(fn func(EngineEvent)) (unsubscribe func())
}

// EngineModule is the loaded engine library.
type EngineModule interface {
	IsSupported() bool
	New(cfg EngineConfig) (Engine, error)
}

// EngineLoader loads the engine library. It is called at most once per
// controller unless loading fails.
type EngineLoader func(ctx context.Context) (EngineModule, error)
