// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"context"

	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/quality"
)

// hlsMimeType is probed on the sink to decide on native playback.
const hlsMimeType = "application/vnd.apple.mpegurl"

// MediaEventKind names events emitted by the audio sink.
type MediaEventKind string

const (
	MediaPlaying MediaEventKind = "playing"
	MediaPause   MediaEventKind = "pause"
	MediaWaiting MediaEventKind = "waiting"
	MediaCanPlay MediaEventKind = "canplay"
	MediaError   MediaEventKind = "error"
)

// MediaEvent is a single sink notification.
type MediaEvent struct {
	Kind MediaEventKind
	Err  error
}

// AudioSink is the media element the controller drives.
type AudioSink interface {
	quality.BufferSource

	Play(ctx context.Context) error
	Pause()
	Paused() bool
	SetVolume(v float64)
	SetMuted(muted bool)
	CanPlayNative(mimeType string) bool
	SetSource(url string)

	// Subscribe registers fn for media events and returns a function that
	// removes it.
	Subscribe(fn func(MediaEvent)) (unsubscribe func())
}

// MediaAction is a platform transport control.
type MediaAction string

const (
	ActionPlay  MediaAction = "play"
	ActionPause MediaAction = "pause"
)

// NowPlaying is the platform "now playing" card.
type NowPlaying struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
}

// MediaSession is the platform media-session capability.
type MediaSession interface {
	SetMetadata(np NowPlaying)
	SetActionHandler(action MediaAction, handler func())
	ClearActionHandlers()
}

// Notifier raises a background notification on track change. Implementations
// decide whether the host is backgrounded.
type Notifier interface {
	NotifyTrackChange(title, artist, coverURL string)
}

// Announcer relays track changes to assistive technology.
type Announcer interface {
	AnnounceTrackChange(title, artist string)
}

// PageMetadata updates page-level metadata and structured data.
type PageMetadata interface {
	UpdateForTrack(track metadata.TrackInfo, coverURL string)
}

type nopMediaSession struct{}

func (nopMediaSession) SetMetadata(NowPlaying)               {}
func (nopMediaSession) SetActionHandler(MediaAction, func()) {}
func (nopMediaSession) ClearActionHandlers()                 {}

type nopNotifier struct{}

func (nopNotifier) NotifyTrackChange(string, string, string) {}

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceTrackChange(string, string) {}

type nopPage struct{}

func (nopPage) UpdateForTrack(metadata.TrackInfo, string) {}
