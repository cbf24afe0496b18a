// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package headless

import (
	"sync"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/rs/zerolog"
)

// Notifier logs track-change notifications when enabled.
type Notifier struct {
	logger  zerolog.Logger
	enabled func() bool
}

// NewNotifier returns a notifier gated by enabled. A nil enabled always
// notifies.
func NewNotifier(enabled func() bool) *Notifier {
	return &Notifier{logger: xglog.WithComponent("notifier"), enabled: enabled}
}

func (n *Notifier) NotifyTrackChange(title, artist, coverURL string) {
	if n.enabled != nil && !n.enabled() {
		return
	}
	n.logger.Info().
		Str(xglog.FieldEvent, "notify.track_change").
		Str(xglog.FieldTitle, title).
		Str(xglog.FieldArtist, artist).
		Str("cover_url", coverURL).
		Msg("now playing")
}

// Announcer logs assistive announcements.
type Announcer struct {
	logger zerolog.Logger
}

func NewAnnouncer() *Announcer {
	return &Announcer{logger: xglog.WithComponent("announcer")}
}

func (a *Announcer) AnnounceTrackChange(title, artist string) {
	a.logger.Info().
		Str(xglog.FieldEvent, "announce.track_change").
		Msgf("Now playing: %s by %s", title, artist)
}

// Page keeps the latest page-level metadata in memory.
type Page struct {
	mu     sync.Mutex
	title  string
	track  metadata.TrackInfo
	cover  string
	logger zerolog.Logger
}

func NewPage() *Page {
	return &Page{logger: xglog.WithComponent("page")}
}

func (p *Page) UpdateForTrack(track metadata.TrackInfo, coverURL string) {
	p.mu.Lock()
	p.track = track
	p.cover = coverURL
	p.title = track.Title + " - " + track.Artist
	p.mu.Unlock()
	p.logger.Debug().
		Str(xglog.FieldEvent, "page.update").
		Str(xglog.FieldTitle, track.Title).
		Str(xglog.FieldArtist, track.Artist).
		Msg("page metadata updated")
}

// Title returns the current document title.
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// MediaSession holds the now-playing card and transport handlers.
type MediaSession struct {
	mu       sync.Mutex
	current  player.NowPlaying
	handlers map[player.MediaAction]func()
}

func NewMediaSession() *MediaSession {
	return &MediaSession{handlers: make(map[player.MediaAction]func())}
}

func (m *MediaSession) SetMetadata(np player.NowPlaying) {
	m.mu.Lock()
	m.current = np
	m.mu.Unlock()
}

func (m *MediaSession) SetActionHandler(action player.MediaAction, handler func()) {
	m.mu.Lock()
	m.handlers[action] = handler
	m.mu.Unlock()
}

func (m *MediaSession) ClearActionHandlers() {
	m.mu.Lock()
	m.handlers = make(map[player.MediaAction]func())
	m.mu.Unlock()
}

// NowPlaying returns the current card.
func (m *MediaSession) NowPlaying() player.NowPlaying {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Trigger invokes the handler for action and reports whether one was set.
func (m *MediaSession) Trigger(action player.MediaAction) bool {
	m.mu.Lock()
	h := m.handlers[action]
	m.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}
