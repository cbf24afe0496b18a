// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package headless provides a player.AudioSink and platform collaborators
// for running the session controller without a browser.
package headless

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/platform/httpx"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/ManuGH/radiocore/internal/quality"
	"github.com/rs/zerolog"
)

// DefaultBufferAhead is the synthetic buffer depth reported while playing.
const DefaultBufferAhead = 12 * time.Second

// Sink is a native-playback sink. Play probes the playlist over HTTP and
// then reports a steady synthetic buffer while the clock advances.
type Sink struct {
	client      *http.Client
	bufferAhead time.Duration
	now         func() time.Time
	logger      zerolog.Logger

	mu        sync.Mutex
	source    string
	paused    bool
	volume    float64
	muted     bool
	position  float64
	resumedAt time.Time
	subs      map[int]func(player.MediaEvent)
	nextSubID int
}

// Option configures a Sink.
type Option func(*Sink)

// WithBufferAhead overrides the synthetic buffer depth.
func WithBufferAhead(d time.Duration) Option {
	return func(s *Sink) { s.bufferAhead = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// NewSink creates a paused sink that probes sources with client.
func NewSink(client *http.Client, opts ...Option) *Sink {
	s := &Sink{
		client:      client,
		bufferAhead: DefaultBufferAhead,
		now:         time.Now,
		logger:      xglog.WithComponent("headless"),
		paused:      true,
		volume:      1,
		subs:        make(map[int]func(player.MediaEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanPlayNative reports support for HLS playlists.
func (s *Sink) CanPlayNative(mimeType string) bool {
	return mimeType == "application/vnd.apple.mpegurl"
}

// SetSource sets the playlist URL and rewinds.
func (s *Sink) SetSource(url string) {
	s.mu.Lock()
	s.source = url
	s.position = 0
	s.mu.Unlock()
}

// Play probes the source and starts the clock. A failed probe emits an
// error event and is returned.
func (s *Sink) Play(ctx context.Context) error {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == "" {
		return fmt.Errorf("play: no source")
	}

	s.emit(player.MediaEvent{Kind: player.MediaWaiting})
	if err := s.probe(ctx, source); err != nil {
		s.emit(player.MediaEvent{Kind: player.MediaError, Err: err})
		return err
	}

	s.mu.Lock()
	if s.paused {
		s.paused = false
		s.resumedAt = s.now()
	}
	s.mu.Unlock()
	s.logger.Info().Str(xglog.FieldEvent, "headless.play").Str(xglog.FieldStreamURL, httpx.RedactURL(source)).Msg("playback started")
	s.emit(player.MediaEvent{Kind: player.MediaPlaying})
	return nil
}

func (s *Sink) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// Pause stops the clock.
func (s *Sink) Pause() {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	s.position += s.now().Sub(s.resumedAt).Seconds()
	s.paused = true
	s.mu.Unlock()
	s.emit(player.MediaEvent{Kind: player.MediaPause})
}

// Paused reports whether playback is paused.
func (s *Sink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetVolume stores the normalized volume.
func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// SetMuted stores the mute flag.
func (s *Sink) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Volume returns the volume and mute flag.
func (s *Sink) Volume() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted
}

// CurrentTime returns the play head in seconds.
func (s *Sink) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Sink) currentLocked() float64 {
	if s.paused {
		return s.position
	}
	return s.position + s.now().Sub(s.resumedAt).Seconds()
}

// Buffered returns one range from the start to bufferAhead past the play
// head, or nothing before the first Play.
func (s *Sink) Buffered() []quality.TimeRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resumedAt.IsZero() {
		return nil
	}
	cur := s.currentLocked()
	return []quality.TimeRange{{Start: 0, End: cur + s.bufferAhead.Seconds()}}
}

// Subscribe registers fn for media events.
func (s *Sink) Subscribe(fn func(player.MediaEvent)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Sink) emit(ev player.MediaEvent) {
	s.mu.Lock()
	fns := make([]func(player.MediaEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
