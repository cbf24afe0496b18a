// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/quality"
)

var errAutoplay = errors.New("autoplay blocked")

type fakeSink struct {
	mu        sync.Mutex
	native    bool
	paused    bool
	playErr   error
	errEvent  bool
	volume    float64
	muted     bool
	source    string
	plays     int
	subs      map[int]func(MediaEvent)
	nextSubID int
}

func newFakeSink() *fakeSink {
	return &fakeSink{paused: true, subs: make(map[int]func(MediaEvent))}
}

func (s *fakeSink) CurrentTime() float64 { return 10 }

func (s *fakeSink) Buffered() []quality.TimeRange {
	return []quality.TimeRange{{Start: 0, End: 25}}
}

func (s *fakeSink) Play(context.Context) error {
	s.mu.Lock()
	s.plays++
	err := s.playErr
	errEvent := s.errEvent
	if err == nil {
		s.paused = false
	}
	s.mu.Unlock()
	switch {
	case err == nil:
		s.emit(MediaEvent{Kind: MediaPlaying})
	case errEvent:
		s.emit(MediaEvent{Kind: MediaError, Err: err})
	}
	return err
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.emit(MediaEvent{Kind: MediaPause})
}

func (s *fakeSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeSink) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

func (s *fakeSink) SetMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

func (s *fakeSink) CanPlayNative(mimeType string) bool {
	return s.native && mimeType == hlsMimeType
}

func (s *fakeSink) SetSource(url string) {
	s.mu.Lock()
	s.source = url
	s.mu.Unlock()
}

func (s *fakeSink) Subscribe(fn func(MediaEvent)) func() {
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

func (s *fakeSink) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *fakeSink) emit(ev MediaEvent) {
	s.mu.Lock()
	subs := make([]func(MediaEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *fakeSink) snapshot() (volume float64, muted bool, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted, s.source
}

type fakeEngine struct {
	mu         sync.Mutex
	source     string
	attached   AudioSink
	startLoads int
	recovers   int
	destroyed  bool
	subs       map[int]func(EngineEvent)
	nextSubID  int
}

func (e *fakeEngine) LoadSource(url string) {
	e.mu.Lock()
	e.source = url
	e.mu.Unlock()
}

func (e *fakeEngine) AttachMedia(sink AudioSink) {
	e.mu.Lock()
	e.attached = sink
	e.mu.Unlock()
}

func (e *fakeEngine) StartLoad() {
	e.mu.Lock()
	e.startLoads++
	e.mu.Unlock()
}

func (e *fakeEngine) RecoverMediaError() {
	e.mu.Lock()
	e.recovers++
	e.mu.Unlock()
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
}

func (e *fakeEngine) Subscribe(fn func(EngineEvent)) func() {
	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[int]func(EngineEvent))
	}
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *fakeEngine) emit(ev EngineEvent) {
	e.mu.Lock()
	subs := make([]func(EngineEvent), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (e *fakeEngine) counts() (startLoads, recovers int, destroyed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLoads, e.recovers, e.destroyed
}

type fakeModule struct {
	supported bool
	mu        sync.Mutex
	engines   []*fakeEngine
}

func (m *fakeModule) IsSupported() bool { return m.supported }

func (m *fakeModule) New(EngineConfig) (Engine, error) {
	e := &fakeEngine{}
	m.mu.Lock()
	m.engines = append(m.engines, e)
	m.mu.Unlock()
	return e, nil
}

func (m *fakeModule) last() *fakeEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.engines) == 0 {
		return nil
	}
	return m.engines[len(m.engines)-1]
}

func (m *fakeModule) created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// countingLoader returns module, or err when set, and counts calls.
type countingLoader struct {
	module EngineModule
	err    error
	calls  atomic.Int32
}

func (l *countingLoader) Load(context.Context) (EngineModule, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.module, nil
}

type recordingMediaSession struct {
	mu       sync.Mutex
	cards    []NowPlaying
	handlers map[MediaAction]func()
	cleared  int
}

func (r *recordingMediaSession) SetMetadata(np NowPlaying) {
	r.mu.Lock()
	r.cards = append(r.cards, np)
	r.mu.Unlock()
}

func (r *recordingMediaSession) SetActionHandler(a MediaAction, h func()) {
	r.mu.Lock()
	if r.handlers == nil {
		r.handlers = make(map[MediaAction]func())
	}
	r.handlers[a] = h
	r.mu.Unlock()
}

func (r *recordingMediaSession) ClearActionHandlers() {
	r.mu.Lock()
	r.handlers = nil
	r.cleared++
	r.mu.Unlock()
}

func (r *recordingMediaSession) handler(a MediaAction) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[a]
}

func (r *recordingMediaSession) cardCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cards)
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingAnnouncer) AnnounceTrackChange(title, artist string) {
	r.mu.Lock()
	r.calls = append(r.calls, title+" - "+artist)
	r.mu.Unlock()
}

func (r *recordingAnnouncer) NotifyTrackChange(title, artist, _ string) {
	r.AnnounceTrackChange(title, artist)
}

func (r *recordingAnnouncer) UpdateForTrack(track metadata.TrackInfo, _ string) {
	r.AnnounceTrackChange(track.Title, track.Artist)
}

func (r *recordingAnnouncer) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// trackSequence returns the given tracks in order, repeating the last.
func trackSequence(tracks ...[2]string) metadata.Fetcher {
	var n atomic.Int32
	return metadata.FetcherFunc(func(context.Context) (metadata.Document, error) {
		i := int(n.Add(1)) - 1
		if i >= len(tracks) {
			i = len(tracks) - 1
		}
		return metadata.Document{Title: tracks[i][0], Artist: tracks[i][1], BitDepth: 24, SampleRate: 96000}, nil
	})
}
