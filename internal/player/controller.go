// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package player owns the playback session: engine selection, the lifecycle
// state machine, and the wiring of metadata, buffer quality, and error
// tracking into one observable session.
package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/radiocore/internal/errmon"
	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/metrics"
	"github.com/ManuGH/radiocore/internal/platform/httpx"
	"github.com/ManuGH/radiocore/internal/prefs"
	"github.com/ManuGH/radiocore/internal/quality"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrUnsupported means neither the engine nor the sink can play the stream.
	ErrUnsupported = errors.New("hls playback not supported")
	// ErrNotInitialized is returned by operations that need a live session.
	ErrNotInitialized = errors.New("player not initialized")
	// ErrEngineLoad wraps failures of the engine loader.
	ErrEngineLoad = errors.New("failed to load stream engine")
	// ErrRateLimited is returned when manual refreshes come too fast.
	ErrRateLimited = errors.New("refresh rate limited")
)

const (
	DefaultRecoveryGrace = 5 * time.Second
	DefaultRefreshEvery  = 2 * time.Second
	DefaultRefreshBurst  = 3
	DefaultVolume        = 1.0
)

// Config tunes the controller.
type Config struct {
	CoverURL       string
	Poller         metadata.Config
	SampleInterval time.Duration
	RecoveryGrace  time.Duration
	RefreshEvery   time.Duration
	RefreshBurst   int
	Engine         EngineConfig
}

func (c Config) withDefaults() Config {
	if c.RecoveryGrace <= 0 {
		c.RecoveryGrace = DefaultRecoveryGrace
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = DefaultRefreshEvery
	}
	if c.RefreshBurst <= 0 {
		c.RefreshBurst = DefaultRefreshBurst
	}
	if c.Engine == (EngineConfig{}) {
		c.Engine = DefaultEngineConfig()
	}
	return c
}

// Deps are the controller collaborators. Nil fields get no-op defaults; a
// nil Fetcher disables metadata polling and a nil EngineLoader forces the
// native path.
type Deps struct {
	EngineLoader EngineLoader
	Fetcher      metadata.Fetcher
	Errors       *errmon.Monitor
	Prefs        prefs.Store
	MediaSession MediaSession
	Notifier     Notifier
	Announcer    Announcer
	Page         PageMetadata
}

// Controller drives one playback session at a time. All methods are safe for
// concurrent use.
type Controller struct {
	cfg     Config
	deps    Deps
	logger  zerolog.Logger
	limiter *rate.Limiter

	loadMu sync.Mutex
	module EngineModule

	mu          sync.Mutex
	initialized bool
	gen         uint64
	// mediaErrors counts sink error events already tracked.
	mediaErrors uint64
	session     Session
	sink        AudioSink
	engine      Engine
	poller      *metadata.Poller
	monitor     *quality.Monitor
	detach      []func()
	timers      map[*time.Timer]struct{}
	cancel      context.CancelFunc
	observers   map[int]func(Session)
	nextObs     int

	// publishMu keeps observer delivery ordered.
	publishMu sync.Mutex
}

// New creates a controller in the initializing state.
func New(cfg Config, deps Deps) *Controller {
	cfg = cfg.withDefaults()
	if deps.Errors == nil {
		deps.Errors = errmon.New(errmon.Config{})
	}
	if deps.Prefs == nil {
		deps.Prefs = prefs.NewMemory(prefs.Preferences{})
	}
	if deps.MediaSession == nil {
		deps.MediaSession = nopMediaSession{}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Announcer == nil {
		deps.Announcer = nopAnnouncer{}
	}
	if deps.Page == nil {
		deps.Page = nopPage{}
	}
	c := &Controller{
		cfg:       cfg,
		deps:      deps,
		logger:    xglog.WithComponent("player"),
		limiter:   rate.NewLimiter(rate.Every(cfg.RefreshEvery), cfg.RefreshBurst),
		timers:    make(map[*time.Timer]struct{}),
		observers: make(map[int]func(Session)),
	}
	c.session = c.freshSession(Session{Volume: DefaultVolume})
	return c
}

// freshSession starts a new session that keeps the listener preferences of
// prev.
func (c *Controller) freshSession(prev Session) Session {
	return Session{
		ID:            c.deps.Errors.SessionID(),
		Status:        StatusInitializing,
		Volume:        prev.Volume,
		Muted:         prev.Muted,
		Notifications: prev.Notifications,
		Quality:       quality.Sample{Quality: quality.Poor},
	}
}

// Initialize sets up playback of streamURL on sink. It is a no-op while a
// session is already initialized, including one whose engine failed to load;
// call Destroy first to retry.
func (c *Controller) Initialize(ctx context.Context, sink AudioSink, streamURL string) error {
	if sink == nil {
		return fmt.Errorf("initialize: nil sink")
	}
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	c.gen++
	gen := c.gen
	c.session = c.freshSession(c.session)
	c.session.Loading = true
	c.session.StatusMessage = "Loading stream engine..."
	c.sink = sink
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	logger := c.logger.With().
		Str(xglog.FieldSessionID, c.deps.Errors.SessionID()).
		Str(xglog.FieldStreamURL, httpx.RedactURL(streamURL)).
		Logger()
	logger.Info().Str(xglog.FieldEvent, "player.initialize").Msg("initializing playback session")
	metrics.SetSessionStatus(string(StatusInitializing))
	c.publish()

	module, err := c.loadModule(ctx)
	c.update(gen, func(s *Session) { s.Loading = false })
	if err != nil {
		c.deps.Errors.TrackError(errmon.SourceApp, errmon.SeverityFatal, "Failed to load stream engine",
			errmon.WithDetails(err.Error()))
		c.fail(gen, "Failed to load stream engine", err)
		return fmt.Errorf("%w: %v", ErrEngineLoad, err)
	}

	c.restorePrefs(ctx, sink)
	c.attachSink(gen, sink)
	if !c.live(gen) {
		// Destroyed while the engine module was loading.
		return ErrNotInitialized
	}
	c.bindMediaSession()

	switch {
	case module != nil && module.IsSupported():
		if err := c.startEngine(gen, module, sink, streamURL); err != nil {
			c.deps.Errors.TrackError(errmon.SourceEngine, errmon.SeverityFatal, "Failed to create stream engine",
				errmon.WithDetails(err.Error()))
			c.fail(gen, "Failed to create stream engine", err)
			return fmt.Errorf("%w: %v", ErrEngineLoad, err)
		}
		logger.Debug().Str(xglog.FieldEvent, "player.engine_path").Msg("using adaptive stream engine")
	case sink.CanPlayNative(hlsMimeType):
		sink.SetSource(streamURL)
		c.transition(gen, StatusReady, "Ready to play")
		logger.Debug().Str(xglog.FieldEvent, "player.native_path").Msg("using native playback")
	default:
		c.deps.Errors.TrackError(errmon.SourceApp, errmon.SeverityFatal, "HLS playback not supported",
			errmon.WithMetadata(map[string]any{"mime_type": hlsMimeType}))
		c.fail(gen, "Your browser does not support HLS playback", ErrUnsupported)
		return ErrUnsupported
	}

	c.startMonitors(runCtx, gen, sink)
	return nil
}

// loadModule returns the cached engine module, loading it on first use. A
// nil loader yields a nil module.
func (c *Controller) loadModule(ctx context.Context) (EngineModule, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.module != nil || c.deps.EngineLoader == nil {
		return c.module, nil
	}
	module, err := c.deps.EngineLoader(ctx)
	if err != nil {
		return nil, err
	}
	c.module = module
	return module, nil
}

func (c *Controller) restorePrefs(ctx context.Context, sink AudioSink) {
	p, err := c.deps.Prefs.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str(xglog.FieldEvent, "player.prefs_load_failed").Msg("using default preferences")
	}
	c.mu.Lock()
	if err == nil && p.HasVolume {
		c.session.Volume = p.Volume
	}
	if err == nil {
		c.session.Muted = p.Muted
		c.session.Notifications = p.NotificationsEnabled
	}
	volume, muted := c.session.Volume, c.session.Muted
	c.mu.Unlock()
	sink.SetVolume(volume)
	sink.SetMuted(muted)
}

func (c *Controller) attachSink(gen uint64, sink AudioSink) {
	unsub := sink.Subscribe(func(ev MediaEvent) { c.handleMediaEvent(gen, ev) })
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		unsub()
		return
	}
	c.detach = append(c.detach, unsub)
	c.mu.Unlock()
}

func (c *Controller) bindMediaSession() {
	ms := c.deps.MediaSession
	ms.SetActionHandler(ActionPlay, func() {
		if err := c.Play(context.Background()); err != nil {
			c.logger.Debug().Err(err).Str(xglog.FieldEvent, "player.media_session_play").Msg("play action failed")
		}
	})
	ms.SetActionHandler(ActionPause, c.Pause)
}

func (c *Controller) startEngine(gen uint64, module EngineModule, sink AudioSink, streamURL string) error {
	eng, err := module.New(c.cfg.Engine)
	if err != nil {
		return err
	}
	unsub := eng.Subscribe(func(ev EngineEvent) { c.handleEngineEvent(gen, ev) })
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		unsub()
		eng.Destroy()
		return nil
	}
	c.engine = eng
	c.detach = append(c.detach, unsub)
	c.mu.Unlock()

	eng.LoadSource(streamURL)
	eng.AttachMedia(sink)
	return nil
}

func (c *Controller) startMonitors(ctx context.Context, gen uint64, sink AudioSink) {
	mon := quality.NewMonitor(sink, c.cfg.SampleInterval)
	mon.OnSample(func(s quality.Sample) {
		c.update(gen, func(sess *Session) { sess.Quality = s })
	})

	var poller *metadata.Poller
	if c.deps.Fetcher != nil {
		poller = metadata.NewPoller(c.deps.Fetcher, c.cfg.Poller)
		poller.OnUpdate(func(u metadata.Update) { c.handleMetadata(gen, u) })
		poller.OnStatus(func(st metadata.Status) {
			c.update(gen, func(s *Session) { s.MetadataStatus = st.Message })
		})
		poller.OnFailure(func(err error, failures int, gaveUp bool) {
			c.trackMetadataFailure(err, failures, gaveUp)
		})
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.monitor = mon
	c.poller = poller
	c.mu.Unlock()

	mon.Start(ctx)
	if poller != nil {
		poller.Start(ctx)
	}
}

func (c *Controller) trackMetadataFailure(err error, failures int, gaveUp bool) {
	severity := errmon.SeverityWarning
	message := "Metadata fetch failed"
	if gaveUp {
		severity = errmon.SeverityError
		message = "Metadata polling stopped"
	}
	kind := "fetch"
	if errors.Is(err, metadata.ErrInvalidDocument) {
		kind = "validation"
	}
	c.deps.Errors.TrackError(errmon.SourceNetwork, severity, message,
		errmon.WithDetails(err.Error()),
		errmon.WithMetadata(map[string]any{"failures": failures, "kind": kind}))
}

func (c *Controller) handleMetadata(gen uint64, u metadata.Update) {
	var notify bool
	ok := c.update(gen, func(s *Session) {
		s.Track = u.Track
		s.BitDepth = u.Document.BitDepth
		s.SampleRate = u.Document.SampleRate
		notify = s.Notifications
	})
	if !ok || !u.Changed {
		return
	}
	track := u.Track
	c.deps.MediaSession.SetMetadata(NowPlaying{
		Title:      track.Title,
		Artist:     track.Artist,
		Album:      track.Album,
		ArtworkURL: c.cfg.CoverURL,
	})
	if u.First {
		return
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "player.track_change").
		Str(xglog.FieldTitle, track.Title).
		Str(xglog.FieldArtist, track.Artist).
		Msg("track changed")
	c.deps.Page.UpdateForTrack(track, c.cfg.CoverURL)
	c.deps.Announcer.AnnounceTrackChange(track.Title, track.Artist)
	if notify {
		c.deps.Notifier.NotifyTrackChange(track.Title, track.Artist, c.cfg.CoverURL)
	}
}

func (c *Controller) handleMediaEvent(gen uint64, ev MediaEvent) {
	switch ev.Kind {
	case MediaPlaying:
		c.transition(gen, StatusPlaying, "Playing")
	case MediaPause:
		c.transition(gen, StatusPaused, "Paused")
	case MediaWaiting:
		c.transition(gen, StatusBuffering, "Buffering...")
	case MediaError:
		if !c.live(gen) {
			return
		}
		c.mu.Lock()
		c.mediaErrors++
		c.mu.Unlock()
		details := "media element error"
		if ev.Err != nil {
			details = ev.Err.Error()
		}
		c.deps.Errors.TrackError(errmon.SourceMedia, errmon.SeverityError, "Playback error",
			errmon.WithDetails(details))
		c.fail(gen, "Playback error", ev.Err)
	}
}

func (c *Controller) handleEngineEvent(gen uint64, ev EngineEvent) {
	switch ev.Kind {
	case EventManifestParsed:
		c.setBitrate(gen, ev.Bitrate)
		c.transition(gen, StatusReady, "Ready to play")
	case EventLevelSwitched:
		c.setBitrate(gen, ev.Bitrate)
	case EventFragmentLoaded:
		c.mu.Lock()
		mon := c.monitor
		live := gen == c.gen
		c.mu.Unlock()
		if live && mon != nil {
			mon.RecordFragmentLatency(ev.LoadDuration)
		}
	case EventError:
		if ev.Error != nil {
			c.handleEngineError(gen, ev.Error)
		}
	}
}

func (c *Controller) setBitrate(gen uint64, bps int) {
	if bps <= 0 {
		return
	}
	if c.update(gen, func(s *Session) { s.Bitrate = bps }) {
		metrics.SetStreamBitrate(bps)
	}
}

func (c *Controller) handleEngineError(gen uint64, e *EngineError) {
	c.mu.Lock()
	eng := c.engine
	live := gen == c.gen
	c.mu.Unlock()
	if !live {
		return
	}
	md := map[string]any{"type": string(e.Type), "fatal": e.Fatal}
	if e.URL != "" {
		md["url"] = e.URL
	}

	if !e.Fatal {
		c.deps.Errors.TrackError(errmon.SourceEngine, errmon.SeverityWarning, "Stream warning",
			errmon.WithDetails(e.Details), errmon.WithMetadata(md))
		return
	}

	switch e.Type {
	case EngineNetworkError:
		te := c.deps.Errors.TrackError(errmon.SourceNetwork, errmon.SeverityError, "Network error",
			errmon.WithDetails(e.Details), errmon.WithMetadata(md))
		c.update(gen, func(s *Session) { s.StatusMessage = "Network error, attempting to recover..." })
		c.deps.Errors.RecordRecoveryAttempt(te.ID)
		if eng != nil {
			eng.StartLoad()
		}
		c.scheduleRecoveryCheck(gen, te.ID)
	case EngineMediaError:
		te := c.deps.Errors.TrackError(errmon.SourceMedia, errmon.SeverityError, "Media error",
			errmon.WithDetails(e.Details), errmon.WithMetadata(md))
		c.update(gen, func(s *Session) { s.StatusMessage = "Media error, attempting to recover..." })
		c.deps.Errors.RecordRecoveryAttempt(te.ID)
		if eng != nil {
			eng.RecoverMediaError()
		}
		c.scheduleRecoveryCheck(gen, te.ID)
	default:
		c.deps.Errors.TrackError(errmon.SourceEngine, errmon.SeverityFatal, "Fatal playback error",
			errmon.WithDetails(e.Details), errmon.WithMetadata(md))
		c.dropEngine(gen)
		c.fail(gen, "Fatal playback error", e)
	}
}

// dropEngine destroys the engine instance; the session stays initialized
// until Destroy.
func (c *Controller) dropEngine(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.engine == nil {
		c.mu.Unlock()
		return
	}
	eng := c.engine
	c.engine = nil
	c.mu.Unlock()
	eng.Destroy()
}

// Play starts playback. A sink rejection is tracked as a media error and
// returned.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	sink := c.sink
	gen := c.gen
	ok := c.initialized
	seen := c.mediaErrors
	c.mu.Unlock()
	if !ok || sink == nil {
		return ErrNotInitialized
	}
	if err := sink.Play(ctx); err != nil {
		c.mu.Lock()
		reported := c.mediaErrors != seen
		c.mu.Unlock()
		if reported {
			// The sink's error event already tracked this failure.
			return fmt.Errorf("play: %w", err)
		}
		c.deps.Errors.TrackError(errmon.SourceMedia, errmon.SeverityError, "Playback failed",
			errmon.WithDetails(err.Error()))
		c.update(gen, func(s *Session) {
			s.StatusMessage = "Playback failed"
			s.LastError = err.Error()
		})
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Pause pauses playback. It is a no-op without a session.
func (c *Controller) Pause() {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink.Pause()
	}
}

// TogglePlayPause plays when paused and pauses otherwise.
func (c *Controller) TogglePlayPause(ctx context.Context) error {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return ErrNotInitialized
	}
	if sink.Paused() {
		return c.Play(ctx)
	}
	sink.Pause()
	return nil
}

// SetVolume sets the volume from a 0-100 scale, clamped, and persists it.
// The volume is applied even when persisting fails.
func (c *Controller) SetVolume(ctx context.Context, volume float64) error {
	switch {
	case math.IsNaN(volume), volume < 0:
		volume = 0
	case volume > 100:
		volume = 100
	}
	v := volume / 100

	c.mu.Lock()
	c.session.Volume = v
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink.SetVolume(v)
	}
	c.publish()

	return c.savePrefs(ctx, func(p *prefs.Preferences) {
		p.Volume = v
		p.HasVolume = true
	})
}

// SetNotificationsEnabled turns track-change notifications on or off and
// persists the choice.
func (c *Controller) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	c.session.Notifications = enabled
	c.mu.Unlock()
	c.publish()

	return c.savePrefs(ctx, func(p *prefs.Preferences) { p.NotificationsEnabled = enabled })
}

// SetMuted mutes or unmutes and persists the choice.
func (c *Controller) SetMuted(ctx context.Context, muted bool) error {
	c.mu.Lock()
	c.session.Muted = muted
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink.SetMuted(muted)
	}
	c.publish()

	return c.savePrefs(ctx, func(p *prefs.Preferences) { p.Muted = muted })
}

func (c *Controller) savePrefs(ctx context.Context, mutate func(*prefs.Preferences)) error {
	p, err := c.deps.Prefs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	mutate(&p)
	if err := c.deps.Prefs.Save(ctx, p); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ForceRefresh triggers an immediate metadata fetch, superseding any fetch in
// flight.
func (c *Controller) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	poller := c.poller
	c.mu.Unlock()
	if poller == nil {
		return ErrNotInitialized
	}
	if !c.limiter.Allow() {
		return ErrRateLimited
	}
	return poller.Refresh(ctx)
}

// Destroy tears the session down: timers, monitors, listeners, and the engine
// instance. The loaded engine module and the volume survive. Destroy is
// idempotent.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = false
	c.gen++
	for t := range c.timers {
		t.Stop()
		delete(c.timers, t)
	}
	poller, mon, eng, detach, cancel := c.poller, c.monitor, c.engine, c.detach, c.cancel
	c.poller, c.monitor, c.engine, c.detach, c.cancel = nil, nil, nil, nil, nil
	c.sink = nil
	c.session = c.freshSession(c.session)
	c.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	if poller != nil {
		poller.Stop()
	}
	if mon != nil {
		mon.Stop()
	}
	if cancel != nil {
		cancel()
	}
	c.deps.MediaSession.ClearActionHandlers()
	if eng != nil {
		eng.Destroy()
	}
	metrics.SetSessionStatus(string(StatusInitializing))
	c.logger.Info().Str(xglog.FieldEvent, "player.destroy").Msg("playback session destroyed")
	c.publish()
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Subscribe registers fn for session snapshots and returns a function that
// removes it. fn must not block.
func (c *Controller) Subscribe(fn func(Session)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Quality returns the latest buffer sample.
func (c *Controller) Quality() quality.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Quality
}

// Errors returns the error monitor backing this controller.
func (c *Controller) Errors() *errmon.Monitor {
	return c.deps.Errors
}

// MetadataStatus returns the poller status, or false without a poller.
func (c *Controller) MetadataStatus() (metadata.Status, bool) {
	c.mu.Lock()
	poller := c.poller
	c.mu.Unlock()
	if poller == nil {
		return metadata.Status{}, false
	}
	return poller.Status(), true
}

func (c *Controller) live(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && c.initialized
}

// update applies fn to the session when gen is current and publishes the
// result. It reports whether fn ran.
func (c *Controller) update(gen uint64, fn func(*Session)) bool {
	c.mu.Lock()
	if gen != c.gen || !c.initialized {
		c.mu.Unlock()
		return false
	}
	fn(&c.session)
	c.mu.Unlock()
	c.publish()
	return true
}

// transition moves the state machine along a legal edge; anything else is
// logged and ignored.
func (c *Controller) transition(gen uint64, to Status, message string) {
	c.mu.Lock()
	if gen != c.gen || !c.initialized {
		c.mu.Unlock()
		return
	}
	from := c.session.Status
	if from == to {
		c.mu.Unlock()
		return
	}
	if !canTransition(from, to) {
		c.mu.Unlock()
		c.logger.Debug().
			Str(xglog.FieldEvent, "player.transition_ignored").
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Msg("ignoring illegal transition")
		return
	}
	c.session.Status = to
	c.session.StatusMessage = message
	if to == StatusPlaying {
		c.session.LastError = ""
	}
	c.mu.Unlock()

	metrics.SetSessionStatus(string(to))
	c.logger.Debug().
		Str(xglog.FieldEvent, "player.transition").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Msg("state changed")
	c.publish()
}

// fail moves the session into the error state.
func (c *Controller) fail(gen uint64, message string, cause error) {
	c.mu.Lock()
	if gen != c.gen || !c.initialized {
		c.mu.Unlock()
		return
	}
	from := c.session.Status
	c.session.Status = StatusError
	c.session.StatusMessage = message
	c.session.Loading = false
	c.session.LastError = message
	if cause != nil {
		c.session.LastError = cause.Error()
	}
	c.mu.Unlock()

	metrics.SetSessionStatus(string(StatusError))
	c.logger.Warn().
		Err(cause).
		Str(xglog.FieldEvent, "player.error").
		Str(xglog.FieldOldState, string(from)).
		Msg(message)
	c.publish()
}

func (c *Controller) publish() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.mu.Lock()
	snap := c.session
	obs := make([]func(Session), 0, len(c.observers))
	for _, fn := range c.observers {
		obs = append(obs, fn)
	}
	c.mu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}
