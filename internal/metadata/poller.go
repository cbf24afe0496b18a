// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metrics"
	"github.com/ManuGH/radiocore/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxBackoff  = 5 * time.Minute
	DefaultMaxFailures = 5
)

// Config tunes the poll schedule.
type Config struct {
	Interval    time.Duration
	MaxBackoff  time.Duration
	MaxFailures int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	return c
}

// Backoff returns the delay before the next attempt after the given number
// of consecutive failures: base × 2^(failures-1), capped at max.
func Backoff(base, max time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Update is delivered to observers after every accepted successful fetch.
type Update struct {
	Document   Document
	Track      TrackInfo
	Changed    bool // title or artist differ from the previously held track
	First      bool // first successful observation of this poller
	Generation uint64
}

// Status summarises the poller health.
type Status struct {
	Failures     int           `json:"failures"`
	Stopped      bool          `json:"stopped"`
	Message      string        `json:"message,omitempty"`
	NextInterval time.Duration `json:"next_interval"`
	LastSuccess  time.Time     `json:"last_success,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// FailureFunc is invoked for every counted fetch failure.
type FailureFunc func(err error, failures int, gaveUp bool)

// Poller fetches the metadata document on a fixed interval with exponential
// backoff on failure. Only the most recently issued fetch may write state:
// issuing a fetch cancels the previous one and bumps the generation, and
// completions carrying an older generation are dropped.
type Poller struct {
	fetcher Fetcher
	cfg     Config
	logger  zerolog.Logger
	tracer  trace.Tracer

	mu          sync.Mutex
	generation  uint64
	cancelFetch context.CancelFunc
	failures    int
	stopped     bool
	halted      bool // Stop was called; no further fetches
	track       TrackInfo
	doc         Document
	hasTrack    bool
	message     string
	lastErr     string
	lastSuccess time.Time

	// emitMu serialises observer delivery in generation order.
	emitMu    sync.Mutex
	onUpdate  []func(Update)
	onStatus  []func(Status)
	onFailure []FailureFunc

	// wake re-arms the loop timer when a refresh clears a backoff.
	wake      chan struct{}
	runCancel context.CancelFunc
	done      chan struct{}
}

// NewPoller creates a poller. Observers must be registered before Start.
func NewPoller(fetcher Fetcher, cfg Config) *Poller {
	return &Poller{
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		logger:  xglog.WithComponent("metadata"),
		tracer:  telemetry.Tracer("radiocore/metadata"),
		wake:    make(chan struct{}, 1),
	}
}

// OnUpdate registers an observer for successful fetches. Observers must not
// call Refresh.
func (p *Poller) OnUpdate(fn func(Update)) {
	p.onUpdate = append(p.onUpdate, fn)
}

// OnStatus registers an observer for status message changes.
func (p *Poller) OnStatus(fn func(Status)) {
	p.onStatus = append(p.onStatus, fn)
}

// OnFailure registers an observer for counted failures.
func (p *Poller) OnFailure(fn FailureFunc) {
	p.onFailure = append(p.onFailure, fn)
}

// Start launches the poll loop: an immediate fetch, then one per interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.runCancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.logger.Info().
		Str(xglog.FieldEvent, "metadata.poll_started").
		Dur("interval", p.cfg.Interval).
		Msg("metadata polling started")

	go p.run(runCtx, done)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		_ = p.fetch(ctx)
		if ctx.Err() != nil || p.isStopped() {
			return
		}

		if !p.sleep(ctx) {
			return
		}
	}
}

// sleep waits out the next interval. A wake restarts the wait with the
// interval current at that moment. It reports false when ctx is done.
func (p *Poller) sleep(ctx context.Context) bool {
	select {
	case <-p.wake:
	default:
	}
	timer := time.NewTimer(p.NextInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-p.wake:
			timer.Reset(p.NextInterval())
		case <-timer.C:
			return true
		}
	}
}

// Stop cancels the loop and any in-flight fetch, then waits for the loop to
// exit. A fetch completing after Stop does not touch state. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.halted = true
	p.generation++
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	cancel := p.runCancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Refresh performs an out-of-band fetch, superseding any fetch in flight.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.fetch(ctx)
}

// Track returns the latest accepted track and whether one has been observed.
func (p *Poller) Track() (TrackInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track, p.hasTrack
}

// Document returns the latest accepted document.
func (p *Poller) Document() (Document, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc, p.hasTrack
}

// NextInterval returns the delay the loop applies after the latest fetch.
func (p *Poller) NextInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Backoff(p.cfg.Interval, p.cfg.MaxBackoff, p.failures)
}

// Status returns the current poller status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Poller) statusLocked() Status {
	return Status{
		Failures:     p.failures,
		Stopped:      p.stopped,
		Message:      p.message,
		NextInterval: Backoff(p.cfg.Interval, p.cfg.MaxBackoff, p.failures),
		LastSuccess:  p.lastSuccess,
		LastError:    p.lastErr,
	}
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped || p.halted
}

func (p *Poller) fetch(parent context.Context) error {
	p.mu.Lock()
	if p.stopped || p.halted {
		p.mu.Unlock()
		return ErrStopped
	}
	if p.cancelFetch != nil {
		p.cancelFetch()
	}
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(parent)
	p.cancelFetch = cancel
	failures := p.failures
	p.mu.Unlock()
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "metadata.fetch",
		trace.WithAttributes(telemetry.MetadataAttributes(gen, failures)...))
	defer span.End()

	start := time.Now()
	doc, err := p.fetcher.Fetch(ctx)
	metrics.ObserveMetadataFetchDuration(time.Since(start))

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		metrics.IncMetadataFetch("superseded")
		span.SetStatus(codes.Unset, "superseded")
		p.logger.Debug().
			Str(xglog.FieldEvent, "metadata.superseded").
			Uint64(xglog.FieldGeneration, gen).
			Msg("discarding superseded metadata fetch")
		return ErrSuperseded
	}
	p.cancelFetch = nil
	if ctx.Err() != nil && err != nil {
		// Cancelled by the caller rather than by a newer fetch: an abort is
		// not a failure.
		p.mu.Unlock()
		return ctx.Err()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.recordFailureLocked(err)
	}

	span.SetAttributes(telemetry.TrackAttributes(doc.Title, doc.Artist)...)
	p.recordSuccessLocked(doc, gen)
	return nil
}

// recordFailureLocked is called with p.mu held and releases it.
func (p *Poller) recordFailureLocked(err error) error {
	p.failures++
	failures := p.failures
	p.lastErr = err.Error()

	invalid := errors.Is(err, ErrInvalidDocument)
	if invalid {
		metrics.IncMetadataFetch("invalid")
	} else {
		metrics.IncMetadataFetch("failure")
	}
	metrics.SetMetadataFailures(failures)

	gaveUp := failures >= p.cfg.MaxFailures
	if gaveUp {
		p.stopped = true
		p.message = fmt.Sprintf("Track information unavailable (gave up after %d attempts)", failures)
		metrics.SetMetadataPollingStopped(true)
	} else {
		p.message = fmt.Sprintf("Track information temporarily unavailable, retrying in %s",
			Backoff(p.cfg.Interval, p.cfg.MaxBackoff, failures))
	}
	status := p.statusLocked()

	p.emitMu.Lock()
	p.mu.Unlock()
	defer p.emitMu.Unlock()

	event := "metadata.fetch_failed"
	if invalid {
		event = "metadata.invalid"
	}
	logEvt := p.logger.Warn()
	if gaveUp {
		logEvt = p.logger.Error()
	}
	logEvt.Err(err).
		Str(xglog.FieldEvent, event).
		Int("failures", failures).
		Bool("gave_up", gaveUp).
		Dur("next_interval", status.NextInterval).
		Msg("metadata fetch failed")
	if gaveUp {
		p.logger.Error().
			Str(xglog.FieldEvent, "metadata.poll_stopped").
			Int("failures", failures).
			Msg("metadata polling stopped after repeated failures")
	}

	for _, fn := range p.onFailure {
		fn(err, failures, gaveUp)
	}
	for _, fn := range p.onStatus {
		fn(status)
	}
	return err
}

// recordSuccessLocked is called with p.mu held and releases it.
func (p *Poller) recordSuccessLocked(doc Document, gen uint64) {
	track := doc.Track()
	first := !p.hasTrack
	changed := first || !p.track.SameTrack(track)
	hadMessage := p.message != ""
	backedOff := p.failures > 0

	p.failures = 0
	p.message = ""
	p.lastErr = ""
	p.lastSuccess = time.Now()
	p.track = track
	p.doc = doc
	p.hasTrack = true
	status := p.statusLocked()
	if backedOff {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}

	p.emitMu.Lock()
	p.mu.Unlock()
	defer p.emitMu.Unlock()

	metrics.IncMetadataFetch("success")
	metrics.SetMetadataFailures(0)
	if changed {
		metrics.IncTrackChange()
		p.logger.Info().
			Str(xglog.FieldEvent, "metadata.track_changed").
			Str(xglog.FieldTitle, track.Title).
			Str(xglog.FieldArtist, track.Artist).
			Bool("first", first).
			Msg("track changed")
	}

	u := Update{Document: doc, Track: track, Changed: changed, First: first, Generation: gen}
	for _, fn := range p.onUpdate {
		fn(u)
	}
	if hadMessage {
		for _, fn := range p.onStatus {
			fn(status)
		}
	}
}
