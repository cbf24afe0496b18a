// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package quality

import (
	"context"
	"sync"
	"time"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultSampleInterval is the buffer sampling period.
const DefaultSampleInterval = time.Second

// BufferSource exposes the media element's play head and buffered ranges.
type BufferSource interface {
	CurrentTime() float64
	Buffered() []TimeRange
}

// Monitor samples a BufferSource on a fixed tick. Fragment latency is fed
// in by the stream engine adapter and used as-is, without smoothing.
type Monitor struct {
	source   BufferSource
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	latency time.Duration
	sample  Sample
	last    Level

	observers []func(Sample)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor. interval <= 0 selects DefaultSampleInterval.
func NewMonitor(source BufferSource, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   xglog.WithComponent("quality"),
		sample:   Sample{Quality: Poor},
	}
}

// OnSample registers an observer called after every sample. Register before Start.
func (m *Monitor) OnSample(fn func(Sample)) {
	m.observers = append(m.observers, fn)
}

// RecordFragmentLatency stores the load duration of the latest fragment.
func (m *Monitor) RecordFragmentLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

// Start begins sampling until Stop or ctx cancellation.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.SampleNow()
			}
		}
	}()
}

// Stop ends sampling and waits for the loop to exit. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// SampleNow takes one sample immediately and publishes it.
func (m *Monitor) SampleNow() Sample {
	buffer := BufferAhead(m.source.Buffered(), m.source.CurrentTime())

	m.mu.Lock()
	latency := m.latency
	s := Sample{
		BufferHealthSeconds: buffer,
		FragmentLatencyMs:   float64(latency) / float64(time.Millisecond),
		Quality:             Classify(buffer, latency),
		TakenAt:             time.Now(),
	}
	prev := m.last
	m.sample = s
	m.last = s.Quality
	m.mu.Unlock()

	metrics.ObserveBuffer(s.BufferHealthSeconds, s.FragmentLatencyMs, string(s.Quality))
	if prev != "" && prev != s.Quality {
		m.logger.Debug().
			Str(xglog.FieldEvent, "quality.changed").
			Str(xglog.FieldOldState, string(prev)).
			Str(xglog.FieldNewState, string(s.Quality)).
			Float64("buffer_s", s.BufferHealthSeconds).
			Float64("latency_ms", s.FragmentLatencyMs).
			Msg("connection quality changed")
	}

	for _, fn := range m.observers {
		fn(s)
	}
	return s
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample
}
