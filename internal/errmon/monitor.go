// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package errmon

import (
	"context"
	"errors"
	"sync"
	"time"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metrics"
	"github.com/ManuGH/radiocore/internal/resilience"
	"github.com/ManuGH/radiocore/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const breakerName = "error_sink"

// Config tunes the monitor.
type Config struct {
	SessionID        string
	Capacity         int
	BreakerThreshold int
	ResetDelay       time.Duration
	MaxResetDelay    time.Duration
	ReportTimeout    time.Duration
}

// Option configures optional collaborators.
type Option func(*Monitor)

// WithSink sets the backend sink. Without one, errors stay local.
func WithSink(s Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithReporter sets the third-party monitoring hook.
func WithReporter(r Reporter) Option {
	return func(m *Monitor) { m.reporter = r }
}

// WithBreaker replaces the default breaker, e.g. to inject a clock.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(m *Monitor) { m.breaker = cb }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// Monitor records errors locally and forwards them best-effort. Forwarding
// failures never propagate to callers; they only feed the breaker.
type Monitor struct {
	cfg      Config
	sink     Sink
	reporter Reporter
	breaker  *resilience.CircuitBreaker
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu           sync.Mutex
	sessionID    string
	ledger       *ledger
	totalTracked int
	attempts     int
	successes    int

	// pending counts in-flight forwards; idle is closed whenever it is zero.
	pending int
	idle    chan struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a monitor.
func New(cfg Config, opts ...Option) *Monitor {
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		cfg:       cfg,
		sessionID: cfg.SessionID,
		ledger:    newLedger(cfg.Capacity),
		logger:    xglog.WithComponent("errmon"),
		tracer:    telemetry.Tracer("radiocore/errmon"),
		idle:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	close(m.idle)
	for _, opt := range opts {
		opt(m)
	}
	if m.breaker == nil {
		m.breaker = resilience.NewCircuitBreaker(breakerName, cfg.BreakerThreshold, cfg.ResetDelay,
			resilience.WithMaxResetDelay(cfg.MaxResetDelay),
			resilience.WithPanicRecovery(true))
	}
	if m.sessionID == "" {
		m.sessionID = uuid.NewString()
	}
	return m
}

// SessionID returns the id attached to forwarded reports.
func (m *Monitor) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// TrackError records an error, logs it and forwards it asynchronously.
func (m *Monitor) TrackError(source Source, severity Severity, message string, opts ...ErrorOption) TrackedError {
	e := TrackedError{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
		Severity:  severity,
		Message:   message,
	}
	for _, opt := range opts {
		opt(&e)
	}

	m.mu.Lock()
	m.ledger.add(e)
	m.totalTracked++
	sessionID := m.sessionID
	send := !m.closed
	if send {
		if m.pending == 0 {
			m.idle = make(chan struct{})
		}
		m.pending++
	}
	m.mu.Unlock()

	metrics.IncTrackedError(string(source), string(severity))
	m.logTracked(e)

	if send {
		go func() {
			defer m.forwardDone()
			m.forward(sessionID, e)
		}()
	}
	return e
}

func (m *Monitor) forwardDone() {
	m.mu.Lock()
	m.pending--
	if m.pending == 0 {
		close(m.idle)
	}
	m.mu.Unlock()
}

func (m *Monitor) logTracked(e TrackedError) {
	var evt *zerolog.Event
	switch e.Severity {
	case SeverityInfo:
		evt = m.logger.Info()
	case SeverityWarning:
		evt = m.logger.Warn()
	case SeverityFatal:
		evt = m.logger.Error().Bool("fatal", true)
	default:
		evt = m.logger.Error()
	}
	evt = evt.Str(xglog.FieldEvent, "error.tracked").
		Str(xglog.FieldErrorID, e.ID).
		Str(xglog.FieldSource, string(e.Source)).
		Str(xglog.FieldSeverity, string(e.Severity))
	if e.Details != "" {
		evt = evt.Str("details", e.Details)
	}
	if len(e.Metadata) > 0 {
		evt = evt.Interface("metadata", e.Metadata)
	}
	evt.Msg(e.Message)
}

func (m *Monitor) forward(sessionID string, e TrackedError) {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ReportTimeout)
	defer cancel()
	defer func() {
		// The breaker has already counted a panicking sink as a failure.
		if r := recover(); r != nil {
			metrics.IncErrorReport("failed")
			m.logger.Error().
				Str(xglog.FieldEvent, "error.report_panic").
				Str(xglog.FieldErrorID, e.ID).
				Interface("panic_value", r).
				Msg("error sink panicked")
		}
	}()

	ctx, span := m.tracer.Start(ctx, "errmon.forward",
		trace.WithAttributes(telemetry.ErrorReportAttributes(string(e.Source), string(e.Severity))...))
	defer span.End()

	if m.reporter != nil {
		if err := m.reporter.Capture(ctx, e); err != nil {
			m.logger.Debug().Err(err).
				Str(xglog.FieldEvent, "error.reporter_failed").
				Str(xglog.FieldErrorID, e.ID).
				Msg("external reporter failed")
		}
	}

	if m.sink == nil {
		return
	}

	report := Report{
		SessionID: sessionID,
		Source:    e.Source,
		Severity:  e.Severity,
		Message:   e.Message,
		Details:   e.Details,
		Metadata:  e.Metadata,
	}
	err := m.breaker.Execute(func() error {
		return m.sink.Send(ctx, report)
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		metrics.IncErrorReport("suppressed")
		span.SetStatus(codes.Unset, "suppressed")
		m.logger.Debug().
			Str(xglog.FieldEvent, "error.report_suppressed").
			Str(xglog.FieldErrorID, e.ID).
			Msg("error sink breaker open, report suppressed")
	case err != nil:
		metrics.IncErrorReport("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		snap := m.breaker.Snapshot()
		m.logger.Debug().Err(err).
			Str(xglog.FieldEvent, "error.report_failed").
			Str(xglog.FieldErrorID, e.ID).
			Int("consecutive_failures", snap.ConsecutiveFailures).
			Bool("breaker_open", snap.IsOpen).
			Msg("error report failed")
	default:
		metrics.IncErrorReport("sent")
	}
}

// RecordRecoveryAttempt counts a recovery attempt for the given error id
// (empty id counts only the aggregate).
func (m *Monitor) RecordRecoveryAttempt(id string) {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
	metrics.IncRecovery("attempt")
	m.logger.Debug().
		Str(xglog.FieldEvent, "error.recovery_attempt").
		Str(xglog.FieldErrorID, id).
		Msg("recovery attempted")
}

// RecordSuccessfulRecovery counts a confirmed recovery and marks the ledger
// entry recovered when id is known.
func (m *Monitor) RecordSuccessfulRecovery(id string) {
	m.mu.Lock()
	m.successes++
	if id != "" {
		if e := m.ledger.find(id); e != nil {
			e.Recovered = true
		}
	}
	m.mu.Unlock()
	metrics.IncRecovery("success")
	m.logger.Info().
		Str(xglog.FieldEvent, "error.recovered").
		Str(xglog.FieldErrorID, id).
		Msg("recovery confirmed")
}

// Errors returns the ledger, oldest first.
func (m *Monitor) Errors() []TrackedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.list()
}

// Stats aggregates the ledger. RecoveryRate is 0 when no attempts were made.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Total:                m.ledger.len(),
		TotalTracked:         m.totalTracked,
		BySource:             make(map[Source]int),
		BySeverity:           make(map[Severity]int),
		RecoveryAttempts:     m.attempts,
		SuccessfulRecoveries: m.successes,
	}
	for _, e := range m.ledger.list() {
		s.BySource[e.Source]++
		s.BySeverity[e.Severity]++
		if e.Recovered {
			s.Recovered++
		}
	}
	if m.attempts > 0 {
		s.RecoveryRate = float64(m.successes) / float64(m.attempts)
	}
	return s
}

// Breaker returns the backend breaker bookkeeping.
func (m *Monitor) Breaker() resilience.Snapshot {
	return m.breaker.Snapshot()
}

// Clear empties the ledger and the recovery counters.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger.clear()
	m.attempts, m.successes = 0, 0
}

// Wait blocks until in-flight forwards finish or ctx is done.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts in-flight forwards and waits for them to return. Errors
// tracked afterwards stay in the local ledger only.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	idle := m.idle
	m.mu.Unlock()
	m.cancel()
	<-idle
}
