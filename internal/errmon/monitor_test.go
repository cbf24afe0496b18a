// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package errmon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/radiocore/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingSink struct {
	calls atomic.Int32
	fail  atomic.Bool
	mu    sync.Mutex
	last  Report
}

func (s *countingSink) Send(_ context.Context, r Report) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
	if s.fail.Load() {
		return errors.New("sink down")
	}
	return nil
}

// trackAndWait tracks one error and waits for its forward to settle so the
// breaker sees failures in order.
func trackAndWait(t *testing.T, m *Monitor, msg string) TrackedError {
	t.Helper()
	e := m.TrackError(SourceNetwork, SeverityError, msg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
	return e
}

func TestMonitor_LedgerEvictsOldest(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	for i := 0; i < DefaultCapacity+1; i++ {
		m.TrackError(SourceApp, SeverityInfo, fmt.Sprintf("error %d", i))
	}

	errs := m.Errors()
	require.Len(t, errs, DefaultCapacity)
	assert.Equal(t, "error 1", errs[0].Message)
	assert.Equal(t, fmt.Sprintf("error %d", DefaultCapacity), errs[len(errs)-1].Message)

	st := m.Stats()
	assert.Equal(t, DefaultCapacity, st.Total)
	assert.Equal(t, DefaultCapacity+1, st.TotalTracked)
}

func TestMonitor_RecoveryRateZeroWithoutAttempts(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	st := m.Stats()
	assert.Equal(t, 0.0, st.RecoveryRate)
	assert.False(t, math.IsNaN(st.RecoveryRate))
}

func TestMonitor_RecoveryMarksLedgerEntry(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	e := m.TrackError(SourceEngine, SeverityError, "fragment load error", WithDetails("fragLoadError"))
	other := m.TrackError(SourceEngine, SeverityWarning, "buffer stalled")

	m.RecordRecoveryAttempt(e.ID)
	m.RecordRecoveryAttempt(other.ID)
	m.RecordSuccessfulRecovery(e.ID)

	var got TrackedError
	for _, te := range m.Errors() {
		if te.ID == e.ID {
			got = te
		}
	}
	assert.True(t, got.Recovered)
	assert.Equal(t, "fragLoadError", got.Details)

	st := m.Stats()
	assert.Equal(t, 2, st.RecoveryAttempts)
	assert.Equal(t, 1, st.SuccessfulRecoveries)
	assert.Equal(t, 0.5, st.RecoveryRate)
	assert.Equal(t, 1, st.Recovered)
	assert.Equal(t, 2, st.BySource[SourceEngine])
	assert.Equal(t, 1, st.BySeverity[SeverityWarning])

	// Unknown ids only touch the aggregate counters.
	m.RecordSuccessfulRecovery("missing")
	assert.Equal(t, 2, m.Stats().SuccessfulRecoveries)
}

func TestMonitor_BreakerThrottlesBackendReports(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := &mockClock{now: time.Now()}
	sink := &countingSink{}
	sink.fail.Store(true)
	var captured atomic.Int32
	reporter := ReporterFunc(func(context.Context, TrackedError) error {
		captured.Add(1)
		return nil
	})
	cb := resilience.NewCircuitBreaker("test_sink", 3, time.Minute,
		resilience.WithClock(clock), resilience.WithMaxResetDelay(10*time.Minute))

	m := New(Config{SessionID: "sess-1"}, WithSink(sink), WithReporter(reporter), WithBreaker(cb))
	defer m.Close()

	for i := 0; i < 3; i++ {
		trackAndWait(t, m, "fail")
	}
	assert.True(t, m.Breaker().IsOpen)
	assert.Equal(t, int32(3), sink.calls.Load())

	// Suppressed while open, but the local ledger and external reporter still see it.
	trackAndWait(t, m, "suppressed")
	assert.Equal(t, int32(3), sink.calls.Load())
	assert.Equal(t, int32(4), captured.Load())
	assert.Len(t, m.Errors(), 4)

	// After the delay one probe goes out; its failure doubles the delay.
	clock.Advance(time.Minute)
	trackAndWait(t, m, "probe")
	assert.Equal(t, int32(4), sink.calls.Load())
	snap := m.Breaker()
	assert.True(t, snap.IsOpen)
	assert.Equal(t, 2*time.Minute, snap.CurrentResetDelay)

	// A successful probe closes the breaker and restores the base delay.
	sink.fail.Store(false)
	clock.Advance(2 * time.Minute)
	trackAndWait(t, m, "ok")
	snap = m.Breaker()
	assert.False(t, snap.IsOpen)
	assert.Equal(t, time.Minute, snap.CurrentResetDelay)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "sess-1", sink.last.SessionID)
	assert.Equal(t, "ok", sink.last.Message)
}

func TestMonitor_NoSinkKeepsErrorsLocal(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	e := trackAndWait(t, m, "local only")
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, m.SessionID())
	assert.Len(t, m.Errors(), 1)
}

func TestMonitor_ClearResetsLedgerAndCounters(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	e := m.TrackError(SourceMedia, SeverityFatal, "decode failure", WithMetadata(map[string]any{"code": 3}))
	assert.Equal(t, 3, e.Metadata["code"])
	m.RecordRecoveryAttempt(e.ID)

	m.Clear()
	st := m.Stats()
	assert.Zero(t, st.Total)
	assert.Zero(t, st.RecoveryAttempts)
}

func TestMonitor_PanickingSinkCountsAsFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	sink := SinkFunc(func(context.Context, Report) error { panic("sink exploded") })
	m := New(Config{BreakerThreshold: 3}, WithSink(sink))
	defer m.Close()

	trackAndWait(t, m, "first")

	snap := m.Breaker()
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.False(t, snap.IsOpen)
	assert.Len(t, m.Errors(), 1)
}

func TestMonitor_TrackAfterCloseStaysLocal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	sink := &countingSink{}
	m := New(Config{}, WithSink(sink))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.TrackError(SourceApp, SeverityWarning, fmt.Sprintf("concurrent %d", i))
		}(i)
	}
	m.Close()
	wg.Wait()

	sent := sink.calls.Load()
	m.TrackError(SourceApp, SeverityWarning, "after close")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
	assert.Equal(t, sent, sink.calls.Load(), "no forwards after Close")
	assert.Len(t, m.Errors(), 9)
}
