// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBackoff(t *testing.T) {
	base := 10 * time.Second
	max := 5 * time.Minute
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 10 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 80 * time.Second},
		{5, 160 * time.Second},
		{6, 300 * time.Second},
		{40, 300 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(base, max, tt.failures), "failures=%d", tt.failures)
	}

	assert.Equal(t, 300*time.Second, Backoff(100*time.Second, max, 3))
}

func TestPoller_FailuresScheduleExponentialBackoff(t *testing.T) {
	p := NewPoller(failAlways(), Config{Interval: 10 * time.Second})
	ctx := context.Background()

	for n := 1; n < DefaultMaxFailures; n++ {
		err := p.Refresh(ctx)
		require.ErrorIs(t, err, errFetch)
		assert.Equal(t, Backoff(10*time.Second, DefaultMaxBackoff, n), p.NextInterval())
		assert.Equal(t, (10*time.Second)<<(n-1), p.NextInterval())

		st := p.Status()
		assert.Equal(t, n, st.Failures)
		assert.False(t, st.Stopped)
		assert.Contains(t, st.Message, "retrying")
	}
}

func TestPoller_StopsAfterMaxFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := failAlways()
	p := NewPoller(f, Config{Interval: time.Millisecond, MaxBackoff: 4 * time.Millisecond})

	var mu sync.Mutex
	var gaveUp bool
	p.OnFailure(func(_ error, _ int, g bool) {
		mu.Lock()
		gaveUp = gaveUp || g
		mu.Unlock()
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return p.Status().Stopped }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(DefaultMaxFailures), f.calls.Load())
	assert.ErrorIs(t, p.Refresh(context.Background()), ErrStopped)
	assert.Equal(t, int32(DefaultMaxFailures), f.calls.Load())

	mu.Lock()
	assert.True(t, gaveUp)
	mu.Unlock()
	assert.Contains(t, p.Status().Message, "gave up")

	p.Stop()
}

func TestPoller_SuccessResetsInterval(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{
		{err: errFetch},
		{err: errFetch},
		{err: errFetch},
		{doc: mustDoc("Song", "Band")},
	}}
	p := NewPoller(f, Config{Interval: 10 * time.Second})

	var statuses []Status
	p.OnStatus(func(s Status) { statuses = append(statuses, s) })

	for i := 0; i < 3; i++ {
		_ = p.Refresh(context.Background())
	}
	require.Equal(t, 40*time.Second, p.NextInterval())

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 10*time.Second, p.NextInterval())
	assert.Equal(t, 0, p.Status().Failures)
	assert.Empty(t, p.Status().Message)

	require.Len(t, statuses, 4)
	assert.Empty(t, statuses[3].Message, "recovery clears the status message")
}

func TestPoller_RefreshSuccessEndsBackoffWait(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const failing = 11
	results := make([]fetchResult, 0, failing+1)
	for i := 0; i < failing; i++ {
		results = append(results, fetchResult{err: errFetch})
	}
	results = append(results, fetchResult{doc: mustDoc("Song", "Band")})
	f := &scriptedFetcher{results: results}
	p := NewPoller(f, Config{Interval: 40 * time.Millisecond, MaxBackoff: time.Hour, MaxFailures: 100})

	for i := 0; i < failing-1; i++ {
		_ = p.Refresh(context.Background())
	}
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return p.Status().Failures == failing }, 2*time.Second, 5*time.Millisecond)
	require.Greater(t, p.NextInterval(), time.Minute, "loop is parked in a long backoff")

	require.NoError(t, p.Refresh(context.Background()))
	calls := f.calls.Load()
	assert.Eventually(t, func() bool { return f.calls.Load() > calls }, 2*time.Second, 5*time.Millisecond,
		"loop polls again at the normal interval")
}

func TestPoller_InvalidDocumentCountsAsFailure(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{{err: ErrInvalidDocument}}}
	p := NewPoller(f, Config{Interval: 10 * time.Second})

	assert.ErrorIs(t, p.Refresh(context.Background()), ErrInvalidDocument)
	assert.Equal(t, 1, p.Status().Failures)
	_, ok := p.Track()
	assert.False(t, ok)
}

func TestPoller_SupersededFetchDoesNotMutateState(t *testing.T) {
	f := newGatedFetcher(mustDoc("Stale", "Old"), mustDoc("Fresh", "New"))
	p := NewPoller(f, Config{Interval: 10 * time.Second})

	var updates []Update
	p.OnUpdate(func(u Update) { updates = append(updates, u) })

	slowErr := make(chan error, 1)
	go func() { slowErr <- p.Refresh(context.Background()) }()
	<-f.started

	require.NoError(t, p.Refresh(context.Background()))
	close(f.release)
	assert.ErrorIs(t, <-slowErr, ErrSuperseded)

	track, ok := p.Track()
	require.True(t, ok)
	assert.Equal(t, "Fresh", track.Title)
	require.Len(t, updates, 1)
	assert.Equal(t, "Fresh", updates[0].Track.Title)
	assert.Equal(t, 0, p.Status().Failures, "superseded fetch is not a failure")
}

func TestPoller_TrackChangeFlags(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{
		{doc: mustDoc("One", "Band")},
		{doc: mustDoc("One", "Band")},
		{doc: mustDoc("Two", "Band")},
	}}
	p := NewPoller(f, Config{Interval: 10 * time.Second})

	var updates []Update
	p.OnUpdate(func(u Update) { updates = append(updates, u) })
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Refresh(context.Background()))
	}

	require.Len(t, updates, 3)
	assert.True(t, updates[0].Changed)
	assert.True(t, updates[0].First)
	assert.False(t, updates[1].Changed)
	assert.True(t, updates[2].Changed)
	assert.False(t, updates[2].First)
	assert.Less(t, updates[0].Generation, updates[2].Generation)
}

func TestPoller_CallerCancellationIsNotAFailure(t *testing.T) {
	p := NewPoller(FetcherFunc(func(ctx context.Context) (Document, error) {
		<-ctx.Done()
		return Document{}, ctx.Err()
	}), Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Refresh(ctx), context.DeadlineExceeded)
	assert.Equal(t, 0, p.Status().Failures)
}

func TestPoller_StopAbortsInFlightFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entered := make(chan struct{})
	var once sync.Once
	p := NewPoller(FetcherFunc(func(ctx context.Context) (Document, error) {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return Document{}, ctx.Err()
	}), Config{Interval: time.Hour})

	var updates int
	p.OnUpdate(func(Update) { updates++ })

	p.Start(context.Background())
	<-entered
	p.Stop()
	p.Stop()

	assert.Equal(t, 0, p.Status().Failures)
	assert.Zero(t, updates)
	assert.ErrorIs(t, p.Refresh(context.Background()), ErrStopped)
}
