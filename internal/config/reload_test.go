// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestHolder(t *testing.T, body string) (*Holder, string) {
	t.Helper()
	path := writeConfig(t, body)
	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	h := NewHolder(cfg, l, path)
	h.debounce = 20 * time.Millisecond
	return h, path
}

func TestHolder_ReloadSwapsAndNotifies(t *testing.T) {
	h, path := newTestHolder(t, validYAML)
	ch := make(chan AppConfig, 1)
	h.Subscribe(ch)

	require.NoError(t, os.WriteFile(path, []byte(validYAML+"log:\n  level: debug\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "debug", h.Get().Log.Level)
	select {
	case got := <-ch:
		assert.Equal(t, "debug", got.Log.Level)
	default:
		t.Fatal("listener not notified")
	}
}

func TestHolder_ReloadKeepsConfigOnInvalidFile(t *testing.T) {
	h, path := newTestHolder(t, validYAML)
	before := h.Get()

	require.NoError(t, os.WriteFile(path, []byte(validYAML+"log:\n  level: chatty\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, before, h.Get())

	require.NoError(t, os.WriteFile(path, []byte("stream: [\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, before, h.Get())
}

func TestHolder_WatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h, path := newTestHolder(t, validYAML)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	require.Eventually(t, func() bool {
		// Rewrite until the watcher has registered and picked it up.
		_ = os.WriteFile(path, []byte(validYAML+"log:\n  level: warn\n"), 0o600)
		return h.Get().Log.Level == "warn"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestHolder_WatchWithoutPath(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", "dev"), "")
	require.NoError(t, h.Watch(context.Background()))
}
