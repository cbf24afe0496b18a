// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/radiocore/internal/validate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
stream:
  url: https://radio.example.test/hls/live.m3u8
  cover_url: https://radio.example.test/cover.jpg
metadata:
  url: https://radio.example.test/metadata.json
  interval: 15s
player:
  recovery_grace: 3s
errors:
  capacity: 20
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radiod.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v1.2.3"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, validYAML), "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "https://radio.example.test/hls/live.m3u8", cfg.Stream.URL)
	assert.Equal(t, 15*time.Second, cfg.Metadata.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Metadata.MaxBackoff, "untouched keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Player.RecoveryGrace)
	assert.Equal(t, 20, cfg.Errors.Capacity)
	assert.Equal(t, 3, cfg.Errors.BreakerThreshold)
	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("RADIOCORE_METADATA_INTERVAL", "30s")
	t.Setenv("RADIOCORE_ERROR_CAPACITY", "7")
	t.Setenv("RADIOCORE_AUTOPLAY", "yes")
	t.Setenv("RADIOCORE_TRACE_SAMPLING_RATE", "0.25")
	t.Setenv("RADIOCORE_BREAKER_THRESHOLD", "not-a-number")

	l := NewLoader(writeConfig(t, validYAML), "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Metadata.Interval)
	assert.Equal(t, 7, cfg.Errors.Capacity)
	assert.True(t, cfg.Player.Autoplay)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRate)
	assert.Equal(t, 3, cfg.Errors.BreakerThreshold, "invalid env value falls back")
	assert.Contains(t, l.ConsumedEnvKeys, "RADIOCORE_STREAM_URL")
}

func TestLoad_StrictRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, validYAML+"volume_boost: true\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_RejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, validYAML+"---\nlog:\n  level: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radiod.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, ""), "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Metadata, cfg.Metadata)
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.Stream.URL = "https://radio.example.test/hls/live.m3u8"
	require.NoError(t, Validate(base))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"missing stream", func(c *AppConfig) { c.Stream.URL = "" }, "stream.url"},
		{"bad level", func(c *AppConfig) { c.Log.Level = "chatty" }, "log.level"},
		{"backoff below interval", func(c *AppConfig) { c.Metadata.MaxBackoff = time.Second }, "metadata.max_backoff"},
		{"file backend without path", func(c *AppConfig) { c.Prefs.Backend = PrefsFile }, "prefs.path"},
		{"unknown backend", func(c *AppConfig) { c.Prefs.Backend = "sqlite" }, "prefs.backend"},
		{"bad listen", func(c *AppConfig) { c.API.Listen = "8080" }, "api.listen"},
		{"bad sink url", func(c *AppConfig) { c.Errors.SinkURL = "mailto:ops" }, "errors.sink_url"},
		{"bad exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
