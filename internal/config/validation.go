// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/radiocore/internal/validate"
)

// Validate checks a loaded configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})

	v.StreamURL("stream.url", cfg.Stream.URL)
	v.OptionalURL("stream.cover_url", cfg.Stream.CoverURL)

	v.OptionalURL("metadata.url", cfg.Metadata.URL)
	v.DurationRange("metadata.interval", cfg.Metadata.Interval, time.Second, time.Hour)
	v.PositiveDuration("metadata.max_backoff", cfg.Metadata.MaxBackoff)
	if cfg.Metadata.MaxBackoff < cfg.Metadata.Interval {
		v.AddError("metadata.max_backoff", "must not be shorter than metadata.interval", cfg.Metadata.MaxBackoff)
	}
	v.Range("metadata.max_failures", cfg.Metadata.MaxFailures, 1, 100)
	v.PositiveDuration("metadata.timeout", cfg.Metadata.Timeout)

	v.DurationRange("player.sample_interval", cfg.Player.SampleInterval, 100*time.Millisecond, time.Minute)
	v.DurationRange("player.recovery_grace", cfg.Player.RecoveryGrace, 100*time.Millisecond, time.Minute)
	v.PositiveDuration("player.refresh_every", cfg.Player.RefreshEvery)
	v.Range("player.refresh_burst", cfg.Player.RefreshBurst, 1, 100)

	v.OptionalURL("errors.sink_url", cfg.Errors.SinkURL)
	v.Range("errors.capacity", cfg.Errors.Capacity, 1, 10000)
	v.Range("errors.breaker_threshold", cfg.Errors.BreakerThreshold, 1, 100)
	v.PositiveDuration("errors.reset_delay", cfg.Errors.ResetDelay)
	if cfg.Errors.MaxResetDelay < cfg.Errors.ResetDelay {
		v.AddError("errors.max_reset_delay", "must not be shorter than errors.reset_delay", cfg.Errors.MaxResetDelay)
	}
	v.PositiveDuration("errors.report_timeout", cfg.Errors.ReportTimeout)

	v.OneOf("prefs.backend", cfg.Prefs.Backend, []string{PrefsMemory, PrefsFile, PrefsRedis})
	switch cfg.Prefs.Backend {
	case PrefsFile:
		v.NotEmpty("prefs.path", cfg.Prefs.Path)
	case PrefsRedis:
		v.NotEmpty("prefs.redis.addr", cfg.Prefs.Redis.Addr)
		v.NotEmpty("prefs.redis.key", cfg.Prefs.Redis.Key)
		v.Range("prefs.redis.db", cfg.Prefs.Redis.DB, 0, 15)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.Range("api.refresh_per_minute", cfg.API.RefreshPerMinute, 1, 600)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate",
				fmt.Sprintf("must be between 0 and 1, got %g", cfg.Telemetry.SamplingRate),
				cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
