// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict parse failures caused by unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string

	// ConsumedEnvKeys records every variable the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, def string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, def)
}

// Load builds the configuration: defaults, then the strict YAML file, then
// environment overrides. It does not validate; call Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.mergeFile(&cfg, l.configPath); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	l.mergeEnv(&cfg)

	if cfg.Prefs.Path != "" {
		if abs, err := filepath.Abs(cfg.Prefs.Path); err == nil {
			cfg.Prefs.Path = abs
		}
	}
	cfg.Version = l.version
	return cfg, nil
}

// mergeFile decodes the file over cfg. Keys absent from the file keep their
// current values.
func (l *Loader) mergeFile(cfg *AppConfig, path string) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the operator chooses the config path
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	p := EnvPrefix

	cfg.Log.Level = l.envString(p+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString(p+"LOG_SERVICE", cfg.Log.Service)

	cfg.Stream.URL = l.envString(p+"STREAM_URL", cfg.Stream.URL)
	cfg.Stream.CoverURL = l.envString(p+"COVER_URL", cfg.Stream.CoverURL)

	cfg.Metadata.URL = l.envString(p+"METADATA_URL", cfg.Metadata.URL)
	cfg.Metadata.Interval = l.envDuration(p+"METADATA_INTERVAL", cfg.Metadata.Interval)
	cfg.Metadata.MaxBackoff = l.envDuration(p+"METADATA_MAX_BACKOFF", cfg.Metadata.MaxBackoff)
	cfg.Metadata.MaxFailures = l.envInt(p+"METADATA_MAX_FAILURES", cfg.Metadata.MaxFailures)
	cfg.Metadata.Timeout = l.envDuration(p+"METADATA_TIMEOUT", cfg.Metadata.Timeout)

	cfg.Player.SampleInterval = l.envDuration(p+"SAMPLE_INTERVAL", cfg.Player.SampleInterval)
	cfg.Player.RecoveryGrace = l.envDuration(p+"RECOVERY_GRACE", cfg.Player.RecoveryGrace)
	cfg.Player.RefreshEvery = l.envDuration(p+"REFRESH_EVERY", cfg.Player.RefreshEvery)
	cfg.Player.RefreshBurst = l.envInt(p+"REFRESH_BURST", cfg.Player.RefreshBurst)
	cfg.Player.Autoplay = l.envBool(p+"AUTOPLAY", cfg.Player.Autoplay)
	cfg.Player.Notifications = l.envBool(p+"NOTIFICATIONS", cfg.Player.Notifications)

	cfg.Errors.SinkURL = l.envString(p+"ERROR_SINK_URL", cfg.Errors.SinkURL)
	cfg.Errors.Capacity = l.envInt(p+"ERROR_CAPACITY", cfg.Errors.Capacity)
	cfg.Errors.BreakerThreshold = l.envInt(p+"BREAKER_THRESHOLD", cfg.Errors.BreakerThreshold)
	cfg.Errors.ResetDelay = l.envDuration(p+"BREAKER_RESET_DELAY", cfg.Errors.ResetDelay)
	cfg.Errors.MaxResetDelay = l.envDuration(p+"BREAKER_MAX_RESET_DELAY", cfg.Errors.MaxResetDelay)
	cfg.Errors.ReportTimeout = l.envDuration(p+"ERROR_REPORT_TIMEOUT", cfg.Errors.ReportTimeout)

	cfg.Prefs.Backend = l.envString(p+"PREFS_BACKEND", cfg.Prefs.Backend)
	cfg.Prefs.Path = l.envString(p+"PREFS_PATH", cfg.Prefs.Path)
	cfg.Prefs.Redis.Addr = l.envString(p+"REDIS_ADDR", cfg.Prefs.Redis.Addr)
	cfg.Prefs.Redis.Password = l.envString(p+"REDIS_PASSWORD", cfg.Prefs.Redis.Password)
	cfg.Prefs.Redis.DB = l.envInt(p+"REDIS_DB", cfg.Prefs.Redis.DB)
	cfg.Prefs.Redis.Key = l.envString(p+"REDIS_KEY", cfg.Prefs.Redis.Key)

	cfg.API.Listen = l.envString(p+"API_LISTEN", cfg.API.Listen)
	cfg.API.RefreshPerMinute = l.envInt(p+"API_REFRESH_PER_MINUTE", cfg.API.RefreshPerMinute)

	cfg.Telemetry.Enabled = l.envBool(p+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(p+"OTLP_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(p+"OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = l.envString(p+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = l.envFloat(p+"TRACE_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
