// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads radiod configuration with the precedence
// environment > file > defaults and supports hot reload of the file.
package config

import "time"

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Log       LogConfig       `yaml:"log"`
	Stream    StreamConfig    `yaml:"stream"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Player    PlayerConfig    `yaml:"player"`
	Errors    ErrorsConfig    `yaml:"errors"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// StreamConfig points at the HLS playlist and the fixed cover art URL.
type StreamConfig struct {
	URL      string `yaml:"url"`
	CoverURL string `yaml:"cover_url"`
}

type MetadataConfig struct {
	URL         string        `yaml:"url"`
	Interval    time.Duration `yaml:"interval"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PlayerConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	RecoveryGrace  time.Duration `yaml:"recovery_grace"`
	RefreshEvery   time.Duration `yaml:"refresh_every"`
	RefreshBurst   int           `yaml:"refresh_burst"`
	Autoplay       bool          `yaml:"autoplay"`
	Notifications  bool          `yaml:"notifications"`
}

// ErrorsConfig tunes the error monitor. An empty SinkURL keeps errors local.
type ErrorsConfig struct {
	SinkURL          string        `yaml:"sink_url"`
	Capacity         int           `yaml:"capacity"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	ResetDelay       time.Duration `yaml:"reset_delay"`
	MaxResetDelay    time.Duration `yaml:"max_reset_delay"`
	ReportTimeout    time.Duration `yaml:"report_timeout"`
}

// PrefsConfig selects the preference store: memory, file or redis.
type PrefsConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type APIConfig struct {
	Listen           string `yaml:"listen"`
	RefreshPerMinute int    `yaml:"refresh_per_minute"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

const (
	PrefsMemory = "memory"
	PrefsFile   = "file"
	PrefsRedis  = "redis"
)
