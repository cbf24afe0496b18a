// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "radiod",
		},
		Metadata: MetadataConfig{
			Interval:    10 * time.Second,
			MaxBackoff:  5 * time.Minute,
			MaxFailures: 5,
			Timeout:     8 * time.Second,
		},
		Player: PlayerConfig{
			SampleInterval: time.Second,
			RecoveryGrace:  5 * time.Second,
			RefreshEvery:   2 * time.Second,
			RefreshBurst:   3,
			Notifications:  true,
		},
		Errors: ErrorsConfig{
			Capacity:         50,
			BreakerThreshold: 3,
			ResetDelay:       60 * time.Second,
			MaxResetDelay:    10 * time.Minute,
			ReportTimeout:    5 * time.Second,
		},
		Prefs: PrefsConfig{
			Backend: PrefsMemory,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "radiocore:prefs",
			},
		},
		API: APIConfig{
			Listen:           ":8080",
			RefreshPerMinute: 30,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}
