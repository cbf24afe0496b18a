// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package errmon keeps a bounded local error ledger and forwards errors to a
// backend sink behind a circuit breaker.
package errmon

import "time"

// Source identifies the subsystem an error came from.
type Source string

const (
	SourceEngine  Source = "engine"
	SourceNetwork Source = "network"
	SourceMedia   Source = "media"
	SourceApp     Source = "app"
	SourceUnknown Source = "unknown"
)

// Severity grades a tracked error.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// TrackedError is one ledger entry. Recovered flips to true when a later
// recovery check succeeds.
type TrackedError struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Source    Source         `json:"source"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Recovered bool           `json:"recovered"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Stats aggregates the ledger and the recovery counters.
type Stats struct {
	Total                int              `json:"total"`
	TotalTracked         int              `json:"total_tracked"`
	BySource             map[Source]int   `json:"by_source"`
	BySeverity           map[Severity]int `json:"by_severity"`
	Recovered            int              `json:"recovered"`
	RecoveryAttempts     int              `json:"recovery_attempts"`
	SuccessfulRecoveries int              `json:"successful_recoveries"`
	RecoveryRate         float64          `json:"recovery_rate"`
}

// ErrorOption decorates a tracked error.
type ErrorOption func(*TrackedError)

// WithDetails attaches a free-form detail string.
func WithDetails(details string) ErrorOption {
	return func(e *TrackedError) { e.Details = details }
}

// WithMetadata attaches structured context. The map is copied.
func WithMetadata(md map[string]any) ErrorOption {
	return func(e *TrackedError) {
		if len(md) == 0 {
			return
		}
		e.Metadata = make(map[string]any, len(md))
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}
