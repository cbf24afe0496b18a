// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"

	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/ManuGH/radiocore/internal/prefs"
	"github.com/ManuGH/radiocore/internal/quality"
	"github.com/ManuGH/radiocore/internal/resilience"
)

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckerFunc names fn as a checker.
func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) CheckerFunc {
	return CheckerFunc{name: name, fn: fn}
}

func (c CheckerFunc) Name() string                          { return c.name }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// SessionChecker reports the playback session. The error state is
// unhealthy; buffering or poor quality is degraded.
func SessionChecker(session func() player.Session) Checker {
	return NewCheckerFunc("session", func(context.Context) CheckResult {
		s := session()
		switch s.Status {
		case player.StatusError:
			return CheckResult{Status: StatusUnhealthy, Message: s.StatusMessage, Error: s.LastError}
		case player.StatusBuffering:
			return CheckResult{Status: StatusDegraded, Message: "buffering"}
		}
		if s.Status == player.StatusPlaying && s.Quality.Quality == quality.Poor {
			return CheckResult{Status: StatusDegraded, Message: "poor connection quality"}
		}
		return CheckResult{Status: StatusHealthy, Message: string(s.Status)}
	})
}

// MetadataChecker reports the poller. A stopped poller is degraded; the
// stream keeps playing without track information.
func MetadataChecker(status func() (metadata.Status, bool)) Checker {
	return NewCheckerFunc("metadata", func(context.Context) CheckResult {
		st, ok := status()
		switch {
		case !ok:
			return CheckResult{Status: StatusHealthy, Message: "not configured"}
		case st.Stopped:
			return CheckResult{Status: StatusDegraded, Message: st.Message, Error: st.LastError}
		case st.Failures > 0:
			return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d consecutive failures", st.Failures)}
		default:
			return CheckResult{Status: StatusHealthy}
		}
	})
}

// BreakerChecker reports the error-sink breaker. An open breaker only
// affects reporting and is degraded.
func BreakerChecker(snapshot func() resilience.Snapshot) Checker {
	return NewCheckerFunc("error_sink", func(context.Context) CheckResult {
		s := snapshot()
		switch s.State {
		case resilience.StateOpen:
			return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("circuit open, retry in %s", s.CurrentResetDelay)}
		case resilience.StateHalfOpen:
			return CheckResult{Status: StatusDegraded, Message: "circuit half-open"}
		default:
			return CheckResult{Status: StatusHealthy}
		}
	})
}

// PrefsChecker loads preferences to verify the store is reachable.
func PrefsChecker(store prefs.Store) Checker {
	return NewCheckerFunc("prefs", func(ctx context.Context) CheckResult {
		if _, err := store.Load(ctx); err != nil {
			return CheckResult{Status: StatusDegraded, Message: "preference store unavailable", Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	})
}
