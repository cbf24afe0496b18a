// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"time"

	xglog "github.com/ManuGH/radiocore/internal/log"
)

// scheduleRecoveryCheck confirms a recovery after the grace period unless the
// session has fallen into the error state by then. Pending checks are
// cancelled by Destroy.
func (c *Controller) scheduleRecoveryCheck(gen uint64, errorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(c.cfg.RecoveryGrace, func() {
		c.mu.Lock()
		if _, pending := c.timers[t]; !pending || gen != c.gen {
			c.mu.Unlock()
			return
		}
		delete(c.timers, t)
		status := c.session.Status
		c.mu.Unlock()

		if status == StatusError {
			c.logger.Info().
				Str(xglog.FieldEvent, "player.recovery_failed").
				Str(xglog.FieldErrorID, errorID).
				Msg("session still in error state after recovery attempt")
			return
		}
		c.deps.Errors.RecordSuccessfulRecovery(errorID)
	})
	c.timers[t] = struct{}{}
}

// pendingRecoveries reports the number of scheduled recovery checks.
func (c *Controller) pendingRecoveries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
