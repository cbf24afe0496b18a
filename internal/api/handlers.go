// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/radiocore/internal/errmon"
	"github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/ManuGH/radiocore/internal/resilience"
)

const maxBodyBytes = 4 << 10

type handlers struct {
	session Session
}

// StatsResponse is the body of GET /api/errors/stats.
type StatsResponse struct {
	errmon.Stats
	Breaker resilience.Snapshot `json:"breaker"`
}

func (h *handlers) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) listErrors(w http.ResponseWriter, _ *http.Request) {
	errs := h.session.Errors().Errors()
	if errs == nil {
		errs = []errmon.TrackedError{}
	}
	writeJSON(w, http.StatusOK, errs)
}

func (h *handlers) errorStats(w http.ResponseWriter, _ *http.Request) {
	m := h.session.Errors()
	writeJSON(w, http.StatusOK, StatsResponse{Stats: m.Stats(), Breaker: m.Breaker()})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	err := h.session.ForceRefresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.session.Session())
	case errors.Is(err, player.ErrNotInitialized):
		writeError(w, http.StatusConflict, "not_initialized", "No active playback session.")
	case errors.Is(err, player.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Refresh requested too often.")
	case errors.Is(err, metadata.ErrStopped):
		writeError(w, http.StatusConflict, "polling_stopped", "Track information polling has stopped.")
	case errors.Is(err, metadata.ErrSuperseded):
		writeJSON(w, http.StatusAccepted, h.session.Session())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.refresh_failed").
			Msg("forced metadata refresh failed")
		writeError(w, http.StatusBadGateway, "metadata_unavailable", err.Error())
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Play(r.Context()); err != nil {
		h.playbackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) pause(w http.ResponseWriter, _ *http.Request) {
	h.session.Pause()
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.session.TogglePlayPause(r.Context()); err != nil {
		h.playbackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) playbackError(w http.ResponseWriter, err error) {
	if errors.Is(err, player.ErrNotInitialized) {
		writeError(w, http.StatusConflict, "not_initialized", "No active playback session.")
		return
	}
	writeError(w, http.StatusBadGateway, "playback_failed", err.Error())
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

type mutedRequest struct {
	Muted *bool `json:"muted"`
}

type notificationsRequest struct {
	Enabled *bool `json:"enabled"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

func (h *handlers) setVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Volume == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "volume is required")
		return
	}
	if err := h.session.SetVolume(r.Context(), *req.Volume); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.prefs_save_failed").
			Msg("volume applied but not persisted")
	}
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) setMuted(w http.ResponseWriter, r *http.Request) {
	var req mutedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Muted == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "muted is required")
		return
	}
	if err := h.session.SetMuted(r.Context(), *req.Muted); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.prefs_save_failed").
			Msg("mute applied but not persisted")
	}
	writeJSON(w, http.StatusOK, h.session.Session())
}

func (h *handlers) setNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "enabled is required")
		return
	}
	if err := h.session.SetNotificationsEnabled(r.Context(), *req.Enabled); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.prefs_save_failed").
			Msg("notification setting applied but not persisted")
	}
	writeJSON(w, http.StatusOK, h.session.Session())
}
