// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the playback session over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/radiocore/internal/errmon"
	"github.com/ManuGH/radiocore/internal/health"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session is the controller surface the API drives.
type Session interface {
	Session() player.Session
	Play(ctx context.Context) error
	Pause()
	TogglePlayPause(ctx context.Context) error
	SetVolume(ctx context.Context, volume float64) error
	SetMuted(ctx context.Context, muted bool) error
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
	ForceRefresh(ctx context.Context) error
	Errors() *errmon.Monitor
}

// Config tunes the router.
type Config struct {
	// RefreshPerMinute bounds POST /api/refresh per client IP.
	RefreshPerMinute int
	// TracingService names the tracer; empty uses "radiocore/api".
	TracingService string
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config, session Session, hm *health.Manager) http.Handler {
	if cfg.RefreshPerMinute <= 0 {
		cfg.RefreshPerMinute = 30
	}
	if cfg.TracingService == "" {
		cfg.TracingService = "radiocore/api"
	}
	h := &handlers{session: session}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(observe(cfg.TracingService))

	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.getSession)
		r.Get("/errors", h.listErrors)
		r.Get("/errors/stats", h.errorStats)
		r.With(rateLimit(cfg.RefreshPerMinute, time.Minute)).Post("/refresh", h.refresh)
		r.Post("/play", h.play)
		r.Post("/pause", h.pause)
		r.Post("/toggle", h.toggle)
		r.Put("/volume", h.setVolume)
		r.Put("/muted", h.setMuted)
		r.Put("/notifications", h.setNotifications)
	})
	return r
}
