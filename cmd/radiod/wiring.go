// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ManuGH/radiocore/internal/config"
	"github.com/ManuGH/radiocore/internal/errmon"
	"github.com/ManuGH/radiocore/internal/headless"
	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/metadata"
	"github.com/ManuGH/radiocore/internal/platform/httpx"
	"github.com/ManuGH/radiocore/internal/player"
	"github.com/ManuGH/radiocore/internal/prefs"
)

// openPrefs builds the preference store for the configured backend.
func openPrefs(ctx context.Context, cfg config.PrefsConfig) (prefs.Store, func(), error) {
	switch cfg.Backend {
	case config.PrefsFile:
		return prefs.NewFile(cfg.Path), func() {}, nil
	case config.PrefsRedis:
		store, err := prefs.NewRedis(ctx, prefs.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}, xglog.WithComponent("prefs"))
		if err != nil {
			return nil, nil, fmt.Errorf("prefs: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return prefs.NewMemory(prefs.Preferences{}), func() {}, nil
	}
}

type session struct {
	ctrl       *player.Controller
	errs       *errmon.Monitor
	httpClient *http.Client
}

func newSession(cfg config.AppConfig, holder *config.Holder, store prefs.Store) *session {
	client := httpx.NewTracedClient(cfg.Metadata.Timeout)

	var opts []errmon.Option
	if cfg.Errors.SinkURL != "" {
		opts = append(opts, errmon.WithSink(errmon.NewHTTPSink(cfg.Errors.SinkURL, httpx.NewTracedClient(cfg.Errors.ReportTimeout))))
	}
	errs := errmon.New(errmon.Config{
		Capacity:         cfg.Errors.Capacity,
		BreakerThreshold: cfg.Errors.BreakerThreshold,
		ResetDelay:       cfg.Errors.ResetDelay,
		MaxResetDelay:    cfg.Errors.MaxResetDelay,
		ReportTimeout:    cfg.Errors.ReportTimeout,
	}, opts...)

	var fetcher metadata.Fetcher
	if cfg.Metadata.URL != "" {
		fetcher = metadata.NewClient(cfg.Metadata.URL, client)
	}

	ctrl := player.New(player.Config{
		CoverURL: cfg.Stream.CoverURL,
		Poller: metadata.Config{
			Interval:    cfg.Metadata.Interval,
			MaxBackoff:  cfg.Metadata.MaxBackoff,
			MaxFailures: cfg.Metadata.MaxFailures,
		},
		SampleInterval: cfg.Player.SampleInterval,
		RecoveryGrace:  cfg.Player.RecoveryGrace,
		RefreshEvery:   cfg.Player.RefreshEvery,
		RefreshBurst:   cfg.Player.RefreshBurst,
	}, player.Deps{
		Fetcher:      fetcher,
		Errors:       errs,
		Prefs:        store,
		MediaSession: headless.NewMediaSession(),
		Notifier: headless.NewNotifier(func() bool {
			return holder.Get().Player.Notifications
		}),
		Announcer: headless.NewAnnouncer(),
		Page:      headless.NewPage(),
	})
	return &session{ctrl: ctrl, errs: errs, httpClient: client}
}

func (s *session) close() {
	s.ctrl.Destroy()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.errs.Wait(ctx)
	s.errs.Close()
}
