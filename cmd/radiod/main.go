// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/radiocore/internal/api"
	"github.com/ManuGH/radiocore/internal/config"
	"github.com/ManuGH/radiocore/internal/headless"
	"github.com/ManuGH/radiocore/internal/health"
	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/ManuGH/radiocore/internal/platform/httpx"
	"github.com/ManuGH/radiocore/internal/telemetry"
	"github.com/ManuGH/radiocore/internal/version"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{Level: "info", Service: "radiod", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.invalid").
			Msg("configuration is invalid")
	}

	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: version.Version})
	logger = xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("path", path).
		Str("version", version.Version).
		Str(xglog.FieldStreamURL, httpx.RedactURL(cfg.Stream.URL)).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	if err := run(ctx, cfg, loader, path); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit").Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.exit").Msg("daemon stopped")
}

func run(ctx context.Context, cfg config.AppConfig, loader *config.Loader, path string) error {
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.ConfigFrom(cfg, version.Version))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("telemetry shutdown failed")
		}
	}()

	holder := config.NewHolder(cfg, loader, path)

	store, closeStore, err := openPrefs(ctx, cfg.Prefs)
	if err != nil {
		return err
	}
	defer closeStore()

	sess := newSession(cfg, holder, store)
	defer sess.close()

	sink := headless.NewSink(sess.httpClient)
	if err := sess.ctrl.Initialize(ctx, sink, cfg.Stream.URL); err != nil {
		return fmt.Errorf("initialize playback: %w", err)
	}
	if cfg.Player.Autoplay {
		if err := sess.ctrl.Play(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "player.autoplay_failed").Msg("autoplay failed")
		}
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.SessionChecker(sess.ctrl.Session))
	hm.RegisterChecker(health.MetadataChecker(sess.ctrl.MetadataStatus))
	hm.RegisterChecker(health.BreakerChecker(sess.ctrl.Errors().Breaker))
	hm.RegisterChecker(health.PrefsChecker(store))

	srv := &http.Server{
		Addr: cfg.API.Listen,
		Handler: api.NewRouter(api.Config{
			RefreshPerMinute: cfg.API.RefreshPerMinute,
			TracingService:   cfg.Log.Service + "/api",
		}, sess.ctrl, hm),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str(xglog.FieldEvent, "api.listen").
			Str("addr", srv.Addr).
			Msg("serving API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info().Str(xglog.FieldEvent, "api.shutdown").Msg("shutting down API server")
		return srv.Shutdown(sctx)
	})
	if path != "" {
		g.Go(func() error {
			if err := holder.Watch(gctx); err != nil {
				logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_failed").Msg("config hot reload disabled")
			}
			return nil
		})
		g.Go(func() error {
			watchLogLevel(gctx, holder)
			return nil
		})
	}
	return g.Wait()
}

// watchLogLevel applies log settings from reloaded configs.
func watchLogLevel(ctx context.Context, holder *config.Holder) {
	updates := make(chan config.AppConfig, 1)
	holder.Subscribe(updates)
	current := holder.Get().Log
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-updates:
			if next.Log == current {
				continue
			}
			current = next.Log
			xglog.Configure(xglog.Config{Level: current.Level, Service: current.Service, Version: version.Version})
			logger := xglog.WithComponent("daemon")
			logger.Info().
				Str(xglog.FieldEvent, "log.reconfigured").
				Str("level", current.Level).
				Msg("log settings reloaded")
		}
	}
}
