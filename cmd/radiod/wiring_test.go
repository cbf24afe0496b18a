// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ManuGH/radiocore/internal/config"
	"github.com/ManuGH/radiocore/internal/prefs"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPrefs_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.PrefsConfig
		want any
	}{
		{"memory", config.PrefsConfig{Backend: config.PrefsMemory}, &prefs.Memory{}},
		{"file", config.PrefsConfig{Backend: config.PrefsFile, Path: filepath.Join(t.TempDir(), "prefs.json")}, &prefs.File{}},
		{"redis", config.PrefsConfig{Backend: config.PrefsRedis, Redis: config.RedisConfig{Addr: mr.Addr(), Key: "test:prefs"}}, &prefs.Redis{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openPrefs(ctx, tt.cfg)
			require.NoError(t, err)
			defer closeStore()
			assert.IsType(t, tt.want, store)

			require.NoError(t, store.Save(ctx, prefs.Preferences{Volume: 0.4, HasVolume: true}))
			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.InDelta(t, 0.4, got.Volume, 1e-9)
			assert.True(t, got.HasVolume)
		})
	}
}

func TestOpenPrefs_RedisUnreachable(t *testing.T) {
	_, _, err := openPrefs(context.Background(), config.PrefsConfig{
		Backend: config.PrefsRedis,
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
	})
	assert.Error(t, err)
}

func TestNewSession_WithoutMetadataURL(t *testing.T) {
	cfg := config.Defaults()
	cfg.Metadata.URL = ""
	holder := config.NewHolder(cfg, config.NewLoader("", "test"), "")

	s := newSession(cfg, holder, prefs.NewMemory(prefs.Preferences{}))
	defer s.close()

	assert.Equal(t, s.errs, s.ctrl.Errors())
	_, ok := s.ctrl.MetadataStatus()
	assert.False(t, ok)
}
