// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/radiocore/internal/config"
	"github.com/ManuGH/radiocore/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks verifies the environment before the daemon starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if cfg.Prefs.Backend == config.PrefsFile {
		if err := checkWritableDir(logger, filepath.Dir(cfg.Prefs.Path)); err != nil {
			return fmt.Errorf("preferences directory check failed: %w", err)
		}
	}
	if cfg.Metadata.URL == "" {
		logger.Warn().Msg("metadata URL not configured; track information disabled")
	}
	if cfg.Errors.SinkURL == "" {
		logger.Info().Msg("error sink not configured; errors stay in the local ledger")
	}

	logger.Info().Msg("startup checks passed")
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(probe)
	logger.Info().Str("path", path).Msg("preferences directory is writable")
	return nil
}
