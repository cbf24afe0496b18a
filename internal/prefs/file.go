// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	xglog "github.com/ManuGH/radiocore/internal/log"
	"github.com/google/renameio/v2"
)

// File stores preferences as a JSON document, replaced atomically on save.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File store at path. The parent directory is created on
// first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the document. A missing file yields zero preferences.
func (f *File) Load(_ context.Context) (Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Preferences{}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	p.Volume = clampVolume(p.Volume)
	return p, nil
}

// Save writes the document with fsync + rename.
func (f *File) Save(ctx context.Context, p Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	logger := xglog.WithComponentFromContext(ctx, "prefs")

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	pending, err := renameio.NewPendingFile(f.path)
	if err != nil {
		return fmt.Errorf("create pending preferences file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending preferences file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace preferences file: %w", err)
	}
	return nil
}
