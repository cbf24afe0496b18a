// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefs persists listener preferences (volume, mute, notifications).
package prefs

import (
	"context"
	"sync"
)

// Preferences is the persisted listener state.
type Preferences struct {
	// Volume is normalized to [0,1]. HasVolume is false until first saved.
	Volume               float64 `json:"volume"`
	HasVolume            bool    `json:"has_volume"`
	Muted                bool    `json:"muted"`
	NotificationsEnabled bool    `json:"notifications_enabled"`
}

// Store loads and saves preferences.
type Store interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	p  Preferences
}

// NewMemory returns a Memory store seeded with p.
func NewMemory(p Preferences) *Memory {
	return &Memory{p: p}
}

// Load returns the stored preferences.
func (m *Memory) Load(context.Context) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, nil
}

// Save replaces the stored preferences.
func (m *Memory) Save(_ context.Context, p Preferences) error {
	m.mu.Lock()
	m.p = p
	m.mu.Unlock()
	return nil
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
