// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// documentJSON renders a complete, valid document for the given track.
func documentJSON(title, artist string) []byte {
	m := documentMap(title, artist)
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return b
}

func documentMap(title, artist string) map[string]any {
	m := map[string]any{
		"title":       title,
		"artist":      artist,
		"album":       "Album of " + title,
		"date":        "2024",
		"bit_depth":   24,
		"sample_rate": 96000,
		"is_new":      false,
		"is_summer":   true,
		"is_vidgames": false,
	}
	for i := 1; i <= PreviousTrackCount; i++ {
		m[fmt.Sprintf("prev_title_%d", i)] = fmt.Sprintf("Prev %d", i)
		m[fmt.Sprintf("prev_artist_%d", i)] = fmt.Sprintf("Prev Artist %d", i)
	}
	return m
}

func mustDoc(title, artist string) Document {
	d, err := Parse(documentJSON(title, artist))
	if err != nil {
		panic(err)
	}
	return d
}

var errFetch = errors.New("network down")

// scriptedFetcher replays a fixed list of results, repeating the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   atomic.Int32
}

type fetchResult struct {
	doc Document
	err error
}

func (f *scriptedFetcher) Fetch(_ context.Context) (Document, error) {
	n := int(f.calls.Add(1)) - 1
	f.mu.Lock()
	defer f.mu.Unlock()
	if n >= len(f.results) {
		n = len(f.results) - 1
	}
	r := f.results[n]
	return r.doc, r.err
}

func failAlways() *scriptedFetcher {
	return &scriptedFetcher{results: []fetchResult{{err: errFetch}}}
}

// gatedFetcher blocks the first call until release is closed and then
// returns slow, ignoring cancellation to model a late response. Later calls
// return fast immediately.
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	slow    Document
	fast    Document
	calls   atomic.Int32
}

func newGatedFetcher(slow, fast Document) *gatedFetcher {
	return &gatedFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		slow:    slow,
		fast:    fast,
	}
}

func (f *gatedFetcher) Fetch(_ context.Context) (Document, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		<-f.release
		return f.slow, nil
	}
	return f.fast, nil
}
