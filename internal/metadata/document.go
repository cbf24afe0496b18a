// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metadata polls the station's now-playing document and tracks
// track changes.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// PreviousTrackCount is the number of history entries carried by a document.
const PreviousTrackCount = 5

// TrackInfo identifies the track currently on air.
type TrackInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// IsZero reports whether no track has been observed.
func (t TrackInfo) IsZero() bool {
	return t.Title == "" && t.Artist == "" && t.Album == ""
}

// SameTrack reports whether two snapshots refer to the same track.
// Only title and artist take part; album edits are not a track change.
func (t TrackInfo) SameTrack(other TrackInfo) bool {
	return t.Title == other.Title && t.Artist == other.Artist
}

// PreviousTrack is a single history entry.
type PreviousTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Document is a validated metadata document.
type Document struct {
	Title      string
	Artist     string
	Album      string
	Date       string
	BitDepth   float64
	SampleRate float64
	Previous   [PreviousTrackCount]PreviousTrack
	IsNew      bool
	IsSummer   bool
	IsVidgames bool
}

// Track returns the current track of the document.
func (d Document) Track() TrackInfo {
	return TrackInfo{Title: d.Title, Artist: d.Artist, Album: d.Album}
}

// wireDocument mirrors the endpoint schema. Pointers distinguish absent
// (or null) fields from zero values.
type wireDocument struct {
	Title      *string  `json:"title"`
	Artist     *string  `json:"artist"`
	Album      *string  `json:"album"`
	Date       *string  `json:"date"`
	BitDepth   *float64 `json:"bit_depth"`
	SampleRate *float64 `json:"sample_rate"`

	PrevTitle1  *string `json:"prev_title_1"`
	PrevArtist1 *string `json:"prev_artist_1"`
	PrevTitle2  *string `json:"prev_title_2"`
	PrevArtist2 *string `json:"prev_artist_2"`
	PrevTitle3  *string `json:"prev_title_3"`
	PrevArtist3 *string `json:"prev_artist_3"`
	PrevTitle4  *string `json:"prev_title_4"`
	PrevArtist4 *string `json:"prev_artist_4"`
	PrevTitle5  *string `json:"prev_title_5"`
	PrevArtist5 *string `json:"prev_artist_5"`

	IsNew      *bool `json:"is_new"`
	IsSummer   *bool `json:"is_summer"`
	IsVidgames *bool `json:"is_vidgames"`
}

// Parse decodes and validates a metadata document. Every field of the schema
// must be present with its declared JSON type.
func Parse(data []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Document{}, fmt.Errorf("%w: field %q has type %s, want %s",
				ErrInvalidDocument, typeErr.Field, typeErr.Value, typeErr.Type)
		}
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return w.validate()
}

func (w wireDocument) validate() (Document, error) {
	v := validator{}
	doc := Document{
		Title:      v.str("title", w.Title),
		Artist:     v.str("artist", w.Artist),
		Album:      v.str("album", w.Album),
		Date:       v.str("date", w.Date),
		BitDepth:   v.num("bit_depth", w.BitDepth),
		SampleRate: v.num("sample_rate", w.SampleRate),
		IsNew:      v.flag("is_new", w.IsNew),
		IsSummer:   v.flag("is_summer", w.IsSummer),
		IsVidgames: v.flag("is_vidgames", w.IsVidgames),
	}

	prev := [PreviousTrackCount][2]*string{
		{w.PrevTitle1, w.PrevArtist1},
		{w.PrevTitle2, w.PrevArtist2},
		{w.PrevTitle3, w.PrevArtist3},
		{w.PrevTitle4, w.PrevArtist4},
		{w.PrevTitle5, w.PrevArtist5},
	}
	for i, p := range prev {
		n := strconv.Itoa(i + 1)
		doc.Previous[i] = PreviousTrack{
			Title:  v.str("prev_title_"+n, p[0]),
			Artist: v.str("prev_artist_"+n, p[1]),
		}
	}

	if v.missing != "" {
		return Document{}, fmt.Errorf("%w: missing field %q", ErrInvalidDocument, v.missing)
	}
	return doc, nil
}

// validator records the first missing field.
type validator struct {
	missing string
}

func (v *validator) str(name string, p *string) string {
	if p == nil {
		v.miss(name)
		return ""
	}
	return *p
}

func (v *validator) num(name string, p *float64) float64 {
	if p == nil {
		v.miss(name)
		return 0
	}
	return *p
}

func (v *validator) flag(name string, p *bool) bool {
	if p == nil {
		v.miss(name)
		return false
	}
	return *p
}

func (v *validator) miss(name string) {
	if v.missing == "" {
		v.missing = name
	}
}
