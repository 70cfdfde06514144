// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the domain model for the guide service.
//
// This file contains the checkpoint pool types. Pool entries (waypoints)
// are reusable point-of-interest content shared by reference across route
// versions: an edit to a pool entry is visible through every version that
// lists it. Identity and checkpoint-ness are fixed at creation; only the
// translated content may change afterwards.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// Waypoint is a checkpoint pool entry.
//
// A waypoint's ID and IsCheckpoint flag are immutable after creation.
// The per-language content maps (title, description, audio reference)
// are mutable and shared by every version referencing this entry.
type Waypoint struct {
	// ID is the pool identity. Versions reference waypoints by this ID,
	// and progress records are keyed against it.
	ID uuid.UUID `json:"id" db:"id"`

	// Lat and Lon locate the point of interest (WGS84).
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`

	// IsCheckpoint marks entries that count toward run completion.
	// Immutable after creation. Non-checkpoint entries are narrative-only.
	IsCheckpoint bool `json:"is_checkpoint" db:"is_checkpoint"`

	// TitleI18n maps language code to the checkpoint title.
	TitleI18n map[string]string `json:"title_i18n"`

	// DescriptionI18n maps language code to the long-form description.
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`

	// AudioI18n maps language code to the audio file URL. The engine
	// stores only URLs; content lives in object storage.
	AudioI18n map[string]string `json:"audio_i18n,omitempty"`

	// CreatedBy is the user ID of the editor who created the entry.
	CreatedBy string `json:"created_by" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Content is the resolved public content of a waypoint for one language.
// Built via ResolveContent so that callers always read live pool data.
type Content struct {
	CheckpointID uuid.UUID `json:"checkpoint_id"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	AudioURL     string    `json:"audio_url,omitempty"`
}

// ResolveContent resolves the waypoint's content for the requested
// language, falling back to "en" and then to any available translation.
func (w *Waypoint) ResolveContent(lang string) Content {
	return Content{
		CheckpointID: w.ID,
		Lat:          w.Lat,
		Lon:          w.Lon,
		Title:        ResolveI18n(w.TitleI18n, lang),
		Description:  ResolveI18n(w.DescriptionI18n, lang),
		AudioURL:     ResolveI18n(w.AudioI18n, lang),
	}
}

// HasTitle reports whether the waypoint has a non-empty title for lang.
func (w *Waypoint) HasTitle(lang string) bool {
	return w.TitleI18n[lang] != ""
}

// HasAudio reports whether the waypoint has an audio reference for lang.
func (w *Waypoint) HasAudio(lang string) bool {
	return w.AudioI18n[lang] != ""
}

// HasDescription reports whether the waypoint has a description for lang.
func (w *Waypoint) HasDescription(lang string) bool {
	return w.DescriptionI18n[lang] != ""
}

// ResolveI18n resolves a translation map for the requested language with
// fallback to English and then to any value. Returns "" for empty maps.
func ResolveI18n(m map[string]string, lang string) string {
	if len(m) == 0 {
		return ""
	}
	if v := m[lang]; v != "" {
		return v
	}
	if v := m["en"]; v != "" {
		return v
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}
