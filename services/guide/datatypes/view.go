// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// VersionSummary is the public projection of a published version:
// identity, route metrics, and the languages end users may request.
// The editorial readiness map and checkpoint structure stay on the
// admin surface.
type VersionSummary struct {
	ID        uuid.UUID `json:"id"`
	RouteID   uuid.UUID `json:"route_id"`
	VersionNo int       `json:"version_no"`

	CheckpointCount int `json:"checkpoint_count"`

	DistanceM   int `json:"distance_m"`
	AscentM     int `json:"ascent_m"`
	DescentM    int `json:"descent_m"`
	DurationMin int `json:"duration_min"`

	AvailableLanguages []string   `json:"available_languages"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
}

// Summary builds the public projection. CheckpointCount counts visible
// references only.
func (v *Version) Summary() VersionSummary {
	count := 0
	for _, ref := range v.Checkpoints {
		if ref.IsVisible {
			count++
		}
	}
	return VersionSummary{
		ID:                 v.ID,
		RouteID:            v.RouteID,
		VersionNo:          v.VersionNo,
		CheckpointCount:    count,
		DistanceM:          v.DistanceM,
		AscentM:            v.AscentM,
		DescentM:           v.DescentM,
		DurationMin:        v.DurationMin,
		AvailableLanguages: v.AvailableLanguages,
		PublishedAt:        v.PublishedAt,
	}
}

// CheckpointItem is one entry in a resolved checkpoint listing: the
// reference attributes from the version joined with pool content
// resolved for one language.
type CheckpointItem struct {
	CheckpointID  uuid.UUID `json:"checkpoint_id"`
	SeqNo         int       `json:"seq_no"`
	DisplayLabel  string    `json:"display_label,omitempty"`
	IsFreePreview bool      `json:"is_free_preview"`
	Content       Content   `json:"content"`
}

// CheckpointView is the checkpoint listing a client sees for a route,
// pinned to the version that applies to them.
type CheckpointView struct {
	RouteID            uuid.UUID        `json:"route_id"`
	VersionID          uuid.UUID        `json:"version_id"`
	VersionNo          int              `json:"version_no"`
	Language           string           `json:"language"`
	AvailableLanguages []string         `json:"available_languages"`
	Checkpoints        []CheckpointItem `json:"checkpoints"`
}
