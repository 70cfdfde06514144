// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the route and version types together with their
// status state machines. Statuses are closed enumerations with explicit
// transition tables; every mutating operation checks the table at its
// boundary instead of assigning status fields freely.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Route Status
// =============================================================================

// RouteStatus is the lifecycle status of a route product entity.
type RouteStatus string

const (
	// RouteStatusDraft is the initial status: no version published yet.
	RouteStatusDraft RouteStatus = "draft"

	// RouteStatusPublished means the route has a published version and is
	// publicly listed.
	RouteStatusPublished RouteStatus = "published"

	// RouteStatusArchived removes the route from public listings. Routes
	// are never hard-deleted; archival is the terminal flag.
	RouteStatusArchived RouteStatus = "archived"
)

// routeTransitions is the closed set of legal route status transitions.
var routeTransitions = map[RouteStatus][]RouteStatus{
	RouteStatusDraft:     {RouteStatusPublished, RouteStatusArchived},
	RouteStatusPublished: {RouteStatusArchived},
	RouteStatusArchived:  {},
}

// CanTransitionTo reports whether the status may move to next.
func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	for _, t := range routeTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known route status.
func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusDraft, RouteStatusPublished, RouteStatusArchived:
		return true
	}
	return false
}

// =============================================================================
// Version Status
// =============================================================================

// VersionStatus is the lifecycle status of a route version snapshot.
type VersionStatus string

const (
	// VersionStatusDraft is mutable working state.
	VersionStatusDraft VersionStatus = "draft"

	// VersionStatusReview is a draft parked for editorial review.
	VersionStatusReview VersionStatus = "review"

	// VersionStatusPublished is the immutable live state. Structure is
	// frozen; only content reached through the checkpoint pool changes.
	VersionStatusPublished VersionStatus = "published"

	// VersionStatusSuperseded marks a previously published version that
	// was replaced by a newer publish for the same route.
	VersionStatusSuperseded VersionStatus = "superseded"
)

// versionTransitions is the closed set of legal version status moves.
// draft -> published is the only path into the published state, and
// published -> superseded happens only when a newer version publishes.
var versionTransitions = map[VersionStatus][]VersionStatus{
	VersionStatusDraft:      {VersionStatusReview, VersionStatusPublished},
	VersionStatusReview:     {VersionStatusDraft, VersionStatusPublished},
	VersionStatusPublished:  {VersionStatusSuperseded},
	VersionStatusSuperseded: {},
}

// CanTransitionTo reports whether the status may move to next.
func (s VersionStatus) CanTransitionTo(next VersionStatus) bool {
	for _, t := range versionTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Mutable reports whether structural edits may be applied in place.
func (s VersionStatus) Mutable() bool {
	return s == VersionStatusDraft || s == VersionStatusReview
}

// =============================================================================
// Route
// =============================================================================

// Route is the product entity owning a chain of versions.
//
// A route has at most one published version and exactly one draft version
// at any time. The published pointer is nullable so the route can be
// created before its first version exists (the two entities reference
// each other; the route side carries the nullable foreign key).
type Route struct {
	ID     uuid.UUID   `json:"id" db:"id"`
	Slug   string      `json:"slug" db:"slug"`
	CityID int         `json:"city_id" db:"city_id"`
	Status RouteStatus `json:"status" db:"status"`

	// PublishedVersionID points at the currently published version, or
	// nil before the first publish.
	PublishedVersionID *uuid.UUID `json:"published_version_id,omitempty" db:"published_version_id"`

	// DraftVersionID points at the current working draft. Never nil once
	// the route is fully created.
	DraftVersionID uuid.UUID `json:"draft_version_id" db:"draft_version_id"`

	// VersionSeq is the monotonically increasing version counter owned by
	// the route. Publish assigns VersionSeq+1 to the promoted version.
	VersionSeq int `json:"version_seq" db:"version_seq"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether the route was created by the given user.
// Editors may structurally edit only routes they own; admins bypass this.
func (r *Route) OwnedBy(userID string) bool {
	return r.CreatedBy == userID
}

// =============================================================================
// Version
// =============================================================================

// CheckpointRef is one ordered structural reference from a version into
// the checkpoint pool. Structural attributes live here; content lives on
// the pool entry.
type CheckpointRef struct {
	// WaypointID is the referenced pool entry.
	WaypointID uuid.UUID `json:"waypoint_id" db:"waypoint_id"`

	// SeqNo is the position within the version's ordered list.
	SeqNo int `json:"seq_no" db:"seq_no"`

	// DisplayLabel is the optional label shown on the map ("12a").
	// Non-structural: may change on a published version.
	DisplayLabel string `json:"display_label,omitempty" db:"display_label"`

	// IsVisible hides a reference from clients without removing it.
	// Non-structural.
	IsVisible bool `json:"is_visible" db:"is_visible"`

	// IsFreePreview exposes this checkpoint to users without a run.
	// Non-structural.
	IsFreePreview bool `json:"is_free_preview" db:"is_free_preview"`
}

// Version is one snapshot of a route. Once published, the ordered
// reference list is frozen forever; content edits flow through the pool.
type Version struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	RouteID   uuid.UUID     `json:"route_id" db:"route_id"`
	VersionNo int           `json:"version_no" db:"version_no"`
	Status    VersionStatus `json:"status" db:"status"`

	// Checkpoints is the ordered structural reference list into the pool.
	Checkpoints []CheckpointRef `json:"checkpoints"`

	// Precomputed geometry metrics for the whole route.
	DistanceM   int `json:"distance_m" db:"distance_m"`
	AscentM     int `json:"ascent_m" db:"ascent_m"`
	DescentM    int `json:"descent_m" db:"descent_m"`
	DurationMin int `json:"duration_min" db:"duration_min"`

	// Languages is the per-language readiness map maintained by editors.
	// This is editorial state and is never exposed to end users.
	Languages map[string]bool `json:"languages"`

	// AvailableLanguages is the subset of ready languages exposed
	// publicly. A language enters this list only through an explicit
	// publish-language call that passed the completeness check.
	AvailableLanguages []string `json:"available_languages"`

	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Ref returns the reference to the given pool entry, or nil when the
// version does not list it.
func (v *Version) Ref(waypointID uuid.UUID) *CheckpointRef {
	for i := range v.Checkpoints {
		if v.Checkpoints[i].WaypointID == waypointID {
			return &v.Checkpoints[i]
		}
	}
	return nil
}

// References reports whether the version lists the pool entry.
func (v *Version) References(waypointID uuid.UUID) bool {
	return v.Ref(waypointID) != nil
}

// WaypointIDs returns the referenced pool IDs in sequence order.
func (v *Version) WaypointIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(v.Checkpoints))
	for i, ref := range v.Checkpoints {
		ids[i] = ref.WaypointID
	}
	return ids
}

// LanguageAvailable reports whether lang is publicly exposed.
func (v *Version) LanguageAvailable(lang string) bool {
	for _, l := range v.AvailableLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// ClampLanguage restricts a requested language to the publicly exposed
// set: the request wins when available, then "en", then the first
// available language. Returns "" when the version exposes no languages.
func (v *Version) ClampLanguage(lang string) string {
	if v.LanguageAvailable(lang) {
		return lang
	}
	if v.LanguageAvailable("en") {
		return "en"
	}
	if len(v.AvailableLanguages) > 0 {
		return v.AvailableLanguages[0]
	}
	return ""
}

// CloneStructure returns a deep copy of the version's structural state
// (reference list, metrics, readiness map) for seeding a forked draft.
// The copy shares nothing with the receiver.
func (v *Version) CloneStructure() ([]CheckpointRef, map[string]bool) {
	refs := make([]CheckpointRef, len(v.Checkpoints))
	copy(refs, v.Checkpoints)
	langs := make(map[string]bool, len(v.Languages))
	for l, ready := range v.Languages {
		langs[l] = ready
	}
	return refs, langs
}
