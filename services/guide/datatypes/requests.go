// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains request and response bodies for the guide HTTP
// surface, with validation via a shared validator instance.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/pkg/validation"
)

// MaxSyncUpdates caps one batch sync call. Clients with more pending
// updates split them across calls.
const MaxSyncUpdates = 500

// guideValidate is the shared validator instance for guide datatypes.
var guideValidate *validator.Validate

func init() {
	guideValidate = validator.New()
	_ = guideValidate.RegisterValidation("langcode", validateLangCode)
}

// validateLangCode validates a BCP-47 primary language subtag field.
func validateLangCode(fl validator.FieldLevel) bool {
	return validation.ValidateLanguageCode(fl.Field().String()) == nil
}

// =============================================================================
// Public Requests
// =============================================================================

// StartRunRequest is the optional body of POST /routes/:routeId/start.
type StartRunRequest struct {
	// Simulation marks an editor test run excluded from analytics.
	Simulation bool `json:"simulation"`
}

// VisitedRequest is the body of POST /checkpoints/:id/visited.
type VisitedRequest struct {
	// VisitedAt is the device-side visit time. Defaults to server time.
	VisitedAt *time.Time `json:"visited_at,omitempty"`
}

// AudioStatusRequest is the body of POST /checkpoints/:id/audio-status.
type AudioStatusRequest struct {
	Status    AudioStatus `json:"status" validate:"required,oneof=started completed"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

// Validate checks the request against its validation tags.
func (r *AudioStatusRequest) Validate() error {
	return guideValidate.Struct(r)
}

// SyncRequest is the body of POST /progress/sync: a batch of offline
// checkpoint reports for one route.
type SyncRequest struct {
	RouteID uuid.UUID        `json:"route_id" validate:"required"`
	Updates []ProgressReport `json:"updates" validate:"required,min=1,max=500,dive"`
}

// Validate checks the request against its validation tags.
func (r *SyncRequest) Validate() error {
	return guideValidate.Struct(r)
}

// SyncResponse reports the outcome of a batch sync. Stale or duplicate
// updates are not failures; they surface only in the ignored count.
type SyncResponse struct {
	SyncedCount   int              `json:"synced_count"`
	IgnoredCount  int              `json:"ignored_count"`
	Conflicts     []uuid.UUID      `json:"conflicts,omitempty"`
	RouteProgress *RouteProgress   `json:"route_progress,omitempty"`
	Checkpoints   []ProgressRecord `json:"checkpoints,omitempty"`
}

// =============================================================================
// Admin Requests
// =============================================================================

// RouteCreateRequest is the body of POST /admin/routes.
type RouteCreateRequest struct {
	Slug   string `json:"slug" validate:"required,min=1,max=120"`
	CityID int    `json:"city_id" validate:"required,gt=0"`
}

// Validate checks the request against its validation tags.
func (r *RouteCreateRequest) Validate() error {
	return guideValidate.Struct(r)
}

// RouteUpdateRequest is the body of PATCH /admin/routes/:routeId.
type RouteUpdateRequest struct {
	Slug     *string `json:"slug,omitempty" validate:"omitempty,min=1,max=120"`
	Archived *bool   `json:"archived,omitempty"`
}

// Validate checks the request against its validation tags.
func (r *RouteUpdateRequest) Validate() error {
	return guideValidate.Struct(r)
}

// WaypointCreateRequest is the body of POST /admin/waypoints.
type WaypointCreateRequest struct {
	Lat             float64           `json:"lat" validate:"gte=-90,lte=90"`
	Lon             float64           `json:"lon" validate:"gte=-180,lte=180"`
	IsCheckpoint    *bool             `json:"is_checkpoint,omitempty"`
	TitleI18n       map[string]string `json:"title_i18n" validate:"required,min=1"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	AudioI18n       map[string]string `json:"audio_i18n,omitempty"`
}

// Validate checks the request against its validation tags and verifies
// every language key in the translation maps.
func (r *WaypointCreateRequest) Validate() error {
	if err := guideValidate.Struct(r); err != nil {
		return err
	}
	return validateI18nKeys(r.TitleI18n, r.DescriptionI18n, r.AudioI18n)
}

// CheckpointEditRequest is the body of PATCH /admin/checkpoints/:id.
// All fields are content-level; structural membership changes go through
// the dedicated add/remove endpoints.
type CheckpointEditRequest struct {
	TitleI18n       map[string]string `json:"title_i18n,omitempty"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	AudioI18n       map[string]string `json:"audio_i18n,omitempty"`

	// Structural-attribute changes on the referencing version. These are
	// content-only per the gate's classification.
	VersionID     *uuid.UUID `json:"version_id,omitempty"`
	DisplayLabel  *string    `json:"display_label,omitempty"`
	IsVisible     *bool      `json:"is_visible,omitempty"`
	IsFreePreview *bool      `json:"is_free_preview,omitempty"`
}

// Validate verifies every language key in the translation maps.
func (r *CheckpointEditRequest) Validate() error {
	return validateI18nKeys(r.TitleI18n, r.DescriptionI18n, r.AudioI18n)
}

// StructuralAddRequest is the body of POST /admin/versions/:id/checkpoints.
type StructuralAddRequest struct {
	WaypointID uuid.UUID `json:"waypoint_id" validate:"required"`

	// SeqNo inserts at a position; nil appends.
	SeqNo *int `json:"seq_no,omitempty" validate:"omitempty,gte=0"`

	// DisplayLabel and IsFreePreview seed the new reference's
	// non-structural attributes.
	DisplayLabel  string `json:"display_label,omitempty"`
	IsFreePreview bool   `json:"is_free_preview"`

	// ConfirmStructureChange acknowledges forking a published version.
	ConfirmStructureChange bool `json:"confirm_structure_change"`
}

// Validate checks the request against its validation tags.
func (r *StructuralAddRequest) Validate() error {
	return guideValidate.Struct(r)
}

// ReorderRequest is the body of PUT /admin/versions/:versionId/checkpoints.
// Order must be a full permutation of the version's current checkpoint
// IDs.
type ReorderRequest struct {
	Order []uuid.UUID `json:"order" validate:"required,min=1"`

	// ConfirmStructureChange acknowledges forking a published version.
	ConfirmStructureChange bool `json:"confirm_structure_change"`
}

// Validate checks the request against its validation tags.
func (r *ReorderRequest) Validate() error {
	return guideValidate.Struct(r)
}

// PublishRequest is the body of POST /admin/routes/:routeId/publish.
type PublishRequest struct {
	VersionID uuid.UUID `json:"version_id" validate:"required"`
}

// Validate checks the request against its validation tags.
func (r *PublishRequest) Validate() error {
	return guideValidate.Struct(r)
}

// LanguageReadyRequest is the body of POST /admin/versions/:id/languages.
type LanguageReadyRequest struct {
	LanguageCode string `json:"language_code" validate:"required,langcode"`
	Ready        bool   `json:"ready"`
}

// Validate checks the request against its validation tags.
func (r *LanguageReadyRequest) Validate() error {
	return guideValidate.Struct(r)
}

// VersionCreateRequest is the body of POST /admin/routes/:id/versions.
type VersionCreateRequest struct {
	// BaseVersionID seeds the draft from an existing version's structure;
	// nil starts empty.
	BaseVersionID *uuid.UUID `json:"base_version_id,omitempty"`
}

// validateI18nKeys checks every key of the given translation maps.
func validateI18nKeys(maps ...map[string]string) error {
	for _, m := range maps {
		for lang := range m {
			if err := validation.ValidateLanguageCode(lang); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// Responses
// =============================================================================

// LanguageCompleteness reports per-language content coverage across a
// version's checkpoints. IsComplete requires title and audio on every
// checkpoint; description coverage is informative only.
type LanguageCompleteness struct {
	Language        string      `json:"language"`
	Total           int         `json:"total"`
	WithTitle       int         `json:"with_title"`
	WithAudio       int         `json:"with_audio"`
	WithDescription int         `json:"with_description"`
	IsComplete      bool        `json:"is_complete"`
	Missing         []uuid.UUID `json:"missing,omitempty"`
}

// StructureConflict is the 409 body returned when a structural edit hits
// a published version without confirmation.
type StructureConflict struct {
	Code               string `json:"code"`
	Message            string `json:"message"`
	AffectedUsersCount int    `json:"affected_users_count"`
}
