// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/pkg/validation"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// LanguageService owns per-language readiness and public availability.
//
// Readiness (the editorial map) and availability (the public subset)
// are deliberately separate: editors flip readiness freely, but a
// language reaches end users only through PublishLanguage, which gates
// on content completeness.
type LanguageService struct {
	store  storage.Store
	logger *logging.Logger
}

// NewLanguageService creates a LanguageService.
func NewLanguageService(store storage.Store, logger *logging.Logger) *LanguageService {
	return &LanguageService{store: store, logger: logger}
}

// MarkReady flips the readiness flag for a language on a version.
// Readiness is content-level, so this is allowed on published versions.
// Marking a published language not-ready also withdraws it from
// available_languages.
func (s *LanguageService) MarkReady(ctx context.Context, actor *extensions.AuthInfo, versionID uuid.UUID, lang string, ready bool) (*datatypes.Version, error) {
	lang, err := validation.SanitizeLanguageCode(lang)
	if err != nil {
		return nil, err
	}

	var version *datatypes.Version
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		version, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		route, err := tx.GetRoute(ctx, version.RouteID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		if version.Languages == nil {
			version.Languages = map[string]bool{}
		}
		version.Languages[lang] = ready
		if !ready {
			version.AvailableLanguages = removeLang(version.AvailableLanguages, lang)
		}
		return tx.UpdateVersion(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("language readiness updated",
		"version_id", versionID, "language", lang, "ready", ready)
	return version, nil
}

// Completeness computes per-language content coverage across the
// version's checkpoint references. IsComplete requires every referenced
// checkpoint to carry both a title and an audio reference for the
// language; descriptions are counted but never gate.
func (s *LanguageService) Completeness(ctx context.Context, versionID uuid.UUID, lang string) (*datatypes.LanguageCompleteness, error) {
	lang, err := validation.SanitizeLanguageCode(lang)
	if err != nil {
		return nil, err
	}
	return completeness(ctx, s.store, versionID, lang)
}

// completeness computes the report against one store view so callers
// inside a transaction see the same content they are about to publish.
func completeness(ctx context.Context, store storage.Store, versionID uuid.UUID, lang string) (*datatypes.LanguageCompleteness, error) {
	version, err := store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	waypoints, err := store.GetWaypoints(ctx, version.WaypointIDs())
	if err != nil {
		return nil, err
	}

	report := &datatypes.LanguageCompleteness{Language: lang}
	for _, ref := range version.Checkpoints {
		wp, ok := waypoints[ref.WaypointID]
		if !ok || !wp.IsCheckpoint {
			continue
		}
		report.Total++
		hasTitle := wp.HasTitle(lang)
		hasAudio := wp.HasAudio(lang)
		if hasTitle {
			report.WithTitle++
		}
		if hasAudio {
			report.WithAudio++
		}
		if wp.HasDescription(lang) {
			report.WithDescription++
		}
		if !hasTitle || !hasAudio {
			report.Missing = append(report.Missing, wp.ID)
		}
	}
	report.IsComplete = report.Total > 0 && len(report.Missing) == 0
	return report, nil
}

// PublishLanguage exposes a language to end users. Fails with
// ErrLanguageIncomplete unless every checkpoint has both title and
// audio for it. Publishing also marks the language ready, keeping
// available_languages a subset of the ready set.
//
// The completeness check runs in the same transaction as the
// available_languages write, so a concurrent content edit cannot slip
// an incomplete language past the gate.
func (s *LanguageService) PublishLanguage(ctx context.Context, actor *extensions.AuthInfo, versionID uuid.UUID, lang string) (*datatypes.Version, error) {
	lang, err := validation.SanitizeLanguageCode(lang)
	if err != nil {
		return nil, err
	}

	var version *datatypes.Version
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		version, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		route, err := tx.GetRoute(ctx, version.RouteID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		report, err := completeness(ctx, tx, versionID, lang)
		if err != nil {
			return err
		}
		if !report.IsComplete {
			return ErrLanguageIncomplete
		}

		if version.Languages == nil {
			version.Languages = map[string]bool{}
		}
		version.Languages[lang] = true
		if !version.LanguageAvailable(lang) {
			version.AvailableLanguages = append(version.AvailableLanguages, lang)
			sort.Strings(version.AvailableLanguages)
		}
		return tx.UpdateVersion(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("language published", "version_id", versionID, "language", lang)
	return version, nil
}

// UnpublishLanguage withdraws a language from public exposure
// unconditionally. The readiness flag is untouched.
func (s *LanguageService) UnpublishLanguage(ctx context.Context, actor *extensions.AuthInfo, versionID uuid.UUID, lang string) (*datatypes.Version, error) {
	lang, err := validation.SanitizeLanguageCode(lang)
	if err != nil {
		return nil, err
	}

	var version *datatypes.Version
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		version, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		route, err := tx.GetRoute(ctx, version.RouteID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		version.AvailableLanguages = removeLang(version.AvailableLanguages, lang)
		return tx.UpdateVersion(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("language unpublished", "version_id", versionID, "language", lang)
	return version, nil
}

func removeLang(langs []string, lang string) []string {
	out := langs[:0]
	for _, l := range langs {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}
