// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// VersionService owns the draft/publish lifecycle of route versions.
type VersionService struct {
	store  storage.Store
	logger *logging.Logger
}

// NewVersionService creates a VersionService.
func NewVersionService(store storage.Store, logger *logging.Logger) *VersionService {
	return &VersionService{store: store, logger: logger}
}

// CreateDraft creates a new draft version for the route and repoints the
// route's draft pointer at it. When baseVersionID is set, the draft is
// seeded with that version's structure (used when forking manually);
// otherwise it starts empty.
func (s *VersionService) CreateDraft(ctx context.Context, actor *extensions.AuthInfo, routeID uuid.UUID, baseVersionID *uuid.UUID) (*datatypes.Version, error) {
	var draft *datatypes.Version
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		route, err := tx.GetRouteForUpdate(ctx, routeID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		draft = &datatypes.Version{
			ID:        uuid.New(),
			RouteID:   routeID,
			Status:    datatypes.VersionStatusDraft,
			Languages: map[string]bool{},
			CreatedBy: actor.UserID,
			CreatedAt: nowUTC(),
		}
		if baseVersionID != nil {
			base, err := tx.GetVersion(ctx, *baseVersionID)
			if err != nil {
				return err
			}
			if base.RouteID != routeID {
				return ErrVersionRouteMismatch
			}
			seedDraft(draft, base)
		}

		if err := tx.CreateVersion(ctx, draft); err != nil {
			return err
		}
		route.DraftVersionID = draft.ID
		route.UpdatedAt = nowUTC()
		return tx.UpdateRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft created",
		"route_id", routeID, "version_id", draft.ID, "seeded", baseVersionID != nil)
	return draft, nil
}

// Publish promotes a draft to the route's published version.
//
// Preconditions: the version belongs to the route, is in a mutable
// pre-publish state, references at least one checkpoint, and has at
// least one language marked ready.
//
// The whole promotion is one transaction: the next version number is
// assigned from the route's counter, the prior published version flips
// to superseded, the route's published pointer moves, and a fresh draft
// seeded from the published structure replaces the promoted one. A
// reader can never observe two published versions for a route.
func (s *VersionService) Publish(ctx context.Context, actor *extensions.AuthInfo, routeID, versionID uuid.UUID) (*datatypes.Version, error) {
	var published *datatypes.Version
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		route, err := tx.GetRouteForUpdate(ctx, routeID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		version, err := tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if version.RouteID != routeID {
			return ErrVersionRouteMismatch
		}
		if !version.Status.CanTransitionTo(datatypes.VersionStatusPublished) {
			return ErrVersionNotDraft
		}
		if len(version.Checkpoints) == 0 {
			return ErrNoCheckpoints
		}
		if !anyReady(version.Languages) {
			return ErrNoReadyLanguage
		}

		// Supersede the prior published version, if any.
		if route.PublishedVersionID != nil {
			prev, err := tx.GetVersion(ctx, *route.PublishedVersionID)
			if err != nil {
				return err
			}
			prev.Status = datatypes.VersionStatusSuperseded
			if err := tx.UpdateVersion(ctx, prev); err != nil {
				return err
			}
		}

		now := nowUTC()
		route.VersionSeq++
		version.VersionNo = route.VersionSeq
		version.Status = datatypes.VersionStatusPublished
		version.PublishedAt = &now
		if err := tx.UpdateVersion(ctx, version); err != nil {
			return err
		}

		route.PublishedVersionID = &version.ID
		if route.Status == datatypes.RouteStatusDraft {
			route.Status = datatypes.RouteStatusPublished
		}

		// The promoted version was the route's working draft; replace it
		// with a fresh draft carrying the published structure so editors
		// keep working without mutating the frozen snapshot.
		if route.DraftVersionID == version.ID {
			draft := &datatypes.Version{
				ID:        uuid.New(),
				RouteID:   routeID,
				Status:    datatypes.VersionStatusDraft,
				CreatedBy: actor.UserID,
				CreatedAt: now,
			}
			seedDraft(draft, version)
			if err := tx.CreateVersion(ctx, draft); err != nil {
				return err
			}
			route.DraftVersionID = draft.ID
		}

		route.UpdatedAt = now
		if err := tx.UpdateRoute(ctx, route); err != nil {
			return err
		}
		published = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version published",
		"route_id", routeID, "version_id", published.ID, "version_no", published.VersionNo)
	return published, nil
}

// Get fetches a version by ID.
func (s *VersionService) Get(ctx context.Context, id uuid.UUID) (*datatypes.Version, error) {
	return s.store.GetVersion(ctx, id)
}

// ListByRoute returns the route's versions, newest first.
func (s *VersionService) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*datatypes.Version, error) {
	return s.store.ListVersionsByRoute(ctx, routeID)
}

// EffectiveContent resolves live pool content for a checkpoint as seen
// through a version. The read always hits the pool entry, never a copy:
// content edits are visible through every version immediately while the
// version's structure stays frozen.
func (s *VersionService) EffectiveContent(ctx context.Context, versionID, checkpointID uuid.UUID, lang string) (*datatypes.Content, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !version.References(checkpointID) {
		return nil, ErrCheckpointNotInVersion
	}

	wp, err := s.store.GetWaypoint(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	content := wp.ResolveContent(lang)
	return &content, nil
}

// CheckpointView resolves the checkpoint listing a user sees for a
// route. With an active run the run's locked version applies and the
// full visible list is returned; without one the caller is previewing
// and only free-preview references are included. Hidden references are
// omitted either way.
//
// The requested language is clamped to available_languages before
// content resolves: in-progress translations never reach end users,
// regardless of what the pool already holds.
func (s *VersionService) CheckpointView(ctx context.Context, userID string, routeID uuid.UUID, lang string) (*datatypes.CheckpointView, error) {
	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	versionID := uuid.Nil
	hasRun := false
	if run, err := s.store.GetActiveRun(ctx, userID, routeID); err == nil {
		versionID = run.LockedVersionID
		hasRun = true
	} else if !errors.Is(err, storage.ErrRunNotFound) {
		return nil, err
	} else if route.PublishedVersionID != nil {
		versionID = *route.PublishedVersionID
	} else {
		return nil, ErrRouteNotPublished
	}

	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	waypoints, err := s.store.GetWaypoints(ctx, version.WaypointIDs())
	if err != nil {
		return nil, err
	}

	lang = version.ClampLanguage(lang)
	view := &datatypes.CheckpointView{
		RouteID:            routeID,
		VersionID:          version.ID,
		VersionNo:          version.VersionNo,
		Language:           lang,
		AvailableLanguages: version.AvailableLanguages,
	}
	for _, ref := range version.Checkpoints {
		wp, ok := waypoints[ref.WaypointID]
		if !ok || !ref.IsVisible {
			continue
		}
		if !hasRun && !ref.IsFreePreview {
			continue
		}
		content := datatypes.Content{CheckpointID: wp.ID, Lat: wp.Lat, Lon: wp.Lon}
		if lang != "" {
			content = wp.ResolveContent(lang)
		}
		view.Checkpoints = append(view.Checkpoints, datatypes.CheckpointItem{
			CheckpointID:  ref.WaypointID,
			SeqNo:         ref.SeqNo,
			DisplayLabel:  ref.DisplayLabel,
			IsFreePreview: ref.IsFreePreview,
			Content:       content,
		})
	}
	return view, nil
}

// seedDraft copies structural state from base onto draft.
func seedDraft(draft, base *datatypes.Version) {
	refs, langs := base.CloneStructure()
	draft.Checkpoints = refs
	draft.Languages = langs
	draft.DistanceM = base.DistanceM
	draft.AscentM = base.AscentM
	draft.DescentM = base.DescentM
	draft.DurationMin = base.DurationMin
}

func anyReady(languages map[string]bool) bool {
	for _, ready := range languages {
		if ready {
			return true
		}
	}
	return false
}
