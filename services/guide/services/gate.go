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

// StructuralOp is a membership operation on a version's reference list.
type StructuralOp string

const (
	StructuralAdd     StructuralOp = "add"
	StructuralRemove  StructuralOp = "remove"
	StructuralReorder StructuralOp = "reorder"
)

// StructuralEdit is one membership change.
type StructuralEdit struct {
	Op StructuralOp

	// WaypointID targets add and remove.
	WaypointID uuid.UUID

	// SeqNo inserts at a position for add; nil appends.
	SeqNo *int

	// NonStructural attributes applied to the new reference on add.
	DisplayLabel  string
	IsVisible     bool
	IsFreePreview bool

	// Order is the full waypoint ID permutation for reorder.
	Order []uuid.UUID
}

// Gate is the structural change gate. Classification follows the entry
// point: a CheckpointEditRequest is content-level by construction and
// goes through ApplyContent in place; membership changes arrive as a
// StructuralEdit through ApplyStructural, where published versions are
// protected.
type Gate struct {
	store  storage.Store
	logger *logging.Logger
}

// NewGate creates a Gate.
func NewGate(store storage.Store, logger *logging.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// ApplyContent applies a content-only edit. Pool content merges onto
// the waypoint, where every referencing version sees it immediately.
// Reference-attribute changes (label, visibility, free preview) apply to
// the named version even when it is published; they are not structural.
func (g *Gate) ApplyContent(ctx context.Context, actor *extensions.AuthInfo, waypointID uuid.UUID, req datatypes.CheckpointEditRequest) (*datatypes.Waypoint, error) {
	var wp *datatypes.Waypoint
	err := g.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		wp, err = tx.GetWaypoint(ctx, waypointID)
		if err != nil {
			return err
		}

		wp.TitleI18n = mergeI18n(wp.TitleI18n, req.TitleI18n)
		wp.DescriptionI18n = mergeI18n(wp.DescriptionI18n, req.DescriptionI18n)
		wp.AudioI18n = mergeI18n(wp.AudioI18n, req.AudioI18n)
		wp.UpdatedAt = nowUTC()
		if err := tx.UpdateWaypoint(ctx, wp); err != nil {
			return err
		}

		if req.VersionID == nil {
			return nil
		}
		return g.applyRefAttrs(ctx, tx, actor, waypointID, req)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("content edit applied", "waypoint_id", waypointID, "edited_by", actor.UserID)
	return wp, nil
}

// applyRefAttrs updates non-structural attributes on one version's
// reference to the waypoint.
func (g *Gate) applyRefAttrs(ctx context.Context, tx storage.Store, actor *extensions.AuthInfo, waypointID uuid.UUID, req datatypes.CheckpointEditRequest) error {
	version, err := tx.GetVersion(ctx, *req.VersionID)
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

	ref := version.Ref(waypointID)
	if ref == nil {
		return ErrCheckpointNotInVersion
	}
	if req.DisplayLabel != nil {
		ref.DisplayLabel = *req.DisplayLabel
	}
	if req.IsVisible != nil {
		ref.IsVisible = *req.IsVisible
	}
	if req.IsFreePreview != nil {
		ref.IsFreePreview = *req.IsFreePreview
	}
	return tx.UpdateVersion(ctx, version)
}

// ApplyStructural applies a membership edit to a version.
//
// Draft and review versions mutate in place. A published version is
// never mutated: without confirm the call fails with a
// *StructureChangeError carrying the number of active runs locked to
// the version; with confirm the gate forks a new draft seeded from the
// published structure, applies the edit there, and repoints the route's
// draft pointer — all in the transaction that computed the count. The
// returned bool reports whether a fork happened.
func (g *Gate) ApplyStructural(ctx context.Context, actor *extensions.AuthInfo, versionID uuid.UUID, edit StructuralEdit, confirm bool) (*datatypes.Version, bool, error) {
	var result *datatypes.Version
	forked := false

	err := g.store.WithTx(ctx, func(tx storage.Store) error {
		version, err := tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		route, err := tx.GetRouteForUpdate(ctx, version.RouteID)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		if version.Status.Mutable() {
			if err := applyMembership(version, edit); err != nil {
				return err
			}
			result = version
			return tx.UpdateVersion(ctx, version)
		}

		if version.Status != datatypes.VersionStatusPublished {
			return ErrVersionNotDraft
		}

		activeRuns, err := tx.CountActiveRunsByVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if !confirm {
			return &StructureChangeError{ActiveRuns: activeRuns}
		}

		draft := &datatypes.Version{
			ID:        uuid.New(),
			RouteID:   version.RouteID,
			Status:    datatypes.VersionStatusDraft,
			CreatedBy: actor.UserID,
			CreatedAt: nowUTC(),
		}
		seedDraft(draft, version)
		if err := applyMembership(draft, edit); err != nil {
			return err
		}
		if err := tx.CreateVersion(ctx, draft); err != nil {
			return err
		}

		route.DraftVersionID = draft.ID
		route.UpdatedAt = nowUTC()
		if err := tx.UpdateRoute(ctx, route); err != nil {
			return err
		}

		result = draft
		forked = true
		return nil
	})
	if err != nil {
		var conflict *StructureChangeError
		if errors.As(err, &conflict) {
			g.logger.Warn("structural edit blocked",
				"version_id", versionID, "active_runs", conflict.ActiveRuns)
		}
		return nil, false, err
	}

	g.logger.Info("structural edit applied",
		"version_id", versionID, "op", edit.Op, "forked", forked, "result_version_id", result.ID)
	return result, forked, nil
}

// applyMembership mutates the reference list for one structural op and
// resequences positions to 1..n.
func applyMembership(version *datatypes.Version, edit StructuralEdit) error {
	switch edit.Op {
	case StructuralAdd:
		if version.References(edit.WaypointID) {
			return ErrDuplicateCheckpoint
		}
		ref := datatypes.CheckpointRef{
			WaypointID:    edit.WaypointID,
			DisplayLabel:  edit.DisplayLabel,
			IsVisible:     edit.IsVisible,
			IsFreePreview: edit.IsFreePreview,
		}
		if edit.SeqNo == nil || *edit.SeqNo > len(version.Checkpoints) {
			version.Checkpoints = append(version.Checkpoints, ref)
		} else {
			pos := *edit.SeqNo
			if pos < 1 {
				pos = 1
			}
			i := pos - 1
			version.Checkpoints = append(version.Checkpoints[:i],
				append([]datatypes.CheckpointRef{ref}, version.Checkpoints[i:]...)...)
		}

	case StructuralRemove:
		if !version.References(edit.WaypointID) {
			return ErrCheckpointNotInVersion
		}
		refs := version.Checkpoints[:0]
		for _, ref := range version.Checkpoints {
			if ref.WaypointID != edit.WaypointID {
				refs = append(refs, ref)
			}
		}
		version.Checkpoints = refs

	case StructuralReorder:
		if len(edit.Order) != len(version.Checkpoints) {
			return ErrCheckpointNotInVersion
		}
		byID := make(map[uuid.UUID]datatypes.CheckpointRef, len(version.Checkpoints))
		for _, ref := range version.Checkpoints {
			byID[ref.WaypointID] = ref
		}
		reordered := make([]datatypes.CheckpointRef, 0, len(edit.Order))
		for _, id := range edit.Order {
			ref, ok := byID[id]
			if !ok {
				return ErrCheckpointNotInVersion
			}
			delete(byID, id)
			reordered = append(reordered, ref)
		}
		version.Checkpoints = reordered
	}

	resequence(version.Checkpoints)
	return nil
}

// mergeI18n folds src onto dst per language key. An empty value removes
// the key; untouched languages keep their content.
func mergeI18n(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for lang, v := range src {
		if v == "" {
			delete(dst, lang)
			continue
		}
		dst[lang] = v
	}
	return dst
}

// resequence rewrites SeqNo to the 1-based list position.
func resequence(refs []datatypes.CheckpointRef) {
	for i := range refs {
		refs[i].SeqNo = i + 1
	}
}
