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

	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// ProgressService reconciles client-reported checkpoint progress into
// the per-user state table. All merges go through the same monotonic
// rules: visited never un-sets, audio status never moves backward.
// Progress is keyed by pool checkpoint ID, so it survives version
// forks untouched.
type ProgressService struct {
	store  storage.Store
	logger *logging.Logger
	runs   *RunService
}

// NewProgressService creates a ProgressService.
func NewProgressService(store storage.Store, logger *logging.Logger, runs *RunService) *ProgressService {
	return &ProgressService{store: store, logger: logger, runs: runs}
}

// ReportVisited records a visit for one checkpoint. Reporting visited
// again is a no-op that keeps the original visit timestamp. Any active
// run whose locked version references the checkpoint is checked for
// automatic completion in the same transaction.
func (s *ProgressService) ReportVisited(ctx context.Context, userID string, checkpointID uuid.UUID, req datatypes.VisitedRequest) (*datatypes.ProgressRecord, error) {
	visited := true
	report := datatypes.ProgressReport{
		CheckpointID: checkpointID,
		Visited:      &visited,
		VisitedAt:    req.VisitedAt,
	}
	return s.report(ctx, userID, report)
}

// ReportAudio records an audio playback status for one checkpoint.
// Downgrades are ignored; a repeat of the current status refreshes its
// timestamp when the report is newer.
func (s *ProgressService) ReportAudio(ctx context.Context, userID string, checkpointID uuid.UUID, req datatypes.AudioStatusRequest) (*datatypes.ProgressRecord, error) {
	report := datatypes.ProgressReport{
		CheckpointID: checkpointID,
		AudioStatus:  &req.Status,
		Timestamp:    req.Timestamp,
	}
	return s.report(ctx, userID, report)
}

func (s *ProgressService) report(ctx context.Context, userID string, report datatypes.ProgressReport) (*datatypes.ProgressRecord, error) {
	if _, err := s.store.GetWaypoint(ctx, report.CheckpointID); err != nil {
		return nil, err
	}

	var record *datatypes.ProgressRecord
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		record, err = s.mergeOne(ctx, tx, userID, report)
		if err != nil {
			return err
		}
		return s.autoComplete(ctx, tx, userID, []uuid.UUID{report.CheckpointID})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// mergeOne loads (or creates) the user's record for the checkpoint,
// merges the report, and persists only when something changed.
func (s *ProgressService) mergeOne(ctx context.Context, tx storage.Store, userID string, report datatypes.ProgressReport) (*datatypes.ProgressRecord, error) {
	now := nowUTC()
	record, err := tx.GetProgressForUpdate(ctx, userID, report.CheckpointID)
	if err != nil {
		if !errors.Is(err, storage.ErrProgressNotFound) {
			return nil, err
		}
		record = datatypes.NewProgressRecord(userID, report.CheckpointID, now)
	}

	if record.Merge(report, now) {
		if err := tx.UpsertProgress(ctx, record); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Sync applies a batch of offline reports for one route in a single
// transaction. Every report goes through the same merge rules as the
// single-report endpoints; the response separates applied from ignored
// so clients can tell a clean replay from a stale one.
//
// Reports for checkpoints the effective version does not reference are
// rejected as conflicts, not merged: a client syncing against a forked
// route learns which of its checkpoints no longer exist.
func (s *ProgressService) Sync(ctx context.Context, userID string, routeID uuid.UUID, req datatypes.SyncRequest) (*datatypes.SyncResponse, error) {
	var resp *datatypes.SyncResponse
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		route, err := tx.GetRoute(ctx, routeID)
		if err != nil {
			return err
		}

		version, run, err := s.effectiveVersion(ctx, tx, userID, route)
		if err != nil {
			return err
		}

		known := make(map[uuid.UUID]bool, len(version.Checkpoints))
		for _, ref := range version.Checkpoints {
			known[ref.WaypointID] = true
		}

		resp = &datatypes.SyncResponse{}
		var touched []uuid.UUID
		for _, report := range req.Updates {
			if !known[report.CheckpointID] {
				resp.Conflicts = append(resp.Conflicts, report.CheckpointID)
				continue
			}

			now := nowUTC()
			record, err := tx.GetProgressForUpdate(ctx, userID, report.CheckpointID)
			if err != nil {
				if !errors.Is(err, storage.ErrProgressNotFound) {
					return err
				}
				record = datatypes.NewProgressRecord(userID, report.CheckpointID, now)
			}
			if !record.Merge(report, now) {
				resp.IgnoredCount++
				continue
			}
			if err := tx.UpsertProgress(ctx, record); err != nil {
				return err
			}
			resp.SyncedCount++
			touched = append(touched, report.CheckpointID)
		}

		if run != nil && len(touched) > 0 {
			if _, err := s.runs.maybeCompleteAutomatic(ctx, tx, run); err != nil {
				return err
			}
		}

		return s.fillState(ctx, tx, userID, version, run, resp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("progress synced",
		"user_id", userID, "route_id", routeID,
		"synced", resp.SyncedCount, "ignored", resp.IgnoredCount,
		"conflicts", len(resp.Conflicts))
	return resp, nil
}

// effectiveVersion resolves the version a user's reports are judged
// against: the active run's locked version when one exists, otherwise
// the route's published version.
func (s *ProgressService) effectiveVersion(ctx context.Context, tx storage.Store, userID string, route *datatypes.Route) (*datatypes.Version, *datatypes.Run, error) {
	run, err := tx.GetActiveRun(ctx, userID, route.ID)
	if err != nil && !errors.Is(err, storage.ErrRunNotFound) {
		return nil, nil, err
	}

	versionID := uuid.Nil
	if run != nil {
		versionID = run.LockedVersionID
	} else if route.PublishedVersionID != nil {
		versionID = *route.PublishedVersionID
	} else {
		return nil, nil, ErrRouteNotPublished
	}

	version, err := tx.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	return version, run, nil
}

// fillState attaches the authoritative post-merge state to the sync
// response: the recomputed route progress (when a run exists) and the
// full set of progress records for the effective version.
func (s *ProgressService) fillState(ctx context.Context, tx storage.Store, userID string, version *datatypes.Version, run *datatypes.Run, resp *datatypes.SyncResponse) error {
	if run != nil {
		progress, err := s.runs.progressIn(ctx, tx, run)
		if err != nil {
			return err
		}
		resp.RouteProgress = progress
	}

	records, err := tx.ListProgress(ctx, userID, version.WaypointIDs())
	if err != nil {
		return err
	}
	for _, ref := range version.Checkpoints {
		if rec, ok := records[ref.WaypointID]; ok {
			resp.Checkpoints = append(resp.Checkpoints, *rec)
		}
	}
	return nil
}

// Get returns the user's record for one checkpoint.
func (s *ProgressService) Get(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return s.store.GetProgress(ctx, userID, checkpointID)
}

// autoComplete scans the user's active runs and completes any whose
// locked version references one of the touched checkpoints and now has
// full signal coverage.
func (s *ProgressService) autoComplete(ctx context.Context, tx storage.Store, userID string, touched []uuid.UUID) error {
	runs, err := tx.ListRunsByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if !run.Active() {
			continue
		}
		version, err := tx.GetVersion(ctx, run.LockedVersionID)
		if err != nil {
			return err
		}
		if !referencesAny(version, touched) {
			continue
		}
		if _, err := s.runs.maybeCompleteAutomatic(ctx, tx, run); err != nil {
			return err
		}
	}
	return nil
}

func referencesAny(version *datatypes.Version, ids []uuid.UUID) bool {
	for _, id := range ids {
		if version.Ref(id) != nil {
			return true
		}
	}
	return false
}
