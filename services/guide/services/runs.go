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

// RunService owns the run lifecycle: idempotent start against the
// current published version, explicit abandonment, manual completion,
// and the derived automatic completion check.
type RunService struct {
	store  storage.Store
	logger *logging.Logger
}

// NewRunService creates a RunService.
func NewRunService(store storage.Store, logger *logging.Logger) *RunService {
	return &RunService{store: store, logger: logger}
}

// Start begins or resumes a run.
//
// An existing active run for the (user, route) pair is returned
// unchanged; otherwise a new run locks to the route's current published
// version. The locked version never changes for the life of the run.
// Returns whether an existing run was resumed.
//
// Two concurrent first starts race on the active-run uniqueness
// constraint; the loser refetches the winner's run, so the caller never
// sees the conflict.
func (s *RunService) Start(ctx context.Context, userID string, routeID uuid.UUID, simulation bool) (*datatypes.Run, bool, error) {
	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return nil, false, err
	}
	if route.Status == datatypes.RouteStatusArchived {
		return nil, false, ErrRouteArchived
	}
	if route.PublishedVersionID == nil {
		return nil, false, ErrRouteNotPublished
	}

	if existing, err := s.store.GetActiveRun(ctx, userID, routeID); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, storage.ErrRunNotFound) {
		return nil, false, err
	}

	run := &datatypes.Run{
		ID:              uuid.New(),
		UserID:          userID,
		RouteID:         routeID,
		LockedVersionID: *route.PublishedVersionID,
		IsSimulation:    simulation,
		StartedAt:       nowUTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateActiveRun) {
			// Lost the race: the concurrent start's run is the run.
			return s.refetchActive(ctx, userID, routeID)
		}
		return nil, false, err
	}

	s.logger.Info("run started",
		"run_id", run.ID, "user_id", userID, "route_id", routeID,
		"locked_version_id", run.LockedVersionID, "simulation", simulation)
	return run, false, nil
}

func (s *RunService) refetchActive(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, bool, error) {
	existing, err := s.store.GetActiveRun(ctx, userID, routeID)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// Get fetches a run, enforcing that it belongs to the caller.
func (s *RunService) Get(ctx context.Context, userID string, runID uuid.UUID) (*datatypes.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		return nil, ErrNotRunOwner
	}
	return run, nil
}

// List returns the caller's runs, optionally only active ones.
func (s *RunService) List(ctx context.Context, userID string, activeOnly bool) ([]*datatypes.Run, error) {
	runs, err := s.store.ListRunsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return runs, nil
	}
	active := runs[:0]
	for _, run := range runs {
		if run.Active() {
			active = append(active, run)
		}
	}
	return active, nil
}

// Abandon terminates the user's active run on a route. Only the run's
// owner may abandon it, and only from the active state. A later Start
// creates a fresh run locked to whatever is then published.
func (s *RunService) Abandon(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	var run *datatypes.Run
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		run, err = tx.GetActiveRun(ctx, userID, routeID)
		if err != nil {
			if errors.Is(err, storage.ErrRunNotFound) {
				return ErrRunNotActive
			}
			return err
		}

		now := nowUTC()
		run.AbandonedAt = &now
		return tx.UpdateRun(ctx, run)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("run abandoned", "run_id", run.ID, "user_id", userID, "route_id", routeID)
	return run, nil
}

// CompleteManual completes the user's active run on a route by explicit
// request, regardless of checkpoint coverage.
func (s *RunService) CompleteManual(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	var run *datatypes.Run
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		run, err = tx.GetActiveRun(ctx, userID, routeID)
		if err != nil {
			if errors.Is(err, storage.ErrRunNotFound) {
				return ErrRunNotActive
			}
			return err
		}
		return completeRun(ctx, tx, run, datatypes.CompletionManual)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("run completed",
		"run_id", run.ID, "user_id", userID, "completion_type", datatypes.CompletionManual)
	return run, nil
}

// Progress computes the run's progress against its locked version's
// checkpoint set, on demand, never stored. A checkpoint counts when its
// progress record carries any signal (visited or audio completed), the
// same predicate automatic completion uses. Non-checkpoint entries are
// excluded from the total.
func (s *RunService) Progress(ctx context.Context, run *datatypes.Run) (*datatypes.RouteProgress, error) {
	return s.progressIn(ctx, s.store, run)
}

func (s *RunService) progressIn(ctx context.Context, store storage.Store, run *datatypes.Run) (*datatypes.RouteProgress, error) {
	version, err := store.GetVersion(ctx, run.LockedVersionID)
	if err != nil {
		return nil, err
	}
	checkpointIDs, err := checkpointSet(ctx, store, version)
	if err != nil {
		return nil, err
	}

	records, err := store.ListProgress(ctx, run.UserID, checkpointIDs)
	if err != nil {
		return nil, err
	}

	progress := &datatypes.RouteProgress{Total: len(checkpointIDs)}
	for _, id := range checkpointIDs {
		if rec, ok := records[id]; ok && rec.HasSignal() {
			progress.Visited++
		}
	}
	if progress.Total > 0 {
		progress.Percentage = float64(progress.Visited) / float64(progress.Total) * 100
	}
	return progress, nil
}

// maybeCompleteAutomatic completes the run when every checkpoint in its
// locked version has a progress signal. Called after progress merges,
// inside the same transaction. A run already terminal is left alone.
func (s *RunService) maybeCompleteAutomatic(ctx context.Context, tx storage.Store, run *datatypes.Run) (bool, error) {
	if !run.Active() {
		return false, nil
	}

	progress, err := s.progressIn(ctx, tx, run)
	if err != nil {
		return false, err
	}
	if progress.Total == 0 || progress.Visited < progress.Total {
		return false, nil
	}

	if err := completeRun(ctx, tx, run, datatypes.CompletionAutomatic); err != nil {
		return false, err
	}
	s.logger.Info("run completed",
		"run_id", run.ID, "user_id", run.UserID, "completion_type", datatypes.CompletionAutomatic)
	return true, nil
}

// completeRun applies the active -> completed transition.
func completeRun(ctx context.Context, tx storage.Store, run *datatypes.Run, ct datatypes.CompletionType) error {
	if !run.State().CanTransitionTo(datatypes.RunStateCompleted) {
		return ErrRunNotActive
	}
	now := nowUTC()
	run.CompletedAt = &now
	run.CompletionType = &ct
	return tx.UpdateRun(ctx, run)
}

// checkpointSet returns the version's referenced pool IDs that are
// checkpoints, in sequence order.
func checkpointSet(ctx context.Context, store storage.Store, version *datatypes.Version) ([]uuid.UUID, error) {
	waypoints, err := store.GetWaypoints(ctx, version.WaypointIDs())
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, ref := range version.Checkpoints {
		if wp, ok := waypoints[ref.WaypointID]; ok && wp.IsCheckpoint {
			ids = append(ids, ref.WaypointID)
		}
	}
	return ids, nil
}
