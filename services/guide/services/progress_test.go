// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
)

func TestProgressService_ReportVisited_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)
	publishedRoute(t, env, wps)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec, err := env.svc.Progress.ReportVisited(ctx, "user-1", wps[0], datatypes.VisitedRequest{VisitedAt: &first})
	require.NoError(t, err)
	assert.True(t, rec.Visited)
	require.NotNil(t, rec.VisitedAt)
	assert.Equal(t, first, *rec.VisitedAt)

	// A repeat visit keeps the original timestamp.
	later := first.Add(time.Hour)
	rec, err = env.svc.Progress.ReportVisited(ctx, "user-1", wps[0], datatypes.VisitedRequest{VisitedAt: &later})
	require.NoError(t, err)
	assert.Equal(t, first, *rec.VisitedAt)
}

func TestProgressService_ReportAudio_Monotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)
	publishedRoute(t, env, wps)

	rec, err := env.svc.Progress.ReportAudio(ctx, "user-1", wps[0],
		datatypes.AudioStatusRequest{Status: datatypes.AudioStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, datatypes.AudioStatusCompleted, rec.AudioStatus)

	// A late-arriving "started" never downgrades.
	rec, err = env.svc.Progress.ReportAudio(ctx, "user-1", wps[0],
		datatypes.AudioStatusRequest{Status: datatypes.AudioStatusStarted})
	require.NoError(t, err)
	assert.Equal(t, datatypes.AudioStatusCompleted, rec.AudioStatus)
}

func TestProgressService_Report_UnknownCheckpoint(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Progress.ReportVisited(context.Background(), "user-1", uuid.New(), datatypes.VisitedRequest{})
	assert.Error(t, err)
}

func TestProgressService_AutoCompletesRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)
	route, _ := publishedRoute(t, env, wps)

	run, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)

	for _, id := range wps[:2] {
		_, err := env.svc.Progress.ReportVisited(ctx, "user-1", id, datatypes.VisitedRequest{})
		require.NoError(t, err)
	}
	got, err := env.svc.Runs.Get(ctx, "user-1", run.ID)
	require.NoError(t, err)
	assert.True(t, got.Active(), "two of three signals: still active")

	// The last signal arrives as completed audio, not a GPS visit.
	_, err = env.svc.Progress.ReportAudio(ctx, "user-1", wps[2],
		datatypes.AudioStatusRequest{Status: datatypes.AudioStatusCompleted})
	require.NoError(t, err)

	got, err = env.svc.Runs.Get(ctx, "user-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunStateCompleted, got.State())
	require.NotNil(t, got.CompletionType)
	assert.Equal(t, datatypes.CompletionAutomatic, *got.CompletionType)
}

func TestProgressService_ProgressSurvivesFork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)
	route, v1 := publishedRoute(t, env, wps)

	run, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)
	for _, id := range wps[:2] {
		_, err := env.svc.Progress.ReportVisited(ctx, "user-1", id, datatypes.VisitedRequest{})
		require.NoError(t, err)
	}

	// Fork the published version with a fourth checkpoint and publish it.
	extra := createWaypoints(t, env, 1)
	fork, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, v1.ID,
		StructuralEdit{Op: StructuralAdd, WaypointID: extra[0]}, true)
	require.NoError(t, err)
	_, err = env.svc.Versions.Publish(ctx, editorActor, route.ID, fork.ID)
	require.NoError(t, err)

	// The run still measures against its locked three-checkpoint version.
	progress, err := env.svc.Runs.Progress(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Visited)
	assert.Equal(t, 3, progress.Total)

	// Visiting the third completes the run automatically at 3/3; the new
	// fourth checkpoint never enters the picture.
	_, err = env.svc.Progress.ReportVisited(ctx, "user-1", wps[2], datatypes.VisitedRequest{})
	require.NoError(t, err)

	got, err := env.svc.Runs.Get(ctx, "user-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunStateCompleted, got.State())

	// A fresh run against the new version starts at 0/4 but keeps the
	// pool-keyed progress for the three shared checkpoints.
	fresh, _, err := env.svc.Runs.Start(ctx, "user-2", route.ID, false)
	require.NoError(t, err)
	progress, err = env.svc.Runs.Progress(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 0, progress.Visited)

	sameUser, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)
	progress, err = env.svc.Runs.Progress(ctx, sameUser)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 3, progress.Visited, "shared checkpoints carry their progress")
}

func TestProgressService_Sync_AppliedAndIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)
	route, _ := publishedRoute(t, env, wps)

	_, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)
	_, err = env.svc.Progress.ReportVisited(ctx, "user-1", wps[0], datatypes.VisitedRequest{})
	require.NoError(t, err)

	visited := true
	started := datatypes.AudioStatusStarted
	resp, err := env.svc.Progress.Sync(ctx, "user-1", route.ID, datatypes.SyncRequest{
		RouteID: route.ID,
		Updates: []datatypes.ProgressReport{
			{CheckpointID: wps[0], Visited: &visited},      // replay, ignored
			{CheckpointID: wps[1], Visited: &visited},      // new visit
			{CheckpointID: wps[2], AudioStatus: &started},  // new audio state
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SyncedCount)
	assert.Equal(t, 1, resp.IgnoredCount)
	assert.Empty(t, resp.Conflicts)

	require.NotNil(t, resp.RouteProgress)
	assert.Equal(t, 2, resp.RouteProgress.Visited)
	assert.Equal(t, 3, resp.RouteProgress.Total)
	assert.Len(t, resp.Checkpoints, 3)
}

func TestProgressService_Sync_ConflictsForUnknownCheckpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 2)
	route, _ := publishedRoute(t, env, wps)

	_, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)

	ghost := uuid.New()
	visited := true
	resp, err := env.svc.Progress.Sync(ctx, "user-1", route.ID, datatypes.SyncRequest{
		RouteID: route.ID,
		Updates: []datatypes.ProgressReport{
			{CheckpointID: wps[0], Visited: &visited},
			{CheckpointID: ghost, Visited: &visited},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SyncedCount)
	assert.Equal(t, []uuid.UUID{ghost}, resp.Conflicts)
}

func TestProgressService_Sync_CompletesRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 2)
	route, _ := publishedRoute(t, env, wps)

	run, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)

	visited := true
	resp, err := env.svc.Progress.Sync(ctx, "user-1", route.ID, datatypes.SyncRequest{
		RouteID: route.ID,
		Updates: []datatypes.ProgressReport{
			{CheckpointID: wps[0], Visited: &visited},
			{CheckpointID: wps[1], Visited: &visited},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SyncedCount)

	got, err := env.svc.Runs.Get(ctx, "user-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunStateCompleted, got.State())
	require.NotNil(t, got.CompletionType)
	assert.Equal(t, datatypes.CompletionAutomatic, *got.CompletionType)
}

func TestProgressService_Sync_NoActiveRunUsesPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 2)
	route, _ := publishedRoute(t, env, wps)

	visited := true
	resp, err := env.svc.Progress.Sync(ctx, "user-1", route.ID, datatypes.SyncRequest{
		RouteID: route.ID,
		Updates: []datatypes.ProgressReport{{CheckpointID: wps[0], Visited: &visited}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SyncedCount)
	assert.Nil(t, resp.RouteProgress, "no run, no route progress")
	assert.Len(t, resp.Checkpoints, 1)
}

func TestProgressService_Sync_FixedClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	withClock(t, at)

	wps := createWaypoints(t, env, 1)
	route, _ := publishedRoute(t, env, wps)

	visited := true
	_, err := env.svc.Progress.Sync(ctx, "user-1", route.ID, datatypes.SyncRequest{
		RouteID: route.ID,
		Updates: []datatypes.ProgressReport{{CheckpointID: wps[0], Visited: &visited}},
	})
	require.NoError(t, err)

	rec, err := env.svc.Progress.Get(ctx, "user-1", wps[0])
	require.NoError(t, err)
	require.NotNil(t, rec.VisitedAt)
	assert.Equal(t, at, *rec.VisitedAt)
	assert.Equal(t, at, rec.UpdatedAt)
}
