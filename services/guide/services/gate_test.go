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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
)

func TestGate_ApplyContent_MergesPoolContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)

	wp, err := env.svc.Gate.ApplyContent(ctx, editorActor, wps[0], datatypes.CheckpointEditRequest{
		TitleI18n:       map[string]string{"de": "Haltepunkt 1"},
		DescriptionI18n: map[string]string{"ru": "Описание"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Haltepunkt 1", wp.TitleI18n["de"])
	assert.Equal(t, "Точка 1", wp.TitleI18n["ru"], "untouched languages keep their content")
	assert.Equal(t, "Описание", wp.DescriptionI18n["ru"])
}

func TestGate_ApplyContent_EmptyValueRemovesKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)

	wp, err := env.svc.Gate.ApplyContent(ctx, editorActor, wps[0], datatypes.CheckpointEditRequest{
		TitleI18n: map[string]string{"en": ""},
	})
	require.NoError(t, err)
	_, ok := wp.TitleI18n["en"]
	assert.False(t, ok)
	assert.Equal(t, "Точка 1", wp.TitleI18n["ru"])
}

func TestGate_ApplyContent_RefAttrsOnPublishedVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)
	_, v1 := publishedRoute(t, env, wps)

	label := "Checkpoint A"
	preview := true
	_, err := env.svc.Gate.ApplyContent(ctx, editorActor, wps[0], datatypes.CheckpointEditRequest{
		VersionID:     &v1.ID,
		DisplayLabel:  &label,
		IsFreePreview: &preview,
	})
	require.NoError(t, err)

	// Attribute edits are content, not structure: no fork, applied in
	// place even on the published version.
	got, err := env.svc.Versions.Get(ctx, v1.ID)
	require.NoError(t, err)
	ref := got.Ref(wps[0])
	require.NotNil(t, ref)
	assert.Equal(t, "Checkpoint A", ref.DisplayLabel)
	assert.True(t, ref.IsFreePreview)
	assert.Equal(t, datatypes.VersionStatusPublished, got.Status)
}

func TestGate_ApplyStructural_DraftMutatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)

	route, err := env.svc.Routes.Create(ctx, editorActor, datatypes.RouteCreateRequest{Slug: "wip", CityID: 1})
	require.NoError(t, err)

	for _, id := range wps {
		version, forked, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
			StructuralEdit{Op: StructuralAdd, WaypointID: id}, false)
		require.NoError(t, err)
		assert.False(t, forked)
		assert.Equal(t, route.DraftVersionID, version.ID)
	}

	version, err := env.svc.Versions.Get(ctx, route.DraftVersionID)
	require.NoError(t, err)
	require.Len(t, version.Checkpoints, 3)
	for i, ref := range version.Checkpoints {
		assert.Equal(t, i+1, ref.SeqNo)
		assert.Equal(t, wps[i], ref.WaypointID)
	}
}

func TestGate_ApplyStructural_InsertAtPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)

	route, err := env.svc.Routes.Create(ctx, editorActor, datatypes.RouteCreateRequest{Slug: "insert", CityID: 1})
	require.NoError(t, err)
	for _, id := range wps[:2] {
		_, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
			StructuralEdit{Op: StructuralAdd, WaypointID: id}, false)
		require.NoError(t, err)
	}

	pos := 1
	version, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralAdd, WaypointID: wps[2], SeqNo: &pos}, false)
	require.NoError(t, err)

	got := version.WaypointIDs()
	assert.Equal(t, []uuid.UUID{wps[2], wps[0], wps[1]}, got)
	assert.Equal(t, 1, version.Checkpoints[0].SeqNo)
	assert.Equal(t, 3, version.Checkpoints[2].SeqNo)
}

func TestGate_ApplyStructural_DuplicateAdd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)

	route, err := env.svc.Routes.Create(ctx, editorActor, datatypes.RouteCreateRequest{Slug: "dup", CityID: 1})
	require.NoError(t, err)
	_, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralAdd, WaypointID: wps[0]}, false)
	require.NoError(t, err)

	_, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralAdd, WaypointID: wps[0]}, false)
	assert.ErrorIs(t, err, ErrDuplicateCheckpoint)
}

func TestGate_ApplyStructural_RemoveAndReorder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)

	route, err := env.svc.Routes.Create(ctx, editorActor, datatypes.RouteCreateRequest{Slug: "shuffle", CityID: 1})
	require.NoError(t, err)
	for _, id := range wps {
		_, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
			StructuralEdit{Op: StructuralAdd, WaypointID: id}, false)
		require.NoError(t, err)
	}

	version, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralReorder, Order: []uuid.UUID{wps[2], wps[0], wps[1]}}, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{wps[2], wps[0], wps[1]}, version.WaypointIDs())

	version, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralRemove, WaypointID: wps[0]}, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{wps[2], wps[1]}, version.WaypointIDs())
	assert.Equal(t, 1, version.Checkpoints[0].SeqNo)
	assert.Equal(t, 2, version.Checkpoints[1].SeqNo)

	_, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralRemove, WaypointID: wps[0]}, false)
	assert.ErrorIs(t, err, ErrCheckpointNotInVersion)

	_, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
		StructuralEdit{Op: StructuralReorder, Order: []uuid.UUID{wps[2]}}, false)
	assert.ErrorIs(t, err, ErrCheckpointNotInVersion, "partial permutation rejected")
}

func TestGate_ApplyStructural_PublishedBlockedWithoutConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)
	route, v1 := publishedRoute(t, env, wps)
	extra := createWaypoints(t, env, 1)

	// Two real active runs plus one simulation; the conflict reports
	// only the real ones.
	_, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)
	_, _, err = env.svc.Runs.Start(ctx, "user-2", route.ID, false)
	require.NoError(t, err)
	_, _, err = env.svc.Runs.Start(ctx, "editor-1", route.ID, true)
	require.NoError(t, err)

	_, _, err = env.svc.Gate.ApplyStructural(ctx, editorActor, v1.ID,
		StructuralEdit{Op: StructuralAdd, WaypointID: extra[0]}, false)
	var conflict *StructureChangeError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.ActiveRuns)

	// The published version is untouched.
	got, err := env.svc.Versions.Get(ctx, v1.ID)
	require.NoError(t, err)
	assert.Len(t, got.Checkpoints, 3)
}

func TestGate_ApplyStructural_ConfirmedForksDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 3)
	route, v1 := publishedRoute(t, env, wps)
	extra := createWaypoints(t, env, 1)

	run, _, err := env.svc.Runs.Start(ctx, "user-1", route.ID, false)
	require.NoError(t, err)

	forkedVersion, forked, err := env.svc.Gate.ApplyStructural(ctx, editorActor, v1.ID,
		StructuralEdit{Op: StructuralAdd, WaypointID: extra[0]}, true)
	require.NoError(t, err)
	assert.True(t, forked)
	assert.NotEqual(t, v1.ID, forkedVersion.ID)
	assert.Equal(t, datatypes.VersionStatusDraft, forkedVersion.Status)
	assert.Len(t, forkedVersion.Checkpoints, 4)

	// The published version and the run locked to it are untouched.
	got, err := env.svc.Versions.Get(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.VersionStatusPublished, got.Status)
	assert.Len(t, got.Checkpoints, 3)

	gotRun, err := env.svc.Runs.Get(ctx, "user-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, gotRun.LockedVersionID)

	// The route's working draft now points at the fork.
	route, err = env.svc.Routes.Get(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, forkedVersion.ID, route.DraftVersionID)
}

func TestGate_ApplyStructural_Ownership(t *testing.T) {
	env := newTestEnv(t)
	wps := createWaypoints(t, env, 1)
	route, _ := publishedRoute(t, env, wps)
	extra := createWaypoints(t, env, 1)

	_, _, err := env.svc.Gate.ApplyStructural(context.Background(), otherEditor, route.DraftVersionID,
		StructuralEdit{Op: StructuralAdd, WaypointID: extra[0]}, false)
	assert.ErrorIs(t, err, ErrNotRouteOwner)
}

func TestStructureChangeError_Message(t *testing.T) {
	err := &StructureChangeError{ActiveRuns: 5}
	assert.Contains(t, err.Error(), "5")
}
