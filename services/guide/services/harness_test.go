// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage/memory"
)

type testEnv struct {
	store *memory.Store
	svc   *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	logger := logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { _ = logger.Close() })
	return &testEnv{store: store, svc: New(store, logger)}
}

var (
	adminActor  = &extensions.AuthInfo{UserID: "admin-1", Roles: []string{"admin"}}
	editorActor = &extensions.AuthInfo{UserID: "editor-1", Roles: []string{"editor"}}
	otherEditor = &extensions.AuthInfo{UserID: "editor-2", Roles: []string{"editor"}}
)

// createWaypoints adds n pool entries with Russian and English titles and
// Russian audio, returning their IDs.
func createWaypoints(t *testing.T, env *testEnv, n int) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		wp, err := env.svc.Pool.Create(ctx, editorActor, datatypes.WaypointCreateRequest{
			Lat:       55.75 + float64(i)*0.001,
			Lon:       37.61 + float64(i)*0.001,
			TitleI18n: map[string]string{"ru": fmt.Sprintf("Точка %d", i+1), "en": fmt.Sprintf("Stop %d", i+1)},
			AudioI18n: map[string]string{"ru": fmt.Sprintf("audio/ru/%d.mp3", i+1)},
		})
		require.NoError(t, err)
		ids = append(ids, wp.ID)
	}
	return ids
}

// publishedRoute creates a route owned by editorActor, fills its draft
// with the given waypoints, marks Russian ready, publishes, and exposes
// Russian publicly. Returns the route and its published version.
func publishedRoute(t *testing.T, env *testEnv, waypointIDs []uuid.UUID) (*datatypes.Route, *datatypes.Version) {
	t.Helper()
	ctx := context.Background()

	route, err := env.svc.Routes.Create(ctx, editorActor, datatypes.RouteCreateRequest{
		Slug:   fmt.Sprintf("route-%s", uuid.NewString()[:8]),
		CityID: 1,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, route.DraftVersionID)

	for _, id := range waypointIDs {
		_, _, err := env.svc.Gate.ApplyStructural(ctx, editorActor, route.DraftVersionID,
			StructuralEdit{Op: StructuralAdd, WaypointID: id, IsVisible: true}, false)
		require.NoError(t, err)
	}

	_, err = env.svc.Languages.MarkReady(ctx, editorActor, route.DraftVersionID, "ru", true)
	require.NoError(t, err)

	version, err := env.svc.Versions.Publish(ctx, editorActor, route.ID, route.DraftVersionID)
	require.NoError(t, err)

	version, err = env.svc.Languages.PublishLanguage(ctx, editorActor, version.ID, "ru")
	require.NoError(t, err)

	route, err = env.svc.Routes.Get(ctx, route.ID)
	require.NoError(t, err)
	return route, version
}

// withClock pins the package clock for the duration of the test.
func withClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowUTC
	nowUTC = func() time.Time { return at }
	t.Cleanup(func() { nowUTC = orig })
}
