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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
)

func TestLanguageService_Completeness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 10)
	_, v1 := publishedRoute(t, env, wps)

	// English: all ten have titles, none has audio yet.
	report, err := env.svc.Languages.Completeness(ctx, v1.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 10, report.WithTitle)
	assert.Equal(t, 0, report.WithAudio)
	assert.False(t, report.IsComplete)
	assert.Len(t, report.Missing, 10)

	// Add English audio to eight of ten.
	for i := 0; i < 8; i++ {
		_, err := env.svc.Gate.ApplyContent(ctx, editorActor, wps[i], datatypes.CheckpointEditRequest{
			AudioI18n: map[string]string{"en": fmt.Sprintf("audio/en/%d.mp3", i+1)},
		})
		require.NoError(t, err)
	}

	report, err = env.svc.Languages.Completeness(ctx, v1.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, 8, report.WithAudio)
	assert.False(t, report.IsComplete)
	assert.ElementsMatch(t, wps[8:], report.Missing)

	// Russian was fully seeded.
	report, err = env.svc.Languages.Completeness(ctx, v1.ID, "ru")
	require.NoError(t, err)
	assert.True(t, report.IsComplete)
	assert.Empty(t, report.Missing)
}

func TestLanguageService_PublishLanguage_GatesOnCompleteness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 2)
	_, v1 := publishedRoute(t, env, wps)

	_, err := env.svc.Languages.PublishLanguage(ctx, editorActor, v1.ID, "en")
	assert.ErrorIs(t, err, ErrLanguageIncomplete)

	for i, id := range wps {
		_, err := env.svc.Gate.ApplyContent(ctx, editorActor, id, datatypes.CheckpointEditRequest{
			AudioI18n: map[string]string{"en": fmt.Sprintf("audio/en/%d.mp3", i+1)},
		})
		require.NoError(t, err)
	}

	version, err := env.svc.Languages.PublishLanguage(ctx, editorActor, v1.ID, "en")
	require.NoError(t, err)
	assert.Contains(t, version.AvailableLanguages, "en")
	assert.True(t, version.Languages["en"], "publishing marks the language ready")
}

func TestLanguageService_PublishLanguage_ChecksCurrentContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 2)
	_, v1 := publishedRoute(t, env, wps)

	// Withdraw Russian, then strip one checkpoint's audio. The publish
	// attempt must see the edited content, not the state it had when the
	// language was last complete.
	_, err := env.svc.Languages.UnpublishLanguage(ctx, editorActor, v1.ID, "ru")
	require.NoError(t, err)
	_, err = env.svc.Gate.ApplyContent(ctx, editorActor, wps[0], datatypes.CheckpointEditRequest{
		AudioI18n: map[string]string{"ru": ""},
	})
	require.NoError(t, err)

	_, err = env.svc.Languages.PublishLanguage(ctx, editorActor, v1.ID, "ru")
	assert.ErrorIs(t, err, ErrLanguageIncomplete)

	version, err := env.svc.Versions.Get(ctx, v1.ID)
	require.NoError(t, err)
	assert.NotContains(t, version.AvailableLanguages, "ru")
}

func TestLanguageService_MarkReady_WithdrawsAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)
	_, v1 := publishedRoute(t, env, wps)

	version, err := env.svc.Languages.PublishLanguage(ctx, editorActor, v1.ID, "ru")
	require.NoError(t, err)
	require.Contains(t, version.AvailableLanguages, "ru")

	version, err = env.svc.Languages.MarkReady(ctx, editorActor, v1.ID, "ru", false)
	require.NoError(t, err)
	assert.NotContains(t, version.AvailableLanguages, "ru")
	assert.False(t, version.Languages["ru"])
}

func TestLanguageService_UnpublishLanguage_KeepsReadiness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wps := createWaypoints(t, env, 1)
	_, v1 := publishedRoute(t, env, wps)

	_, err := env.svc.Languages.PublishLanguage(ctx, editorActor, v1.ID, "ru")
	require.NoError(t, err)

	version, err := env.svc.Languages.UnpublishLanguage(ctx, editorActor, v1.ID, "ru")
	require.NoError(t, err)
	assert.NotContains(t, version.AvailableLanguages, "ru")
	assert.True(t, version.Languages["ru"])
}

func TestLanguageService_MarkReady_InvalidCode(t *testing.T) {
	env := newTestEnv(t)
	wps := createWaypoints(t, env, 1)
	_, v1 := publishedRoute(t, env, wps)

	_, err := env.svc.Languages.MarkReady(context.Background(), editorActor, v1.ID, "russian!", true)
	assert.Error(t, err)
}

func TestLanguageService_Ownership(t *testing.T) {
	env := newTestEnv(t)
	wps := createWaypoints(t, env, 1)
	_, v1 := publishedRoute(t, env, wps)

	_, err := env.svc.Languages.MarkReady(context.Background(), otherEditor, v1.ID, "de", true)
	assert.ErrorIs(t, err, ErrNotRouteOwner)
}
