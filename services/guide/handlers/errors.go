// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP surface of the guide service:
// public route browsing, run lifecycle, progress reporting and sync,
// and the admin editing API behind the structural change gate.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// respondError maps a service error onto the HTTP status space and
// writes the JSON error body. Unknown errors become 500 without leaking
// internals.
func respondError(c *gin.Context, err error) {
	var conflict *services.StructureChangeError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, datatypes.StructureConflict{
			Code:               "structural_change_requires_confirmation",
			Message:            conflict.Error(),
			AffectedUsersCount: conflict.ActiveRuns,
		})
		return
	}

	switch {
	case errors.Is(err, storage.ErrRouteNotFound),
		errors.Is(err, storage.ErrVersionNotFound),
		errors.Is(err, storage.ErrWaypointNotFound),
		errors.Is(err, storage.ErrRunNotFound),
		errors.Is(err, storage.ErrProgressNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, storage.ErrDuplicateSlug),
		errors.Is(err, storage.ErrDuplicateActiveRun),
		errors.Is(err, services.ErrDuplicateCheckpoint),
		errors.Is(err, services.ErrRunNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrNotRouteOwner),
		errors.Is(err, services.ErrNotRunOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrRouteNotPublished),
		errors.Is(err, services.ErrRouteArchived),
		errors.Is(err, services.ErrVersionNotDraft),
		errors.Is(err, services.ErrVersionRouteMismatch),
		errors.Is(err, services.ErrNoCheckpoints),
		errors.Is(err, services.ErrNoReadyLanguage),
		errors.Is(err, services.ErrLanguageIncomplete),
		errors.Is(err, services.ErrCheckpointNotInVersion):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	default:
		slog.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
