// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
)

// CreateWaypoint adds a pool entry. The entry carries no route
// membership of its own; versions reference it.
func CreateWaypoint(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.WaypointCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		wp, err := svc.Pool.Create(c.Request.Context(), middleware.GetAuthInfo(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"waypoint": wp})
	}
}

// GetWaypoint returns a pool entry with its full translation maps.
func GetWaypoint(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		waypointID, ok := parseUUIDParam(c, "checkpointId")
		if !ok {
			return
		}
		wp, err := svc.Pool.Get(c.Request.Context(), waypointID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"waypoint": wp})
	}
}

// EditCheckpoint applies a content-only edit to a pool entry, and
// optionally to one version's reference attributes. Content edits are
// never gated: every version referencing the entry sees the new content
// immediately, published ones included.
func EditCheckpoint(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		waypointID, ok := parseUUIDParam(c, "checkpointId")
		if !ok {
			return
		}
		var req datatypes.CheckpointEditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		wp, err := svc.Gate.ApplyContent(c.Request.Context(), middleware.GetAuthInfo(c), waypointID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"waypoint": wp})
	}
}
