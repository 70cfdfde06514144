// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
)

var versionTracer = otel.Tracer("aleutian.tours.handlers")

// ListVersions returns a route's version history, newest first.
func ListVersions(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		versions, err := svc.Versions.ListByRoute(c.Request.Context(), routeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"versions": versions})
	}
}

// CreateVersion creates a new draft for a route, optionally seeded from
// an existing version's structure.
func CreateVersion(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		var req datatypes.VersionCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		draft, err := svc.Versions.CreateDraft(c.Request.Context(), middleware.GetAuthInfo(c), routeID, req.BaseVersionID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"version": draft})
	}
}

// PublishVersion promotes a draft to the route's published version.
func PublishVersion(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := versionTracer.Start(c.Request.Context(), "PublishVersion")
		defer span.End()

		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		var req datatypes.PublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		version, err := svc.Versions.Publish(ctx, middleware.GetAuthInfo(c), routeID, req.VersionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordPublish(false)
			respondError(c, err)
			return
		}
		metrics.RecordPublish(true)
		slog.Info("version published", "route_id", routeID, "version_no", version.VersionNo)
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}

// AddCheckpoint adds a pool waypoint to a version's reference list.
// On a published version this is a structural change: without the
// confirmation flag the request fails with 409 and the affected-run
// count; with it the edit lands on a forked draft.
func AddCheckpoint(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		var req datatypes.StructuralAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		edit := services.StructuralEdit{
			Op:            services.StructuralAdd,
			WaypointID:    req.WaypointID,
			SeqNo:         req.SeqNo,
			IsVisible:     true,
			DisplayLabel:  req.DisplayLabel,
			IsFreePreview: req.IsFreePreview,
		}
		applyStructural(c, svc, metrics, versionID, edit, req.ConfirmStructureChange)
	}
}

// RemoveCheckpoint removes a waypoint reference from a version, under
// the same gate as AddCheckpoint.
func RemoveCheckpoint(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		checkpointID, ok := parseUUIDParam(c, "checkpointId")
		if !ok {
			return
		}

		edit := services.StructuralEdit{
			Op:         services.StructuralRemove,
			WaypointID: checkpointID,
		}
		applyStructural(c, svc, metrics, versionID, edit, c.Query("confirm") == "true")
	}
}

// ReorderCheckpoints replaces a version's checkpoint ordering with the
// submitted permutation, under the same gate as AddCheckpoint.
func ReorderCheckpoints(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		var req datatypes.ReorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		edit := services.StructuralEdit{
			Op:    services.StructuralReorder,
			Order: req.Order,
		}
		applyStructural(c, svc, metrics, versionID, edit, req.ConfirmStructureChange)
	}
}

func applyStructural(c *gin.Context, svc *services.Services, metrics *observability.GuideMetrics,
	versionID uuid.UUID, edit services.StructuralEdit, confirm bool) {
	version, forked, err := svc.Gate.ApplyStructural(c.Request.Context(), middleware.GetAuthInfo(c), versionID, edit, confirm)
	if err != nil {
		var conflict *services.StructureChangeError
		if errors.As(err, &conflict) {
			metrics.RecordGate(observability.GateOutcomeBlocked)
		}
		respondError(c, err)
		return
	}
	if forked {
		metrics.RecordGate(observability.GateOutcomeForked)
	} else {
		metrics.RecordGate(observability.GateOutcomeInPlace)
	}
	c.JSON(http.StatusOK, gin.H{"version": version, "forked": forked})
}
