// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
)

var progressTracer = otel.Tracer("aleutian.tours.handlers")

// ReportVisited records a GPS visit for a checkpoint. Replays are
// harmless: the stored record is monotonic.
func ReportVisited(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkpointID, ok := parseUUIDParam(c, "checkpointId")
		if !ok {
			return
		}
		var req datatypes.VisitedRequest
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		record, err := svc.Progress.ReportVisited(c.Request.Context(), authInfo.UserID, checkpointID, req)
		if err != nil {
			metrics.RecordRequest("report_visited", false)
			respondError(c, err)
			return
		}
		metrics.RecordRequest("report_visited", true)
		c.JSON(http.StatusOK, gin.H{"progress": record})
	}
}

// ReportAudioStatus records an audio playback state for a checkpoint.
// Downgrades are ignored, never errors.
func ReportAudioStatus(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkpointID, ok := parseUUIDParam(c, "checkpointId")
		if !ok {
			return
		}
		var req datatypes.AudioStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		record, err := svc.Progress.ReportAudio(c.Request.Context(), authInfo.UserID, checkpointID, req)
		if err != nil {
			metrics.RecordRequest("report_audio", false)
			respondError(c, err)
			return
		}
		metrics.RecordRequest("report_audio", true)
		c.JSON(http.StatusOK, gin.H{"progress": record})
	}
}

// SyncProgress applies a batch of offline progress reports in one
// transaction and returns the authoritative state: applied and ignored
// counts, conflicting checkpoint IDs, and the recomputed route
// progress.
func SyncProgress(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := progressTracer.Start(c.Request.Context(), "SyncProgress")
		defer span.End()

		var req datatypes.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		resp, err := svc.Progress.Sync(ctx, authInfo.UserID, req.RouteID, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("sync", false)
			respondError(c, err)
			return
		}
		metrics.RecordRequest("sync", true)
		metrics.RecordSync(resp.SyncedCount, resp.IgnoredCount, len(resp.Conflicts))
		c.JSON(http.StatusOK, resp)
	}
}
