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

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
)

// StartRun starts or resumes the caller's run on a route. Starting an
// already-active run returns the existing run with 200; a fresh start
// returns 201.
func StartRun(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		var req datatypes.StartRunRequest
		// An empty body means a plain start.
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		run, resumed, err := svc.Runs.Start(c.Request.Context(), authInfo.UserID, routeID, req.Simulation)
		if err != nil {
			metrics.RecordRequest("start_run", false)
			respondError(c, err)
			return
		}
		metrics.RecordRequest("start_run", true)
		if resumed {
			metrics.RecordRunEvent(observability.RunEventResumed)
			c.JSON(http.StatusOK, gin.H{"run": run, "resumed": true})
			return
		}
		metrics.RecordRunEvent(observability.RunEventStarted)
		c.JSON(http.StatusCreated, gin.H{"run": run, "resumed": false})
	}
}

// FinishRun completes the caller's active run on a route by explicit
// request, regardless of checkpoint coverage.
func FinishRun(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		run, err := svc.Runs.CompleteManual(c.Request.Context(), authInfo.UserID, routeID)
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.RecordRunEvent(observability.RunEventCompletedManual)
		c.JSON(http.StatusOK, gin.H{"run": run})
	}
}

// AbandonRun terminates the caller's active run on a route.
func AbandonRun(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		run, err := svc.Runs.Abandon(c.Request.Context(), authInfo.UserID, routeID)
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.RecordRunEvent(observability.RunEventAbandoned)
		c.JSON(http.StatusOK, gin.H{"run": run})
	}
}

// ListRuns returns the caller's runs; ?active=true narrows to active
// ones.
func ListRuns(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		activeOnly := c.Query("active") == "true"

		runs, err := svc.Runs.List(c.Request.Context(), authInfo.UserID, activeOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

// GetRun returns one of the caller's runs with its computed progress
// against the locked version.
func GetRun(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, ok := parseUUIDParam(c, "runId")
		if !ok {
			return
		}
		authInfo := middleware.GetAuthInfo(c)

		run, err := svc.Runs.Get(c.Request.Context(), authInfo.UserID, runID)
		if err != nil {
			respondError(c, err)
			return
		}
		progress, err := svc.Runs.Progress(c.Request.Context(), run)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run, "progress": progress})
	}
}
