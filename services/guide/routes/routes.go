// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/services/guide/handlers"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
)

// SetupRoutes mounts the guide API: the public surface under /v1 and
// the editing surface under /v1/admin, which additionally requires the
// editor role. Ownership checks live in the service layer.
func SetupRoutes(router *gin.Engine, svc *services.Services,
	provider extensions.AuthProvider, metrics *observability.GuideMetrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(provider))
	{
		v1.GET("/routes", handlers.ListRoutes(svc))
		v1.GET("/routes/:routeId", handlers.GetRoute(svc))
		v1.GET("/routes/:routeId/checkpoints", handlers.ListCheckpoints(svc, metrics))

		// Run lifecycle
		v1.POST("/routes/:routeId/start", handlers.StartRun(svc, metrics))
		v1.POST("/routes/:routeId/finish", handlers.FinishRun(svc, metrics))
		v1.POST("/routes/:routeId/abandon", handlers.AbandonRun(svc, metrics))
		v1.GET("/runs", handlers.ListRuns(svc))
		v1.GET("/runs/:runId", handlers.GetRun(svc))

		// Progress reporting
		v1.POST("/checkpoints/:checkpointId/visited", handlers.ReportVisited(svc, metrics))
		v1.POST("/checkpoints/:checkpointId/audio-status", handlers.ReportAudioStatus(svc, metrics))
		v1.POST("/progress/sync", handlers.SyncProgress(svc, metrics))

		// Editing surface
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireEditor())
		{
			admin.GET("/routes", handlers.ListAllRoutes(svc))
			admin.POST("/routes", handlers.CreateRoute(svc))
			admin.GET("/routes/:routeId", handlers.GetRouteFull(svc))
			admin.PATCH("/routes/:routeId", handlers.UpdateRoute(svc))
			admin.GET("/routes/:routeId/versions", handlers.ListVersions(svc))
			admin.POST("/routes/:routeId/versions", handlers.CreateVersion(svc))
			admin.POST("/routes/:routeId/publish", handlers.PublishVersion(svc, metrics))

			admin.POST("/waypoints", handlers.CreateWaypoint(svc))
			admin.GET("/checkpoints/:checkpointId", handlers.GetWaypoint(svc))
			admin.PATCH("/checkpoints/:checkpointId", handlers.EditCheckpoint(svc))

			admin.POST("/versions/:versionId/checkpoints", handlers.AddCheckpoint(svc, metrics))
			admin.PUT("/versions/:versionId/checkpoints", handlers.ReorderCheckpoints(svc, metrics))
			admin.DELETE("/versions/:versionId/checkpoints/:checkpointId", handlers.RemoveCheckpoint(svc, metrics))

			admin.POST("/versions/:versionId/languages", handlers.SetLanguageReady(svc))
			admin.GET("/versions/:versionId/languages/:lang/completeness", handlers.GetLanguageCompleteness(svc))
			admin.POST("/versions/:versionId/languages/:lang/publish", handlers.PublishLanguage(svc))
			admin.DELETE("/versions/:versionId/languages/:lang", handlers.UnpublishLanguage(svc))
		}
	}
}
