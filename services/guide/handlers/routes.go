// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/middleware"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// parseUUIDParam reads a path parameter as a UUID, writing a 400 on
// failure. The bool reports whether parsing succeeded.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// ListRoutes returns the published, non-archived catalog. An optional
// city query parameter narrows the listing.
func ListRoutes(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID := 0
		if raw := c.Query("city"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid city"})
				return
			}
			cityID = parsed
		}

		routes, err := svc.Routes.ListPublished(c.Request.Context(), cityID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"routes": routes})
	}
}

// GetRoute returns one route with its published version summary. The
// summary never carries the editorial readiness map; end users see
// available_languages only.
func GetRoute(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}

		route, err := svc.Routes.Get(c.Request.Context(), routeID)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"route": route}
		if route.PublishedVersionID != nil {
			version, err := svc.Versions.Get(c.Request.Context(), *route.PublishedVersionID)
			if err != nil {
				respondError(c, err)
				return
			}
			resp["published_version"] = version.Summary()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetRouteFull returns one route with its full published version,
// readiness map and checkpoint structure included. Editor surface only.
func GetRouteFull(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}

		route, err := svc.Routes.Get(c.Request.Context(), routeID)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"route": route}
		if route.PublishedVersionID != nil {
			version, err := svc.Versions.Get(c.Request.Context(), *route.PublishedVersionID)
			if err != nil {
				respondError(c, err)
				return
			}
			resp["published_version"] = version
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CreateRoute creates a route with an empty working draft.
func CreateRoute(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RouteCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		route, err := svc.Routes.Create(c.Request.Context(), middleware.GetAuthInfo(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		slog.Info("route created", "route_id", route.ID, "slug", route.Slug)
		c.JSON(http.StatusCreated, gin.H{"route": route})
	}
}

// UpdateRoute patches route metadata; an archived flag flip runs
// through the route lifecycle state machine.
func UpdateRoute(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		var req datatypes.RouteUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		route, err := svc.Routes.Update(c.Request.Context(), middleware.GetAuthInfo(c), routeID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"route": route})
	}
}

// ListAllRoutes is the admin catalog view: every status, optionally
// archived included.
func ListAllRoutes(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := storage.RouteFilter{
			IncludeArchived: c.Query("include_archived") == "true",
		}
		if mine := c.Query("mine"); mine == "true" {
			if authInfo := middleware.GetAuthInfo(c); authInfo != nil {
				filter.CreatedBy = authInfo.UserID
			}
		}

		routes, err := svc.Routes.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"routes": routes})
	}
}

// ListCheckpoints returns the checkpoint list of the version the caller
// effectively sees: an active run's locked version when one exists,
// otherwise the published version. Hidden references are omitted and
// content resolves live from the pool in the requested language.
func ListCheckpoints(svc *services.Services, metrics *observability.GuideMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseUUIDParam(c, "routeId")
		if !ok {
			return
		}
		lang := c.DefaultQuery("lang", "en")
		userID := ""
		if authInfo := middleware.GetAuthInfo(c); authInfo != nil {
			userID = authInfo.UserID
		}

		view, err := svc.Versions.CheckpointView(c.Request.Context(), userID, routeID, lang)
		if err != nil {
			metrics.RecordRequest("list_checkpoints", false)
			respondError(c, err)
			return
		}
		metrics.RecordRequest("list_checkpoints", true)
		c.JSON(http.StatusOK, view)
	}
}
