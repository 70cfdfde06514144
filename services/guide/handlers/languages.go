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

// SetLanguageReady flips the editorial readiness flag for a language on
// a version.
func SetLanguageReady(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		var req datatypes.LanguageReadyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		version, err := svc.Languages.MarkReady(c.Request.Context(), middleware.GetAuthInfo(c), versionID, req.LanguageCode, req.Ready)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}

// GetLanguageCompleteness reports per-checkpoint content coverage for
// one language across a version.
func GetLanguageCompleteness(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		lang := c.Param("lang")

		report, err := svc.Languages.Completeness(c.Request.Context(), versionID, lang)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// PublishLanguage exposes a language to end users; fails with 422 when
// any checkpoint lacks a title or audio for it.
func PublishLanguage(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		lang := c.Param("lang")

		version, err := svc.Languages.PublishLanguage(c.Request.Context(), middleware.GetAuthInfo(c), versionID, lang)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}

// UnpublishLanguage withdraws a language from public exposure.
func UnpublishLanguage(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, ok := parseUUIDParam(c, "versionId")
		if !ok {
			return
		}
		lang := c.Param("lang")

		version, err := svc.Languages.UnpublishLanguage(c.Request.Context(), middleware.GetAuthInfo(c), versionID, lang)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}
