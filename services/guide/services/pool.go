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

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// PoolService owns the checkpoint pool. Identity and the checkpoint
// flag are fixed at creation; content edits flow through the gate.
type PoolService struct {
	store  storage.Store
	logger *logging.Logger
}

// NewPoolService creates a PoolService.
func NewPoolService(store storage.Store, logger *logging.Logger) *PoolService {
	return &PoolService{store: store, logger: logger}
}

// Create registers a new pool entry. IsCheckpoint defaults to true.
func (s *PoolService) Create(ctx context.Context, actor *extensions.AuthInfo, req datatypes.WaypointCreateRequest) (*datatypes.Waypoint, error) {
	isCheckpoint := true
	if req.IsCheckpoint != nil {
		isCheckpoint = *req.IsCheckpoint
	}

	now := nowUTC()
	wp := &datatypes.Waypoint{
		ID:              uuid.New(),
		Lat:             req.Lat,
		Lon:             req.Lon,
		IsCheckpoint:    isCheckpoint,
		TitleI18n:       req.TitleI18n,
		DescriptionI18n: req.DescriptionI18n,
		AudioI18n:       req.AudioI18n,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if wp.DescriptionI18n == nil {
		wp.DescriptionI18n = map[string]string{}
	}
	if wp.AudioI18n == nil {
		wp.AudioI18n = map[string]string{}
	}

	if err := s.store.CreateWaypoint(ctx, wp); err != nil {
		return nil, fmt.Errorf("create waypoint: %w", err)
	}

	s.logger.Info("waypoint created",
		"waypoint_id", wp.ID, "is_checkpoint", wp.IsCheckpoint, "created_by", actor.UserID)
	return wp, nil
}

// Get fetches a pool entry by ID.
func (s *PoolService) Get(ctx context.Context, id uuid.UUID) (*datatypes.Waypoint, error) {
	return s.store.GetWaypoint(ctx, id)
}
