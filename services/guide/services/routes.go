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

// RouteService owns route lifecycle: creation with the initial draft
// version, slug/archival updates, and listing.
type RouteService struct {
	store  storage.Store
	logger *logging.Logger
}

// NewRouteService creates a RouteService.
func NewRouteService(store storage.Store, logger *logging.Logger) *RouteService {
	return &RouteService{store: store, logger: logger}
}

// Create creates a route together with its initial empty draft version.
//
// The route and version reference each other; the route is inserted
// first with a null published pointer, then the draft, then the draft
// pointer — all in one transaction.
func (s *RouteService) Create(ctx context.Context, actor *extensions.AuthInfo, req datatypes.RouteCreateRequest) (*datatypes.Route, error) {
	now := nowUTC()
	route := &datatypes.Route{
		ID:        uuid.New(),
		Slug:      req.Slug,
		CityID:    req.CityID,
		Status:    datatypes.RouteStatusDraft,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	draft := &datatypes.Version{
		ID:        uuid.New(),
		RouteID:   route.ID,
		Status:    datatypes.VersionStatusDraft,
		Languages: map[string]bool{},
		CreatedBy: actor.UserID,
		CreatedAt: now,
	}
	route.DraftVersionID = draft.ID

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateRoute(ctx, route); err != nil {
			return err
		}
		return tx.CreateVersion(ctx, draft)
	})
	if err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}

	s.logger.Info("route created",
		"route_id", route.ID, "slug", route.Slug, "created_by", actor.UserID)
	return route, nil
}

// Get fetches a route by ID.
func (s *RouteService) Get(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return s.store.GetRoute(ctx, id)
}

// List returns routes matching the filter.
func (s *RouteService) List(ctx context.Context, filter storage.RouteFilter) ([]*datatypes.Route, error) {
	return s.store.ListRoutes(ctx, filter)
}

// ListPublished returns publicly listed routes, optionally scoped to a
// city.
func (s *RouteService) ListPublished(ctx context.Context, cityID int) ([]*datatypes.Route, error) {
	return s.store.ListRoutes(ctx, storage.RouteFilter{
		Status: datatypes.RouteStatusPublished,
		CityID: cityID,
	})
}

// Update applies slug and archival changes. Archival is a status
// transition, never a delete; un-archiving is rejected by the
// transition table.
func (s *RouteService) Update(ctx context.Context, actor *extensions.AuthInfo, id uuid.UUID, req datatypes.RouteUpdateRequest) (*datatypes.Route, error) {
	var route *datatypes.Route
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		route, err = tx.GetRouteForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canEditRoute(actor, route) {
			return ErrNotRouteOwner
		}

		if req.Slug != nil {
			route.Slug = *req.Slug
		}
		if req.Archived != nil && *req.Archived {
			if !route.Status.CanTransitionTo(datatypes.RouteStatusArchived) {
				return ErrRouteArchived
			}
			route.Status = datatypes.RouteStatusArchived
		}
		route.UpdatedAt = nowUTC()
		return tx.UpdateRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("route updated", "route_id", route.ID, "status", route.Status)
	return route, nil
}
