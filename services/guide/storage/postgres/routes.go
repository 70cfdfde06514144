// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

const routeColumns = `id, slug, city_id, status, published_version_id,
	draft_version_id, version_seq, created_by, created_at, updated_at`

func (s *Store) CreateRoute(ctx context.Context, route *datatypes.Route) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO routes (id, slug, city_id, status, published_version_id,
			draft_version_id, version_seq, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		route.ID, route.Slug, route.CityID, route.Status, route.PublishedVersionID,
		route.DraftVersionID, route.VersionSeq, route.CreatedBy, route.CreatedAt, route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert route: %w", translateUnique(err))
	}
	return nil
}

func (s *Store) GetRoute(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return s.getRoute(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id)
}

func (s *Store) GetRouteForUpdate(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return s.getRoute(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) GetRouteBySlug(ctx context.Context, slug string) (*datatypes.Route, error) {
	return s.getRoute(ctx, `SELECT `+routeColumns+` FROM routes WHERE slug = $1`, slug)
}

func (s *Store) getRoute(ctx context.Context, query string, arg any) (*datatypes.Route, error) {
	var route datatypes.Route
	if err := sqlx.GetContext(ctx, s.q, &route, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRouteNotFound
		}
		return nil, fmt.Errorf("select route: %w", err)
	}
	return &route, nil
}

func (s *Store) ListRoutes(ctx context.Context, filter storage.RouteFilter) ([]*datatypes.Route, error) {
	conds := []string{"TRUE"}
	var args []any
	if !filter.IncludeArchived {
		conds = append(conds, "status <> 'archived'")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CityID != 0 {
		args = append(args, filter.CityID)
		conds = append(conds, fmt.Sprintf("city_id = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conds = append(conds, fmt.Sprintf("created_by = $%d", len(args)))
	}

	query := `SELECT ` + routeColumns + ` FROM routes WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	routes := []*datatypes.Route{}
	if err := sqlx.SelectContext(ctx, s.q, &routes, query, args...); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

func (s *Store) UpdateRoute(ctx context.Context, route *datatypes.Route) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE routes SET slug = $2, status = $3, published_version_id = $4,
			draft_version_id = $5, version_seq = $6, updated_at = $7
		WHERE id = $1`,
		route.ID, route.Slug, route.Status, route.PublishedVersionID,
		route.DraftVersionID, route.VersionSeq, route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update route: %w", translateUnique(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	if rows == 0 {
		return storage.ErrRouteNotFound
	}
	return nil
}
