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
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// waypointRow is the scan target for waypoints with JSONB content maps.
type waypointRow struct {
	ID              uuid.UUID      `db:"id"`
	Lat             float64        `db:"lat"`
	Lon             float64        `db:"lon"`
	IsCheckpoint    bool           `db:"is_checkpoint"`
	TitleI18n       jsonbStringMap `db:"title_i18n"`
	DescriptionI18n jsonbStringMap `db:"description_i18n"`
	AudioI18n       jsonbStringMap `db:"audio_i18n"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *waypointRow) toWaypoint() *datatypes.Waypoint {
	return &datatypes.Waypoint{
		ID:              r.ID,
		Lat:             r.Lat,
		Lon:             r.Lon,
		IsCheckpoint:    r.IsCheckpoint,
		TitleI18n:       map[string]string(r.TitleI18n),
		DescriptionI18n: map[string]string(r.DescriptionI18n),
		AudioI18n:       map[string]string(r.AudioI18n),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const waypointColumns = `id, lat, lon, is_checkpoint, title_i18n,
	description_i18n, audio_i18n, created_by, created_at, updated_at`

func (s *Store) CreateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO waypoints (id, lat, lon, is_checkpoint, title_i18n,
			description_i18n, audio_i18n, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		wp.ID, wp.Lat, wp.Lon, wp.IsCheckpoint,
		jsonbStringMap(wp.TitleI18n), jsonbStringMap(wp.DescriptionI18n),
		jsonbStringMap(wp.AudioI18n), wp.CreatedBy, wp.CreatedAt, wp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert waypoint: %w", err)
	}
	return nil
}

func (s *Store) GetWaypoint(ctx context.Context, id uuid.UUID) (*datatypes.Waypoint, error) {
	var row waypointRow
	err := sqlx.GetContext(ctx, s.q, &row,
		`SELECT `+waypointColumns+` FROM waypoints WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrWaypointNotFound
		}
		return nil, fmt.Errorf("select waypoint: %w", err)
	}
	return row.toWaypoint(), nil
}

func (s *Store) GetWaypoints(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*datatypes.Waypoint, error) {
	out := make(map[uuid.UUID]*datatypes.Waypoint, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	rows := []waypointRow{}
	err := sqlx.SelectContext(ctx, s.q, &rows,
		`SELECT `+waypointColumns+` FROM waypoints WHERE id = ANY($1)`,
		pq.Array(idStrs))
	if err != nil {
		return nil, fmt.Errorf("select waypoints: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].toWaypoint()
	}
	return out, nil
}

func (s *Store) UpdateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE waypoints SET lat = $2, lon = $3, title_i18n = $4,
			description_i18n = $5, audio_i18n = $6, updated_at = $7
		WHERE id = $1`,
		wp.ID, wp.Lat, wp.Lon,
		jsonbStringMap(wp.TitleI18n), jsonbStringMap(wp.DescriptionI18n),
		jsonbStringMap(wp.AudioI18n), wp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update waypoint: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update waypoint: %w", err)
	}
	if rows == 0 {
		return storage.ErrWaypointNotFound
	}
	return nil
}
