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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// jsonbStringSlice stores a []string as a JSONB array column.
type jsonbStringSlice []string

func (s jsonbStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *jsonbStringSlice) Scan(src any) error {
	return scanJSONB(src, s)
}

// versionRow is the scan target for route_versions. The reference list
// is loaded from version_checkpoints separately.
type versionRow struct {
	ID                 uuid.UUID        `db:"id"`
	RouteID            uuid.UUID        `db:"route_id"`
	VersionNo          int              `db:"version_no"`
	Status             string           `db:"status"`
	DistanceM          int              `db:"distance_m"`
	AscentM            int              `db:"ascent_m"`
	DescentM           int              `db:"descent_m"`
	DurationMin        int              `db:"duration_min"`
	Languages          jsonbBoolMap     `db:"languages"`
	AvailableLanguages jsonbStringSlice `db:"available_languages"`
	PublishedAt        *time.Time       `db:"published_at"`
	CreatedBy          string           `db:"created_by"`
	CreatedAt          time.Time        `db:"created_at"`
}

func (r *versionRow) toVersion(refs []datatypes.CheckpointRef) *datatypes.Version {
	return &datatypes.Version{
		ID:                 r.ID,
		RouteID:            r.RouteID,
		VersionNo:          r.VersionNo,
		Status:             datatypes.VersionStatus(r.Status),
		Checkpoints:        refs,
		DistanceM:          r.DistanceM,
		AscentM:            r.AscentM,
		DescentM:           r.DescentM,
		DurationMin:        r.DurationMin,
		Languages:          map[string]bool(r.Languages),
		AvailableLanguages: []string(r.AvailableLanguages),
		PublishedAt:        r.PublishedAt,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt,
	}
}

const versionColumns = `id, route_id, version_no, status, distance_m, ascent_m,
	descent_m, duration_min, languages, available_languages, published_at,
	created_by, created_at`

func (s *Store) CreateVersion(ctx context.Context, version *datatypes.Version) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO route_versions (id, route_id, version_no, status, distance_m,
			ascent_m, descent_m, duration_min, languages, available_languages,
			published_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		version.ID, version.RouteID, version.VersionNo, version.Status,
		version.DistanceM, version.AscentM, version.DescentM, version.DurationMin,
		jsonbBoolMap(version.Languages), jsonbStringSlice(version.AvailableLanguages),
		version.PublishedAt, version.CreatedBy, version.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return s.insertRefs(ctx, version.ID, version.Checkpoints)
}

func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*datatypes.Version, error) {
	var row versionRow
	err := sqlx.GetContext(ctx, s.q, &row,
		`SELECT `+versionColumns+` FROM route_versions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrVersionNotFound
		}
		return nil, fmt.Errorf("select version: %w", err)
	}

	refs, err := s.loadRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toVersion(refs), nil
}

func (s *Store) ListVersionsByRoute(ctx context.Context, routeID uuid.UUID) ([]*datatypes.Version, error) {
	rows := []versionRow{}
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT `+versionColumns+` FROM route_versions WHERE route_id = $1
		ORDER BY version_no = 0, version_no DESC, created_at DESC`, routeID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	out := make([]*datatypes.Version, 0, len(rows))
	for i := range rows {
		refs, err := s.loadRefs(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, rows[i].toVersion(refs))
	}
	return out, nil
}

func (s *Store) UpdateVersion(ctx context.Context, version *datatypes.Version) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE route_versions SET version_no = $2, status = $3, distance_m = $4,
			ascent_m = $5, descent_m = $6, duration_min = $7, languages = $8,
			available_languages = $9, published_at = $10
		WHERE id = $1`,
		version.ID, version.VersionNo, version.Status, version.DistanceM,
		version.AscentM, version.DescentM, version.DurationMin,
		jsonbBoolMap(version.Languages), jsonbStringSlice(version.AvailableLanguages),
		version.PublishedAt)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	if rows == 0 {
		return storage.ErrVersionNotFound
	}

	// Replace the reference list wholesale.
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM version_checkpoints WHERE version_id = $1`, version.ID); err != nil {
		return fmt.Errorf("clear version refs: %w", err)
	}
	return s.insertRefs(ctx, version.ID, version.Checkpoints)
}

func (s *Store) insertRefs(ctx context.Context, versionID uuid.UUID, refs []datatypes.CheckpointRef) error {
	for _, ref := range refs {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO version_checkpoints (version_id, waypoint_id, seq_no,
				display_label, is_visible, is_free_preview)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			versionID, ref.WaypointID, ref.SeqNo, ref.DisplayLabel,
			ref.IsVisible, ref.IsFreePreview)
		if err != nil {
			return fmt.Errorf("insert version ref: %w", err)
		}
	}
	return nil
}

func (s *Store) loadRefs(ctx context.Context, versionID uuid.UUID) ([]datatypes.CheckpointRef, error) {
	refs := []datatypes.CheckpointRef{}
	err := sqlx.SelectContext(ctx, s.q, &refs, `
		SELECT waypoint_id, seq_no, display_label, is_visible, is_free_preview
		FROM version_checkpoints WHERE version_id = $1 ORDER BY seq_no`, versionID)
	if err != nil {
		return nil, fmt.Errorf("load version refs: %w", err)
	}
	return refs, nil
}
