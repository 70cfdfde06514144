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

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

const runColumns = `id, user_id, route_id, locked_version_id, is_simulation,
	started_at, completed_at, completion_type, abandoned_at`

func (s *Store) CreateRun(ctx context.Context, run *datatypes.Run) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO runs (id, user_id, route_id, locked_version_id, is_simulation,
			started_at, completed_at, completion_type, abandoned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.UserID, run.RouteID, run.LockedVersionID, run.IsSimulation,
		run.StartedAt, run.CompletedAt, run.CompletionType, run.AbandonedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", translateUnique(err))
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*datatypes.Run, error) {
	var run datatypes.Run
	err := sqlx.GetContext(ctx, s.q, &run,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRunNotFound
		}
		return nil, fmt.Errorf("select run: %w", err)
	}
	return &run, nil
}

func (s *Store) GetActiveRun(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	var run datatypes.Run
	err := sqlx.GetContext(ctx, s.q, &run, `
		SELECT `+runColumns+` FROM runs
		WHERE user_id = $1 AND route_id = $2
			AND completed_at IS NULL AND abandoned_at IS NULL`,
		userID, routeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRunNotFound
		}
		return nil, fmt.Errorf("select active run: %w", err)
	}
	return &run, nil
}

func (s *Store) UpdateRun(ctx context.Context, run *datatypes.Run) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE runs SET completed_at = $2, completion_type = $3, abandoned_at = $4
		WHERE id = $1`,
		run.ID, run.CompletedAt, run.CompletionType, run.AbandonedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if rows == 0 {
		return storage.ErrRunNotFound
	}
	return nil
}

func (s *Store) ListRunsByUser(ctx context.Context, userID string) ([]*datatypes.Run, error) {
	runs := []*datatypes.Run{}
	err := sqlx.SelectContext(ctx, s.q, &runs,
		`SELECT `+runColumns+` FROM runs WHERE user_id = $1 ORDER BY started_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *Store) CountActiveRunsByVersion(ctx context.Context, versionID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.q, &count, `
		SELECT COUNT(*) FROM runs
		WHERE locked_version_id = $1 AND is_simulation = FALSE
			AND completed_at IS NULL AND abandoned_at IS NULL`,
		versionID)
	if err != nil {
		return 0, fmt.Errorf("count active runs: %w", err)
	}
	return count, nil
}
