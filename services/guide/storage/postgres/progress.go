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
	"github.com/lib/pq"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

const progressColumns = `user_id, checkpoint_id, visited, visited_at,
	audio_status, audio_started_at, audio_completed_at, created_at, updated_at`

func (s *Store) GetProgress(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return s.getProgress(ctx, userID, checkpointID, "")
}

func (s *Store) GetProgressForUpdate(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return s.getProgress(ctx, userID, checkpointID, " FOR UPDATE")
}

func (s *Store) getProgress(ctx context.Context, userID string, checkpointID uuid.UUID, suffix string) (*datatypes.ProgressRecord, error) {
	var rec datatypes.ProgressRecord
	err := sqlx.GetContext(ctx, s.q, &rec,
		`SELECT `+progressColumns+` FROM checkpoint_progress
		WHERE user_id = $1 AND checkpoint_id = $2`+suffix,
		userID, checkpointID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProgressNotFound
		}
		return nil, fmt.Errorf("select progress: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListProgress(ctx context.Context, userID string, checkpointIDs []uuid.UUID) (map[uuid.UUID]*datatypes.ProgressRecord, error) {
	out := make(map[uuid.UUID]*datatypes.ProgressRecord, len(checkpointIDs))
	if len(checkpointIDs) == 0 {
		return out, nil
	}

	idStrs := make([]string, len(checkpointIDs))
	for i, id := range checkpointIDs {
		idStrs[i] = id.String()
	}

	recs := []*datatypes.ProgressRecord{}
	err := sqlx.SelectContext(ctx, s.q, &recs, `
		SELECT `+progressColumns+` FROM checkpoint_progress
		WHERE user_id = $1 AND checkpoint_id = ANY($2)`,
		userID, pq.Array(idStrs))
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	for _, rec := range recs {
		out[rec.CheckpointID] = rec
	}
	return out, nil
}

func (s *Store) UpsertProgress(ctx context.Context, rec *datatypes.ProgressRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO checkpoint_progress (user_id, checkpoint_id, visited,
			visited_at, audio_status, audio_started_at, audio_completed_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, checkpoint_id) DO UPDATE SET
			visited = EXCLUDED.visited,
			visited_at = EXCLUDED.visited_at,
			audio_status = EXCLUDED.audio_status,
			audio_started_at = EXCLUDED.audio_started_at,
			audio_completed_at = EXCLUDED.audio_completed_at,
			updated_at = EXCLUDED.updated_at`,
		rec.UserID, rec.CheckpointID, rec.Visited, rec.VisitedAt,
		rec.AudioStatus, rec.AudioStartedAt, rec.AudioCompletedAt,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
