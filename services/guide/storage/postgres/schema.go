// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package postgres

// schema is the idempotent DDL applied at startup.
//
// Notable constraints:
//   - routes_slug_key: one route per public slug.
//   - runs_one_active_per_user_route: partial unique index enforcing at
//     most one active run per (user, route). Terminal runs fall out of
//     the index, so history accumulates freely.
//   - progress primary key (user_id, checkpoint_id): one state row per
//     user per pool entry, regardless of device count.
const schema = `
CREATE TABLE IF NOT EXISTS routes (
    id                   UUID PRIMARY KEY,
    slug                 TEXT NOT NULL,
    city_id              INTEGER NOT NULL,
    status               TEXT NOT NULL,
    published_version_id UUID,
    draft_version_id     UUID NOT NULL,
    version_seq          INTEGER NOT NULL DEFAULT 0,
    created_by           TEXT NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL,
    CONSTRAINT routes_slug_key UNIQUE (slug)
);

CREATE INDEX IF NOT EXISTS routes_city_status_idx ON routes (city_id, status);

CREATE TABLE IF NOT EXISTS waypoints (
    id               UUID PRIMARY KEY,
    lat              DOUBLE PRECISION NOT NULL,
    lon              DOUBLE PRECISION NOT NULL,
    is_checkpoint    BOOLEAN NOT NULL,
    title_i18n       JSONB NOT NULL DEFAULT '{}',
    description_i18n JSONB NOT NULL DEFAULT '{}',
    audio_i18n       JSONB NOT NULL DEFAULT '{}',
    created_by       TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS route_versions (
    id                  UUID PRIMARY KEY,
    route_id            UUID NOT NULL REFERENCES routes (id),
    version_no          INTEGER NOT NULL DEFAULT 0,
    status              TEXT NOT NULL,
    distance_m          INTEGER NOT NULL DEFAULT 0,
    ascent_m            INTEGER NOT NULL DEFAULT 0,
    descent_m           INTEGER NOT NULL DEFAULT 0,
    duration_min        INTEGER NOT NULL DEFAULT 0,
    languages           JSONB NOT NULL DEFAULT '{}',
    available_languages JSONB NOT NULL DEFAULT '[]',
    published_at        TIMESTAMPTZ,
    created_by          TEXT NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS route_versions_route_idx ON route_versions (route_id);

CREATE TABLE IF NOT EXISTS version_checkpoints (
    version_id      UUID NOT NULL REFERENCES route_versions (id) ON DELETE CASCADE,
    waypoint_id     UUID NOT NULL REFERENCES waypoints (id),
    seq_no          INTEGER NOT NULL,
    display_label   TEXT NOT NULL DEFAULT '',
    is_visible      BOOLEAN NOT NULL DEFAULT TRUE,
    is_free_preview BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (version_id, waypoint_id),
    CONSTRAINT version_checkpoints_seq_key UNIQUE (version_id, seq_no)
);

CREATE TABLE IF NOT EXISTS runs (
    id                UUID PRIMARY KEY,
    user_id           TEXT NOT NULL,
    route_id          UUID NOT NULL REFERENCES routes (id),
    locked_version_id UUID NOT NULL REFERENCES route_versions (id),
    is_simulation     BOOLEAN NOT NULL DEFAULT FALSE,
    started_at        TIMESTAMPTZ NOT NULL,
    completed_at      TIMESTAMPTZ,
    completion_type   TEXT,
    abandoned_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS runs_one_active_per_user_route
    ON runs (user_id, route_id)
    WHERE completed_at IS NULL AND abandoned_at IS NULL;

CREATE INDEX IF NOT EXISTS runs_user_idx ON runs (user_id, started_at DESC);
CREATE INDEX IF NOT EXISTS runs_locked_version_idx ON runs (locked_version_id)
    WHERE completed_at IS NULL AND abandoned_at IS NULL;

CREATE TABLE IF NOT EXISTS checkpoint_progress (
    user_id            TEXT NOT NULL,
    checkpoint_id      UUID NOT NULL REFERENCES waypoints (id),
    visited            BOOLEAN NOT NULL DEFAULT FALSE,
    visited_at         TIMESTAMPTZ,
    audio_status       TEXT NOT NULL DEFAULT 'none',
    audio_started_at   TIMESTAMPTZ,
    audio_completed_at TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, checkpoint_id)
);
`
