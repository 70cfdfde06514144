// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage defines the persistence contract for the guide service.
//
// Two backends implement Store: a Postgres backend for production and an
// in-memory backend for tests and local development. The service layer
// depends only on this interface.
//
// # Transaction Model
//
// WithTx runs a function against a transactional view of the store.
// Multi-entity invariants (publish, fork, run start, batch sync) execute
// inside WithTx; the ForUpdate variants take row locks that live until
// the transaction ends. Calling a ForUpdate method outside WithTx is a
// contract violation and backends may reject it.
//
// # Error Model
//
// Backends translate native failures into the package sentinel errors
// (ErrRouteNotFound, ErrDuplicateActiveRun, ...). The service layer
// matches with errors.Is and never sees driver-specific errors.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
)

// RouteFilter narrows ListRoutes results. Zero value lists everything
// except archived routes.
type RouteFilter struct {
	// Status keeps only routes with this status when non-empty.
	Status datatypes.RouteStatus

	// CityID keeps only routes in this city when non-zero.
	CityID int

	// CreatedBy keeps only routes owned by this user when non-empty.
	CreatedBy string

	// IncludeArchived includes archived routes, which are otherwise
	// always filtered out.
	IncludeArchived bool
}

// Store is the persistence contract for routes, versions, the checkpoint
// pool, runs, and progress records.
type Store interface {
	// WithTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Nested calls are not supported.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	RouteStore
	VersionStore
	WaypointStore
	RunStore
	ProgressStore

	// Close releases backend resources.
	Close() error
}

// RouteStore persists route product entities.
type RouteStore interface {
	// CreateRoute inserts a new route. Returns ErrDuplicateSlug when the
	// slug is taken.
	CreateRoute(ctx context.Context, route *datatypes.Route) error

	// GetRoute fetches a route by ID.
	GetRoute(ctx context.Context, id uuid.UUID) (*datatypes.Route, error)

	// GetRouteForUpdate fetches a route by ID holding a row lock for the
	// rest of the transaction. Publish and fork serialize on this lock.
	GetRouteForUpdate(ctx context.Context, id uuid.UUID) (*datatypes.Route, error)

	// GetRouteBySlug fetches a route by its public slug.
	GetRouteBySlug(ctx context.Context, slug string) (*datatypes.Route, error)

	// ListRoutes returns routes matching the filter, newest first.
	ListRoutes(ctx context.Context, filter RouteFilter) ([]*datatypes.Route, error)

	// UpdateRoute persists mutable route fields (slug, status, version
	// pointers, version counter).
	UpdateRoute(ctx context.Context, route *datatypes.Route) error
}

// VersionStore persists route version snapshots and their ordered
// checkpoint reference lists.
type VersionStore interface {
	// CreateVersion inserts a version together with its reference list.
	CreateVersion(ctx context.Context, version *datatypes.Version) error

	// GetVersion fetches a version by ID, reference list included.
	GetVersion(ctx context.Context, id uuid.UUID) (*datatypes.Version, error)

	// ListVersionsByRoute returns all versions of a route ordered by
	// version number descending (unnumbered drafts last).
	ListVersionsByRoute(ctx context.Context, routeID uuid.UUID) ([]*datatypes.Version, error)

	// UpdateVersion persists the version's mutable state: status,
	// reference list, metrics, readiness, available languages. Backends
	// replace the reference list wholesale.
	UpdateVersion(ctx context.Context, version *datatypes.Version) error
}

// WaypointStore persists checkpoint pool entries.
type WaypointStore interface {
	// CreateWaypoint inserts a new pool entry.
	CreateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error

	// GetWaypoint fetches a pool entry by ID.
	GetWaypoint(ctx context.Context, id uuid.UUID) (*datatypes.Waypoint, error)

	// GetWaypoints fetches multiple pool entries keyed by ID. Missing
	// IDs are absent from the map, not errors.
	GetWaypoints(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*datatypes.Waypoint, error)

	// UpdateWaypoint persists content edits to a pool entry. Identity
	// and the checkpoint flag never change.
	UpdateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error
}

// RunStore persists user runs.
type RunStore interface {
	// CreateRun inserts a run. Returns ErrDuplicateActiveRun when the
	// user already has an active run for the route.
	CreateRun(ctx context.Context, run *datatypes.Run) error

	// GetRun fetches a run by ID.
	GetRun(ctx context.Context, id uuid.UUID) (*datatypes.Run, error)

	// GetActiveRun fetches the user's single active run for a route.
	// Returns ErrRunNotFound when none exists.
	GetActiveRun(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error)

	// UpdateRun persists terminal state fields (completed_at,
	// completion_type, abandoned_at).
	UpdateRun(ctx context.Context, run *datatypes.Run) error

	// ListRunsByUser returns the user's runs, newest first.
	ListRunsByUser(ctx context.Context, userID string) ([]*datatypes.Run, error)

	// CountActiveRunsByVersion counts active runs locked to a version.
	// Simulation runs are excluded. Feeds the structural change gate.
	CountActiveRunsByVersion(ctx context.Context, versionID uuid.UUID) (int, error)
}

// ProgressStore persists per-(user, checkpoint) progress records.
type ProgressStore interface {
	// GetProgress fetches the record for a (user, checkpoint) key.
	// Returns ErrProgressNotFound when no record exists yet.
	GetProgress(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error)

	// GetProgressForUpdate is GetProgress holding a row lock for the
	// rest of the transaction. Concurrent merges for the same key
	// serialize on this lock. A missing record is still
	// ErrProgressNotFound; the caller inserts via UpsertProgress.
	GetProgressForUpdate(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error)

	// ListProgress fetches the user's records for the given checkpoint
	// IDs. Keys without a record are absent from the map.
	ListProgress(ctx context.Context, userID string, checkpointIDs []uuid.UUID) (map[uuid.UUID]*datatypes.ProgressRecord, error)

	// UpsertProgress inserts or replaces the record for its key.
	UpsertProgress(ctx context.Context, rec *datatypes.ProgressRecord) error
}
