// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import "errors"

// Sentinel errors for storage operations. Backends translate their
// native failures (sql.ErrNoRows, unique violations) into these so the
// service layer never inspects driver errors.
var (
	// ErrRouteNotFound is returned when a route ID or slug resolves to
	// no row.
	ErrRouteNotFound = errors.New("route not found")

	// ErrVersionNotFound is returned when a version ID resolves to no row.
	ErrVersionNotFound = errors.New("version not found")

	// ErrWaypointNotFound is returned when a pool entry ID resolves to
	// no row.
	ErrWaypointNotFound = errors.New("waypoint not found")

	// ErrRunNotFound is returned when a run ID resolves to no row, or
	// when a user has no active run for a route.
	ErrRunNotFound = errors.New("run not found")

	// ErrProgressNotFound is returned when no progress record exists for
	// a (user, checkpoint) key.
	ErrProgressNotFound = errors.New("progress record not found")

	// ErrDuplicateActiveRun is returned when inserting a second active
	// run for the same (user, route) pair. The partial unique index
	// enforces this under concurrency; callers refetch the winner.
	ErrDuplicateActiveRun = errors.New("active run already exists for user and route")

	// ErrDuplicateSlug is returned when creating a route with a slug
	// that is already taken.
	ErrDuplicateSlug = errors.New("route slug already exists")
)
