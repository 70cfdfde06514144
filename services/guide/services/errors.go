// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine operations. Handlers map these onto HTTP
// statuses; not-found conditions surface as the storage sentinels
// unchanged.
var (
	// ErrRouteNotPublished is returned when starting a run on a route
	// with no published version.
	ErrRouteNotPublished = errors.New("route has no published version")

	// ErrRouteArchived is returned for user-facing operations against an
	// archived route.
	ErrRouteArchived = errors.New("route is archived")

	// ErrRunNotActive is returned when completing or abandoning a run
	// that is already in a terminal state.
	ErrRunNotActive = errors.New("run is not active")

	// ErrNotRunOwner is returned when a user operates on another user's
	// run.
	ErrNotRunOwner = errors.New("run belongs to another user")

	// ErrNotRouteOwner is returned when an editor mutates a route they
	// did not create. Admins bypass ownership.
	ErrNotRouteOwner = errors.New("route belongs to another editor")

	// ErrVersionNotDraft is returned when publishing a version that is
	// not in a mutable pre-publish state.
	ErrVersionNotDraft = errors.New("version is not a draft")

	// ErrVersionRouteMismatch is returned when a version ID does not
	// belong to the route named in the request.
	ErrVersionRouteMismatch = errors.New("version does not belong to route")

	// ErrNoCheckpoints is returned when publishing a version with an
	// empty reference list.
	ErrNoCheckpoints = errors.New("version has no checkpoint references")

	// ErrNoReadyLanguage is returned when publishing a version with no
	// language marked ready.
	ErrNoReadyLanguage = errors.New("version has no ready language")

	// ErrLanguageIncomplete is returned when publishing a language whose
	// checkpoints are missing titles or audio.
	ErrLanguageIncomplete = errors.New("language content is incomplete")

	// ErrCheckpointNotInVersion is returned when an operation names a
	// checkpoint the target version does not reference.
	ErrCheckpointNotInVersion = errors.New("checkpoint is not referenced by version")

	// ErrDuplicateCheckpoint is returned when structurally adding a pool
	// entry a version already references.
	ErrDuplicateCheckpoint = errors.New("checkpoint already referenced by version")
)

// StructureChangeError is the conflict returned when a structural edit
// targets a published version without confirmation. ActiveRuns is the
// number of non-simulation runs currently locked to that version,
// computed in the same transaction that would have forked.
type StructureChangeError struct {
	ActiveRuns int
}

func (e *StructureChangeError) Error() string {
	return fmt.Sprintf("structural change to published version requires confirmation (%d active runs affected)", e.ActiveRuns)
}
