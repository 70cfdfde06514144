// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the run types. A run is one user's session against
// one version, locked at start time. The locked version never changes
// for the life of the run, no matter how often the route republishes.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Run State
// =============================================================================

// RunState is the derived lifecycle state of a run.
type RunState string

const (
	// RunStateActive means neither completed_at nor abandoned_at is set.
	RunStateActive RunState = "active"

	// RunStateCompleted is terminal, reached by manual or automatic
	// completion.
	RunStateCompleted RunState = "completed"

	// RunStateAbandoned is terminal, reached only by explicit user
	// action. There is no abandonment timeout.
	RunStateAbandoned RunState = "abandoned"
)

// runTransitions is the closed set of legal run state moves.
var runTransitions = map[RunState][]RunState{
	RunStateActive:    {RunStateCompleted, RunStateAbandoned},
	RunStateCompleted: {},
	RunStateAbandoned: {},
}

// CanTransitionTo reports whether the state may move to next.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, t := range runTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CompletionType distinguishes how a run completed.
type CompletionType string

const (
	// CompletionManual is an explicit user action regardless of
	// checkpoint coverage.
	CompletionManual CompletionType = "manual"

	// CompletionAutomatic is derived: every checkpoint in the locked
	// version has some progress signal.
	CompletionAutomatic CompletionType = "automatic"
)

// Valid reports whether t is a known completion type.
func (t CompletionType) Valid() bool {
	return t == CompletionManual || t == CompletionAutomatic
}

// =============================================================================
// Run
// =============================================================================

// Run is one user's session against one locked route version.
//
// Runs are never deleted. Completion and abandonment are terminal states,
// not erasures; a new start after either creates a fresh run locked to
// whatever is published at that moment.
type Run struct {
	ID      uuid.UUID `json:"id" db:"id"`
	UserID  string    `json:"user_id" db:"user_id"`
	RouteID uuid.UUID `json:"route_id" db:"route_id"`

	// LockedVersionID is fixed at start and never changes afterwards.
	LockedVersionID uuid.UUID `json:"locked_version_id" db:"locked_version_id"`

	// IsSimulation marks editor test runs, excluded from analytics.
	IsSimulation bool `json:"is_simulation" db:"is_simulation"`

	StartedAt      time.Time       `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CompletionType *CompletionType `json:"completion_type,omitempty" db:"completion_type"`
	AbandonedAt    *time.Time      `json:"abandoned_at,omitempty" db:"abandoned_at"`
}

// State derives the current lifecycle state from the terminal timestamps.
func (r *Run) State() RunState {
	switch {
	case r.CompletedAt != nil:
		return RunStateCompleted
	case r.AbandonedAt != nil:
		return RunStateAbandoned
	default:
		return RunStateActive
	}
}

// Active reports whether the run is still in progress.
func (r *Run) Active() bool {
	return r.State() == RunStateActive
}

// RouteProgress is the on-demand computed progress of a run against its
// locked version's checkpoint set. Never stored.
type RouteProgress struct {
	Visited    int     `json:"visited"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}
