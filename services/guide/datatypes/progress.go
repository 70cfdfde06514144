// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the per-checkpoint progress record and its merge
// rule. Each field is a small join-semilattice (boolean OR for visited,
// max-by-rank for audio status), so merging device reports is
// order-independent by construction: no sequence of reports, however
// reordered or repeated, can make stored progress regress.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Audio Status
// =============================================================================

// AudioStatus is the listening state of a checkpoint's audio track.
type AudioStatus string

const (
	AudioStatusNone      AudioStatus = "none"
	AudioStatusStarted   AudioStatus = "started"
	AudioStatusCompleted AudioStatus = "completed"
)

// Rank orders statuses none < started < completed for the monotonic
// merge. Unknown values rank below none and are never stored.
func (s AudioStatus) Rank() int {
	switch s {
	case AudioStatusNone:
		return 0
	case AudioStatusStarted:
		return 1
	case AudioStatusCompleted:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known audio status.
func (s AudioStatus) Valid() bool {
	return s.Rank() >= 0
}

// =============================================================================
// Progress Record
// =============================================================================

// ProgressRecord is the authoritative per-(user, checkpoint) state.
// One row per checkpoint per user, regardless of how many devices report.
// This is a state table, not an event log.
type ProgressRecord struct {
	UserID       string    `json:"user_id" db:"user_id"`
	CheckpointID uuid.UUID `json:"checkpoint_id" db:"checkpoint_id"`

	// Visited is monotonic: once true it stays true. VisitedAt is set on
	// the first transition to true and never overwritten.
	Visited   bool       `json:"visited" db:"visited"`
	VisitedAt *time.Time `json:"visited_at,omitempty" db:"visited_at"`

	// AudioStatus is monotonic along none < started < completed.
	AudioStatus      AudioStatus `json:"audio_status" db:"audio_status"`
	AudioStartedAt   *time.Time  `json:"audio_started_at,omitempty" db:"audio_started_at"`
	AudioCompletedAt *time.Time  `json:"audio_completed_at,omitempty" db:"audio_completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewProgressRecord returns the zero-progress record for a key.
func NewProgressRecord(userID string, checkpointID uuid.UUID, now time.Time) *ProgressRecord {
	return &ProgressRecord{
		UserID:       userID,
		CheckpointID: checkpointID,
		AudioStatus:  AudioStatusNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasSignal reports whether the checkpoint counts toward automatic run
// completion: visited by GPS or audio listened to the end.
func (p *ProgressRecord) HasSignal() bool {
	return p.Visited || p.AudioStatus == AudioStatusCompleted
}

// ProgressReport is one device's report for one checkpoint. Fields are
// optional; absent fields leave the stored state untouched.
type ProgressReport struct {
	CheckpointID uuid.UUID `json:"checkpoint_id" validate:"required"`

	// Visited, when present and true, raises the visited flag.
	// A false report is never an error; it is simply stale and ignored.
	Visited   *bool      `json:"visited,omitempty"`
	VisitedAt *time.Time `json:"visited_at,omitempty"`

	// AudioStatus, when present, proposes a listening state. Lower-ranked
	// proposals than the stored state are ignored.
	AudioStatus *AudioStatus `json:"audio_status,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
}

// Merge folds a device report into the record and reports whether any
// stored field changed. Applying the same report twice is a no-op on the
// second application.
//
// Rules, per field independently:
//   - visited: boolean OR; visited_at set on the first true transition.
//   - audio_status: max by rank. Equal or higher rank with a strictly
//     newer timestamp refreshes the matching *_at field; a lower rank is
//     ignored outright.
func (p *ProgressRecord) Merge(rep ProgressReport, now time.Time) bool {
	changed := false

	if rep.Visited != nil && *rep.Visited && !p.Visited {
		p.Visited = true
		at := now
		if rep.VisitedAt != nil {
			at = *rep.VisitedAt
		}
		p.VisitedAt = &at
		changed = true
	}

	if rep.AudioStatus != nil && rep.AudioStatus.Valid() {
		next := *rep.AudioStatus
		at := now
		if rep.Timestamp != nil {
			at = *rep.Timestamp
		}
		switch {
		case next.Rank() > p.AudioStatus.Rank():
			p.AudioStatus = next
			p.stampAudio(next, at)
			changed = true
		case next.Rank() == p.AudioStatus.Rank() && next != AudioStatusNone:
			// Same rank: only a strictly newer timestamp refreshes the
			// corresponding *_at field. Identical reports are no-ops.
			if p.refreshAudioAt(next, at) {
				changed = true
			}
		}
	}

	if changed {
		p.UpdatedAt = now
	}
	return changed
}

// stampAudio sets the *_at field matching the new status if unset.
func (p *ProgressRecord) stampAudio(s AudioStatus, at time.Time) {
	switch s {
	case AudioStatusStarted:
		if p.AudioStartedAt == nil {
			p.AudioStartedAt = &at
		}
	case AudioStatusCompleted:
		if p.AudioCompletedAt == nil {
			p.AudioCompletedAt = &at
		}
	}
}

// refreshAudioAt moves the *_at field forward for an equal-rank report
// with a strictly newer timestamp.
func (p *ProgressRecord) refreshAudioAt(s AudioStatus, at time.Time) bool {
	switch s {
	case AudioStatusStarted:
		if p.AudioStartedAt == nil {
			p.AudioStartedAt = &at
			return true
		}
		if at.After(*p.AudioStartedAt) {
			p.AudioStartedAt = &at
			return true
		}
	case AudioStatusCompleted:
		if p.AudioCompletedAt == nil {
			p.AudioCompletedAt = &at
			return true
		}
		if at.After(*p.AudioCompletedAt) {
			p.AudioCompletedAt = &at
			return true
		}
	}
	return false
}
