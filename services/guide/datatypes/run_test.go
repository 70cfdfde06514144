// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRunState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from RunState
		to   RunState
		want bool
	}{
		{"active to completed", RunStateActive, RunStateCompleted, true},
		{"active to abandoned", RunStateActive, RunStateAbandoned, true},
		{"completed is terminal", RunStateCompleted, RunStateActive, false},
		{"abandoned is terminal", RunStateAbandoned, RunStateActive, false},
		{"completed to abandoned", RunStateCompleted, RunStateAbandoned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCompletionType_Valid(t *testing.T) {
	assert.True(t, CompletionManual.Valid())
	assert.True(t, CompletionAutomatic.Valid())
	assert.False(t, CompletionType("timeout").Valid())
}

func TestRun_State(t *testing.T) {
	now := time.Now().UTC()
	manual := CompletionManual

	tests := []struct {
		name string
		run  Run
		want RunState
	}{
		{
			name: "fresh run is active",
			run:  Run{ID: uuid.New(), StartedAt: now},
			want: RunStateActive,
		},
		{
			name: "completed_at set means completed",
			run:  Run{StartedAt: now, CompletedAt: &now, CompletionType: &manual},
			want: RunStateCompleted,
		},
		{
			name: "abandoned_at set means abandoned",
			run:  Run{StartedAt: now, AbandonedAt: &now},
			want: RunStateAbandoned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.State())
			assert.Equal(t, tt.want == RunStateActive, tt.run.Active())
		})
	}
}
